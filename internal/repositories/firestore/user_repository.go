package firestore

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"feira/internal/errs"
	"feira/internal/models"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
)

// UserRepository stores users in "users". Email uniqueness is enforced by a
// companion document per address in "userEmails", created in the same
// transaction as the user.
type UserRepository struct {
	client *firestore.Client
}

func (r *UserRepository) emailRef(email string) *firestore.DocumentRef {
	return r.client.Collection(userEmailsCollection).Doc(url.PathEscape(email))
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	userRef := r.client.Collection(usersCollection).Doc(user.ID)
	emailRef := r.emailRef(user.Email)

	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(emailRef); err == nil {
			return errs.Conflict("email %s is already registered", user.Email)
		} else if !isNotFound(err) {
			return fmt.Errorf("firestore: check email %s: %w", user.Email, err)
		}
		if err := tx.Create(emailRef, emailDocument{UserID: user.ID}); err != nil {
			return fmt.Errorf("firestore: reserve email %s: %w", user.Email, err)
		}
		if err := tx.Create(userRef, newUserDocument(*user)); err != nil {
			return fmt.Errorf("firestore: create user: %w", err)
		}
		return nil
	})
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	snap, err := r.emailRef(email).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, errs.NotFound("user", email)
		}
		return nil, fmt.Errorf("firestore: get user by email %s: %w", email, err)
	}
	var ref emailDocument
	if err := snap.DataTo(&ref); err != nil {
		return nil, fmt.Errorf("firestore: decode email %s: %w", email, err)
	}
	return r.GetByID(ctx, ref.UserID)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	snap, err := r.client.Collection(usersCollection).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, errs.NotFound("user", id)
		}
		return nil, fmt.Errorf("firestore: get user %s: %w", id, err)
	}
	var doc userDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore: decode user %s: %w", id, err)
	}
	u := doc.toModel(id)
	return &u, nil
}

// Update rewrites the user document; the email is immutable.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	ref := r.client.Collection(usersCollection).Doc(user.ID)
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return errs.NotFound("user", user.ID)
			}
			return fmt.Errorf("firestore: get user %s: %w", user.ID, err)
		}
		var current userDocument
		if err := snap.DataTo(&current); err != nil {
			return fmt.Errorf("firestore: decode user %s: %w", user.ID, err)
		}
		user.Email = current.Email
		user.CreatedAt = current.CreatedAt
		user.UpdatedAt = time.Now().UTC()
		return tx.Set(ref, newUserDocument(*user))
	})
}

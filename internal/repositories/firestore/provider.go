// Package firestore implements the repositories on Cloud Firestore.
//
// Firestore transactions require every read to happen before the first
// write. Repositories bound to a transaction therefore cache the documents
// they read, and stock releases use server-side increments so they never
// need a read of their own.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

const (
	defaultDialTimeout = 10 * time.Second
	envEmulatorHost    = "FIRESTORE_EMULATOR_HOST"

	productsCollection   = "products"
	ordersCollection     = "orders"
	usersCollection      = "users"
	userEmailsCollection = "userEmails"
)

// Config selects the Firestore project and, optionally, an emulator.
type Config struct {
	ProjectID    string
	EmulatorHost string
}

// NewClient dials Firestore. When an emulator host is configured the client
// connects without credentials over plaintext gRPC.
func NewClient(ctx context.Context, cfg Config, opts ...option.ClientOption) (*firestore.Client, error) {
	projectID := strings.TrimSpace(cfg.ProjectID)
	if projectID == "" {
		return nil, errors.New("firestore: project id is required")
	}

	ctx, cancel := context.WithTimeout(ctx, defaultDialTimeout)
	defer cancel()

	if host := strings.TrimSpace(cfg.EmulatorHost); host != "" {
		if os.Getenv(envEmulatorHost) == "" {
			_ = os.Setenv(envEmulatorHost, host)
		}
		opts = append(opts,
			option.WithoutAuthentication(),
			option.WithEndpoint(host),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore: create client: %w", err)
	}
	return client, nil
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func isAlreadyExists(err error) bool {
	return status.Code(err) == codes.AlreadyExists
}

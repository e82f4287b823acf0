package firestore

import (
	"time"

	"feira/internal/models"
)

type productDocument struct {
	ProducerID  string    `firestore:"producerId"`
	Name        string    `firestore:"name"`
	Description string    `firestore:"description"`
	Category    string    `firestore:"category"`
	Price       float64   `firestore:"price"`
	Stock       int       `firestore:"stock"`
	Unit        string    `firestore:"unit"`
	ImageURL    string    `firestore:"imageUrl"`
	IsAvailable bool      `firestore:"isAvailable"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

func newProductDocument(p models.Product) productDocument {
	return productDocument{
		ProducerID:  p.ProducerID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Price:       p.Price,
		Stock:       p.Stock,
		Unit:        p.Unit,
		ImageURL:    p.ImageURL,
		IsAvailable: p.IsAvailable,
		CreatedAt:   p.CreatedAt.UTC(),
		UpdatedAt:   p.UpdatedAt.UTC(),
	}
}

func (d productDocument) toModel(id string) models.Product {
	return models.Product{
		ID:          id,
		ProducerID:  d.ProducerID,
		Name:        d.Name,
		Description: d.Description,
		Category:    d.Category,
		Price:       d.Price,
		Stock:       d.Stock,
		Unit:        d.Unit,
		ImageURL:    d.ImageURL,
		IsAvailable: d.IsAvailable,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type orderItemDocument struct {
	ProductID   string  `firestore:"productId"`
	ProductName string  `firestore:"productName"`
	Price       float64 `firestore:"price"`
	Quantity    int     `firestore:"quantity"`
	Unit        string  `firestore:"unit"`
	Subtotal    float64 `firestore:"subtotal"`
}

type addressDocument struct {
	Street       string `firestore:"street"`
	Number       string `firestore:"number"`
	Complement   string `firestore:"complement"`
	Neighborhood string `firestore:"neighborhood"`
	City         string `firestore:"city"`
	State        string `firestore:"state"`
	ZipCode      string `firestore:"zipCode"`
}

// orderDocument embeds the items. ProductIDs duplicates their product ids so
// an array-contains query can answer "is this product referenced".
type orderDocument struct {
	ConsumerID            string              `firestore:"consumerId"`
	ProducerID            string              `firestore:"producerId"`
	LogisticsID           string              `firestore:"logisticsId"`
	Items                 []orderItemDocument `firestore:"items"`
	ProductIDs            []string            `firestore:"productIds"`
	DeliveryFee           float64             `firestore:"deliveryFee"`
	TotalAmount           float64             `firestore:"totalAmount"`
	Status                string              `firestore:"status"`
	DeliveryAddress       addressDocument     `firestore:"deliveryAddress"`
	Notes                 string              `firestore:"notes"`
	EstimatedDeliveryTime *time.Time          `firestore:"estimatedDeliveryTime"`
	CreatedAt             time.Time           `firestore:"createdAt"`
	UpdatedAt             time.Time           `firestore:"updatedAt"`
	DeliveredAt           *time.Time          `firestore:"deliveredAt"`
	Version               int                 `firestore:"version"`
}

func newOrderDocument(o models.Order) orderDocument {
	doc := orderDocument{
		ConsumerID:  o.ConsumerID,
		ProducerID:  o.ProducerID,
		LogisticsID: o.LogisticsID,
		Items:       make([]orderItemDocument, 0, len(o.Items)),
		ProductIDs:  make([]string, 0, len(o.Items)),
		DeliveryFee: o.DeliveryFee,
		TotalAmount: o.TotalAmount,
		Status:      string(o.Status),
		DeliveryAddress: addressDocument{
			Street:       o.DeliveryAddress.Street,
			Number:       o.DeliveryAddress.Number,
			Complement:   o.DeliveryAddress.Complement,
			Neighborhood: o.DeliveryAddress.Neighborhood,
			City:         o.DeliveryAddress.City,
			State:        o.DeliveryAddress.State,
			ZipCode:      o.DeliveryAddress.ZipCode,
		},
		Notes:                 o.Notes,
		EstimatedDeliveryTime: utcPtr(o.EstimatedDeliveryTime),
		CreatedAt:             o.CreatedAt.UTC(),
		UpdatedAt:             o.UpdatedAt.UTC(),
		DeliveredAt:           utcPtr(o.DeliveredAt),
		Version:               o.Version,
	}
	for _, item := range o.Items {
		doc.Items = append(doc.Items, orderItemDocument{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Price:       item.Price,
			Quantity:    item.Quantity,
			Unit:        item.Unit,
			Subtotal:    item.Subtotal,
		})
		doc.ProductIDs = append(doc.ProductIDs, item.ProductID)
	}
	return doc
}

func (d orderDocument) toModel(id string) models.Order {
	o := models.Order{
		ID:          id,
		ConsumerID:  d.ConsumerID,
		ProducerID:  d.ProducerID,
		LogisticsID: d.LogisticsID,
		Items:       make([]models.OrderItem, 0, len(d.Items)),
		DeliveryFee: d.DeliveryFee,
		TotalAmount: d.TotalAmount,
		Status:      models.OrderStatus(d.Status),
		DeliveryAddress: models.Address{
			Street:       d.DeliveryAddress.Street,
			Number:       d.DeliveryAddress.Number,
			Complement:   d.DeliveryAddress.Complement,
			Neighborhood: d.DeliveryAddress.Neighborhood,
			City:         d.DeliveryAddress.City,
			State:        d.DeliveryAddress.State,
			ZipCode:      d.DeliveryAddress.ZipCode,
		},
		Notes:                 d.Notes,
		EstimatedDeliveryTime: d.EstimatedDeliveryTime,
		CreatedAt:             d.CreatedAt,
		UpdatedAt:             d.UpdatedAt,
		DeliveredAt:           d.DeliveredAt,
		Version:               d.Version,
	}
	for _, item := range d.Items {
		o.Items = append(o.Items, models.OrderItem{
			OrderID:     id,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Price:       item.Price,
			Quantity:    item.Quantity,
			Unit:        item.Unit,
			Subtotal:    item.Subtotal,
		})
	}
	return o
}

type userDocument struct {
	Username  string            `firestore:"username"`
	Email     string            `firestore:"email"`
	Password  string            `firestore:"password"`
	Role      string            `firestore:"role"`
	Profile   map[string]string `firestore:"profile"`
	IsActive  bool              `firestore:"isActive"`
	CreatedAt time.Time         `firestore:"createdAt"`
	UpdatedAt time.Time         `firestore:"updatedAt"`
}

func newUserDocument(u models.User) userDocument {
	return userDocument{
		Username:  u.Username,
		Email:     u.Email,
		Password:  u.Password,
		Role:      string(u.Role),
		Profile:   u.Profile,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt.UTC(),
		UpdatedAt: u.UpdatedAt.UTC(),
	}
}

func (d userDocument) toModel(id string) models.User {
	return models.User{
		ID:        id,
		Username:  d.Username,
		Email:     d.Email,
		Password:  d.Password,
		Role:      models.Role(d.Role),
		Profile:   d.Profile,
		IsActive:  d.IsActive,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// emailDocument reserves an email address for one user id.
type emailDocument struct {
	UserID string `firestore:"userId"`
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

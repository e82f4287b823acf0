package models

import "time"

// DefaultUnit is used when a producer does not name a measurement unit.
const DefaultUnit = "unidade"

// Product represents an item a producer sells.
type Product struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ProducerID  string    `json:"producerId" gorm:"index;type:varchar(36);not null"`
	Name        string    `json:"name" gorm:"type:varchar(100);not null"`
	Description string    `json:"description" gorm:"type:text"`
	Category    string    `json:"category" gorm:"index;type:varchar(100)"`
	Price       float64   `json:"price" gorm:"not null"`
	Stock       int       `json:"stock" gorm:"not null;check:chk_products_stock,stock >= 0"`
	Unit        string    `json:"unit" gorm:"type:varchar(30)"`
	ImageURL    string    `json:"imageUrl" gorm:"type:varchar(500)"`
	IsAvailable bool      `json:"isAvailable" gorm:"not null"`
	CreatedAt   time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt   time.Time `json:"updatedAt"`
}


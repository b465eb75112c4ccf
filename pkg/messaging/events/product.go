// Package events holds the product lifecycle events published by the inventory service.
package events

import (
	"encoding/json"
	"time"
)

const (
	ProductCreatedSubject         = "inventory.products.created"
	ProductUpdatedSubject         = "inventory.products.updated"
	ProductQuantityChangedSubject = "inventory.products.quantity"
	ProductDeletedSubject         = "inventory.products.deleted"
)

// SubjectsWildcard matches every product event subject.
const SubjectsWildcard = "inventory.products.>"

// ProductSnapshot is the product state carried by created and updated events.
type ProductSnapshot struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	SKU         string  `json:"sku"`
	Category    string  `json:"category"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
}

type ProductCreated struct {
	Product    ProductSnapshot `json:"product"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func (e ProductCreated) Subject() string          { return ProductCreatedSubject }
func (e ProductCreated) Payload() ([]byte, error) { return json.Marshal(e) }

type ProductUpdated struct {
	Product    ProductSnapshot `json:"product"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func (e ProductUpdated) Subject() string          { return ProductUpdatedSubject }
func (e ProductUpdated) Payload() ([]byte, error) { return json.Marshal(e) }

type ProductQuantityChanged struct {
	ProductID  string    `json:"product_id"`
	SKU        string    `json:"sku"`
	Previous   int       `json:"previous"`
	Current    int       `json:"current"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e ProductQuantityChanged) Subject() string          { return ProductQuantityChangedSubject }
func (e ProductQuantityChanged) Payload() ([]byte, error) { return json.Marshal(e) }

type ProductDeleted struct {
	ProductID  string    `json:"product_id"`
	SKU        string    `json:"sku"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e ProductDeleted) Subject() string          { return ProductDeletedSubject }
func (e ProductDeleted) Payload() ([]byte, error) { return json.Marshal(e) }

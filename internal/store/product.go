package store

import (
	"encoding/json"
	"time"
)

// TimeLayout is the fixed-width UTC layout of product timestamps. Values sort as strings.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Product is a single inventory record.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	SKU         string  `json:"sku"`
	Category    string  `json:"category"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// ProductFields carries the caller-supplied fields of a product.
// Nil numerics mean the field was not provided.
type ProductFields struct {
	Name        string
	SKU         string
	Category    string
	Quantity    *int
	Price       *float64
	Description string
}

// Health is a snapshot of the startup repair outcome and current store size.
type Health struct {
	StartupTime      string `json:"startup_time"`
	ReseededProducts bool   `json:"reseeded_products"`
	NextIDRepaired   bool   `json:"next_id_repaired"`
	ProductCount     int    `json:"product_count"`
	NextID           int64  `json:"next_id"`
}

// UnmarshalJSON decodes a stored product, accepting a numeric id.
func (p *Product) UnmarshalJSON(data []byte) error {
	type plain Product
	var stored struct {
		plain
		ID productID `json:"id"`
	}
	if err := json.Unmarshal(data, &stored); err != nil {
		return err
	}
	*p = Product(stored.plain)
	p.ID = string(stored.ID)
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

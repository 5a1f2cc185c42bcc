package domain

import "time"

type ProductStatus string

const (
	ProductStatusDraft    ProductStatus = "draft"
	ProductStatusActive   ProductStatus = "active"
	ProductStatusArchived ProductStatus = "archived"
)

func (s ProductStatus) Valid() bool {
	switch s {
	case ProductStatusDraft, ProductStatusActive, ProductStatusArchived:
		return true
	}
	return false
}

const DefaultProductCategory = "Other"

type Product struct {
	ID             string        `json:"id"`
	StoreID        string        `json:"store_id"`
	Name           string        `json:"name"`
	Description    string        `json:"description,omitempty"`
	Price          int64         `json:"price"`
	CompareAtPrice *int64        `json:"compare_at_price,omitempty"`
	Inventory      int           `json:"inventory"`
	Category       string        `json:"category"`
	Status         ProductStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
}

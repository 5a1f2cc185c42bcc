package domain

import "time"

// OrderCreatedEvent is published on checkout. OrderID is the human-facing
// reference, not the row id.
type OrderCreatedEvent struct {
	OrderID       string      `json:"order_id"`
	StoreID       string      `json:"store_id"`
	CustomerName  string      `json:"customer_name"`
	CustomerEmail string      `json:"customer_email"`
	Items         []OrderItem `json:"items"`
	Total         int64       `json:"total"`
	Timestamp     time.Time   `json:"timestamp"`
}

package domain

import "time"

const (
	DefaultThemeColor = "#2563eb"
	DefaultCurrency   = "TND"
	DefaultTimezone   = "Africa/Tunis"
)

// Store is a tenant. Slug and Subdomain are currently written together and are
// both uniquely indexed; they are kept as separate fields for future
// subdomain-based routing.
type Store struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Subdomain   string    `json:"subdomain"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	Address     string    `json:"address,omitempty"`
	Description string    `json:"description,omitempty"`
	ThemeColor  string    `json:"theme_color"`
	Currency    string    `json:"currency"`
	Timezone    string    `json:"timezone"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

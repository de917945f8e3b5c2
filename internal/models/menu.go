package models

// MenuItem is a server-owned catalog entry, cached client-side per session
// and invalidated wholesale on a menu_updated push event.
type MenuItem struct {
	ID                 int     `json:"id"`
	Name               string  `json:"name"`
	NameVi             string  `json:"name_vi,omitempty"`
	Description        string  `json:"description,omitempty"`
	Category           string  `json:"category"`
	Price              float64 `json:"price"`
	Available          bool    `json:"available"`
	DiscountPercentage float64 `json:"discount_percentage,omitempty"`
	BestSeller         bool    `json:"best_seller,omitempty"`
	ImagePath          string  `json:"image_path,omitempty"`
}

// DiscountedPrice returns the effective price after any discount.
func (m MenuItem) DiscountedPrice() float64 {
	if m.DiscountPercentage <= 0 {
		return m.Price
	}
	return m.Price * (1 - m.DiscountPercentage/100)
}

// LocalizedName returns the item name for the given language code,
// falling back to the default name when no translation exists.
func (m MenuItem) LocalizedName(lang string) string {
	if lang == "vi" && m.NameVi != "" {
		return m.NameVi
	}
	return m.Name
}

// MenuItemRequest is the body of menu create and update calls.
type MenuItemRequest struct {
	Name               string  `json:"name"`
	NameVi             string  `json:"name_vi,omitempty"`
	Category           string  `json:"category"`
	Price              float64 `json:"price"`
	Description        string  `json:"description,omitempty"`
	ImagePath          string  `json:"image_path,omitempty"`
	BestSeller         bool    `json:"best_seller"`
	DiscountPercentage float64 `json:"discount_percentage"`
}

// Device describes a client device as reported by the admin endpoint.
type Device struct {
	ID         string `json:"id"`
	IPAddress  string `json:"ip_address"`
	UserAgent  string `json:"user_agent"`
	Role       string `json:"role"`
	TableNum   int    `json:"table_number,omitempty"`
	LastActive string `json:"last_active"`
}

// ChatbotSettings mirrors the admin chatbot configuration endpoint.
type ChatbotSettings struct {
	Enabled bool `json:"enabled"`
}

// AvailabilityUpdate is the payload of a menu_item_availability_updated event
// and of the availability PUT request body.
type AvailabilityUpdate struct {
	ItemID    int  `json:"item_id"`
	Available bool `json:"available"`
}

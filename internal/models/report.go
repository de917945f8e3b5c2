package models

// SalesPeriod is one row of a sales report. The reporting service labels
// the row by granularity: date for daily, week for weekly, month for
// monthly.
type SalesPeriod struct {
	Date        string  `json:"date,omitempty"`
	Week        string  `json:"week,omitempty"`
	Month       string  `json:"month,omitempty"`
	OrderCount  int     `json:"order_count"`
	ItemCount   int     `json:"item_count"`
	TotalAmount float64 `json:"total_amount"`
}

// Label returns the period identifier regardless of granularity.
func (p SalesPeriod) Label() string {
	switch {
	case p.Date != "":
		return p.Date
	case p.Week != "":
		return p.Week
	default:
		return p.Month
	}
}

// AverageOrderValue returns total amount per order for the period.
func (p SalesPeriod) AverageOrderValue() float64 {
	if p.OrderCount == 0 {
		return 0
	}
	return p.TotalAmount / float64(p.OrderCount)
}

// PopularItem is one row of the popular-items report.
type PopularItem struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Quantity int     `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

// CategorySales is one row of the per-category sales report.
type CategorySales struct {
	Category  string  `json:"category"`
	ItemCount int     `json:"item_count"`
	Revenue   float64 `json:"revenue"`
}

// ActiveTable is one entry of the active-table monitor: a connected
// table device with its open orders.
type ActiveTable struct {
	TableNumber int     `json:"table_number"`
	IPAddress   string  `json:"ip_address,omitempty"`
	LastActive  string  `json:"last_active,omitempty"`
	Orders      []Order `json:"orders"`
}

// Busy reports whether the table currently has open orders.
func (t ActiveTable) Busy() bool {
	return len(t.Orders) > 0
}

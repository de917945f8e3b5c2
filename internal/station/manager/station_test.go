package manager

import (
	"testing"

	"tableside/internal/models"
)

func TestParseNewItem(t *testing.T) {
	req, err := parseNewItem("Bun Cha | Noodles | 11.50 | Grilled pork with noodles")
	if err != nil {
		t.Fatalf("parseNewItem returned error: %v", err)
	}
	if req.Name != "Bun Cha" || req.Category != "Noodles" || req.Price != 11.50 {
		t.Errorf("unexpected request: %+v", req)
	}
	if req.Description != "Grilled pork with noodles" {
		t.Errorf("description = %q", req.Description)
	}

	req, err = parseNewItem("Ca Phe Sua|Drinks|3.25")
	if err != nil {
		t.Fatalf("parseNewItem returned error: %v", err)
	}
	if req.Description != "" {
		t.Errorf("expected empty description, got %q", req.Description)
	}
}

func TestParseNewItem_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		arg  string
	}{
		{"too few fields", "Bun Cha|Noodles"},
		{"empty name", " |Noodles|9.50"},
		{"empty category", "Bun Cha| |9.50"},
		{"bad price", "Bun Cha|Noodles|cheap"},
		{"zero price", "Bun Cha|Noodles|0"},
		{"negative price", "Bun Cha|Noodles|-4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseNewItem(tt.arg); err == nil {
				t.Errorf("expected error for %q", tt.arg)
			}
		})
	}
}

func TestApplyEdit(t *testing.T) {
	item := models.MenuItem{
		ID: 7, Name: "Pho Bo", NameVi: "Phở Bò", Category: "Noodles",
		Price: 12.50, Description: "Beef noodle soup", BestSeller: true,
	}

	tests := []struct {
		name  string
		field string
		value string
		check func(t *testing.T, req *models.MenuItemRequest)
	}{
		{"price", "price", "13.00", func(t *testing.T, req *models.MenuItemRequest) {
			if req.Price != 13.00 {
				t.Errorf("price = %v", req.Price)
			}
		}},
		{"discount", "discount", "25", func(t *testing.T, req *models.MenuItemRequest) {
			if req.DiscountPercentage != 25 {
				t.Errorf("discount = %v", req.DiscountPercentage)
			}
		}},
		{"bestseller off", "bestseller", "off", func(t *testing.T, req *models.MenuItemRequest) {
			if req.BestSeller {
				t.Errorf("expected best seller cleared")
			}
		}},
		{"rename", "name", "Pho Bo Dac Biet", func(t *testing.T, req *models.MenuItemRequest) {
			if req.Name != "Pho Bo Dac Biet" {
				t.Errorf("name = %q", req.Name)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := requestFromItem(item)
			if err := applyEdit(req, tt.field, tt.value); err != nil {
				t.Fatalf("applyEdit returned error: %v", err)
			}
			tt.check(t, req)

			// Untouched fields carry over from the current item.
			if tt.field != "name" && req.Name != "Pho Bo" {
				t.Errorf("name changed unexpectedly: %q", req.Name)
			}
			if req.NameVi != "Phở Bò" || req.Category != "Noodles" {
				t.Errorf("carried fields lost: %+v", req)
			}
		})
	}
}

func TestApplyEdit_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value string
	}{
		{"discount above range", "discount", "120"},
		{"discount below range", "discount", "-5"},
		{"discount not a number", "discount", "lots"},
		{"price not a number", "price", "free"},
		{"price zero", "price", "0"},
		{"empty name", "name", ""},
		{"empty category", "category", ""},
		{"bad bestseller", "bestseller", "yes"},
		{"unknown field", "color", "red"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := requestFromItem(models.MenuItem{Name: "A", Category: "B", Price: 1})
			if err := applyEdit(req, tt.field, tt.value); err == nil {
				t.Errorf("expected error for %s=%q", tt.field, tt.value)
			}
		})
	}
}

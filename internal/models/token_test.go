package models

import (
	"testing"
	"time"
)

func TestTableAuth_RoundTrip(t *testing.T) {
	now := time.UnixMilli(1748344512345)
	token := TableAuth(12, now)

	table, issued, err := ParseTableAuth(token)
	if err != nil {
		t.Fatalf("ParseTableAuth returned error: %v", err)
	}
	if table != 12 {
		t.Errorf("expected table 12, got %d", table)
	}
	if !issued.Equal(now) {
		t.Errorf("expected issue time %v, got %v", now, issued)
	}
}

func TestParseTableAuth_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"not base64", "%%%"},
		{"wrong part count", "dGFibGU6MTI="},                                 // "table:12"
		{"wrong structure", "Zm9vOjEyOnRpbWU6MTc0ODM0NDUxMjM0NQ=="},          // "foo:12:time:..."
		{"non-numeric table", "dGFibGU6YWJjOnRpbWU6MTc0ODM0NDUxMjM0NQ=="},    // "table:abc:time:..."
		{"non-numeric time", "dGFibGU6MTI6dGltZTphYmM="},                     // "table:12:time:abc"
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := ParseTableAuth(tt.token); err == nil {
				t.Errorf("expected error for %q", tt.token)
			}
		})
	}
}

func TestOrderStatus_IsTerminal(t *testing.T) {
	terminal := []OrderStatus{StatusCompleted, StatusCancelled}
	active := []OrderStatus{StatusPending, StatusInProgress, StatusReady, StatusDelivered}

	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range active {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestMenuItem_DiscountedPrice(t *testing.T) {
	tests := []struct {
		name string
		item MenuItem
		want float64
	}{
		{"no discount", MenuItem{Price: 10}, 10},
		{"twenty percent", MenuItem{Price: 10, DiscountPercentage: 20}, 8},
		{"negative discount ignored", MenuItem{Price: 10, DiscountPercentage: -5}, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.item.DiscountedPrice(); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestMenuItem_LocalizedName(t *testing.T) {
	item := MenuItem{Name: "Pho Bo", NameVi: "Phở Bò"}
	if got := item.LocalizedName("vi"); got != "Phở Bò" {
		t.Errorf("expected Vietnamese name, got %q", got)
	}
	if got := item.LocalizedName("en"); got != "Pho Bo" {
		t.Errorf("expected English name, got %q", got)
	}
	noTranslation := MenuItem{Name: "Coffee"}
	if got := noTranslation.LocalizedName("vi"); got != "Coffee" {
		t.Errorf("expected fallback to default name, got %q", got)
	}
}

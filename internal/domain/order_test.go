package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseSide(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Side
		wantErr bool
	}{
		{"canonical buy", "Buy", SideBuy, false},
		{"canonical sell", "Sell", SideSell, false},
		{"upper case", "SELL", SideSell, false},
		{"padded", "  buy ", SideBuy, false},
		{"unknown", "Hold", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSide(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSide(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidSide) {
				t.Errorf("Expected ErrInvalidSide, got %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseSide(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestOrder_JSON(t *testing.T) {
	order := NewOrder("OrdId1", "SecId1", SideSell, 500, "User3", "CompanyA")

	b, err := json.Marshal(order)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	expected := `{"order_id":"OrdId1","security_id":"SecId1","side":"Sell","qty":500,"user":"User3","company":"CompanyA"}`
	if string(b) != expected {
		t.Errorf("Marshal = %s, want %s", b, expected)
	}

	var decoded Order
	if err := json.Unmarshal([]byte(`{"order_id":"x","side":"buy","qty":1}`), &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.Side != SideBuy {
		t.Errorf("Expected side Buy, got %v", decoded.Side)
	}

	if err := json.Unmarshal([]byte(`{"side":"short"}`), &decoded); err == nil {
		t.Error("Expected error for unknown side")
	}
}

func TestOrder_Validate(t *testing.T) {
	valid := NewOrder("OrdId1", "SecId1", SideBuy, 1000, "User1", "CompanyA")
	if err := valid.Validate(); err != nil {
		t.Fatalf("Expected valid order, got %v", err)
	}

	t.Run("zero quantity is accepted", func(t *testing.T) {
		o := valid
		o.Qty = 0
		if err := o.Validate(); err != nil {
			t.Errorf("Expected zero qty to validate, got %v", err)
		}
	})

	broken := map[string]func(o *Order){
		"missing id":       func(o *Order) { o.OrderID = "" },
		"missing security": func(o *Order) { o.SecurityID = "" },
		"missing side":     func(o *Order) { o.Side = 0 },
		"missing user":     func(o *Order) { o.User = "" },
		"missing company":  func(o *Order) { o.Company = "" },
	}
	for name, mutate := range broken {
		t.Run(name, func(t *testing.T) {
			o := valid
			mutate(&o)
			if err := o.Validate(); !errors.Is(err, ErrInvalidOrder) {
				t.Errorf("Expected ErrInvalidOrder, got %v", err)
			}
		})
	}
}

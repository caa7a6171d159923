package domain

import (
	"fmt"
	"strings"
)

// Side is the direction of a resting order.
type Side uint8

const (
	SideBuy Side = iota + 1
	SideSell
)

// String returns the wire name of the side ("Buy" / "Sell").
func (s Side) String() string {
	switch s {
	case SideBuy:
		return "Buy"
	case SideSell:
		return "Sell"
	default:
		return "Unknown"
	}
}

// ParseSide parses a side name, ignoring case.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return SideBuy, nil
	case "sell":
		return SideSell, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidSide, s)
	}
}

func (s Side) MarshalText() ([]byte, error) {
	if s != SideBuy && s != SideSell {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSide, uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(text []byte) error {
	parsed, err := ParseSide(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Order is a resting order. It is a value type: the cache stores and returns copies,
// and only the cache itself decrements Qty while matching.
//
// OrderID is assumed unique across resident orders. When it is not, cancellation by id
// removes the earliest-inserted resident order carrying that id.
type Order struct {
	OrderID    string `json:"order_id"`
	SecurityID string `json:"security_id"`
	Side       Side   `json:"side"`
	Qty        uint64 `json:"qty"`
	User       string `json:"user"`
	Company    string `json:"company"`
}

// NewOrder builds an order from its six fields.
func NewOrder(orderID, securityID string, side Side, qty uint64, user, company string) Order {
	return Order{
		OrderID:    orderID,
		SecurityID: securityID,
		Side:       side,
		Qty:        qty,
		User:       user,
		Company:    company,
	}
}

// Validate checks the fields an external caller must supply.
// The cache itself accepts any order; validation happens at the edges (API, scripts).
func (o Order) Validate() error {
	switch {
	case o.OrderID == "":
		return fmt.Errorf("%w: empty order id", ErrInvalidOrder)
	case o.SecurityID == "":
		return fmt.Errorf("%w: empty security id", ErrInvalidOrder)
	case o.Side != SideBuy && o.Side != SideSell:
		return fmt.Errorf("%w: %w", ErrInvalidOrder, ErrInvalidSide)
	case o.User == "":
		return fmt.Errorf("%w: empty user", ErrInvalidOrder)
	case o.Company == "":
		return fmt.Errorf("%w: empty company", ErrInvalidOrder)
	}
	return nil
}

// IsBuy reports whether the order is on the buy side.
func (o *Order) IsBuy() bool {
	return o.Side == SideBuy
}

// IsSell reports whether the order is on the sell side.
func (o *Order) IsSell() bool {
	return o.Side == SideSell
}

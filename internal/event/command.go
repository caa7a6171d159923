package event

import (
	"fmt"
	"strings"

	"order_cache/internal/domain"
)

// Kind identifies a cache command.
type Kind uint8

const (
	KindAdd Kind = iota + 1
	KindCancel
	KindCancelUser
	KindCancelSecurity
	KindMatch        // in-place matching
	KindMatchExtract // extract matching
	KindPeek
	KindPurge
)

var kindNames = map[Kind]string{
	KindAdd:            "add",
	KindCancel:         "cancel",
	KindCancelUser:     "cancel-user",
	KindCancelSecurity: "cancel-security",
	KindMatch:          "match",
	KindMatchExtract:   "match2",
	KindPeek:           "peek",
	KindPurge:          "purge",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseKind maps a script verb to a Kind.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", domain.ErrUnknownCommand, s)
}

// Policy returns the matching policy for matching kinds.
func (k Kind) Policy() (domain.MatchPolicy, bool) {
	switch k {
	case KindMatch:
		return domain.PolicyInPlace, true
	case KindMatchExtract:
		return domain.PolicyExtract, true
	case KindPeek:
		return domain.PolicyPeek, true
	}
	return 0, false
}

// Command is one sequenced cache operation. Only the fields the Kind needs are set.
type Command struct {
	Seq        uint64       `json:"seq"`
	Kind       Kind         `json:"kind"`
	Order      domain.Order `json:"order,omitzero"`
	OrderID    string       `json:"order_id,omitempty"`
	User       string       `json:"user,omitempty"`
	SecurityID string       `json:"security_id,omitempty"`
	MinQty     uint64       `json:"min_qty,omitempty"`
}

func (c *Command) GetSeq() uint64 { return c.Seq }

// Result is the outcome of a processed command.
type Result struct {
	Seq        uint64             `json:"seq"`
	Kind       Kind               `json:"kind"`
	SecurityID string             `json:"security_id,omitempty"`
	Policy     domain.MatchPolicy `json:"-"`
	MatchedQty uint64             `json:"matched_qty"`
	Purged     int                `json:"purged,omitempty"`
	Resident   int                `json:"resident"`
}

// IsMatch reports whether the result came from a matching command.
func (r Result) IsMatch() bool {
	_, ok := r.Kind.Policy()
	return ok
}

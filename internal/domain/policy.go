package domain

import (
	"fmt"
	"strings"
)

// MatchPolicy selects how a matching query treats resident orders.
type MatchPolicy int

const (
	// PolicyInPlace decrements resident quantities and leaves filled orders in place.
	PolicyInPlace MatchPolicy = iota + 1
	// PolicyExtract pulls the security out, crosses it and reinserts the survivors.
	PolicyExtract
	// PolicyPeek crosses copies and leaves the cache untouched.
	PolicyPeek
)

func (p MatchPolicy) String() string {
	switch p {
	case PolicyInPlace:
		return "in-place"
	case PolicyExtract:
		return "extract"
	case PolicyPeek:
		return "peek"
	default:
		return "unknown"
	}
}

// ParseMatchPolicy accepts the String() names. An empty name means in-place.
func ParseMatchPolicy(s string) (MatchPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "in-place", "inplace":
		return PolicyInPlace, nil
	case "extract":
		return PolicyExtract, nil
	case "peek":
		return PolicyPeek, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// Match runs the policy against c.
func (p MatchPolicy) Match(c OrderCache, securityID string) (uint64, error) {
	switch p {
	case PolicyInPlace:
		return c.GetMatchingSizeForSecurity(securityID), nil
	case PolicyExtract:
		return c.GetMatchingSizeForSecurity2(securityID), nil
	case PolicyPeek:
		return c.PeekMatchingSize(securityID), nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnknownPolicy, int(p))
	}
}

package domain

import (
	"errors"
	"strconv"
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ParseError reports a malformed line in an order script.
type ParseError struct {
	Line int    // 1-based line number
	Text string // offending line, trimmed
	Err  error
}

func (e *ParseError) Error() string {
	return "line " + strconv.Itoa(e.Line) + ": " + e.Err.Error() + " (" + e.Text + ")"
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var (
	// ErrInvalidSide is returned when a side is neither Buy nor Sell.
	ErrInvalidSide = errors.New("invalid side")

	// ErrInvalidQuantity is returned when a quantity is negative, fractional or malformed.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrInvalidOrder is returned when an externally supplied order misses required fields.
	ErrInvalidOrder = errors.New("invalid order")

	// ErrUnknownStrategy is returned for an unsupported cache storage strategy.
	ErrUnknownStrategy = errors.New("unknown cache strategy")

	// ErrUnknownPolicy is returned for an unsupported matching policy.
	ErrUnknownPolicy = errors.New("unknown match policy")

	// ErrUnknownCommand is returned when a script line starts with an unknown verb.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrSequenceGap is returned when a command arrives out of sequence.
	ErrSequenceGap = errors.New("sequence gap")

	// ErrConfigNotFound is returned when configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")
)

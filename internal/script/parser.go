// Package script reads order scripts: one command per line, blank lines and
// lines starting with '#' ignored.
//
//	OrdId1 SecId1 Buy 1000 User1 CompanyA      bare row, same as add
//	add OrdId1 SecId1 Buy 1000 User1 CompanyA
//	cancel OrdId1
//	cancel-user User1
//	cancel-security SecId1 1000
//	match SecId1
//	match2 SecId1
//	peek SecId1
//	purge
package script

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"order_cache/internal/domain"
	"order_cache/internal/event"
)

const orderFields = 6

// Parse reads every command from r and numbers them from 1 in file order.
func Parse(r io.Reader) ([]event.Command, error) {
	var cmds []event.Command

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		cmd, ok, err := ParseLine(sc.Text())
		if err != nil {
			return nil, &domain.ParseError{Line: lineNo, Text: strings.TrimSpace(sc.Text()), Err: err}
		}
		if !ok {
			continue
		}
		cmd.Seq = uint64(len(cmds) + 1)
		cmds = append(cmds, cmd)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return cmds, nil
}

// ParseLine parses one line. ok is false for blank and comment lines.
// The returned command has no sequence number.
func ParseLine(line string) (cmd event.Command, ok bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return cmd, false, nil
	}
	fields := strings.Fields(line)

	if len(fields) == orderFields {
		if _, verbErr := event.ParseKind(fields[0]); verbErr != nil {
			order, err := parseOrder(fields)
			return event.Command{Kind: event.KindAdd, Order: order}, err == nil, err
		}
	}

	kind, err := event.ParseKind(fields[0])
	if err != nil {
		return cmd, false, err
	}
	args := fields[1:]
	cmd.Kind = kind

	switch kind {
	case event.KindAdd:
		if err := arity(args, orderFields); err != nil {
			return cmd, false, err
		}
		cmd.Order, err = parseOrder(args)
	case event.KindCancel:
		if err := arity(args, 1); err != nil {
			return cmd, false, err
		}
		cmd.OrderID = args[0]
	case event.KindCancelUser:
		if err := arity(args, 1); err != nil {
			return cmd, false, err
		}
		cmd.User = args[0]
	case event.KindCancelSecurity:
		if err := arity(args, 2); err != nil {
			return cmd, false, err
		}
		cmd.SecurityID = args[0]
		cmd.MinQty, err = ParseQuantity(args[1])
	case event.KindMatch, event.KindMatchExtract, event.KindPeek:
		if err := arity(args, 1); err != nil {
			return cmd, false, err
		}
		cmd.SecurityID = args[0]
	case event.KindPurge:
		err = arity(args, 0)
	}
	if err != nil {
		return event.Command{}, false, err
	}
	return cmd, true, nil
}

func arity(args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("expected %d arguments, got %d", n, len(args))
	}
	return nil
}

// parseOrder reads "orderId securityId side qty user company".
func parseOrder(f []string) (domain.Order, error) {
	side, err := domain.ParseSide(f[2])
	if err != nil {
		return domain.Order{}, err
	}
	qty, err := ParseQuantity(f[3])
	if err != nil {
		return domain.Order{}, err
	}
	order := domain.NewOrder(f[0], f[1], side, qty, f[4], f[5])
	return order, order.Validate()
}

// ParseQuantity accepts non-negative integral decimals such as "1000", "1e3" or
// "1000.0" that fit in a uint64.
func ParseQuantity(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidQuantity, s)
	}
	if d.IsNegative() || !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("%w: %q must be a non-negative integer", domain.ErrInvalidQuantity, s)
	}
	bi := d.BigInt()
	if !bi.IsUint64() {
		return 0, fmt.Errorf("%w: %q overflows", domain.ErrInvalidQuantity, s)
	}
	return bi.Uint64(), nil
}

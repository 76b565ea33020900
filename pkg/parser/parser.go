// Package parser decodes the whitespace-separated text order format:
//
//	side amount price sequence [strategy]
//
// where side is 4 (ask) or 8 (bid) and strategy is 0 (limit, the default) or
// 1 (market). Every failure is returned as a *ParseError so the caller can
// report the line and keep reading.
package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/erain9/pricetime/pkg/core"
)

var (
	ErrFieldCount     = errors.New("expected 4 or 5 fields")
	ErrInvalidInteger = errors.New("invalid integer")
)

// IDSource issues identities for parsed orders
type IDSource func() string

// ParseError describes a line that could not be turned into an order
type ParseError struct {
	Line  string
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("parse %q: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("parse %q: field %s: %v", e.Line, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseOrder parses one line into an order carrying the given id.
// The returned order satisfies core.Order.Validate.
func ParseOrder(line, id string) (*core.Order, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 && len(fields) != 5 {
		return nil, &ParseError{Line: line, Err: fmt.Errorf("%w, got %d", ErrFieldCount, len(fields))}
	}

	sideCode, err := parseInt(line, "side", fields[0], 32)
	if err != nil {
		return nil, err
	}
	side, err := core.SideFromCode(int(sideCode))
	if err != nil {
		return nil, &ParseError{Line: line, Field: "side", Err: err}
	}

	amount, err := parseInt(line, "amount", fields[1], 64)
	if err != nil {
		return nil, err
	}
	price, err := parseInt(line, "price", fields[2], 64)
	if err != nil {
		return nil, err
	}

	sequence, err := strconv.ParseUint(fields[3], 10, 64)
	if err != nil {
		return nil, &ParseError{Line: line, Field: "sequence", Err: fmt.Errorf("%w: %q", ErrInvalidInteger, fields[3])}
	}

	strategy := core.Limit
	if len(fields) == 5 {
		code, err := parseInt(line, "strategy", fields[4], 32)
		if err != nil {
			return nil, err
		}
		strategy, err = core.StrategyFromCode(int(code))
		if err != nil {
			return nil, &ParseError{Line: line, Field: "strategy", Err: err}
		}
	}

	order := core.NewOrder(id, side, amount, price, sequence, strategy)
	if err := order.Validate(); err != nil {
		field := "amount"
		if errors.Is(err, core.ErrInvalidPrice) {
			field = "price"
		}
		return nil, &ParseError{Line: line, Field: field, Err: err}
	}

	return order, nil
}

func parseInt(line, field, raw string, bits int) (int64, error) {
	v, err := strconv.ParseInt(raw, 10, bits)
	if err != nil {
		return 0, &ParseError{Line: line, Field: field, Err: fmt.Errorf("%w: %q", ErrInvalidInteger, raw)}
	}
	return v, nil
}

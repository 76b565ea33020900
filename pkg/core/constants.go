package core

import "errors"

// Errors
var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidPrice    = errors.New("invalid price")
	ErrInvalidSide     = errors.New("invalid side")
	ErrInvalidStrategy = errors.New("invalid strategy")
	ErrPrecondition    = errors.New("precondition violated")
)

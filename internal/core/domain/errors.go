package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("access forbidden")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("already exists")
	ErrInvariant          = errors.New("invariant violation")
	ErrInvalidInput       = errors.New("invalid input")
)

// Lookup misses. Raised by the service layer, never by the validators.
var (
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)
	ErrLocationNotFound = fmt.Errorf("location %w", ErrNotFound)
	ErrMeterNotFound    = fmt.Errorf("meter %w", ErrNotFound)
)

var (
	ErrUserExists  = fmt.Errorf("user %w", ErrConflict)
	ErrMeterExists = fmt.Errorf("meter %w", ErrConflict)
)

// Business rule violations. The message names the rule so callers can fix
// their input.
var (
	ErrOwnerMustBeConsumer = fmt.Errorf("%w: location owner must be a consumer", ErrInvariant)
	ErrLocationHasMeters   = fmt.Errorf("%w: location still has meters", ErrInvariant)
	ErrReadingMustIncrease = fmt.Errorf("%w: new reading must be greater than the current reading", ErrInvariant)
	ErrCannotDeleteSelf    = fmt.Errorf("%w: cannot delete your own account", ErrInvariant)
)

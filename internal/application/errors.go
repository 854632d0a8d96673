package application

import (
	"errors"
	"fmt"
)

// Domain errors. Callers match them with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrAccountNotFound = fmt.Errorf("account %w", ErrNotFound)
	ErrProfileNotFound = fmt.Errorf("profile %w", ErrNotFound)

	ErrDuplicateIdentity = errors.New("email already registered")

	ErrActionNotAllowed = errors.New("action not allowed")
	ErrNotDeleted       = fmt.Errorf("%w: account is not deleted", ErrActionNotAllowed)
	ErrAccountInactive  = fmt.Errorf("%w: account is not active", ErrActionNotAllowed)

	ErrTokenNotFound = errors.New("verification token not found")
	ErrTokenExpired  = errors.New("verification token expired")

	ErrConcurrentModification = errors.New("account was modified concurrently")
	ErrInvalidCredentials     = errors.New("invalid credentials")
)

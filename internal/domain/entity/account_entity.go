package entity

import (
	"strings"
	"time"
)

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	StatusPendingVerification AccountStatus = "PENDING_VERIFICATION"
	StatusActive              AccountStatus = "ACTIVE"
	StatusInactive            AccountStatus = "INACTIVE"
	StatusSuspended           AccountStatus = "SUSPENDED"
	StatusDeactivated         AccountStatus = "DEACTIVATED"
	StatusClosed              AccountStatus = "CLOSED"
)

// Valid reports whether s is one of the known statuses.
func (s AccountStatus) Valid() bool {
	switch s {
	case StatusPendingVerification, StatusActive, StatusInactive,
		StatusSuspended, StatusDeactivated, StatusClosed:
		return true
	}
	return false
}

// Account is the aggregate root for identity records.
//
// Active is derived from Status, EmailVerified and DeletedAt; callers must go
// through RecomputeActive after touching any of them.
type Account struct {
	ID             string
	Email          string
	CredentialHash string
	FirstName      string
	LastName       string
	Status         AccountStatus
	Active         bool
	EmailVerified  bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastLoginAt    *time.Time
	DeletedAt      *time.Time
	DeletedBy      *string
	Version        int64
}

// NormalizeEmail lower-cases and trims an address so that lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RecomputeActive re-derives Active from the fields it depends on.
func (a *Account) RecomputeActive() {
	a.Active = a.Status == StatusActive && a.EmailVerified && a.DeletedAt == nil
}

// IsDeleted reports whether the soft-delete marker is set.
func (a *Account) IsDeleted() bool { return a.DeletedAt != nil }

// FullName joins first and last name, skipping empty parts.
func (a *Account) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(a.FirstName) + " " + strings.TrimSpace(a.LastName))
}

// Clone returns a deep copy so callers can mutate without aliasing pointers.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	if a.LastLoginAt != nil {
		t := *a.LastLoginAt
		c.LastLoginAt = &t
	}
	if a.DeletedAt != nil {
		t := *a.DeletedAt
		c.DeletedAt = &t
	}
	if a.DeletedBy != nil {
		s := *a.DeletedBy
		c.DeletedBy = &s
	}
	return &c
}

package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type is the eventType discriminator carried on the wire.
type Type string

const (
	TypeAccountCreated             Type = "AccountCreated"
	TypeAccountUpdated             Type = "AccountUpdated"
	TypeProfileUpdated             Type = "ProfileUpdated"
	TypeEmailVerificationRequested Type = "EmailVerificationRequested"
	TypeEmailVerified              Type = "EmailVerified"
	TypeAccountStatusChanged       Type = "AccountStatusChanged"
	TypeAccountDeleted             Type = "AccountDeleted"
	TypeAccountRestored            Type = "AccountRestored"
)

var ErrUnknownType = errors.New("unknown event type")

// Event is an immutable domain event. Variants expose their payload through
// accessor methods only.
type Event interface {
	ID() string
	Type() Type
	OccurredAt() time.Time
	AccountID() string
	json.Marshaler
}

type header struct {
	id         string
	typ        Type
	occurredAt time.Time
	accountID  string
}

func newHeader(t Type, accountID string, at time.Time) header {
	return header{id: uuid.NewString(), typ: t, occurredAt: at.UTC(), accountID: accountID}
}

func (h header) ID() string            { return h.id }
func (h header) Type() Type            { return h.typ }
func (h header) OccurredAt() time.Time { return h.occurredAt }
func (h header) AccountID() string     { return h.accountID }

// envelope is the common JSON prefix of every event.
type envelope struct {
	EventID    string `json:"eventId"`
	EventType  Type   `json:"eventType"`
	OccurredAt string `json:"occurredAt"`
	AccountID  string `json:"accountId"`
}

func (h header) envelope() envelope {
	return envelope{
		EventID:    h.id,
		EventType:  h.typ,
		OccurredAt: h.occurredAt.Format(time.RFC3339Nano),
		AccountID:  h.accountID,
	}
}

// AccountCreated is emitted once the account row has been committed.
type AccountCreated struct {
	header
	email     string
	firstName string
	lastName  string
}

func NewAccountCreated(accountID, email, firstName, lastName string, at time.Time) AccountCreated {
	return AccountCreated{
		header:    newHeader(TypeAccountCreated, accountID, at),
		email:     email,
		firstName: firstName,
		lastName:  lastName,
	}
}

func (e AccountCreated) Email() string     { return e.email }
func (e AccountCreated) FirstName() string { return e.firstName }
func (e AccountCreated) LastName() string  { return e.lastName }

func (e AccountCreated) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		envelope
		Email     string `json:"email"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}{e.envelope(), e.email, e.firstName, e.lastName})
}

// AccountUpdated carries only the basic-info fields that actually changed.
type AccountUpdated struct {
	header
	changed map[string]any
}

func NewAccountUpdated(accountID string, changed map[string]any, at time.Time) AccountUpdated {
	return AccountUpdated{header: newHeader(TypeAccountUpdated, accountID, at), changed: copyFields(changed)}
}

func (e AccountUpdated) ChangedFields() map[string]any { return copyFields(e.changed) }

func (e AccountUpdated) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		envelope
		ChangedFields map[string]any `json:"changedFields"`
	}{e.envelope(), e.changed})
}

// ProfileUpdated carries only the profile fields that actually changed.
type ProfileUpdated struct {
	header
	changed map[string]any
}

func NewProfileUpdated(accountID string, changed map[string]any, at time.Time) ProfileUpdated {
	return ProfileUpdated{header: newHeader(TypeProfileUpdated, accountID, at), changed: copyFields(changed)}
}

func (e ProfileUpdated) ChangedFields() map[string]any { return copyFields(e.changed) }

func (e ProfileUpdated) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		envelope
		ChangedFields map[string]any `json:"changedFields"`
	}{e.envelope(), e.changed})
}

// EmailVerificationRequested tells the mail pipeline to deliver a token.
type EmailVerificationRequested struct {
	header
	email         string
	recipientName string
	token         string
	expiresAt     time.Time
}

func NewEmailVerificationRequested(accountID, email, recipientName, token string, expiresAt, at time.Time) EmailVerificationRequested {
	return EmailVerificationRequested{
		header:        newHeader(TypeEmailVerificationRequested, accountID, at),
		email:         email,
		recipientName: recipientName,
		token:         token,
		expiresAt:     expiresAt.UTC(),
	}
}

func (e EmailVerificationRequested) Email() string             { return e.email }
func (e EmailVerificationRequested) RecipientName() string     { return e.recipientName }
func (e EmailVerificationRequested) VerificationToken() string { return e.token }
func (e EmailVerificationRequested) ExpiresAt() time.Time      { return e.expiresAt }

func (e EmailVerificationRequested) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		envelope
		Email             string `json:"email"`
		RecipientName     string `json:"recipientName"`
		VerificationToken string `json:"verificationToken"`
		ExpiresAt         string `json:"expiresAt"`
	}{e.envelope(), e.email, e.recipientName, e.token, e.expiresAt.Format(time.RFC3339Nano)})
}

type EmailVerified struct {
	header
	email string
}

func NewEmailVerified(accountID, email string, at time.Time) EmailVerified {
	return EmailVerified{header: newHeader(TypeEmailVerified, accountID, at), email: email}
}

func (e EmailVerified) Email() string { return e.email }

func (e EmailVerified) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		envelope
		Email string `json:"email"`
	}{e.envelope(), e.email})
}

type AccountStatusChanged struct {
	header
	previous string
	status   string
}

func NewAccountStatusChanged(accountID, previous, status string, at time.Time) AccountStatusChanged {
	return AccountStatusChanged{header: newHeader(TypeAccountStatusChanged, accountID, at), previous: previous, status: status}
}

func (e AccountStatusChanged) PreviousStatus() string { return e.previous }
func (e AccountStatusChanged) Status() string         { return e.status }

func (e AccountStatusChanged) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		envelope
		PreviousStatus string `json:"previousStatus"`
		Status         string `json:"status"`
	}{e.envelope(), e.previous, e.status})
}

type AccountDeleted struct {
	header
	deletedBy string
}

func NewAccountDeleted(accountID, deletedBy string, at time.Time) AccountDeleted {
	return AccountDeleted{header: newHeader(TypeAccountDeleted, accountID, at), deletedBy: deletedBy}
}

func (e AccountDeleted) DeletedBy() string { return e.deletedBy }

func (e AccountDeleted) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		envelope
		DeletedBy string `json:"deletedBy"`
	}{e.envelope(), e.deletedBy})
}

type AccountRestored struct {
	header
	status string
}

func NewAccountRestored(accountID, status string, at time.Time) AccountRestored {
	return AccountRestored{header: newHeader(TypeAccountRestored, accountID, at), status: status}
}

func (e AccountRestored) Status() string { return e.status }

func (e AccountRestored) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		envelope
		Status string `json:"status"`
	}{e.envelope(), e.status})
}

// wire is the union of every variant's fields, used for decoding.
type wire struct {
	envelope
	Email             string         `json:"email"`
	FirstName         string         `json:"firstName"`
	LastName          string         `json:"lastName"`
	ChangedFields     map[string]any `json:"changedFields"`
	RecipientName     string         `json:"recipientName"`
	VerificationToken string         `json:"verificationToken"`
	ExpiresAt         string         `json:"expiresAt"`
	PreviousStatus    string         `json:"previousStatus"`
	Status            string         `json:"status"`
	DeletedBy         string         `json:"deletedBy"`
}

// Decode parses a published payload back into its variant.
func Decode(data []byte) (Event, error) {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	at, err := time.Parse(time.RFC3339Nano, w.OccurredAt)
	if err != nil {
		return nil, fmt.Errorf("decode event occurredAt: %w", err)
	}
	h := header{id: w.EventID, typ: w.EventType, occurredAt: at.UTC(), accountID: w.AccountID}

	switch w.EventType {
	case TypeAccountCreated:
		return AccountCreated{header: h, email: w.Email, firstName: w.FirstName, lastName: w.LastName}, nil
	case TypeAccountUpdated:
		return AccountUpdated{header: h, changed: w.ChangedFields}, nil
	case TypeProfileUpdated:
		return ProfileUpdated{header: h, changed: w.ChangedFields}, nil
	case TypeEmailVerificationRequested:
		var exp time.Time
		if w.ExpiresAt != "" {
			if exp, err = time.Parse(time.RFC3339Nano, w.ExpiresAt); err != nil {
				return nil, fmt.Errorf("decode event expiresAt: %w", err)
			}
		}
		return EmailVerificationRequested{header: h, email: w.Email, recipientName: w.RecipientName, token: w.VerificationToken, expiresAt: exp.UTC()}, nil
	case TypeEmailVerified:
		return EmailVerified{header: h, email: w.Email}, nil
	case TypeAccountStatusChanged:
		return AccountStatusChanged{header: h, previous: w.PreviousStatus, status: w.Status}, nil
	case TypeAccountDeleted:
		return AccountDeleted{header: h, deletedBy: w.DeletedBy}, nil
	case TypeAccountRestored:
		return AccountRestored{header: h, status: w.Status}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, w.EventType)
}

func copyFields(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

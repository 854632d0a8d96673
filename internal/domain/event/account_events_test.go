package event

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeFields(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.FixedZone("WIB", 7*3600))
	e := NewAccountCreated("acc-1", "alice@example.com", "Alice", "Smith", at)

	b, err := json.Marshal(e)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, e.ID(), got["eventId"])
	assert.Equal(t, "AccountCreated", got["eventType"])
	assert.Equal(t, "2024-05-01T03:00:00Z", got["occurredAt"])
	assert.Equal(t, "acc-1", got["accountId"])
	assert.Equal(t, "alice@example.com", got["email"])
}

func TestEventIDsAreUnique(t *testing.T) {
	now := time.Now()
	a := NewEmailVerified("acc-1", "a@example.com", now)
	b := NewEmailVerified("acc-1", "a@example.com", now)
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestDecodeRoundTripsVariants(t *testing.T) {
	now := time.Now().UTC()
	events := []Event{
		NewAccountUpdated("acc-1", map[string]any{"firstName": "Al"}, now),
		NewEmailVerificationRequested("acc-1", "a@example.com", "Alice", "tok", now.Add(time.Hour), now),
		NewAccountStatusChanged("acc-1", "ACTIVE", "SUSPENDED", now),
		NewAccountDeleted("acc-1", "admin-1", now),
		NewAccountRestored("acc-1", "ACTIVE", now),
	}
	for _, e := range events {
		t.Run(string(e.Type()), func(t *testing.T) {
			b, err := json.Marshal(e)
			require.NoError(t, err)
			got, err := Decode(b)
			require.NoError(t, err)
			assert.Equal(t, e.ID(), got.ID())
			assert.Equal(t, e.Type(), got.Type())
			assert.True(t, e.OccurredAt().Equal(got.OccurredAt()))
		})
	}
}

func TestDecodeVerificationRequestedPayload(t *testing.T) {
	exp := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	b, err := json.Marshal(NewEmailVerificationRequested("acc-1", "a@example.com", "Alice", "tok-123", exp, time.Now()))
	require.NoError(t, err)

	got, err := Decode(b)
	require.NoError(t, err)
	evr, ok := got.(EmailVerificationRequested)
	require.True(t, ok)
	assert.Equal(t, "tok-123", evr.VerificationToken())
	assert.Equal(t, "Alice", evr.RecipientName())
	assert.True(t, exp.Equal(evr.ExpiresAt()))
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"eventId":"1","eventType":"Nope","occurredAt":"2024-01-01T00:00:00Z","accountId":"a"}`))
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestChangedFieldsAreCopied(t *testing.T) {
	in := map[string]any{"firstName": "Al"}
	e := NewAccountUpdated("acc-1", in, time.Now())
	in["firstName"] = "mutated"
	assert.Equal(t, "Al", e.ChangedFields()["firstName"])
}

package application

import (
	"context"
	"io"
	"time"

	"github.com/oksasatya/account-service/internal/domain/entity"
	"github.com/oksasatya/account-service/internal/domain/event"
)

// Cache is a best-effort key-value cache. Implementations never return
// errors: a failure reads as a miss and a failed write is dropped.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration)
	Invalidate(ctx context.Context, key string)
	// Increment bumps a counter, starting its ttl on first use. ok is false
	// when the cache is unavailable.
	Increment(ctx context.Context, key string, ttl time.Duration) (n int64, ok bool)
}

// EventPublisher delivers one event to the bus, keyed by its account id.
type EventPublisher interface {
	Publish(ctx context.Context, e event.Event) error
}

// SearchIndexer maintains the searchable account projection.
type SearchIndexer interface {
	Index(ctx context.Context, a *entity.Account) error
	Remove(ctx context.Context, accountID string) error
}

// AvatarStorage stores an image and returns its public URL.
type AvatarStorage interface {
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
}

package ports

import (
	"context"
	"time"
	"trip-planner-service/internal/domain"
)

// SessionStore persists planning sessions with a time-to-live.
type SessionStore interface {
	// Get returns domain.ErrSessionNotFound when the session is missing or expired.
	Get(ctx context.Context, id string) (*domain.Session, error)
	// Put stores s unconditionally.
	Put(ctx context.Context, s *domain.Session, ttl time.Duration) error
	// CompareAndSwap stores s only if the stored version equals expectedVersion.
	// It reports false, nil when another writer got there first.
	CompareAndSwap(ctx context.Context, id string, expectedVersion int64, s *domain.Session, ttl time.Duration) (bool, error)
}

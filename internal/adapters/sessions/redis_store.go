package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"trip-planner-service/internal/domain"
	"trip-planner-service/internal/platform/obs"
)

// RedisSessionStore keeps one JSON document per session under a TTL.
// CompareAndSwap uses WATCH/MULTI so concurrent writers cannot both commit
// against the same version.
type RedisSessionStore struct {
	client *redis.Client
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func (s *RedisSessionStore) Get(ctx context.Context, id string) (_ *domain.Session, err error) {
	defer obs.Time(ctx, "sessions.Get")(&err)

	raw, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %q: %w", id, err)
	}

	return decodeSession(raw)
}

func (s *RedisSessionStore) Put(ctx context.Context, sess *domain.Session, ttl time.Duration) (err error) {
	defer obs.Time(ctx, "sessions.Put")(&err)

	payload, err := encodeSession(sess)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, sessionKey(sess.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("put session %q: %w", sess.ID, err)
	}
	return nil
}

func (s *RedisSessionStore) CompareAndSwap(
	ctx context.Context,
	id string,
	expectedVersion int64,
	sess *domain.Session,
	ttl time.Duration,
) (swapped bool, err error) {
	defer obs.Time(ctx, "sessions.CompareAndSwap")(&err)

	payload, err := encodeSession(sess)
	if err != nil {
		return false, err
	}

	key := sessionKey(id)
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return domain.ErrSessionNotFound
		}
		if err != nil {
			return err
		}

		current, err := decodeSession(raw)
		if err != nil {
			return err
		}
		if current.Version != expectedVersion {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, ttl)
			return nil
		})
		if err != nil {
			return err
		}
		swapped = true
		return nil
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if errors.Is(err, domain.ErrSessionNotFound) {
		return false, err
	}
	if err != nil {
		return false, fmt.Errorf("compare and swap session %q: %w", id, err)
	}

	return swapped, nil
}

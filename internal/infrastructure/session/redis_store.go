package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/vendorlens/backend/internal/domain"
)

const defaultMaxRetries = 10

// RedisStore keeps comparison selections as JSON values, one key per session.
// Updates are optimistic: the key is WATCHed, fn runs on the decoded value and
// the write is committed in a MULTI block that fails if another writer got there first.
type RedisStore struct {
	rdb        *goredis.Client
	prefix     string
	ttl        time.Duration
	maxRetries int
}

// NewRedisStore creates a Redis-backed comparison store. ttl is the session
// lifetime, refreshed on every write; maxRetries <= 0 uses 10.
func NewRedisStore(rdb *goredis.Client, prefix string, ttl time.Duration, maxRetries int) *RedisStore {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if prefix == "" {
		prefix = "comparison:"
	}
	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl, maxRetries: maxRetries}
}

func (s *RedisStore) key(sessionID string) string {
	return s.prefix + sessionID
}

// Get returns the stored selection or an empty one
func (s *RedisStore) Get(ctx context.Context, sessionID string) (*domain.ComparisonSelection, error) {
	raw, err := s.rdb.Get(ctx, s.key(sessionID)).Bytes()
	return decodeSelection(raw, err)
}

// Update runs fn under an optimistic transaction, retrying lost races up to
// maxRetries times before giving up with domain.ErrSelectionConflict
func (s *RedisStore) Update(ctx context.Context, sessionID string, fn func(sel *domain.ComparisonSelection) error) (*domain.ComparisonSelection, error) {
	key := s.key(sessionID)

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		var committed *domain.ComparisonSelection
		err := s.rdb.Watch(ctx, func(tx *goredis.Tx) error {
			sel, err := decodeSelection(tx.Get(ctx, key).Bytes())
			if err != nil {
				return err
			}
			if err := fn(sel); err != nil {
				return err
			}
			data, err := json.Marshal(sel)
			if err != nil {
				return fmt.Errorf("encode selection: %w", err)
			}
			_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
				pipe.Set(ctx, key, data, s.ttl)
				return nil
			})
			if err == nil {
				committed = sel
			}
			return err
		}, key)

		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return committed.Clone(), nil
	}
	return nil, fmt.Errorf("%w: session %s after %d attempts", domain.ErrSelectionConflict, sessionID, s.maxRetries)
}

// Clear deletes the session's selection
func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	return s.rdb.Del(ctx, s.key(sessionID)).Err()
}

func decodeSelection(raw []byte, err error) (*domain.ComparisonSelection, error) {
	if errors.Is(err, goredis.Nil) {
		return domain.NewComparisonSelection(), nil
	}
	if err != nil {
		return nil, err
	}
	sel := domain.NewComparisonSelection()
	if err := json.Unmarshal(raw, sel); err != nil {
		return nil, fmt.Errorf("decode selection: %w", err)
	}
	if sel.Lists == nil {
		sel.Lists = make(map[domain.Category][]string)
	}
	return sel, nil
}

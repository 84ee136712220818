package wizard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"staybook/internal/domain"
)

var ErrDraftNotFound = errors.New("wizard: draft not found")

// DraftStore keeps wizard state between requests.
type DraftStore interface {
	Save(ctx context.Context, id string, st State) error
	Load(ctx context.Context, id string) (State, error)
	Delete(ctx context.Context, id string) error
}

// CacheStore keeps drafts in the shared cache backend with a sliding TTL.
type CacheStore struct {
	cache domain.Cache
	ttl   time.Duration
}

func NewCacheStore(c domain.Cache, ttl time.Duration) *CacheStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CacheStore{cache: c, ttl: ttl}
}

func draftKey(id string) string { return "draft:" + id }

func (s *CacheStore) Save(ctx context.Context, id string, st State) error {
	if err := s.cache.Set(ctx, draftKey(id), st, int(s.ttl.Seconds())); err != nil {
		return fmt.Errorf("save draft %s: %w", id, err)
	}
	return nil
}

func (s *CacheStore) Load(ctx context.Context, id string) (State, error) {
	var st State
	ok, err := s.cache.Get(ctx, draftKey(id), &st)
	if err != nil {
		return State{}, fmt.Errorf("load draft %s: %w", id, err)
	}
	if !ok {
		return State{}, ErrDraftNotFound
	}
	return st, nil
}

func (s *CacheStore) Delete(ctx context.Context, id string) error {
	return s.cache.Del(ctx, draftKey(id))
}

package querycache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"staybook/internal/adapters/observability"
	"staybook/internal/domain"
)

// Well-known tags. Per-resource tags are built with the helpers below.
const (
	TagResult      = "RESULT"
	TagExperiences = "EXPERIENCES"
)

func PropertyTag(id int64) string     { return "property:" + strconv.FormatInt(id, 10) }
func BookingsTag(user string) string  { return "bookings:" + user }
func CouponsTag(vendor string) string { return "coupons:" + vendor }
func ServicesTag(vendor string) string { return "services:" + vendor }

// Cache maps normalized keys to typed entries and tags to the keys they
// label. Ready entries are written through to an optional shared backend so
// other processes (and the warmer) can serve them.
type Cache[T any] struct {
	name    string
	backend domain.Cache
	ttl     time.Duration
	now     func() time.Time

	mu        sync.Mutex
	entries   map[string]*Entry[T]
	tags      map[string]map[string]struct{}
	inflight  map[string]int
	lastSweep time.Time
	sf        singleflight.Group
}

type envelope[T any] struct {
	Value     T         `json:"value"`
	Tags      []string  `json:"tags"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New builds a cache whose Ready entries turn Stale ttl after their last
// load; ttl <= 0 keeps them until a tag invalidates them.
func New[T any](name string, backend domain.Cache, ttl time.Duration) *Cache[T] {
	return &Cache[T]{
		name:      name,
		backend:   backend,
		ttl:       ttl,
		now:       time.Now,
		entries:   map[string]*Entry[T]{},
		tags:      map[string]map[string]struct{}{},
		inflight:  map[string]int{},
		lastSweep: time.Now(),
	}
}

func (c *Cache[T]) Name() string { return c.name }

// Peek returns the local entry for key without consulting the backend.
func (c *Cache[T]) Peek(key string) (Entry[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Entry[T]{}, false
	}
	c.expire(e)
	return *e, true
}

// Lookup returns the local entry, falling back to the shared backend. A
// backend hit is adopted locally as Ready.
func (c *Cache[T]) Lookup(ctx context.Context, key string) (Entry[T], bool) {
	if e, ok := c.Peek(key); ok {
		if e.Usable() {
			observability.ObserveCache(c.name, "hit")
		}
		return e, true
	}
	if c.backend == nil {
		observability.ObserveCache(c.name, "miss")
		return Entry[T]{}, false
	}

	var env envelope[T]
	ok, err := c.backend.Get(ctx, c.backendKey(key), &env)
	if err != nil {
		log.Warn().Err(err).Str("cache", c.name).Msg("backend get failed")
	}
	if err != nil || !ok {
		observability.ObserveCache(c.name, "miss")
		return Entry[T]{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return *e, true
	}
	if c.expired(env.UpdatedAt) {
		observability.ObserveCache(c.name, "miss")
		return Entry[T]{}, false
	}
	e := &Entry[T]{
		Key:       key,
		Tags:      env.Tags,
		Status:    StatusReady,
		Value:     env.Value,
		HasValue:  true,
		UpdatedAt: env.UpdatedAt,
	}
	c.entries[key] = e
	c.index(key, e.Tags)
	observability.ObserveCache(c.name, "hit")
	return *e, true
}

// Begin marks key as loading and returns the generation to hand to
// Commit. A held value keeps its status, so readers go on serving it.
func (c *Cache[T]) Begin(key string, tags []string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		e = &Entry[T]{Key: key}
		c.entries[key] = e
	}
	c.expire(e)
	if !e.HasValue {
		e.Status = StatusPending
	}
	c.inflight[key]++
	e.Loading = true
	e.Tags = unionTags(e.Tags, tags)
	c.index(key, e.Tags)
	return e.Gen
}

// Commit ends a load started by Begin. It computes the new value from the
// previous entry under the cache lock and stores it as Ready. Nothing is
// stored, and ok is false, when fn declines or when the entry was
// invalidated after the Begin that returned gen.
func (c *Cache[T]) Commit(ctx context.Context, key string, gen uint64, tags []string, fn func(prev *Entry[T]) (T, bool)) (Entry[T], bool) {
	return c.commit(ctx, key, tags, fn, &gen)
}

// Put stores v as the Ready value of key regardless of generation.
func (c *Cache[T]) Put(ctx context.Context, key string, tags []string, v T) Entry[T] {
	e, _ := c.commit(ctx, key, tags, func(*Entry[T]) (T, bool) { return v, true }, nil)
	return e
}

func (c *Cache[T]) commit(ctx context.Context, key string, tags []string, fn func(prev *Entry[T]) (T, bool), gen *uint64) (Entry[T], bool) {
	c.mu.Lock()
	cur, exists := c.entries[key]
	if gen != nil {
		c.done(key)
		if !exists || cur.Gen != *gen {
			c.mu.Unlock()
			observability.ObserveCache(c.name, "discard")
			return Entry[T]{}, false
		}
	}
	var prev *Entry[T]
	if exists {
		c.expire(cur)
		cp := *cur
		prev = &cp
	}
	v, ok := fn(prev)
	if !ok {
		c.mu.Unlock()
		return Entry[T]{}, false
	}
	e := &Entry[T]{
		Key:       key,
		Status:    StatusReady,
		Value:     v,
		HasValue:  true,
		UpdatedAt: c.now(),
		Tags:      tags,
		Loading:   c.inflight[key] > 0,
	}
	if prev != nil {
		e.Tags = unionTags(prev.Tags, tags)
		e.Gen = prev.Gen
	}
	c.entries[key] = e
	c.index(key, e.Tags)
	c.maybeSweep()
	out := *e
	c.mu.Unlock()

	observability.ObserveCache(c.name, "set")
	c.writeThrough(ctx, out)
	return out, true
}

func (c *Cache[T]) expired(updated time.Time) bool {
	return c.ttl > 0 && c.now().Sub(updated) >= c.ttl
}

// expire turns a Ready entry past its ttl Stale, which counts as an
// invalidation. It must be called with mu held.
func (c *Cache[T]) expire(e *Entry[T]) {
	if e.Status == StatusReady && c.expired(e.UpdatedAt) {
		e.Status = StatusStale
		e.Gen++
		observability.ObserveCache(c.name, "expired")
	}
}

// done must be called with mu held.
func (c *Cache[T]) done(key string) {
	if c.inflight[key] <= 1 {
		delete(c.inflight, key)
	} else {
		c.inflight[key]--
	}
	if e, ok := c.entries[key]; ok {
		e.Loading = c.inflight[key] > 0
	}
}

// Fail ends a load with an error. The last good value stays readable via
// Peek; a Ready value (pages already merged) stays Ready.
func (c *Cache[T]) Fail(key string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		e = &Entry[T]{Key: key}
		c.entries[key] = e
	}
	c.done(key)
	e.Err = err
	if !(e.Status == StatusReady && e.HasValue) {
		e.Status = StatusError
	}
	observability.ObserveCache(c.name, "error")
}

// Invalidate marks every entry labelled with any of tags Stale, here and in
// the shared backend. It returns the local keys affected.
func (c *Cache[T]) Invalidate(ctx context.Context, tags ...string) []string {
	keys := c.InvalidateLocal(tags...)
	if c.backend == nil {
		return keys
	}
	for _, k := range keys {
		if err := c.backend.Del(ctx, c.backendKey(k)); err != nil {
			log.Warn().Err(err).Str("cache", c.name).Msg("backend del failed")
		}
	}
	for _, t := range tags {
		var remote []string
		if ok, err := c.backend.Get(ctx, c.tagKey(t), &remote); err == nil && ok {
			for _, k := range remote {
				_ = c.backend.Del(ctx, c.backendKey(k))
			}
		}
		_ = c.backend.Del(ctx, c.tagKey(t))
	}
	return keys
}

// InvalidateLocal only touches this process, for events that already
// cleaned the backend at their origin.
func (c *Cache[T]) InvalidateLocal(tags ...string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen := map[string]struct{}{}
	var keys []string
	for _, t := range tags {
		for k := range c.tags[t] {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			if e, ok := c.entries[k]; ok {
				e.Status = StatusStale
				e.Gen++
				keys = append(keys, k)
			}
		}
	}
	if len(keys) > 0 {
		observability.ObserveCache(c.name, "stale")
	}
	sort.Strings(keys)
	return keys
}

// Fetch is cache-aside for single resources: a Ready entry is served,
// anything else loads once per key no matter how many callers wait.
func (c *Cache[T]) Fetch(ctx context.Context, key string, tags []string, load func(context.Context) (T, error)) (T, error) {
	if e, ok := c.Lookup(ctx, key); ok && e.Usable() {
		return e.Value, nil
	}
	return c.Flight(key, func() (T, error) {
		gen := c.Begin(key, tags)
		v, err := load(ctx)
		if err != nil {
			c.Fail(key, err)
			return v, err
		}
		// invalidated mid-flight: answer this caller, keep the entry Stale
		c.Commit(ctx, key, gen, tags, func(*Entry[T]) (T, bool) { return v, true })
		return v, nil
	})
}

// Flight collapses concurrent calls sharing a flight key into one.
func (c *Cache[T]) Flight(key string, fn func() (T, error)) (T, error) {
	v, err, _ := c.sf.Do(key, func() (any, error) { return fn() })
	if err != nil {
		var zero T
		if t, ok := v.(T); ok {
			zero = t
		}
		return zero, err
	}
	return v.(T), nil
}

func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// maybeSweep drops entries that can no longer be served, at most once per
// ttl. It must be called with mu held.
func (c *Cache[T]) maybeSweep() {
	if c.ttl <= 0 || c.now().Sub(c.lastSweep) < c.ttl {
		return
	}
	c.lastSweep = c.now()
	for k, e := range c.entries {
		if c.inflight[k] > 0 {
			continue
		}
		if e.Status == StatusReady && !c.expired(e.UpdatedAt) {
			continue
		}
		c.unindex(k, e.Tags)
		delete(c.entries, k)
	}
	observability.ObserveCache(c.name, "sweep")
}

// unindex must be called with mu held.
func (c *Cache[T]) unindex(key string, tags []string) {
	for _, t := range tags {
		set, ok := c.tags[t]
		if !ok {
			continue
		}
		delete(set, key)
		if len(set) == 0 {
			delete(c.tags, t)
		}
	}
}

// index must be called with mu held.
func (c *Cache[T]) index(key string, tags []string) {
	for _, t := range tags {
		set, ok := c.tags[t]
		if !ok {
			set = map[string]struct{}{}
			c.tags[t] = set
		}
		set[key] = struct{}{}
	}
}

func (c *Cache[T]) writeThrough(ctx context.Context, e Entry[T]) {
	if c.backend == nil {
		return
	}
	ttl := int(c.ttl.Seconds())
	env := envelope[T]{Value: e.Value, Tags: e.Tags, UpdatedAt: e.UpdatedAt}
	if err := c.backend.Set(ctx, c.backendKey(e.Key), env, ttl); err != nil {
		log.Warn().Err(err).Str("cache", c.name).Msg("backend set failed")
		return
	}
	// tag index lets any process invalidate keys it never loaded
	for _, t := range e.Tags {
		var keys []string
		if _, err := c.backend.Get(ctx, c.tagKey(t), &keys); err != nil {
			continue
		}
		if containsStr(keys, e.Key) {
			continue
		}
		_ = c.backend.Set(ctx, c.tagKey(t), append(keys, e.Key), ttl)
	}
}

func (c *Cache[T]) backendKey(key string) string {
	sum := sha1.Sum([]byte(key))
	return "qc:" + c.name + ":" + hex.EncodeToString(sum[:])
}

func (c *Cache[T]) tagKey(tag string) string { return "qc:" + c.name + ":tag:" + tag }

func unionTags(a, b []string) []string {
	out := append([]string(nil), a...)
	for _, t := range b {
		if !containsStr(out, t) {
			out = append(out, t)
		}
	}
	return out
}

func containsStr(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

package querycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"staybook/internal/domain"
)

// ErrBusy is returned by LoadMore while a previous page is still loading.
var ErrBusy = errors.New("querycache: page load in flight")

// Pager drives "load more" over a paginated loader. The in-flight flag drops
// re-entrant triggers (rapid scroll events) instead of queueing them.
type Pager[T any] struct {
	load     func(ctx context.Context, page int) (domain.Page[T], error)
	inflight atomic.Bool

	mu      sync.Mutex
	page    int
	hasMore bool
	current domain.Page[T]
}

func NewPager[T any](load func(ctx context.Context, page int) (domain.Page[T], error)) *Pager[T] {
	return &Pager[T]{load: load, hasMore: true}
}

// First (re)loads page 1.
func (p *Pager[T]) First(ctx context.Context) (domain.Page[T], error) {
	if !p.inflight.CompareAndSwap(false, true) {
		return p.Current(), ErrBusy
	}
	defer p.inflight.Store(false)

	res, err := p.load(ctx, 1)
	if err != nil {
		return p.Current(), err
	}
	p.mu.Lock()
	p.page, p.hasMore, p.current = 1, res.HasMore, res
	p.mu.Unlock()
	return res, nil
}

// LoadMore fetches the next page. more is false once the result set is
// exhausted; no request is issued in that case.
func (p *Pager[T]) LoadMore(ctx context.Context) (res domain.Page[T], more bool, err error) {
	if !p.inflight.CompareAndSwap(false, true) {
		return p.Current(), true, ErrBusy
	}
	defer p.inflight.Store(false)

	p.mu.Lock()
	next, hasMore, cur := p.page+1, p.hasMore, p.current
	p.mu.Unlock()
	if !hasMore {
		return cur, false, nil
	}

	res, err = p.load(ctx, next)
	if err != nil {
		return cur, true, err
	}
	// a loader that restarted from page 1 reports where it really is
	if res.Page > 0 {
		next = res.Page
	}
	p.mu.Lock()
	p.page, p.hasMore, p.current = next, res.HasMore, res
	p.mu.Unlock()
	return res, res.HasMore, nil
}

func (p *Pager[T]) Current() domain.Page[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *Pager[T]) Page() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.page
}

func (p *Pager[T]) Loading() bool { return p.inflight.Load() }

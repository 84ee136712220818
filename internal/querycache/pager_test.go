package querycache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"staybook/internal/domain"
	"staybook/internal/querycache"
)

func TestPager_LoadsUntilExhausted(t *testing.T) {
	var pages []int
	p := querycache.NewPager(func(ctx context.Context, page int) (domain.Page[domain.Property], error) {
		pages = append(pages, page)
		return domain.Page[domain.Property]{Items: props(int64(page)), HasMore: page < 3, Page: page}, nil
	})
	ctx := context.Background()

	if _, err := p.First(ctx); err != nil {
		t.Fatal(err)
	}
	for {
		_, more, err := p.LoadMore(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if !more {
			break
		}
	}
	// one more call after exhaustion must not hit the loader
	if _, more, _ := p.LoadMore(ctx); more {
		t.Fatalf("expected exhausted pager")
	}
	if len(pages) != 3 || pages[2] != 3 {
		t.Fatalf("unexpected page sequence %v", pages)
	}
}

func TestPager_DropsReentrantLoads(t *testing.T) {
	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})
	p := querycache.NewPager(func(ctx context.Context, page int) (domain.Page[domain.Property], error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
			<-release
		}
		return domain.Page[domain.Property]{HasMore: true, Page: page}, nil
	})
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _, _ = p.LoadMore(ctx)
	}()
	<-started

	busy := 0
	for i := 0; i < 5; i++ {
		if _, _, err := p.LoadMore(ctx); errors.Is(err, querycache.ErrBusy) {
			busy++
		}
	}
	close(release)
	wg.Wait()

	if busy != 5 || atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("re-entrant loads should be dropped: busy=%d calls=%d", busy, calls)
	}
	if p.Page() != 1 {
		t.Fatalf("page should be 1 after one load, got %d", p.Page())
	}
}

func TestPager_ErrorDoesNotAdvance(t *testing.T) {
	fail := true
	p := querycache.NewPager(func(ctx context.Context, page int) (domain.Page[domain.Property], error) {
		if fail {
			return domain.Page[domain.Property]{}, errors.New("offline")
		}
		return domain.Page[domain.Property]{HasMore: true, Page: page}, nil
	})
	ctx := context.Background()
	if _, _, err := p.LoadMore(ctx); err == nil {
		t.Fatalf("expected error")
	}
	fail = false
	if _, _, err := p.LoadMore(ctx); err != nil {
		t.Fatal(err)
	}
	if p.Page() != 1 {
		t.Fatalf("failed load must not advance the page, got %d", p.Page())
	}
}

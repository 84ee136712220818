package app_test

import (
	"context"
	"strings"
	"testing"

	"staybook/internal/domain"
	"staybook/internal/querycache"
)

func dohaParams(page int) querycache.Params {
	return querycache.Params{"location": "Doha", "min_price": 100, "page": page}
}

func TestSearch_DohaPagesMergeIntoUniqueUnion(t *testing.T) {
	h := newHarness()
	h.market.searchPages[1] = domain.SearchPage{Items: props(1, 2, 3, 4, 5), Total: 8, HasMore: true}
	h.market.searchPages[2] = domain.SearchPage{Items: props(4, 5, 6, 7, 8), Total: 8}
	ctx := context.Background()

	p1, err := h.search.Search(ctx, dohaParams(1))
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if len(p1.Items) != 5 || !p1.HasMore {
		t.Fatalf("unexpected page 1: %+v", p1)
	}
	p2, err := h.search.Search(ctx, dohaParams(2))
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if len(p2.Items) != 8 || p2.HasMore || p2.Page != 2 {
		t.Fatalf("want 5+5-2=8 merged items, got %d (page %d)", len(p2.Items), p2.Page)
	}
	for i, it := range p2.Items {
		if it.ID != int64(i+1) {
			t.Fatalf("first-seen order broken at %d: %d", i, it.ID)
		}
	}

	q := h.market.searchCalls[1]
	if q.Get("location") != "Doha" || q.Get("min_price") != "100" || q.Get("page") != "2" {
		t.Fatalf("unexpected upstream query %v", q)
	}
}

func TestSearch_CachedPagesServedLocally(t *testing.T) {
	h := newHarness()
	h.market.searchPages[1] = domain.SearchPage{Items: props(1, 2), Total: 4, HasMore: true}
	h.market.searchPages[2] = domain.SearchPage{Items: props(3, 4), Total: 4}
	ctx := context.Background()

	for _, page := range []int{1, 2, 1, 2} {
		if _, err := h.search.Search(ctx, dohaParams(page)); err != nil {
			t.Fatalf("page %d: %v", page, err)
		}
	}
	// order of keys in the request must not matter either
	if _, err := h.search.Search(ctx, querycache.Params{"page": 1, "min_price": "100", "location": "Doha", "_t": 99}); err != nil {
		t.Fatal(err)
	}
	if n := len(h.market.searchCalls); n != 2 {
		t.Fatalf("want 2 upstream calls, got %d", n)
	}
}

func TestSearch_MutationRefetchesFromPageOne(t *testing.T) {
	h := newHarness()
	h.market.searchPages[1] = domain.SearchPage{Items: props(1, 2), Total: 6, HasMore: true}
	h.market.searchPages[2] = domain.SearchPage{Items: props(3, 4), Total: 6, HasMore: true}
	h.market.searchPages[3] = domain.SearchPage{Items: props(5, 6), Total: 6}
	ctx := context.Background()

	for _, page := range []int{1, 2} {
		if _, err := h.search.Search(ctx, dohaParams(page)); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := h.props.Update(ctx, 3, domain.PropertyInput{Title: "renamed"}); err != nil {
		t.Fatal(err)
	}

	// the client scrolls on, but the stale set restarts at page 1
	res, err := h.search.Search(ctx, dohaParams(3))
	if err != nil {
		t.Fatal(err)
	}
	if got := h.market.lastSearchPage(); got != "1" {
		t.Fatalf("want a page-1 request after mutation, got page %s", got)
	}
	if res.Page != 1 || len(res.Items) != 2 {
		t.Fatalf("result set should be rebuilt from page 1: %+v", res)
	}
}

func TestSearchView_PageOnlyChangeLoadsMore(t *testing.T) {
	h := newHarness()
	h.market.searchPages[1] = domain.SearchPage{Items: props(1, 2), Total: 4, HasMore: true}
	h.market.searchPages[2] = domain.SearchPage{Items: props(3, 4), Total: 4}
	ctx := context.Background()
	v := h.search.NewView()

	_, refetched, err := v.Apply(ctx, dohaParams(1))
	if err != nil || !refetched {
		t.Fatalf("first apply must fetch: %v %v", refetched, err)
	}
	res, refetched, err := v.Apply(ctx, dohaParams(2))
	if err != nil || refetched {
		t.Fatalf("page-only change must not refetch: %v %v", refetched, err)
	}
	if len(res.Items) != 4 {
		t.Fatalf("expected merged set, got %d", len(res.Items))
	}

	other := dohaParams(1)
	other["guests"] = 3
	if _, refetched, _ = v.Apply(ctx, other); !refetched {
		t.Fatalf("filter change must refetch")
	}
	if got := h.market.lastSearchPage(); got != "1" {
		t.Fatalf("filter change should request page 1, got %s", got)
	}
}

func TestSearch_ReadersServedWhileNextPageLoads(t *testing.T) {
	h := newHarness()
	h.market.searchPages[1] = domain.SearchPage{Items: props(1, 2), Total: 6, HasMore: true}
	h.market.searchPages[2] = domain.SearchPage{Items: props(3, 4), Total: 6, HasMore: true}
	h.market.searchPages[3] = domain.SearchPage{Items: props(5, 6), Total: 6}
	ctx := context.Background()

	for _, page := range []int{1, 2} {
		if _, err := h.search.Search(ctx, dohaParams(page)); err != nil {
			t.Fatal(err)
		}
	}

	gate := make(chan struct{})
	h.market.mu.Lock()
	h.market.searchGates[3] = gate
	h.market.mu.Unlock()

	done := make(chan domain.SearchPage)
	go func() {
		res, err := h.search.Search(ctx, dohaParams(3))
		if err != nil {
			t.Errorf("page 3: %v", err)
		}
		done <- res
	}()
	<-h.market.searchGated

	// a second reader during the load-more gets the held pages
	res, err := h.search.Search(ctx, dohaParams(2))
	if err != nil {
		t.Fatal(err)
	}
	if res.Page != 2 || len(res.Items) != 4 {
		t.Fatalf("held pages should be served during the load: %+v", res)
	}

	close(gate)
	res = <-done
	if res.Page != 3 || len(res.Items) != 6 {
		t.Fatalf("page 3 should extend the held set: %+v", res)
	}
	if got := strings.Join(h.market.searchedPages(), ","); got != "1,2,3" {
		t.Fatalf("want upstream pages 1,2,3, got %s", got)
	}
}

func TestSearch_InvalidationDuringLoadIsNotKept(t *testing.T) {
	h := newHarness()
	h.market.searchPages[1] = domain.SearchPage{Items: props(1, 2), Total: 2}
	ctx := context.Background()

	gate := make(chan struct{})
	h.market.mu.Lock()
	h.market.searchGates[1] = gate
	h.market.mu.Unlock()

	done := make(chan domain.SearchPage)
	go func() {
		res, err := h.search.Search(ctx, dohaParams(1))
		if err != nil {
			t.Errorf("page 1: %v", err)
		}
		done <- res
	}()
	<-h.market.searchGated

	if _, err := h.props.Update(ctx, 2, domain.PropertyInput{Title: "renamed"}); err != nil {
		t.Fatal(err)
	}
	close(gate)
	if res := <-done; len(res.Items) != 2 {
		t.Fatalf("the in-flight caller still gets its page: %+v", res)
	}

	fk := querycache.FilterKey(dohaParams(1))
	if e, ok := h.results.Peek(fk); ok && e.Usable() {
		t.Fatalf("a page loaded before the mutation must not be cached: %+v", e)
	}
	if _, err := h.search.Search(ctx, dohaParams(1)); err != nil {
		t.Fatal(err)
	}
	if n := len(h.market.searchedPages()); n != 2 {
		t.Fatalf("want the next search to go upstream again, got %d calls", n)
	}
}

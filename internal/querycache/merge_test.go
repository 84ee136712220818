package querycache_test

import (
	"testing"

	"staybook/internal/domain"
	"staybook/internal/querycache"
)

func props(ids ...int64) []domain.Property {
	out := make([]domain.Property, len(ids))
	for i, id := range ids {
		out[i] = domain.Property{ID: id}
	}
	return out
}

func ids(ps []domain.Property) []int64 {
	out := make([]int64, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func TestMerge_FirstPageReplaces(t *testing.T) {
	cached := &domain.SearchPage{Items: props(1, 2, 3), Total: 10, Page: 2}
	got := querycache.Merge(cached, domain.SearchPage{Items: props(7, 8), Total: 2}, 1)
	if len(got.Items) != 2 || got.Items[0].ID != 7 || got.Page != 1 || got.Total != 2 {
		t.Fatalf("page 1 should replace wholesale: %+v", got)
	}
}

func TestMerge_AbsentCacheReplaces(t *testing.T) {
	got := querycache.Merge[domain.Property](nil, domain.SearchPage{Items: props(4, 5)}, 2)
	if len(got.Items) != 2 {
		t.Fatalf("absent cache should take incoming: %+v", got)
	}
}

func TestMerge_DedupPreservesFirstSeenOrder(t *testing.T) {
	cached := &domain.SearchPage{Items: props(1, 2, 3, 4), Total: 9, HasMore: true, Page: 1}
	incoming := domain.SearchPage{Items: props(3, 5, 1, 6, 7), Total: 8, HasMore: false}

	got := querycache.Merge(cached, incoming, 2)

	// existing + N - M = 4 + 5 - 2
	if len(got.Items) != 7 {
		t.Fatalf("want 7 items, got %d (%v)", len(got.Items), ids(got.Items))
	}
	want := []int64{1, 2, 3, 4, 5, 6, 7}
	for i, id := range ids(got.Items) {
		if id != want[i] {
			t.Fatalf("order mismatch: got %v want %v", ids(got.Items), want)
		}
	}
	if got.Total != 8 || got.HasMore || got.Page != 2 {
		t.Fatalf("metadata should come from latest response: %+v", got)
	}
	if len(cached.Items) != 4 {
		t.Fatalf("merge must not mutate the cached page")
	}
}

func TestShouldRefetch(t *testing.T) {
	base := querycache.Params{"location": "Doha", "min_price": 100, "page": 1}

	if querycache.ShouldRefetch(base, querycache.WithPage(base, 2)) {
		t.Fatalf("page-only change must not force a refetch")
	}
	changed := querycache.WithPage(base, 2)
	changed["min_price"] = 150
	if !querycache.ShouldRefetch(base, changed) {
		t.Fatalf("filter change must force a refetch")
	}
	reordered := querycache.Params{"page": 3, "min_price": "100", "location": "Doha"}
	if querycache.ShouldRefetch(base, reordered) {
		t.Fatalf("semantically equal filters must not force a refetch")
	}
	if !querycache.ShouldRefetch(nil, base) {
		t.Fatalf("first request has nothing to reuse")
	}
}

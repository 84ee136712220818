package querycache

import "staybook/internal/domain"

// Identified items carry the primary key used for de-duplication.
type Identified interface {
	EntityID() int64
}

// Merge folds an incoming page into the cached result set. Page 1, or a
// missing cache, replaces the set wholesale. Later pages append only items
// whose id is not present yet, in arrival order; totals come from the latest
// response.
func Merge[T Identified](cached *domain.Page[T], incoming domain.Page[T], page int) domain.Page[T] {
	if page < 1 {
		page = 1
	}
	if cached == nil || page == 1 {
		out := incoming
		out.Items = append([]T(nil), incoming.Items...)
		out.Page = page
		return out
	}

	seen := make(map[int64]struct{}, len(cached.Items)+len(incoming.Items))
	items := make([]T, 0, len(cached.Items)+len(incoming.Items))
	for _, it := range cached.Items {
		seen[it.EntityID()] = struct{}{}
		items = append(items, it)
	}
	for _, it := range incoming.Items {
		id := it.EntityID()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		items = append(items, it)
	}

	last := page
	if cached.Page > last {
		last = cached.Page
	}
	return domain.Page[T]{
		Items:   items,
		Total:   incoming.Total,
		HasMore: incoming.HasMore,
		Page:    last,
	}
}

// ShouldRefetch is true when the filter fingerprint changed between two
// successive argument sets. A page-only change is a "load more", never a
// forced refetch. A nil prev means there is nothing to reuse.
func ShouldRefetch(prev, cur Params) bool {
	if prev == nil {
		return true
	}
	return FilterKey(prev) != FilterKey(cur)
}

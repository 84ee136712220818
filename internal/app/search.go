package app

import (
	"context"
	"fmt"
	"strconv"

	"staybook/internal/domain"
	"staybook/internal/querycache"
)

// SearchService serves property search with one merged result set per
// filter fingerprint: later pages are appended to the cached set.
type SearchService struct {
	api   domain.PropertyAPI
	cache *querycache.Cache[domain.SearchPage]
}

func NewSearchService(api domain.PropertyAPI, cache *querycache.Cache[domain.SearchPage]) *SearchService {
	return &SearchService{api: api, cache: cache}
}

// Search returns the accumulated results up to the requested page. A stale
// or missing result set is always rebuilt from page 1, whatever page was
// asked for.
func (s *SearchService) Search(ctx context.Context, p querycache.Params) (domain.SearchPage, error) {
	page := querycache.PageOf(p)
	fk := querycache.FilterKey(p)

	e, ok := s.cache.Lookup(ctx, fk)
	if ok && e.Usable() && e.Value.Page >= page {
		return e.Value, nil
	}

	fetch := page
	if !ok || !e.Usable() {
		fetch = 1
	} else if page > e.Value.Page+1 {
		// no skipping ahead; the set grows one page at a time
		fetch = e.Value.Page + 1
	}

	return s.cache.Flight(fk+"#"+strconv.Itoa(fetch), func() (domain.SearchPage, error) {
		return s.load(ctx, p, fk, fetch)
	})
}

func (s *SearchService) load(ctx context.Context, p querycache.Params, fk string, page int) (domain.SearchPage, error) {
	gen := s.cache.Begin(fk, []string{querycache.TagResult})
	res, err := s.api.SearchProperties(ctx, querycache.Values(querycache.WithPage(p, page)))
	if err != nil {
		s.cache.Fail(fk, err)
		return domain.SearchPage{}, fmt.Errorf("search page %d: %w", page, err)
	}

	tags := resultTags(res.Items)
	e, ok := s.cache.Commit(ctx, fk, gen, tags, func(prev *querycache.Entry[domain.SearchPage]) (domain.SearchPage, bool) {
		if page == 1 {
			return querycache.Merge(nil, res, 1), true
		}
		if prev == nil || !prev.HasValue || prev.Status == querycache.StatusStale || prev.Value.Page < page-1 {
			return domain.SearchPage{}, false
		}
		return querycache.Merge(&prev.Value, res, page), true
	})
	if !ok {
		// invalidated while in flight: page 1 is answered but not kept,
		// a later page restarts the set
		if page == 1 {
			return querycache.Merge(nil, res, 1), nil
		}
		return s.load(ctx, p, fk, 1)
	}
	return e.Value, nil
}

func resultTags(items []domain.Property) []string {
	tags := make([]string, 0, len(items)+1)
	tags = append(tags, querycache.TagResult)
	for _, it := range items {
		tags = append(tags, querycache.PropertyTag(it.ID))
	}
	return tags
}

// SearchView tracks one client's scrolling position over a search. A change
// of filters restarts from page 1; a page-only change loads more.
type SearchView struct {
	svc   *SearchService
	prev  querycache.Params
	pager *querycache.Pager[domain.Property]
}

func (s *SearchService) NewView() *SearchView { return &SearchView{svc: s} }

// Apply runs the search for p. refetched reports whether the filters
// changed and the result set was reloaded from page 1.
func (v *SearchView) Apply(ctx context.Context, p querycache.Params) (res domain.SearchPage, refetched bool, err error) {
	if querycache.ShouldRefetch(v.prev, p) {
		base := querycache.WithPage(p, 1)
		v.prev = base
		v.pager = querycache.NewPager(func(ctx context.Context, page int) (domain.SearchPage, error) {
			return v.svc.Search(ctx, querycache.WithPage(base, page))
		})
		res, err = v.pager.First(ctx)
		return res, true, err
	}
	res, _, err = v.pager.LoadMore(ctx)
	return res, false, err
}

// More loads the next page of the current search.
func (v *SearchView) More(ctx context.Context) (domain.SearchPage, bool, error) {
	if v.pager == nil {
		return domain.SearchPage{}, false, nil
	}
	return v.pager.LoadMore(ctx)
}

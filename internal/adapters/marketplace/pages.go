package marketplace

import (
	"net/url"
	"strconv"

	"staybook/internal/domain"
)

// envelope is the paginated list shape every upstream service returns.
type envelope[T any] struct {
	Results  []T     `json:"results"`
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
}

// toPage maps the envelope onto a domain page. More results exist when the
// server advertises a next link, or, without one, when the running total is
// still short of the count.
func (e envelope[T]) toPage(page, pageSize int) domain.Page[T] {
	if page < 1 {
		page = 1
	}
	p := domain.Page[T]{Items: e.Results, Total: e.Count, Page: page}
	switch {
	case e.Next != nil:
		p.HasMore = *e.Next != ""
	case pageSize > 0:
		p.HasMore = (page-1)*pageSize+len(e.Results) < e.Count
	}
	if p.Items == nil {
		p.Items = []T{}
	}
	return p
}

func pageQuery(page int) url.Values {
	if page <= 1 {
		return nil
	}
	return url.Values{"page": {strconv.Itoa(page)}}
}

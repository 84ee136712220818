// Package querycache is the typed request cache behind search and the other
// read endpoints: canonical request keys, tag invalidation, and incremental
// merge of paginated results.
package querycache

import (
	"fmt"
	"math"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"staybook/internal/domain"
)

// Params is the loose parameter bag of one request, as built from a typed
// filter struct or a raw query string.
type Params map[string]any

const PageParam = "page"

// injected holds fields added by HTTP clients and proxies that never change
// the semantics of a request.
var injected = map[string]bool{
	"_":          true,
	"_t":         true,
	"cache_bust": true,
	"callback":   true,
}

// Normalize returns the canonical, order-independent key of p.
func Normalize(p Params) string { return encode(p, false) }

// FilterKey is Normalize without the page number: the stable fingerprint
// shared by every page of one result set.
func FilterKey(p Params) string { return encode(p, true) }

func encode(p Params, dropPage bool) string {
	keys := make([]string, 0, len(p))
	vals := make(map[string]string, len(p))
	for k, v := range p {
		k = strings.TrimSpace(k)
		if k == "" || injected[k] || (dropPage && k == PageParam) {
			continue
		}
		s, ok := canonical(v)
		if !ok {
			continue
		}
		keys = append(keys, k)
		vals[k] = s
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(vals[k])
	}
	return b.String()
}

// canonical renders one value; ok=false means the value is empty and elided.
func canonical(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return scalarString(x)
	case bool:
		return strconv.FormatBool(x), true
	case int:
		return strconv.FormatInt(int64(x), 10), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case uint:
		return strconv.FormatUint(uint64(x), 10), true
	case uint64:
		return strconv.FormatUint(x, 10), true
	case float64:
		return formatFloat(x)
	case float32:
		return formatFloat(float64(x))
	case fmt.Stringer:
		return scalarString(x.String())
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		parts := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			s, ok := canonical(rv.Index(i).Interface())
			if !ok {
				continue
			}
			parts = append(parts, s)
		}
		if len(parts) == 0 {
			return "", false
		}
		sort.Strings(parts)
		return strings.Join(parts, ","), true
	case reflect.Pointer:
		if rv.IsNil() {
			return "", false
		}
		return canonical(rv.Elem().Interface())
	}
	return scalarString(fmt.Sprint(v))
}

func scalarString(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if out, ok := formatFloat(f); ok {
			return out, true
		}
	}
	return url.QueryEscape(s), true
}

func formatFloat(f float64) (string, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", false
	}
	return strconv.FormatFloat(f, 'f', -1, 64), true
}

// PageOf returns the 1-based page number carried by p.
func PageOf(p Params) int {
	s, ok := canonical(p[PageParam])
	if !ok {
		return 1
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// WithPage returns a copy of p asking for page n.
func WithPage(p Params, n int) Params {
	out := make(Params, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	out[PageParam] = n
	return out
}

// Values renders p as the canonical upstream query string.
func Values(p Params) url.Values {
	out := url.Values{}
	for k, v := range p {
		if injected[k] {
			continue
		}
		s, ok := canonical(v)
		if !ok {
			continue
		}
		if u, err := url.QueryUnescape(s); err == nil {
			s = u
		}
		out.Set(k, s)
	}
	return out
}

// ParamsFromQuery accepts repeated keys and comma-joined lists alike.
func ParamsFromQuery(q url.Values) Params {
	p := make(Params, len(q))
	for k, vs := range q {
		var parts []string
		for _, v := range vs {
			for _, s := range strings.Split(v, ",") {
				if s = strings.TrimSpace(s); s != "" {
					parts = append(parts, s)
				}
			}
		}
		switch len(parts) {
		case 0:
		case 1:
			p[k] = parts[0]
		default:
			p[k] = parts
		}
	}
	return p
}

// ParamsFromFilters drops zero-valued fields so an unset filter and an
// absent one share a key.
func ParamsFromFilters(f domain.SearchFilters) Params {
	p := Params{
		"location":      f.Location,
		"check_in":      f.CheckIn,
		"check_out":     f.CheckOut,
		"amenities":     f.Amenities,
		"property_type": f.PropertyType,
		"place_type":    f.PlaceType,
		"category":      f.Category,
	}
	if f.Guests > 0 {
		p["guests"] = f.Guests
	}
	if f.MinPrice > 0 {
		p["min_price"] = f.MinPrice
	}
	if f.MaxPrice > 0 {
		p["max_price"] = f.MaxPrice
	}
	return p
}

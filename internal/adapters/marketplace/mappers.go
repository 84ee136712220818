package marketplace

import (
	"strconv"
	"strings"

	"staybook/internal/domain"
)

// The listing service has shipped flat and nested property shapes over
// time; each field is read from the first alias that is present.
var propertyAliases = map[string][]string{
	"id":              {"id", "property_id", "pk"},
	"host_id":         {"host_id", "host.id", "owner_id", "owner"},
	"title":           {"title", "name"},
	"description":     {"description", "summary"},
	"place_type":      {"place_type", "placeType"},
	"property_type":   {"property_type", "propertyType", "type"},
	"category":        {"category", "category.name"},
	"address":         {"location.address", "address", "address.line", "full_address"},
	"city":            {"location.city", "city", "address.city"},
	"country":         {"location.country", "country", "address.country"},
	"lat":             {"location.lat", "latitude", "lat", "location.latitude"},
	"lng":             {"location.lng", "longitude", "lng", "lon", "location.longitude"},
	"nightly":         {"pricing.nightly", "price_per_night", "nightly_price", "price"},
	"cleaning_fee":    {"pricing.cleaning_fee", "cleaning_fee"},
	"service_fee_pct": {"pricing.service_fee_pct", "service_fee_pct", "service_fee"},
	"currency":        {"pricing.currency", "currency"},
	"guests":          {"capacity.guests", "max_guests", "guests"},
	"bedrooms":        {"capacity.bedrooms", "bedrooms"},
	"beds":            {"capacity.beds", "beds"},
	"bathrooms":       {"capacity.bathrooms", "bathrooms"},
	"amenities":       {"amenities", "facilities"},
	"images":          {"images", "photos"},
}

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

func aliasStr(m map[string]any, key string) string {
	for _, p := range propertyAliases[key] {
		if s, ok := lookupAny(m, p).(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// aliasFloat reads float64/int/string (decimal comma allowed).
func aliasFloat(m map[string]any, key string) float64 {
	for _, p := range propertyAliases[key] {
		switch v := lookupAny(m, p).(type) {
		case float64:
			return v
		case int:
			return float64(v)
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f
			}
		}
	}
	return 0
}

func aliasInt64(m map[string]any, key string) int64 {
	for _, p := range propertyAliases[key] {
		switch v := lookupAny(m, p).(type) {
		case float64:
			return int64(v)
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				return n
			}
		}
	}
	return 0
}

// aliasStrings accepts []any of strings or of {name|slug} objects.
func aliasStrings(m map[string]any, key string) []string {
	for _, p := range propertyAliases[key] {
		raw, ok := lookupAny(m, p).([]any)
		if !ok {
			continue
		}
		out := make([]string, 0, len(raw))
		for _, it := range raw {
			switch t := it.(type) {
			case string:
				if t != "" {
					out = append(out, t)
				}
			case map[string]any:
				if n, ok := t["name"].(string); ok && n != "" {
					out = append(out, n)
				} else if s, ok := t["slug"].(string); ok && s != "" {
					out = append(out, s)
				}
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// aliasImages accepts bare URLs or {id, url|image|src} objects.
func aliasImages(m map[string]any) []domain.Image {
	for _, p := range propertyAliases["images"] {
		raw, ok := lookupAny(m, p).([]any)
		if !ok {
			continue
		}
		out := make([]domain.Image, 0, len(raw))
		for _, it := range raw {
			switch t := it.(type) {
			case string:
				if t != "" {
					out = append(out, domain.Image{URL: t})
				}
			case map[string]any:
				img := domain.Image{}
				if id, ok := t["id"].(float64); ok {
					img.ID = int64(id)
				}
				for _, k := range []string{"url", "image", "src"} {
					if u, ok := t[k].(string); ok && u != "" {
						img.URL = u
						break
					}
				}
				if img.URL != "" {
					out = append(out, img)
				}
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func mapProperty(p map[string]any) domain.Property {
	return domain.Property{
		ID:           aliasInt64(p, "id"),
		HostID:       aliasInt64(p, "host_id"),
		Title:        aliasStr(p, "title"),
		Description:  aliasStr(p, "description"),
		PlaceType:    aliasStr(p, "place_type"),
		PropertyType: aliasStr(p, "property_type"),
		Category:     aliasStr(p, "category"),
		Location: domain.Location{
			Address: aliasStr(p, "address"),
			City:    aliasStr(p, "city"),
			Country: aliasStr(p, "country"),
			Lat:     aliasFloat(p, "lat"),
			Lng:     aliasFloat(p, "lng"),
		},
		Pricing: domain.Pricing{
			Nightly:       aliasFloat(p, "nightly"),
			CleaningFee:   aliasFloat(p, "cleaning_fee"),
			ServiceFeePct: aliasFloat(p, "service_fee_pct"),
			Currency:      aliasStr(p, "currency"),
		},
		Capacity: domain.Capacity{
			Guests:    int(aliasInt64(p, "guests")),
			Bedrooms:  int(aliasInt64(p, "bedrooms")),
			Beds:      int(aliasInt64(p, "beds")),
			Bathrooms: int(aliasInt64(p, "bathrooms")),
		},
		Amenities: aliasStrings(p, "amenities"),
		Images:    aliasImages(p),
	}
}

func mapProperties(in []map[string]any) []domain.Property {
	out := make([]domain.Property, 0, len(in))
	for _, p := range in {
		out = append(out, mapProperty(p))
	}
	return out
}

package wizard

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

var (
	errNotNumber = errors.New("must be a number")
	errNotDate   = errors.New("must be a date (YYYY-MM-DD)")
)

// coerce converts raw form input to its typed value: numeric strings to
// float64, checkbox values to bool, dates to time.Time, lists to []string.
// Empty input yields nil.
func coerce(k Kind, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if k == Bool {
			return false, nil
		}
		return nil, nil
	}
	switch k {
	case Number:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, errNotNumber
		}
		return f, nil
	case Bool:
		switch strings.ToLower(raw) {
		case "1", "true", "on", "yes", "checked":
			return true, nil
		}
		return false, nil
	case Date:
		t, err := time.Parse(DateLayout, raw)
		if err != nil {
			return nil, errNotDate
		}
		return t, nil
	case List:
		var out []string
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	}
	return raw, nil
}

// Values is a coerced draft.
type Values map[string]any

func (v Values) String(name string) string {
	s, _ := v[name].(string)
	return s
}

func (v Values) Float(name string) float64 {
	f, _ := v[name].(float64)
	return f
}

func (v Values) Int(name string) int { return int(v.Float(name)) }

func (v Values) Int64(name string) int64 { return int64(v.Float(name)) }

func (v Values) Bool(name string) bool {
	b, _ := v[name].(bool)
	return b
}

func (v Values) Time(name string) time.Time {
	t, _ := v[name].(time.Time)
	return t
}

func (v Values) Strings(name string) []string {
	s, _ := v[name].([]string)
	return s
}

func (v Values) Has(name string) bool {
	_, ok := v[name]
	return ok
}

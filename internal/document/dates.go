package document

import (
	"time"

	"github.com/starford/frontedit/internal/value"
)

// Form dates come back as ISO-8601 strings.
const isoLayout = "2006-01-02T15:04:05.000Z"

// restoreDates returns updated with date strings converted back to the shape
// the original document used: YAML timestamps become time values again and
// date-only strings stay date-only.
func restoreDates(orig, updated any) any {
	switch u := updated.(type) {
	case *value.Object:
		out := value.NewObject()
		for pair := u.Oldest(); pair != nil; pair = pair.Next() {
			prev, _ := value.Get(orig, pair.Key)
			out.Set(pair.Key, restoreDates(prev, pair.Value))
		}
		return out
	case []any:
		prev, _ := value.AsSlice(orig)
		out := make([]any, len(u))
		for i, e := range u {
			var p any
			if i < len(prev) {
				p = prev[i]
			}
			out[i] = restoreDates(p, e)
		}
		return out
	case string:
		t, err := time.Parse(isoLayout, u)
		if err != nil {
			return u
		}
		switch o := orig.(type) {
		case time.Time:
			return t.In(o.Location())
		case string:
			if _, err := time.Parse(time.DateOnly, o); err == nil && isMidnightUTC(t) {
				return t.Format(time.DateOnly)
			}
		}
		return u
	}
	return updated
}

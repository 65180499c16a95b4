package listing

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/Sternrassler/fastlist/pkg/cache"
)

// ParseFilter reads list parameters from a query string. Unparseable numbers
// and booleans are ignored so defaults apply; the result is not yet normalized.
func ParseFilter(q url.Values) cache.QueryFilterSpec {
	spec := cache.QueryFilterSpec{
		Skip:          atoi(q.Get("skip")),
		Take:          atoi(q.Get("take")),
		Search:        q.Get("search"),
		SortField:     q.Get("sortField"),
		SortDirection: cache.SortDirection(q.Get("sortDirection")),
		Company:       first(q, "company", "companyId"),
		VendorID:      q.Get("vendorId"),
		Category:      q.Get("category"),
		Currency:      q.Get("currency"),
	}
	if v := q.Get("active"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			spec.Active = &b
		}
	}
	return spec
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func first(q url.Values, keys ...string) string {
	for _, k := range keys {
		if v := q.Get(k); v != "" {
			return v
		}
	}
	return ""
}

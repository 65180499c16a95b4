package cache

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// CompanyAll is the company filter value meaning "no company filter".
const CompanyAll = "all"

const (
	// DefaultTake is the page size used when a request omits take.
	DefaultTake = 20

	// MaxTake caps the page size.
	MaxTake = 100
)

// SortDirection is the ordering of a list query.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// QueryFilterSpec is the normalized filter, sort and pagination of a list query.
// It is used both to query the source of record and to derive cache keys.
type QueryFilterSpec struct {
	Skip          int
	Take          int
	Search        string
	SortField     string
	SortDirection SortDirection

	// Company is the owning company id, or CompanyAll.
	Company string

	// Entity-specific filters. Empty or nil means "not filtered".
	VendorID string // product
	Category string // product
	Currency string // wallet
	Active   *bool  // vendor, client, wallet
}

// FilterDefaults are the per-entity substitutions applied during normalization.
type FilterDefaults struct {
	Take          int
	SortField     string
	SortDirection SortDirection
}

// Normalize substitutes defaults and canonicalizes values so that logically
// equal filters compare equal. It is idempotent.
func (s QueryFilterSpec) Normalize(d FilterDefaults) QueryFilterSpec {
	if d.Take <= 0 {
		d.Take = DefaultTake
	}
	if d.SortDirection == "" {
		d.SortDirection = SortAsc
	}

	out := s
	if out.Skip < 0 {
		out.Skip = 0
	}
	switch {
	case out.Take <= 0:
		out.Take = d.Take
	case out.Take > MaxTake:
		out.Take = MaxTake
	}

	out.Search = strings.ToLower(strings.TrimSpace(out.Search))

	out.SortField = strings.TrimSpace(out.SortField)
	if out.SortField == "" {
		out.SortField = d.SortField
	}
	switch SortDirection(strings.ToLower(strings.TrimSpace(string(out.SortDirection)))) {
	case SortAsc:
		out.SortDirection = SortAsc
	case SortDesc:
		out.SortDirection = SortDesc
	default:
		out.SortDirection = d.SortDirection
	}

	out.Company = canonicalID(out.Company)
	if out.Company == "" || strings.EqualFold(out.Company, CompanyAll) {
		out.Company = CompanyAll
	}
	out.VendorID = canonicalID(out.VendorID)
	out.Category = strings.ToLower(strings.TrimSpace(out.Category))
	out.Currency = strings.ToUpper(strings.TrimSpace(out.Currency))
	return out
}

// HasCompany reports whether the spec restricts results to one company.
func (s QueryFilterSpec) HasCompany() bool {
	return s.Company != "" && s.Company != CompanyAll
}

// Canonical renders the filter as a stable string: keys sorted, values escaped.
// The spec must already be normalized.
func (s QueryFilterSpec) Canonical() string {
	v := s.filterValues()
	v.Set("skip", strconv.Itoa(s.Skip))
	v.Set("take", strconv.Itoa(s.Take))
	v.Set("sort", s.SortField)
	v.Set("dir", string(s.SortDirection))
	// Encode sorts by key and escapes glob metacharacters in values.
	return v.Encode()
}

func (s QueryFilterSpec) filterValues() url.Values {
	v := url.Values{}
	v.Set("company", s.Company)
	if s.Search != "" {
		v.Set("search", s.Search)
	}
	if s.VendorID != "" {
		v.Set("vendorId", s.VendorID)
	}
	if s.Category != "" {
		v.Set("category", s.Category)
	}
	if s.Currency != "" {
		v.Set("currency", s.Currency)
	}
	if s.Active != nil {
		v.Set("active", strconv.FormatBool(*s.Active))
	}
	return v
}

// Keys derives the data and count keys for an entity list query:
//
//	<entity>:list:<canonical filter>
//	<entity>:count:<canonical filter>
//
// Both keys share the full representation, so a cached page is always served
// with the total that was fetched alongside it.
func Keys(entity string, spec QueryFilterSpec, d FilterDefaults) (dataKey, countKey string) {
	n := spec.Normalize(d)
	return entity + ":list:" + n.Canonical(), entity + ":count:" + n.Canonical()
}

// Prefix returns the pattern that matches every cache key of an entity.
func Prefix(entity string) string {
	return entity + ":*"
}

// CompanyFromAny renders a company id given as a number or a string in the
// same form Normalize gives the company filter.
func CompanyFromAny(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return canonicalID(id)
	case int:
		return strconv.Itoa(id)
	case int32:
		return strconv.FormatInt(int64(id), 10)
	case int64:
		return strconv.FormatInt(id, 10)
	case uint:
		return strconv.FormatUint(uint64(id), 10)
	case uint64:
		return strconv.FormatUint(id, 10)
	case float64:
		if id == math.Trunc(id) && math.Abs(id) < 1<<53 {
			return strconv.FormatInt(int64(id), 10)
		}
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return canonicalID(fmt.Sprint(id))
	}
}

// canonicalID trims whitespace and rewrites integer strings in base 10
// without leading zeros, so "5", " 5" and "05" are the same id.
func canonicalID(s string) string {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}
	return s
}

package postgres

import (
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/Sternrassler/fastlist/pkg/cache"
)

// columns maps the typed filter onto one table's columns. Empty entries mean
// the table does not support that filter.
type columns struct {
	ID       string
	Company  string
	Search   []string
	Sorts    map[string]string
	Vendor   string
	Category string
	Currency string
	Active   string
}

// applyFilter adds the WHERE clause for spec.
func applyFilter(sb sq.SelectBuilder, spec cache.QueryFilterSpec, c columns) sq.SelectBuilder {
	if spec.HasCompany() {
		id, err := strconv.ParseInt(spec.Company, 10, 64)
		if err != nil {
			// company ids are numeric; anything else matches nothing
			return sb.Where(sq.Expr("FALSE"))
		}
		sb = sb.Where(sq.Eq{c.Company: id})
	}

	if spec.Search != "" && len(c.Search) > 0 {
		pattern := "%" + escapeLike(spec.Search) + "%"
		or := sq.Or{}
		for _, col := range c.Search {
			or = append(or, sq.ILike{col: pattern})
		}
		sb = sb.Where(or)
	}

	if spec.VendorID != "" && c.Vendor != "" {
		sb = sb.Where(sq.Eq{c.Vendor: spec.VendorID})
	}
	if spec.Category != "" && c.Category != "" {
		sb = sb.Where(sq.Expr("lower("+c.Category+") = ?", spec.Category))
	}
	if spec.Currency != "" && c.Currency != "" {
		sb = sb.Where(sq.Eq{c.Currency: spec.Currency})
	}
	if spec.Active != nil && c.Active != "" {
		sb = sb.Where(sq.Eq{c.Active: *spec.Active})
	}
	return sb
}

// applyPage adds ORDER BY, OFFSET and LIMIT. The id tie-breaker keeps pages stable.
func applyPage(sb sq.SelectBuilder, spec cache.QueryFilterSpec, c columns) sq.SelectBuilder {
	dir := "ASC"
	if spec.SortDirection == cache.SortDesc {
		dir = "DESC"
	}
	if col, ok := c.Sorts[spec.SortField]; ok {
		sb = sb.OrderBy(col + " " + dir)
	}
	sb = sb.OrderBy(c.ID + " ASC")

	if spec.Skip > 0 {
		sb = sb.Offset(uint64(spec.Skip))
	}
	if spec.Take > 0 {
		sb = sb.Limit(uint64(spec.Take))
	}
	return sb
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

package view

import (
	"fmt"
	"sort"
	"strings"

	"github.com/harrisonrobin/applytrack/pkg/applicant"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const (
	DefaultSort     = applicant.KeyCreated
	DefaultPageSize = 20
	MaxPageSize     = 500
)

type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// ParseOrder accepts "asc" or "desc" in any case. Empty means desc.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(Desc):
		return Desc, nil
	case string(Asc):
		return Asc, nil
	}
	return "", fmt.Errorf("invalid sort order %q (want asc or desc)", s)
}

// Query describes what slice of the record list to show. Filters are
// substring matches; empty filters match everything.
type Query struct {
	Name string
	Form string
	Date string
	Role string

	Sort  string
	Order Order

	Page     int
	PageSize int
}

type Result struct {
	Records  []applicant.Record `json:"records"`
	Total    int                `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
	Pages    int                `json:"pages"`
}

// Apply filters, sorts and paginates a copy of records. The input slice is
// left untouched.
func Apply(records []applicant.Record, q Query) (Result, error) {
	key := q.Sort
	if key == "" {
		key = DefaultSort
	}
	if !applicant.HasKey(key) {
		return Result{}, fmt.Errorf("unknown sort field %q", q.Sort)
	}
	order := q.Order
	if order == "" {
		order = Desc
	}

	filtered := Filter(records, q)
	SortBy(filtered, key, order)
	return Paginate(filtered, q.Page, q.PageSize), nil
}

// Filter returns the records matching every non-empty filter in q.
func Filter(records []applicant.Record, q Query) []applicant.Record {
	name := strings.ToLower(q.Name)
	form := strings.ToLower(q.Form)
	role := strings.ToLower(q.Role)

	out := make([]applicant.Record, 0, len(records))
	for _, r := range records {
		if !strings.Contains(strings.ToLower(r.Name), name) {
			continue
		}
		if !strings.Contains(strings.ToLower(r.FormName), form) {
			continue
		}
		if !strings.Contains(r.Created, q.Date) {
			continue
		}
		if role != "" && (r.Role == nil || !strings.Contains(strings.ToLower(*r.Role), role)) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// SortBy sorts records in place by a column key using Brazilian Portuguese
// collation. Missing values sort as empty strings. The created column sorts
// chronologically.
func SortBy(records []applicant.Record, key string, order Order) {
	col := collate.New(language.BrazilianPortuguese)
	less := func(i, j int) int {
		if key == applicant.KeyCreated {
			a, b := records[i].CreatedAt, records[j].CreatedAt
			switch {
			case a.Before(b):
				return -1
			case a.After(b):
				return 1
			}
			return 0
		}
		return col.CompareString(records[i].Get(key), records[j].Get(key))
	}
	sort.SliceStable(records, func(i, j int) bool {
		c := less(i, j)
		if order == Asc {
			return c < 0
		}
		return c > 0
	})
}

// Paginate cuts one 1-based page out of records. Pages past the end are empty.
func Paginate(records []applicant.Record, page, size int) Result {
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	if page <= 0 {
		page = 1
	}
	total := len(records)
	pages := (total + size - 1) / size

	res := Result{Records: []applicant.Record{}, Total: total, Page: page, PageSize: size, Pages: pages}
	start := (page - 1) * size
	if start >= total {
		return res
	}
	end := start + size
	if end > total {
		end = total
	}
	res.Records = records[start:end]
	return res
}

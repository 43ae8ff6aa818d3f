// Package filters converts dashboard filter state to and from URL query strings.
//
// Decoding never fails: missing or malformed parameters fall back to their
// defaults, so any URL a user can type yields a usable filter set.
package filters

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/postdesk/internal/workflow"
)

const (
	// StatusAll is the sentinel status meaning "no status filter".
	StatusAll = "all"

	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100

	// MaxPage keeps (page-1)*MaxPageSize within int.
	MaxPage = math.MaxInt / MaxPageSize

	// DateLayout is the wire format of date filters.
	DateLayout = "2006-01-02"
)

// Query parameter names.
const (
	KeyStatus   = "status"
	KeySearch   = "search"
	KeyDateFrom = "dateFrom"
	KeyDateTo   = "dateTo"
	KeyCompany  = "company"
	KeyLocation = "location"
	KeyWorkType = "work_type"
	KeyPage     = "page"
	KeyPageSize = "pageSize"
)

// PostFilters is the filter state of the post moderation table.
// A zero Status means all statuses.
type PostFilters struct {
	Status   workflow.PostStatus `json:"status,omitempty"`
	Search   string              `json:"search,omitempty"`
	DateFrom *time.Time          `json:"dateFrom,omitempty"`
	DateTo   *time.Time          `json:"dateTo,omitempty"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"pageSize"`
}

// JobFilters is the filter state of the job outreach table.
// A zero Status means all statuses.
type JobFilters struct {
	Status   workflow.JobStatus `json:"status,omitempty"`
	Company  string             `json:"company,omitempty"`
	Location string             `json:"location,omitempty"`
	WorkType string             `json:"work_type,omitempty"`
	Search   string             `json:"search,omitempty"`
	Page     int                `json:"page"`
	PageSize int                `json:"pageSize"`
}

// Normalize applies defaults and clamps so that equivalent filter sets
// compare equal.
func (f PostFilters) Normalize() PostFilters {
	if _, ok := workflow.ParsePostStatus(string(f.Status)); !ok {
		f.Status = ""
	}
	f.Search = strings.TrimSpace(f.Search)
	f.DateFrom = truncateDate(f.DateFrom)
	f.DateTo = truncateDate(f.DateTo)
	f.Page, f.PageSize = normalizePaging(f.Page, f.PageSize)
	return f
}

// Normalize applies defaults and clamps so that equivalent filter sets
// compare equal.
func (f JobFilters) Normalize() JobFilters {
	if _, ok := workflow.ParseJobStatus(string(f.Status)); !ok {
		f.Status = ""
	}
	f.Company = normalizeOption(f.Company)
	f.Location = normalizeOption(f.Location)
	f.WorkType = normalizeOption(f.WorkType)
	f.Search = strings.TrimSpace(f.Search)
	f.Page, f.PageSize = normalizePaging(f.Page, f.PageSize)
	return f
}

// Offset returns the zero-based index of the first row on the page.
func (f PostFilters) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// Offset returns the zero-based index of the first row on the page.
func (f JobFilters) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// WithChange returns next, moving back to the first page when any filter
// other than the page number differs from f.
func (f PostFilters) WithChange(next PostFilters) PostFilters {
	a, b := f.Normalize(), next.Normalize()
	a.Page, b.Page = 0, 0
	if a.Values().Encode() != b.Values().Encode() {
		next.Page = DefaultPage
	}
	return next.Normalize()
}

// WithChange returns next, moving back to the first page when any filter
// other than the page number differs from f.
func (f JobFilters) WithChange(next JobFilters) JobFilters {
	a, b := f.Normalize(), next.Normalize()
	a.Page, b.Page = 0, 0
	if a.Values().Encode() != b.Values().Encode() {
		next.Page = DefaultPage
	}
	return next.Normalize()
}

func normalizePaging(page, pageSize int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if page > MaxPage {
		page = MaxPage
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// normalizeOption treats the dropdown "all" entry like an empty value.
func normalizeOption(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, StatusAll) {
		return ""
	}
	return v
}

func truncateDate(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &day
}

func parseDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return nil
	}
	return &t
}

func parsePositive(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func setIf(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

package filters

import (
	"net/url"
	"strconv"

	"github.com/jonathan/postdesk/internal/workflow"
)

// Values encodes the filters, omitting every key that holds its default.
func (f PostFilters) Values() url.Values {
	f = f.Normalize()
	v := url.Values{}
	setIf(v, KeyStatus, string(f.Status))
	setIf(v, KeySearch, f.Search)
	if f.DateFrom != nil {
		v.Set(KeyDateFrom, f.DateFrom.Format(DateLayout))
	}
	if f.DateTo != nil {
		v.Set(KeyDateTo, f.DateTo.Format(DateLayout))
	}
	setPaging(v, f.Page, f.PageSize)
	return v
}

// Encode returns the canonical query string (keys sorted, no leading "?").
func (f PostFilters) Encode() string {
	return f.Values().Encode()
}

// PageQuery returns the query string for page p of the same filter set.
func (f PostFilters) PageQuery(p int) string {
	f.Page = p
	return f.Encode()
}

// DecodePostFilters reads post filters from query parameters.
func DecodePostFilters(v url.Values) PostFilters {
	f := PostFilters{
		Search:   v.Get(KeySearch),
		DateFrom: parseDate(v.Get(KeyDateFrom)),
		DateTo:   parseDate(v.Get(KeyDateTo)),
		Page:     parsePositive(v.Get(KeyPage), DefaultPage),
		PageSize: parsePositive(v.Get(KeyPageSize), DefaultPageSize),
	}
	if s, ok := workflow.ParsePostStatus(v.Get(KeyStatus)); ok {
		f.Status = s
	}
	return f.Normalize()
}

// ParsePostFilters decodes a raw query string. A malformed query string
// yields the default filters.
func ParsePostFilters(rawQuery string) PostFilters {
	v, err := url.ParseQuery(rawQuery)
	if err != nil {
		return DecodePostFilters(url.Values{})
	}
	return DecodePostFilters(v)
}

// Values encodes the filters, omitting every key that holds its default.
func (f JobFilters) Values() url.Values {
	f = f.Normalize()
	v := url.Values{}
	setIf(v, KeyStatus, string(f.Status))
	setIf(v, KeyCompany, f.Company)
	setIf(v, KeyLocation, f.Location)
	setIf(v, KeyWorkType, f.WorkType)
	setIf(v, KeySearch, f.Search)
	setPaging(v, f.Page, f.PageSize)
	return v
}

// Encode returns the canonical query string (keys sorted, no leading "?").
func (f JobFilters) Encode() string {
	return f.Values().Encode()
}

// PageQuery returns the query string for page p of the same filter set.
func (f JobFilters) PageQuery(p int) string {
	f.Page = p
	return f.Encode()
}

// DecodeJobFilters reads job filters from query parameters.
func DecodeJobFilters(v url.Values) JobFilters {
	f := JobFilters{
		Company:  v.Get(KeyCompany),
		Location: v.Get(KeyLocation),
		WorkType: v.Get(KeyWorkType),
		Search:   v.Get(KeySearch),
		Page:     parsePositive(v.Get(KeyPage), DefaultPage),
		PageSize: parsePositive(v.Get(KeyPageSize), DefaultPageSize),
	}
	if s, ok := workflow.ParseJobStatus(v.Get(KeyStatus)); ok {
		f.Status = s
	}
	return f.Normalize()
}

func setPaging(v url.Values, page, pageSize int) {
	if page != DefaultPage {
		v.Set(KeyPage, strconv.Itoa(page))
	}
	if pageSize != DefaultPageSize {
		v.Set(KeyPageSize, strconv.Itoa(pageSize))
	}
}

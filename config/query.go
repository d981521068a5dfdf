package config

import (
	"net/url"
	"strconv"
)

// QueryParams are the search query parameters sent with every page request.
// It is a value type; WithPage returns a modified copy.
type QueryParams struct {
	PageIndex     int  `yaml:"page_index"`
	PageSize      int  `yaml:"page_size"`
	EnableSpaItem bool `yaml:"enable_spa_item"`
}

// DefaultQuery returns the query used by the deals endpoint.
func DefaultQuery() QueryParams {
	return QueryParams{
		PageIndex:     1,
		PageSize:      60,
		EnableSpaItem: true,
	}
}

// WithPage returns a copy of q requesting the given page index.
func (q QueryParams) WithPage(index int) QueryParams {
	q.PageIndex = index
	return q
}

// Values encodes q as URL query parameters.
func (q QueryParams) Values() url.Values {
	v := url.Values{}
	v.Set("pageIndex", strconv.Itoa(q.PageIndex))
	v.Set("pageSize", strconv.Itoa(q.PageSize))
	v.Set("enableSpaItem", strconv.FormatBool(q.EnableSpaItem))
	return v
}

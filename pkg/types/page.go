package types

import "math"

// PageQuery is decoded from ?page=&pageSize=&q= on list endpoints.
type PageQuery struct {
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
	Q        string `form:"q"`
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100

	// MaxPage keeps (page-1)*pageSize within an int32 offset.
	MaxPage = math.MaxInt32 / MaxPageSize
)

// Normalize clamps page to [1, MaxPage] and pageSize to [1, 100].
func (q PageQuery) Normalize() PageQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	return q
}

// Offset is the row offset of the normalized page.
func (q PageQuery) Offset() uint64 {
	q = q.Normalize()
	return uint64((q.Page - 1) * q.PageSize)
}

type PageMeta struct {
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// Page is the list envelope returned by every paginated endpoint.
type Page[T any] struct {
	Data     []T `json:"data"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

func NewPage[T any](data []T, total int, q PageQuery) *Page[T] {
	if data == nil {
		data = make([]T, 0)
	}
	return &Page[T]{Data: data, Total: total, Page: q.Page, PageSize: q.PageSize}
}

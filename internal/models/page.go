package models

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	// MaxPageNum keeps Offset well inside int range on every platform.
	MaxPageNum = 1_000_000
)

// Page is the paginated list envelope used by every admin table.
type Page[T any] struct {
	Records []T `json:"records"`
	Total   int `json:"total"`
	Size    int `json:"size"`
	Current int `json:"current"`
	Pages   int `json:"pages"`
}

// NormalizePage clamps a 1-based page number and size to sane bounds.
func NormalizePage(pageNum, pageSize int) (int, int) {
	if pageNum < 1 {
		pageNum = 1
	}
	if pageNum > MaxPageNum {
		pageNum = MaxPageNum
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return pageNum, pageSize
}

// Offset returns the row offset for a normalized page.
func Offset(pageNum, pageSize int) int {
	return (pageNum - 1) * pageSize
}

func NewPage[T any](records []T, total, pageNum, pageSize int) *Page[T] {
	if records == nil {
		records = []T{}
	}
	pages := 0
	if pageSize > 0 {
		pages = (total + pageSize - 1) / pageSize
	}
	return &Page[T]{
		Records: records,
		Total:   total,
		Size:    pageSize,
		Current: pageNum,
		Pages:   pages,
	}
}

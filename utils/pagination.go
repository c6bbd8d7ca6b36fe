package utils

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Page is a parsed page/limit pair. Number is 1-based.
type Page struct {
	Number int64
	Limit  int64
}

func (p Page) Skip() int64 { return (p.Number - 1) * p.Limit }

// ParsePage reads ?page and ?limit, falling back to defaults for missing or
// nonsensical values and capping limit at MaxLimit.
func ParsePage(c *gin.Context) Page {
	page := atoiDefault(c.Query("page"), DefaultPage)
	if page < 1 {
		page = DefaultPage
	}
	limit := atoiDefault(c.Query("limit"), DefaultLimit)
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Page{Number: page, Limit: limit}
}

// PageResult is the list envelope: data, total, totalPages, currentPage and
// nextPage (null on the last page).
type PageResult[T any] struct {
	Data        []T    `json:"data"`
	Total       int64  `json:"total"`
	TotalPages  int64  `json:"totalPages"`
	CurrentPage int64  `json:"currentPage"`
	NextPage    *int64 `json:"nextPage"`
}

func NewPageResult[T any](data []T, total int64, p Page) PageResult[T] {
	if data == nil {
		data = []T{}
	}
	res := PageResult[T]{
		Data:        data,
		Total:       total,
		TotalPages:  (total + p.Limit - 1) / p.Limit,
		CurrentPage: p.Number,
	}
	if p.Number*p.Limit < total {
		next := p.Number + 1
		res.NextPage = &next
	}
	return res
}

func atoiDefault(s string, def int64) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return def
	}
	return n
}

package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	MaxLimit = 100
	MinLimit = 1
)

// ParseLimit extracts and clamps the limit query parameter. List endpoints
// page by limit plus a has-more flag rather than by page number.
func ParseLimit(c *gin.Context, defaultLimit int) int {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))

	if limit < MinLimit {
		limit = defaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return limit
}

// HasMore reports whether another page is likely. A full page means the
// store may hold more rows; an exact boundary yields one empty extra fetch.
func HasMore(count, limit int) bool {
	return limit > 0 && count == limit
}

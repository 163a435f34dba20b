package controllers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/gymkit/middleware"
)

// pageParams reads ?page= and ?page_size= with sane bounds.
func pageParams(ctx *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(ctx.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(ctx.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

// tenantScope returns the authenticated tenant id; the second return is
// false when the request somehow bypassed AuthRequired.
func tenantScope(ctx *gin.Context) (uint, bool) {
	return middleware.TenantID(ctx)
}

// parseDate parses YYYY-MM-DD into a UTC midnight instant.
func parseDate(s string) (time.Time, bool) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// pathID parses a numeric :id path parameter.
func pathID(ctx *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint(v), true
}

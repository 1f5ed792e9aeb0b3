package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/unidate/unidate-admin/internal/apperr"
	relayhttp "github.com/unidate/unidate-admin/internal/http"
	"github.com/unidate/unidate-admin/internal/listing"
	"github.com/unidate/unidate-admin/internal/settings"
)

// respondError writes err with the status of its kind. Server-side failures are logged.
func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	if status >= 500 {
		log.WithError(err).WithField("path", c.FullPath()).Error("admin request failed")
	}
	c.JSON(status, gin.H{"error": apperr.Message(err), "kind": string(kind)})
}

// actorUID returns the uid of the signed-in admin, or "".
func actorUID(c *gin.Context) string {
	if admin, ok := relayhttp.CurrentAdmin(c); ok {
		return admin.UID
	}
	return ""
}

// pageParams reads page and page_size, defaulting the size from the runtime settings.
func pageParams(c *gin.Context) listing.PageParams {
	defaultSize := settings.Int(settings.DashboardPageSizeKey, settings.DefaultDashboardPageSize)
	return listing.ParsePageParams(c.Query("page"), c.Query("page_size"), defaultSize)
}

// pageResponse renders a page in the shape every list screen expects.
func pageResponse[T any](key string, page listing.Page[T]) gin.H {
	return gin.H{
		key:           page.Items,
		"page":        page.Page,
		"page_size":   page.PageSize,
		"total":       page.Total,
		"total_pages": page.TotalPages,
	}
}

// queryBool parses an optional boolean query parameter.
func queryBool(c *gin.Context, name string) *bool {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" || raw == "all" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

// bindOptionalJSON decodes the body when one is present. It writes a 400 and returns false on bad JSON.
func bindOptionalJSON(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if errBind := c.ShouldBindJSON(dst); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return false
	}
	return true
}

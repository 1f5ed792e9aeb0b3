package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/unidate/unidate-admin/internal/services/content"
)

// ContentHandler serves post moderation and the groups directory.
type ContentHandler struct {
	content *content.Service
}

// NewContentHandler constructs a ContentHandler.
func NewContentHandler(svc *content.Service) *ContentHandler {
	return &ContentHandler{content: svc}
}

// ListPosts returns one page of posts matching every supplied filter.
func (h *ContentHandler) ListPosts(c *gin.Context) {
	filter := content.PostFilter{
		Search:        c.Query("q"),
		DateFilter:    c.Query("date"),
		ContentFilter: c.Query("status"),
		University:    c.Query("university"),
	}
	page, errList := h.content.ListPosts(c.Request.Context(), filter, pageParams(c))
	if errList != nil {
		respondError(c, errList)
		return
	}
	c.JSON(http.StatusOK, pageResponse("posts", page))
}

// ListGroups returns one page of groups.
func (h *ContentHandler) ListGroups(c *gin.Context) {
	filter := content.GroupFilter{
		Search:     c.Query("q"),
		University: c.Query("university"),
		Category:   c.Query("category"),
	}
	page, errList := h.content.ListGroups(c.Request.Context(), filter, pageParams(c))
	if errList != nil {
		respondError(c, errList)
		return
	}
	c.JSON(http.StatusOK, pageResponse("groups", page))
}

// ModeratePost approves, removes, flags or restores a post.
func (h *ContentHandler) ModeratePost(c *gin.Context) {
	result, errModerate := h.content.ModeratePost(c.Request.Context(), c.Param("id"), c.Param("action"), actorUID(c))
	if errModerate != nil {
		respondError(c, errModerate)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

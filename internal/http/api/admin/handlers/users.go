package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/unidate/unidate-admin/internal/listing"
	"github.com/unidate/unidate-admin/internal/services/users"
)

// UserHandler serves the end-user management screen.
type UserHandler struct {
	users *users.Service
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(svc *users.Service) *UserHandler {
	return &UserHandler{users: svc}
}

// List returns one page of users matching every supplied filter.
func (h *UserHandler) List(c *gin.Context) {
	filter := users.Filter{
		Search:     c.Query("q"),
		Status:     c.Query("status"),
		University: c.Query("university"),
		Verified:   queryBool(c, "verified"),
		Joined:     listing.ParseDateRange(c.Query("from"), c.Query("to")),
		Sort:       c.Query("sort"),
	}
	page, errList := h.users.List(c.Request.Context(), filter, pageParams(c))
	if errList != nil {
		respondError(c, errList)
		return
	}
	c.JSON(http.StatusOK, pageResponse("users", page))
}

// Get returns one user.
func (h *UserHandler) Get(c *gin.Context) {
	user, errGet := h.users.Get(c.Request.Context(), c.Param("id"))
	if errGet != nil {
		respondError(c, errGet)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Universities returns the distinct universities for the filter dropdown.
func (h *UserHandler) Universities(c *gin.Context) {
	list, errList := h.users.Universities(c.Request.Context())
	if errList != nil {
		respondError(c, errList)
		return
	}
	c.JSON(http.StatusOK, gin.H{"universities": list})
}

type userActionRequest struct {
	Days int `json:"days"`
}

// Action applies ban, suspend, activate, verify or delete to one user. The body is optional.
func (h *UserHandler) Action(c *gin.Context) {
	var body userActionRequest
	if !bindOptionalJSON(c, &body) {
		return
	}
	result, errApply := h.users.Apply(c.Request.Context(), c.Param("id"), users.ActionRequest{
		Action:   c.Param("action"),
		Days:     body.Days,
		ActorUID: actorUID(c),
	})
	if errApply != nil {
		respondError(c, errApply)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

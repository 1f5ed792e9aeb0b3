package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/unidate/unidate-admin/internal/adminauth"
	"github.com/unidate/unidate-admin/internal/apperr"
)

// AdminHandler manages admin account endpoints.
type AdminHandler struct {
	auth *adminauth.Service
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(auth *adminauth.Service) *AdminHandler {
	return &AdminHandler{auth: auth}
}

// createAdminRequest defines the request body for admin creation.
type createAdminRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

// Create creates a credential and admin profile with the role's default permissions.
func (h *AdminHandler) Create(c *gin.Context) {
	var body createAdminRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	role, errRole := adminauth.ParseRole(body.Role)
	if errRole != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		return
	}
	admin, errCreate := h.auth.CreateAdminUser(c.Request.Context(), body.Email, body.Password, body.DisplayName, role)
	if errCreate != nil {
		respondError(c, errCreate)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"admin": admin})
}

// List returns all admins, newest first. An optional q filters by email or name.
func (h *AdminHandler) List(c *gin.Context) {
	admins, errList := h.auth.GetAllAdmins(c.Request.Context())
	if errList != nil {
		respondError(c, errList)
		return
	}
	if q := strings.ToLower(strings.TrimSpace(c.Query("q"))); q != "" {
		filtered := admins[:0]
		for _, a := range admins {
			if strings.Contains(strings.ToLower(a.Email), q) || strings.Contains(strings.ToLower(a.DisplayName), q) {
				filtered = append(filtered, a)
			}
		}
		admins = filtered
	}
	c.JSON(http.StatusOK, gin.H{"admins": admins})
}

// Get returns a single admin by uid.
func (h *AdminHandler) Get(c *gin.Context) {
	admin, errGet := h.auth.GetAdmin(c.Request.Context(), c.Param("uid"))
	if errGet != nil {
		respondError(c, errGet)
		return
	}
	c.JSON(http.StatusOK, gin.H{"admin": admin})
}

// UpdatePermissions merges the supplied flags.
func (h *AdminHandler) UpdatePermissions(c *gin.Context) {
	var body adminauth.PermissionPatch
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	admin, errUpdate := h.auth.UpdateAdminPermissions(c.Request.Context(), c.Param("uid"), body)
	if errUpdate != nil {
		respondError(c, errUpdate)
		return
	}
	c.JSON(http.StatusOK, gin.H{"admin": admin})
}

type adminStatusRequest struct {
	IsActive *bool `json:"isActive"`
}

// SetStatus activates or deactivates an admin. Admins cannot deactivate themselves.
func (h *AdminHandler) SetStatus(c *gin.Context) {
	var body adminStatusRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || body.IsActive == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "isActive is required"})
		return
	}
	uid := strings.TrimSpace(c.Param("uid"))
	if !*body.IsActive && uid == actorUID(c) {
		respondError(c, apperr.New(apperr.KindConflict, "handlers.SetStatus", "cannot deactivate your own account"))
		return
	}
	if errToggle := h.auth.ToggleAdminStatus(c.Request.Context(), uid, *body.IsActive); errToggle != nil {
		respondError(c, errToggle)
		return
	}
	c.JSON(http.StatusOK, gin.H{"uid": uid, "isActive": *body.IsActive})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/unidate/unidate-admin/internal/services/featureflags"
)

// FeatureFlagHandler manages feature flags.
type FeatureFlagHandler struct {
	flags *featureflags.Service
}

// NewFeatureFlagHandler constructs a FeatureFlagHandler.
func NewFeatureFlagHandler(svc *featureflags.Service) *FeatureFlagHandler {
	return &FeatureFlagHandler{flags: svc}
}

// List returns all flags.
func (h *FeatureFlagHandler) List(c *gin.Context) {
	flags, errList := h.flags.List(c.Request.Context())
	if errList != nil {
		respondError(c, errList)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flags": flags})
}

// Get returns one flag.
func (h *FeatureFlagHandler) Get(c *gin.Context) {
	flag, errGet := h.flags.Get(c.Request.Context(), c.Param("key"))
	if errGet != nil {
		respondError(c, errGet)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flag": flag})
}

// Create adds a flag.
func (h *FeatureFlagHandler) Create(c *gin.Context) {
	var body featureflags.Input
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	flag, errCreate := h.flags.Create(c.Request.Context(), body, actorUID(c))
	if errCreate != nil {
		respondError(c, errCreate)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"flag": flag})
}

// Update merges the supplied fields into a flag.
func (h *FeatureFlagHandler) Update(c *gin.Context) {
	var body featureflags.Input
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	flag, errUpdate := h.flags.Update(c.Request.Context(), c.Param("key"), body, actorUID(c))
	if errUpdate != nil {
		respondError(c, errUpdate)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flag": flag})
}

type toggleRequest struct {
	Enabled *bool `json:"enabled"`
}

// Toggle switches a flag on or off.
func (h *FeatureFlagHandler) Toggle(c *gin.Context) {
	var body toggleRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || body.Enabled == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "enabled is required"})
		return
	}
	result, errToggle := h.flags.Toggle(c.Request.Context(), c.Param("key"), *body.Enabled, actorUID(c))
	if errToggle != nil {
		respondError(c, errToggle)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

// Delete removes a flag.
func (h *FeatureFlagHandler) Delete(c *gin.Context) {
	result, errDelete := h.flags.Delete(c.Request.Context(), c.Param("key"), actorUID(c))
	if errDelete != nil {
		respondError(c, errDelete)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

// Evaluate reports whether the flag is on for uid at university.
func (h *FeatureFlagHandler) Evaluate(c *gin.Context) {
	eval, errEval := h.flags.Evaluate(c.Request.Context(), c.Param("key"), c.Query("uid"), c.Query("university"))
	if errEval != nil {
		respondError(c, errEval)
		return
	}
	c.JSON(http.StatusOK, gin.H{"evaluation": eval})
}

package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/unidate/unidate-admin/internal/apperr"
	"github.com/unidate/unidate-admin/internal/models"
	"github.com/unidate/unidate-admin/internal/security"
	"github.com/unidate/unidate-admin/internal/session"
)

// Context keys set by the admin middlewares.
const (
	ContextSessionID = "adminSessionID"
	ContextAdminUID  = "adminUID"
	ContextAdmin     = "admin"
)

// Authorizer resolves a session id to a ready session and its admin profile.
type Authorizer interface {
	Authorize(ctx context.Context, sessionID string) (*session.AdminSession, *models.AdminUser, error)
}

// SessionTokenMiddleware validates the bearer token and stores its session id without
// requiring the session to be fully authenticated.
func SessionTokenMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := parseBearer(c, secret)
		if !ok {
			return
		}
		c.Set(ContextSessionID, claims.SessionID)
		c.Set(ContextAdminUID, claims.UID)
		c.Next()
	}
}

// AdminAuthMiddleware requires an authenticated session and loads the admin into the context.
func AdminAuthMiddleware(secret string, authorizer Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := parseBearer(c, secret)
		if !ok {
			return
		}
		sess, admin, errAuthorize := authorizer.Authorize(c.Request.Context(), claims.SessionID)
		if errAuthorize != nil {
			if apperr.KindOf(errAuthorize) == apperr.KindInternal {
				log.WithError(errAuthorize).Error("admin auth middleware error")
			}
			AbortWithError(c, errAuthorize)
			return
		}
		if admin.UID != claims.UID {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session does not match token"})
			return
		}

		c.Set(ContextSessionID, sess.ID)
		c.Set(ContextAdminUID, admin.UID)
		c.Set(ContextAdmin, admin)
		c.Request = c.Request.WithContext(session.NewContext(c.Request.Context(), sess))
		c.Next()
	}
}

func parseBearer(c *gin.Context, secret string) (*security.AdminClaims, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
		return nil, false
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
		return nil, false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
		return nil, false
	}
	claims, errJWT := security.ParseAdminToken(secret, token)
	if errJWT != nil {
		msg := "invalid token"
		if errors.Is(errJWT, security.ErrExpiredToken) {
			msg = "token expired"
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
		return nil, false
	}
	return claims, true
}

// AbortWithError writes err as a JSON error with the status of its kind.
func AbortWithError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	c.AbortWithStatusJSON(apperr.HTTPStatus(kind), gin.H{"error": apperr.Message(err), "kind": string(kind)})
}

// CurrentAdmin returns the admin loaded by AdminAuthMiddleware.
func CurrentAdmin(c *gin.Context) (*models.AdminUser, bool) {
	value, ok := c.Get(ContextAdmin)
	if !ok {
		return nil, false
	}
	admin, ok := value.(*models.AdminUser)
	return admin, ok && admin != nil
}

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"blood-donation-api/internal/core/auth"
	"blood-donation-api/internal/domain"
	"blood-donation-api/internal/transport/http/ez"
	resp "blood-donation-api/internal/transport/http/response"
)

// RoleLookup resolves the stored role of a verified email. Unknown users
// resolve to the empty role.
type RoleLookup func(ctx context.Context, email string) (domain.Role, error)

// Auth verifies the bearer token and stores the caller's email and role on
// the context. Any failure is a 401 with the same message.
func Auth(v auth.Verifier, roles RoleLookup, l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(tok) == "" {
			resp.Abort(c, http.StatusUnauthorized, "")
			return
		}
		id, err := v.Verify(c.Request.Context(), strings.TrimSpace(tok))
		if err != nil {
			l.Debug("token rejected", zap.String("rid", c.GetString(KeyRequestID)), zap.Error(err))
			resp.Abort(c, http.StatusUnauthorized, "")
			return
		}
		email := strings.ToLower(id.Email)
		var role domain.Role
		if roles != nil {
			if role, err = roles(c.Request.Context(), email); err != nil {
				_ = c.Error(err)
				resp.Abort(c, http.StatusInternalServerError, "")
				return
			}
		}
		c.Set(ez.KeyEmail, email)
		c.Set(ez.KeyUID, id.UID)
		c.Set(ez.KeyRole, string(role))
		c.Next()
	}
}

package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/lshigami/gradebridge/internal/dto"
)

// AdminAuth protects routes with a static bearer token. An empty token
// locks the routes instead of opening them.
func AdminAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || provided == "" {
			c.Header("WWW-Authenticate", `Bearer realm="gradebridge"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "bearer token required"})
			return
		}

		if token == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			log.Warn().Str("path", c.FullPath()).Str("client_ip", c.ClientIP()).Msg("Rejected admin request with invalid token")
			c.Header("WWW-Authenticate", `Bearer realm="gradebridge"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "invalid token"})
			return
		}

		c.Next()
	}
}

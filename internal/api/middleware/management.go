package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"echo-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// RequireManagementToken admits requests whose bearer token equals the
// shared management token. An empty token admits nothing.
func RequireManagementToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token == "" || !ok || subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.NewError(response.ErrCodeUnauthorized))
			return
		}
		c.Next()
	}
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	resp "go-servicereq/internal/transport/http/response"
)

const ctxToken = "token"

// RequireBearer rejects requests without an Authorization header. The token,
// with any "Bearer " prefix removed, is stored for TokenOf.
func RequireBearer() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader("Authorization"))
		if len(token) >= 7 && strings.EqualFold(token[:7], "bearer ") {
			token = strings.TrimSpace(token[7:])
		}
		if token == "" || strings.EqualFold(token, "bearer") {
			resp.Abort(c, resp.Error(http.StatusUnauthorized, resp.TextAuthorizationError))
			return
		}
		c.Set(ctxToken, token)
		c.Next()
	}
}

func TokenOf(c *gin.Context) string { return c.GetString(ctxToken) }

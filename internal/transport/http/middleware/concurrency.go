package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	resp "go-servicereq/internal/transport/http/response"
)

// ConcurrencyLimit caps in-flight requests. A request that cannot get a slot
// before its context ends is answered 503.
func ConcurrencyLimit(max int64) gin.HandlerFunc {
	sem := semaphore.NewWeighted(max)
	return func(c *gin.Context) {
		if err := sem.Acquire(c.Request.Context(), 1); err != nil {
			resp.Abort(c, resp.Error(http.StatusServiceUnavailable, resp.TextServerBusy))
			return
		}
		defer sem.Release(1)
		c.Next()
	}
}

package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"go-servicereq/internal/core/config"
	"go-servicereq/internal/core/server"
	"go-servicereq/internal/transport/http/handler"
	mdw "go-servicereq/internal/transport/http/middleware"
	resp "go-servicereq/internal/transport/http/response"
)

func panicked(c *gin.Context, _ any) {
	resp.Abort(c, resp.Error(http.StatusInternalServerError, resp.TextInternalError))
}

// NewAPIEngine builds the engine: /health and /metrics outside the limits,
// /servicereq behind them and behind RequireBearer.
func NewAPIEngine(cfg config.HTTP, l *zap.Logger, h *handler.ServiceReqHandler) *gin.Engine {
	r := server.NewRouter(l, panicked)
	r.Use(mdw.RequestID(), mdw.Metrics(), mdw.AccessLog(l))

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limited := []gin.HandlerFunc{}
	if cfg.RateLimitRPS > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = int(cfg.RateLimitRPS)
		}
		if cfg.PerIPRateLimit {
			limited = append(limited, mdw.RateLimitPerIP(rate.Limit(cfg.RateLimitRPS), burst))
		} else {
			limited = append(limited, mdw.RateLimit(rate.Limit(cfg.RateLimitRPS), burst))
		}
	}
	if cfg.MaxConcurrent > 0 {
		limited = append(limited, mdw.ConcurrencyLimit(cfg.MaxConcurrent))
	}
	if cfg.MaxBodyBytes > 0 {
		limited = append(limited, mdw.MaxBodyBytes(cfg.MaxBodyBytes))
	}
	if cfg.RequestTimeoutSec > 0 {
		limited = append(limited, mdw.Timeout(time.Duration(cfg.RequestTimeoutSec)*time.Second))
	}
	limited = append(limited, mdw.RequireBearer())

	h.Mount(r.Group("/servicereq", limited...))
	return r
}

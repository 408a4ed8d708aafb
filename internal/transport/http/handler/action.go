package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	mdw "go-servicereq/internal/transport/http/middleware"
	resp "go-servicereq/internal/transport/http/response"
)

// Binder says where an action's input comes from.
type Binder string

const (
	BindJSON Binder = "json" // request body
	BindNone Binder = "none" // path params only, read inside the handler
)

// AErr is a malformed request, rejected before the orchestrator runs.
type AErr struct {
	Code int
	Text string
	Err  error
}

func (e *AErr) Error() string {
	if e.Err != nil {
		return e.Text + ": " + e.Err.Error()
	}
	return e.Text
}

func (e *AErr) Unwrap() error { return e.Err }

func BadRequest(err error) error {
	return &AErr{Code: http.StatusBadRequest, Text: resp.TextBadRequest, Err: err}
}

// Action is one route. I is the bound input, O the orchestrator's result.
type Action[I any, O any] struct {
	Method  string
	Path    string
	Binder  Binder
	Handler func(c *gin.Context, token string, in *I) (O, error)
	// Render builds the success envelope. Nil writes O itself with 200.
	Render func(c *gin.Context, out O) resp.Message
}

// Register mounts a on g. Every error, including binding failures, goes to fail.
func Register[I any, O any](g *gin.RouterGroup, fail func(*gin.Context, error), a Action[I, O]) {
	h := func(c *gin.Context) {
		var in I
		if a.Binder == BindJSON {
			if err := c.ShouldBindJSON(&in); err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					fail(c, &AErr{Code: http.StatusRequestEntityTooLarge, Text: resp.TextBodyTooLarge, Err: err})
					return
				}
				fail(c, BadRequest(err))
				return
			}
		}

		out, err := a.Handler(c, mdw.TokenOf(c), &in)
		if err != nil {
			fail(c, err)
			return
		}
		if a.Render == nil {
			c.JSON(http.StatusOK, out)
			return
		}
		resp.JSON(c, a.Render(c, out))
	}
	g.Handle(strings.ToUpper(a.Method), a.Path, h)
}

const ctxPathID = "pathID"

// pathID parses the named path parameter and keeps it for Render.
func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, BadRequest(err)
	}
	c.Set(ctxPathID, id)
	return id, nil
}

func pathIDOf(c *gin.Context) int64 { return c.GetInt64(ctxPathID) }

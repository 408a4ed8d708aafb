// Package upstream holds the HTTP clients for the Auth, Product and User
// services. Every call forwards the caller's bearer token and reports
// failures as *Error.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const maxBody = 1 << 20

type FailureKind int

const (
	FailStatus      FailureKind = iota // non-2xx answer
	FailUnavailable                    // connection refused, DNS, reset
	FailTimeout
	FailMalformed // 2xx with a body we cannot decode
)

func (k FailureKind) String() string {
	switch k {
	case FailStatus:
		return "status"
	case FailUnavailable:
		return "unavailable"
	case FailTimeout:
		return "timeout"
	case FailMalformed:
		return "malformed"
	}
	return "unknown"
}

// Error is a failed call to another service.
type Error struct {
	Service    string
	Kind       FailureKind
	StatusCode int // set for FailStatus
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Kind == FailStatus {
		return fmt.Sprintf("%s service: %d %s", e.Service, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s service %s: %s", e.Service, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus is the status to answer our own caller with.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case FailStatus:
		if e.StatusCode >= 400 && e.StatusCode <= 599 {
			return e.StatusCode
		}
		return http.StatusBadGateway
	case FailTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// envelope is the {statusCode, statusText, payload} wrapper the services answer with.
type envelope struct {
	StatusCode int             `json:"statusCode"`
	StatusText string          `json:"statusText"`
	Message    string          `json:"message"`
	Payload    json.RawMessage `json:"payload"`
}

func (e envelope) hasPayload() bool {
	return len(e.Payload) > 0 && string(e.Payload) != "null"
}

var (
	callsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Name: "upstream_requests_total", Help: "Calls to other services by outcome"},
		[]string{"service", "outcome"},
	)
	callLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Latency of calls to other services",
			Buckets: prometheus.DefBuckets,
		}, []string{"service"},
	)
)

type client struct {
	service string
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

func newClient(service, baseURL string, timeout time.Duration, l *zap.Logger) client {
	if l == nil {
		l = zap.NewNop()
	}
	return client{
		service: service,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     l.Named(service),
	}
}

// get issues GET baseURL+path with the caller's token and decodes a 2xx body into out.
func (c client) get(ctx context.Context, path, token string, out any) error {
	start := time.Now()
	err := c.do(ctx, path, token, out)
	callLatency.WithLabelValues(c.service).Observe(time.Since(start).Seconds())

	outcome := "ok"
	var ue *Error
	if errors.As(err, &ue) {
		outcome = ue.Kind.String()
		if ue.Kind == FailStatus {
			outcome = strconv.Itoa(ue.StatusCode)
		}
		c.log.Warn("upstream call failed", zap.String("path", path), zap.Error(err))
	}
	callsTotal.WithLabelValues(c.service, outcome).Inc()
	return err
}

func (c client) do(ctx context.Context, path, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &Error{Service: c.service, Kind: FailUnavailable, Message: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.transportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return c.transportError(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Service: c.service, Kind: FailStatus, StatusCode: resp.StatusCode, Message: errorText(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Service: c.service, Kind: FailMalformed, Message: "decode response", Err: err}
	}
	return nil
}

func (c client) transportError(ctx context.Context, err error) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded || (errors.As(err, &ne) && ne.Timeout()) {
		return &Error{Service: c.service, Kind: FailTimeout, Message: "request timed out", Err: err}
	}
	return &Error{Service: c.service, Kind: FailUnavailable, Message: "service unavailable", Err: err}
}

// errorText pulls a human message out of an error body, preferring the
// envelope's statusText.
func errorText(body []byte) string {
	var env struct {
		envelope
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &env) == nil {
		for _, s := range []string{env.StatusText, env.Message, env.Error} {
			if s != "" {
				return s
			}
		}
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 256 {
		s = s[:256]
	}
	return s
}

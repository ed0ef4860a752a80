// Package backend is the REST client for the institution backend that owns
// courses, batches, users and lecture completion.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/noah-isme/lecture-progress-api/internal/models"
	appErrors "github.com/noah-isme/lecture-progress-api/pkg/errors"
	"github.com/noah-isme/lecture-progress-api/pkg/middleware/requestid"
	"github.com/noah-isme/lecture-progress-api/pkg/tracing"
)

const maxErrorBody = 4 << 10

// Observer records backend call outcomes.
type Observer interface {
	ObserveBackendRequest(operation string, status int, duration time.Duration)
}

// Config configures the client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
	Observer   Observer
}

// Client calls the backend on behalf of an authenticated dashboard user. Every
// call carries the caller's bearer token.
type Client struct {
	baseURL  string
	http     *http.Client
	logger   *zap.Logger
	observer Observer
	tracer   trace.Tracer
}

// New builds a backend client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		http:     httpClient,
		logger:   logger,
		observer: cfg.Observer,
		tracer:   tracing.Tracer(),
	}
}

// Ping reports whether the backend answers HTTP at all. Any status below 500
// counts as reachable since the health route may require a token.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe("ping", 0, time.Since(start))
		return appErrors.Wrap(err, appErrors.ErrBackendUnavailable.Code, appErrors.ErrBackendUnavailable.Status, appErrors.ErrBackendUnavailable.Message)
	}
	defer resp.Body.Close()
	c.observe("ping", resp.StatusCode, time.Since(start))
	if resp.StatusCode >= http.StatusInternalServerError {
		return mapStatus(resp.StatusCode, "")
	}
	return nil
}

type envelope struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Pagination *pagination     `json:"pagination"`
	StatusCode int             `json:"statusCode"`
}

type pagination struct {
	CurrentPage     int  `json:"currentPage"`
	TotalPages      int  `json:"totalPages"`
	TotalItems      int  `json:"totalItems"`
	ItemsPerPage    int  `json:"itemsPerPage"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

func (p *pagination) toModel() *models.Pagination {
	if p == nil {
		return nil
	}
	return &models.Pagination{
		Page:       p.CurrentPage,
		PageSize:   p.ItemsPerPage,
		TotalCount: p.TotalItems,
		TotalPages: p.TotalPages,
	}
}

type call struct {
	operation string
	method    string
	path      string
	query     url.Values
	token     string
	body      interface{}
}

// do executes c, decodes the envelope data into out and returns the backend
// pagination when present.
func (c *Client) do(ctx context.Context, req call, out interface{}) (*models.Pagination, error) {
	ctx, span := c.tracer.Start(ctx, "backend."+req.operation, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", req.method),
		attribute.String("http.route", req.path),
	)

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build backend request")
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		c.observe(req.operation, 0, duration)
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		c.logger.Warn("backend request failed", zap.String("operation", req.operation), zap.Duration("duration", duration), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrBackendUnavailable.Code, appErrors.ErrBackendUnavailable.Status, appErrors.ErrBackendUnavailable.Message)
	}
	defer resp.Body.Close()

	c.observe(req.operation, resp.StatusCode, duration)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode >= http.StatusBadRequest {
		message := readErrorMessage(resp.Body)
		mapped := mapStatus(resp.StatusCode, message)
		span.SetStatus(codes.Error, mapped.Code)
		c.logger.Debug("backend rejected request",
			zap.String("operation", req.operation),
			zap.Int("status", resp.StatusCode),
			zap.String("message", message),
		)
		return nil, mapped
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if errors.Is(err, io.EOF) && out == nil {
			return nil, nil
		}
		span.RecordError(err)
		return nil, appErrors.Wrap(err, appErrors.ErrBackendRejected.Code, appErrors.ErrBackendRejected.Status, "backend returned an unreadable response")
	}
	if !env.Success {
		message := env.Message
		if message == "" {
			message = appErrors.ErrBackendRejected.Message
		}
		span.SetStatus(codes.Error, appErrors.ErrBackendRejected.Code)
		return nil, appErrors.Clone(appErrors.ErrBackendRejected, message)
	}

	if out != nil && len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		if err := json.Unmarshal(env.Data, out); err != nil {
			span.RecordError(err)
			return nil, appErrors.Wrap(err, appErrors.ErrBackendRejected.Code, appErrors.ErrBackendRejected.Status, "backend returned unexpected data")
		}
	}
	return env.Pagination.toModel(), nil
}

func (c *Client) newRequest(ctx context.Context, req call) (*http.Request, error) {
	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", req.operation, err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}
	if id := requestid.FromContext(ctx); id != "" {
		httpReq.Header.Set(requestid.Header(), id)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))
	return httpReq, nil
}

func (c *Client) observe(operation string, status int, duration time.Duration) {
	if c.observer != nil {
		c.observer.ObserveBackendRequest(operation, status, duration)
	}
}

// mapStatus turns a backend HTTP failure into the service error taxonomy.
// 401 and 403 both mean the session can no longer be used.
func mapStatus(status int, message string) *appErrors.Error {
	var base *appErrors.Error
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		base = appErrors.ErrAuthExpired
		message = ""
	case status == http.StatusNotFound:
		base = appErrors.ErrNotFound
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		base = appErrors.ErrValidation
	case status == http.StatusConflict:
		base = appErrors.ErrConflict
	case status == http.StatusTooManyRequests:
		base = appErrors.ErrTooManyRequests
	case status >= http.StatusInternalServerError:
		base = appErrors.ErrBackendUnavailable
		message = ""
	default:
		base = appErrors.ErrBackendRejected
	}
	err := appErrors.Clone(base, message)
	err.Err = fmt.Errorf("backend status %d", status)
	return err
}

func readErrorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil {
		return env.Message
	}
	return ""
}

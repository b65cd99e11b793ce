// Package api implements the HTTPS/JSON client for the remote sync store.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/klauern/locsync/internal/logging"
	"github.com/klauern/locsync/internal/model"
)

// Sentinel errors mapped from remote responses.
var (
	// ErrUnauthorized means the API key was rejected. Keys are refreshed
	// out-of-band; the engine only surfaces the failure.
	ErrUnauthorized = errors.New("remote rejected the API key")

	// ErrRemote wraps any other non-success remote response.
	ErrRemote = errors.New("remote request failed")
)

// PullResponse is the remote's full view of the project.
type PullResponse struct {
	Entries []model.RemoteEntry `json:"entries"`
	Config  map[string]string   `json:"config"`
	Total   int                 `json:"total"`
}

// PushRequest uploads local changes.
type PushRequest struct {
	Entries []model.Entry     `json:"entries"`
	Deleted []DeletedRef      `json:"deleted,omitempty"`
	Config  map[string]string `json:"config,omitempty"`

	// ConfigDeleted lists config property paths removed locally, mirroring
	// Deleted for entries.
	ConfigDeleted []string `json:"config_deleted,omitempty"`
}

// DeletedRef identifies an entry removed locally.
type DeletedRef struct {
	Key  string `json:"key"`
	Lang string `json:"lang"`
}

// PushAck is the remote's acknowledgement of a push.
type PushAck struct {
	Accepted  int       `json:"accepted"`
	Deleted   int       `json:"deleted"`
	Timestamp time.Time `json:"timestamp"`
}

// Client is the engine's view of the remote sync store.
type Client interface {
	// Pull fetches every remote entry and config property.
	Pull(ctx context.Context) (*PullResponse, error)

	// Push uploads entries, deletions, and config properties.
	Push(ctx context.Context, req PushRequest) (*PushAck, error)
}

// Config configures the HTTP client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// HTTPClient talks to the remote store over HTTPS/JSON with bearer auth.
type HTTPClient struct {
	client *resty.Client
}

// NewHTTPClient creates a client for the given remote.
func NewHTTPClient(cfg Config) *HTTPClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.APIKey).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return false
			}
			return r.StatusCode() >= http.StatusInternalServerError ||
				r.StatusCode() == http.StatusTooManyRequests
		})

	return &HTTPClient{client: cli}
}

// Pull implements Client.
func (h *HTTPClient) Pull(ctx context.Context) (*PullResponse, error) {
	defer logging.Timer("api.pull")()

	var out PullResponse
	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("X-Request-Id", uuid.NewString()).
		SetResult(&out).
		Get("/api/v1/sync/pull")
	if err != nil {
		return nil, fmt.Errorf("pull request: %w", err)
	}
	if err := mapError(resp); err != nil {
		return nil, err
	}

	logging.Debug("pulled remote entries",
		logging.Operation("api.pull"),
		logging.Count(len(out.Entries)),
	)
	return &out, nil
}

// Push implements Client.
func (h *HTTPClient) Push(ctx context.Context, req PushRequest) (*PushAck, error) {
	defer logging.Timer("api.push")()

	var ack PushAck
	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Request-Id", uuid.NewString()).
		SetBody(req).
		SetResult(&ack).
		Post("/api/v1/sync/push")
	if err != nil {
		return nil, fmt.Errorf("push request: %w", err)
	}
	if err := mapError(resp); err != nil {
		return nil, err
	}
	return &ack, nil
}

// mapError converts non-success responses into typed errors.
func mapError(resp *resty.Response) error {
	switch {
	case resp.IsSuccess():
		return nil
	case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden:
		return ErrUnauthorized
	default:
		body := strings.TrimSpace(resp.String())
		if len(body) > 200 {
			body = body[:200]
		}
		return fmt.Errorf("%w: %s: %s", ErrRemote, resp.Status(), body)
	}
}

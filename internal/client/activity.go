package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/atc-endorsement-api/pkg/config"
	appErrors "github.com/noah-isme/atc-endorsement-api/pkg/errors"
)

// ActivityClient talks to the external activity source over HTTP. The
// client timeout bounds every fetch so a slow upstream cannot stall the
// sync scheduler.
type ActivityClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewActivityClient constructs an ActivityClient.
func NewActivityClient(cfg config.ActivityAPIConfig, logger *zap.Logger) *ActivityClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ActivityClient{
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type activityResponse struct {
	Minutes int `json:"minutes"`
}

// FetchActivityMinutes returns the controller's qualifying minutes on the
// position within the window. Transport errors and non-2xx responses are
// EXTERNAL_FETCH_FAILED: transient, retried on a later tick.
func (c *ActivityClient) FetchActivityMinutes(ctx context.Context, controllerID, position string, windowStart, windowEnd time.Time) (int, error) {
	endpoint := fmt.Sprintf("%s/controllers/%s/activity", c.baseURL, url.PathEscape(controllerID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrExternalFetch.Code, appErrors.ErrExternalFetch.Status, "build activity request")
	}

	q := req.URL.Query()
	q.Set("position", position)
	q.Set("from", windowStart.UTC().Format(time.RFC3339))
	q.Set("to", windowEnd.UTC().Format(time.RFC3339))
	req.URL.RawQuery = q.Encode()

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrExternalFetch.Code, appErrors.ErrExternalFetch.Status, "activity source unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, appErrors.Clone(appErrors.ErrExternalFetch, fmt.Sprintf("activity source returned %d", resp.StatusCode))
	}

	var payload activityResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrExternalFetch.Code, appErrors.ErrExternalFetch.Status, "decode activity response")
	}
	if payload.Minutes < 0 {
		return 0, appErrors.Clone(appErrors.ErrExternalFetch, "activity source returned negative minutes")
	}
	return payload.Minutes, nil
}

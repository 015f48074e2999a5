// Package crm provides an HTTP client for the profile sink's track API.
// Profiles are upserted by opaque identifier with a free-form trait bag;
// the sink deduplicates server-side, so duplicate pushes for the same
// identity are harmless.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

const userAgent = "sheetsync/0.1"

// ErrRejected indicates the sink refused the profile payload (4xx).
var ErrRejected = errors.New("crm: profile rejected")

// Profile is one create-or-update push. ID keys the profile on the sink
// side; Phone is sent as a first-class attribute alongside the traits.
type Profile struct {
	ID     string
	Phone  string
	Traits map[string]any
}

// APIError carries the HTTP status and response body of a failed push.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("crm: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Client is an HTTP client for the profile sink. Authentication is a static
// basic credential (site ID + API key). It does not retry; callers wrap
// pushes in the retry executor.
type Client struct {
	baseURL    string
	siteID     string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a profile sink client.
// baseURL is typically "https://track.customer.io/api/v1".
func NewClient(baseURL, siteID, apiKey string, httpClient *http.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:    baseURL,
		siteID:     siteID,
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Upsert creates or updates the profile identified by p.ID. The full trait
// set is sent on every call; the sink merges attributes idempotently.
func (c *Client) Upsert(ctx context.Context, p Profile) error {
	payload := make(map[string]any, len(p.Traits)+1)
	for k, v := range p.Traits {
		payload[k] = v
	}

	payload["phone"] = p.Phone

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("crm: encoding profile %s: %w", p.ID, err)
	}

	url := c.baseURL + "/customers/" + p.ID

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("crm: creating request: %w", err)
	}

	req.SetBasicAuth(c.siteID, c.apiKey)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("crm: upsert %s: %w", p.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		c.logger.Debug("profile upserted",
			slog.String("id", p.ID),
			slog.Int("status", resp.StatusCode),
		)

		return nil
	}

	errBody, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		errBody = []byte("(failed to read response body)")
	}

	apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(errBody)}
	if resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError {
		apiErr.Err = ErrRejected
	}

	return apiErr
}

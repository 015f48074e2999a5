package sheets

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"
)

const userAgent = "sheetsync/0.1"

// Client is an HTTP client for the Sheets values API, scoped to a single
// spreadsheet. It handles request construction, authentication, and error
// classification. It does not retry; the sink adapter wraps calls in the
// retry executor.
type Client struct {
	baseURL       string
	spreadsheetID string
	httpClient    *http.Client
	token         oauth2.TokenSource
	logger        *slog.Logger
}

// NewClient creates a Sheets API client for one spreadsheet.
// baseURL is typically "https://sheets.googleapis.com/v4".
func NewClient(baseURL, spreadsheetID string, httpClient *http.Client, token oauth2.TokenSource, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:       baseURL,
		spreadsheetID: spreadsheetID,
		httpClient:    httpClient,
		token:         token,
		logger:        logger,
	}
}

// StaticTokenSource wraps a fixed bearer token for use with NewClient.
func StaticTokenSource(accessToken string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
}

// do executes a single HTTP request against the values API. The path is
// appended to "{baseURL}/spreadsheets/{spreadsheetID}". Non-2xx responses
// are drained, closed, and returned as a classified *APIError.
// On success the caller owns the response body.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	url := fmt.Sprintf("%s/spreadsheets/%s%s", c.baseURL, c.spreadsheetID, path)

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("sheets: creating request: %w", err)
	}

	tok, err := c.token.Token()
	if err != nil {
		return nil, fmt.Errorf("sheets: obtaining token: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	req.Header.Set("User-Agent", userAgent)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sheets: %s %s: %w", method, path, err)
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		c.logger.Debug("request succeeded",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)

		return resp, nil
	}

	errBody, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()

	if readErr != nil {
		errBody = []byte("(failed to read response body)")
	}

	return nil, &APIError{
		StatusCode: resp.StatusCode,
		Message:    string(errBody),
		Err:        classifyStatus(resp.StatusCode),
	}
}

package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// valueRange mirrors the values API request/response JSON structure.
type valueRange struct {
	Range  string  `json:"range,omitempty"`
	Values [][]any `json:"values,omitempty"`
}

// appendResponse mirrors the append endpoint's response. Only the assigned
// range is of interest; it is how the caller learns the concrete row number.
type appendResponse struct {
	Updates struct {
		UpdatedRange string `json:"updatedRange"`
	} `json:"updates"`
}

// GetRange reads a cell range and returns its values as display strings.
// Rows may be ragged (trailing empty cells are omitted by the API).
func (c *Client) GetRange(ctx context.Context, sheetName, cells string) ([][]string, error) {
	ref := url.PathEscape(qualifyRange(sheetName, cells))

	resp, err := c.do(ctx, http.MethodGet, "/values/"+ref, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var vr valueRange
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, fmt.Errorf("sheets: decoding range response: %w", err)
	}

	rows := make([][]string, 0, len(vr.Values))

	for _, raw := range vr.Values {
		row := make([]string, 0, len(raw))
		for _, cell := range raw {
			row = append(row, cellString(cell))
		}

		rows = append(rows, row)
	}

	return rows, nil
}

// UpdateRange overwrites a cell range with the given values, raw input mode
// (no formula or type coercion on the sink side).
func (c *Client) UpdateRange(ctx context.Context, sheetName, cells string, values [][]string) error {
	ref := url.PathEscape(qualifyRange(sheetName, cells))
	path := "/values/" + ref + "?valueInputOption=RAW"

	body, err := encodeValues(values)
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, http.MethodPut, path, body)
	if err != nil {
		return err
	}

	return resp.Body.Close()
}

// Append appends rows after the last data row of the table starting at the
// given range and returns the concretely assigned range reference.
func (c *Client) Append(ctx context.Context, sheetName, cells string, values [][]string) (string, error) {
	ref := url.PathEscape(qualifyRange(sheetName, cells))
	path := "/values/" + ref + ":append?valueInputOption=RAW&insertDataOption=INSERT_ROWS"

	body, err := encodeValues(values)
	if err != nil {
		return "", err
	}

	resp, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var ar appendResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return "", fmt.Errorf("sheets: decoding append response: %w", err)
	}

	return ar.Updates.UpdatedRange, nil
}

// ClearRange blanks all cells in the given range. The rows themselves stay
// in place; only their contents are removed.
func (c *Client) ClearRange(ctx context.Context, sheetName, cells string) error {
	ref := url.PathEscape(qualifyRange(sheetName, cells))

	resp, err := c.do(ctx, http.MethodPost, "/values/"+ref+":clear", bytes.NewReader([]byte("{}")))
	if err != nil {
		return err
	}

	return resp.Body.Close()
}

func encodeValues(values [][]string) (*bytes.Reader, error) {
	raw := make([][]any, len(values))
	for i, row := range values {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v
		}

		raw[i] = cells
	}

	b, err := json.Marshal(valueRange{Values: raw})
	if err != nil {
		return nil, fmt.Errorf("sheets: encoding values: %w", err)
	}

	return bytes.NewReader(b), nil
}

// cellString renders an API cell value as a display string. The API returns
// strings for raw-mode writes, but externally edited cells can decode as
// numbers or booleans.
func cellString(v any) string {
	switch c := v.(type) {
	case string:
		return c
	case nil:
		return ""
	default:
		return fmt.Sprint(c)
	}
}

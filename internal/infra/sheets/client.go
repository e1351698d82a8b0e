package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

var ErrSheetNotFound = errors.New("products sheet not found")

// Client reads a range from a spreadsheet values endpoint, e.g.
// https://sheets.googleapis.com/v4/spreadsheets/<id>/values/Products?valueRenderOption=UNFORMATTED_VALUE
type Client struct {
	valuesURL  string
	apiKey     string
	httpClient *http.Client
}

type valuesResponse struct {
	Range  string  `json:"range"`
	Values [][]any `json:"values"`
}

func NewClient(valuesURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		valuesURL:  valuesURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchRows returns the sheet as rows of cells; the first row is the header.
func (c *Client) FetchRows(ctx context.Context) ([][]any, error) {
	u, err := url.Parse(c.valuesURL)
	if err != nil {
		return nil, fmt.Errorf("sheets: bad url: %w", err)
	}
	if c.apiKey != "" {
		q := u.Query()
		q.Set("key", c.apiKey)
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sheets: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrSheetNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sheets: returned status %d", resp.StatusCode)
	}

	var out valuesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("sheets: decode: %w", err)
	}
	return out.Values, nil
}

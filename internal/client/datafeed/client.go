package datafeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

type Client struct {
	host       string
	httpClient *http.Client
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Body)
}

func NewClient(httpClient *http.Client, host string) *Client {
	if host == "" {
		host = "https://data-api.polymarket.com"
	}
	host = strings.TrimRight(host, "/")
	return &Client{
		host:       host,
		httpClient: httpClient,
	}
}

func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.host + path
	if len(query) > 0 {
		fullURL = fullURL + "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

type TradeParams struct {
	Cursor string
	Limit  int
}

// GetTrades returns one page of trades at or after the cursor, oldest first.
func (c *Client) GetTrades(ctx context.Context, params TradeParams) (*TradesPage, error) {
	query := url.Values{}
	if params.Cursor != "" {
		query.Set("cursor", params.Cursor)
	}
	if params.Limit > 0 {
		query.Set("limit", strconv.Itoa(params.Limit))
	}
	body, err := c.doRequest(ctx, "/trades", query)
	if err != nil {
		return nil, err
	}
	var page TradesPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("failed to parse trades page: %w", err)
	}
	return &page, nil
}

type MarketParams struct {
	Offset int
	Limit  int
}

func (c *Client) GetMarkets(ctx context.Context, params MarketParams) ([]RawMarket, error) {
	query := url.Values{}
	if params.Offset > 0 {
		query.Set("offset", strconv.Itoa(params.Offset))
	}
	if params.Limit > 0 {
		query.Set("limit", strconv.Itoa(params.Limit))
	}
	body, err := c.doRequest(ctx, "/markets", query)
	if err != nil {
		return nil, err
	}
	var items []RawMarket
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("failed to parse markets: %w", err)
	}
	return items, nil
}

// GetResolutions returns markets resolved since the given cursor.
func (c *Client) GetResolutions(ctx context.Context, cursor string, limit int) ([]RawResolution, error) {
	query := url.Values{}
	if cursor != "" {
		query.Set("cursor", cursor)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	body, err := c.doRequest(ctx, "/resolutions", query)
	if err != nil {
		return nil, err
	}
	var items []RawResolution
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("failed to parse resolutions: %w", err)
	}
	return items, nil
}

// Package pexels is a small client for the Pexels photo search API.
package pexels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dalemusser/stratasite/internal/app/system/timeouts"
)

// DefaultBaseURL is the Pexels v1 API root.
const DefaultBaseURL = "https://api.pexels.com/v1"

// MaxPerPage is the API's page size limit.
const MaxPerPage = 80

// ErrDisabled is returned when no API key is configured.
var ErrDisabled = errors.New("pexels: not configured")

// Photo is one search result.
type Photo struct {
	ID           int64  `json:"id"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	URL          string `json:"url"`
	Photographer string `json:"photographer"`
	Alt          string `json:"alt"`
	Src          Src    `json:"src"`
}

// Src holds sized image URLs.
type Src struct {
	Original string `json:"original"`
	Large    string `json:"large"`
	Medium   string `json:"medium"`
	Small    string `json:"small"`
}

// SearchResult is a page of photos.
type SearchResult struct {
	Page         int     `json:"page"`
	PerPage      int     `json:"per_page"`
	TotalResults int     `json:"total_results"`
	Photos       []Photo `json:"photos"`
}

// Client calls the Pexels API.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// New creates a client. An empty apiKey yields a disabled client.
func New(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: timeouts.Outbound()},
	}
}

// WithBaseURL points the client at another host (tests, proxies).
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool { return c != nil && c.apiKey != "" }

// Search finds photos matching query.
func (c *Client) Search(ctx context.Context, query string, page, perPage int) (*SearchResult, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 15
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	q := url.Values{}
	q.Set("query", query)
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pexels: search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("pexels: search: status %d: %s", resp.StatusCode, body)
	}

	var out SearchResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("pexels: decode: %w", err)
	}
	if out.Photos == nil {
		out.Photos = []Photo{}
	}
	return &out, nil
}

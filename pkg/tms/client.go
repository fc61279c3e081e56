package tms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ilagnev/barnes-tms-extract/pkg/config"
	"github.com/ilagnev/barnes-tms-extract/pkg/logger"
)

// Client iterates a remote TMS collection one object at a time. The listing
// endpoint is paged by object ID; full objects are fetched individually so a
// single bad object never poisons the page it arrived on.
//
// Endpoints:
//
//	GET {base}/collection/count               -> {"total": N}
//	GET {base}/collection/ids?page=&pageSize= -> {"ids": [...]}
//	GET {base}/collection/objects/{id}        -> {"id": ..., "fields": {...}}
type Client struct {
	baseURL    string
	apiKey     string
	username   string
	password   string
	pageSize   int
	httpClient *http.Client
	log        *logger.Logger

	// cursor state, mutated only by HasMore/Next from the export loop
	page      int
	buffer    []int64
	exhausted bool
}

// NewClient creates a collection client from API configuration
func NewClient(api config.APIConfig, fetch config.FetchConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(api.URL, "/"),
		apiKey:     api.Key,
		username:   api.Username,
		password:   api.Password,
		pageSize:   fetch.PageSize,
		httpClient: &http.Client{Timeout: fetch.Timeout},
		log:        log,
	}
}

// Count returns the total number of objects in the collection
func (c *Client) Count(ctx context.Context) (int, error) {
	var payload struct {
		Total int `json:"total"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/collection/count", &payload); err != nil {
		return 0, &CollectionError{Op: "count", Err: err}
	}
	if payload.Total < 0 {
		return 0, &CollectionError{Op: "count", Err: fmt.Errorf("negative total %d", payload.Total)}
	}
	return payload.Total, nil
}

// HasMore reports whether another object remains, advancing the ID page
// cursor when the current page is drained
func (c *Client) HasMore(ctx context.Context) (bool, error) {
	if len(c.buffer) > 0 {
		return true, nil
	}
	if c.exhausted {
		return false, nil
	}

	ids, err := c.fetchIDPage(ctx, c.page)
	if err != nil {
		return false, &CollectionError{Op: "ids", Err: err}
	}
	c.page++
	if len(ids) < c.pageSize {
		c.exhausted = true
	}
	c.buffer = ids
	return len(c.buffer) > 0, nil
}

// Next fetches the object under the cursor. The cursor advances even when
// the fetch fails, so the caller can skip the object and keep going. A nil
// object with nil error signals end of collection.
func (c *Client) Next(ctx context.Context) (*Object, error) {
	if len(c.buffer) == 0 {
		// Defensive: Next without a successful HasMore
		more, err := c.HasMore(ctx)
		if err != nil {
			return nil, &ItemError{Err: err}
		}
		if !more {
			return nil, nil
		}
	}

	id := c.buffer[0]
	c.buffer = c.buffer[1:]

	obj, err := c.fetchObject(ctx, id)
	if err != nil {
		return nil, &ItemError{ObjectID: id, Err: err}
	}
	return obj, nil
}

func (c *Client) fetchIDPage(ctx context.Context, page int) ([]int64, error) {
	u := fmt.Sprintf("%s/collection/ids?page=%d&pageSize=%d", c.baseURL, page, c.pageSize)
	var payload struct {
		IDs []int64 `json:"ids"`
	}
	if err := c.getJSON(ctx, u, &payload); err != nil {
		return nil, err
	}
	return payload.IDs, nil
}

func (c *Client) fetchObject(ctx context.Context, id int64) (*Object, error) {
	u := fmt.Sprintf("%s/collection/objects/%d", c.baseURL, id)
	var payload struct {
		ID     int64                  `json:"id"`
		Fields map[string]interface{} `json:"fields"`
	}
	if err := c.getJSON(ctx, u, &payload); err != nil {
		return nil, err
	}
	if payload.ID == 0 {
		payload.ID = id
	}
	return NewObject(payload.ID, payload.Fields), nil
}

// getJSON performs an authenticated GET and decodes the JSON response
func (c *Client) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	if _, err := url.Parse(rawURL); err != nil {
		return fmt.Errorf("invalid url %q: %w", rawURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	c.log.Debug("tms request", logger.Fields{
		"url":         rawURL,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return nil
}

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/meghashyamc/paperdex/logger"
	"github.com/meghashyamc/paperdex/services/browse"
	"github.com/meghashyamc/paperdex/services/catalog"
	"github.com/meghashyamc/paperdex/services/lookup"
	"github.com/meghashyamc/paperdex/services/search"
)

var (
	ErrUpstreamUnavailable = errors.New("search service unavailable")
	ErrInvalidRequest      = errors.New("request rejected by search service")
	ErrNotFound            = errors.New("not found")
)

// APIError is a non-2xx answer from the API, carrying its error messages.
type APIError struct {
	StatusCode int
	Messages   []string
}

func (e *APIError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("api responded with status %d", e.StatusCode)
	}
	return fmt.Sprintf("api responded with status %d: %s", e.StatusCode, strings.Join(e.Messages, "; "))
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUpstreamUnavailable:
		return e.StatusCode >= http.StatusInternalServerError
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrInvalidRequest:
		return e.StatusCode >= http.StatusBadRequest && e.StatusCode < http.StatusInternalServerError && e.StatusCode != http.StatusNotFound
	}
	return false
}

// SearchRequest is the wire form of a search.
type SearchRequest struct {
	Query     string              `json:"query,omitempty"`
	Filters   map[string][]string `json:"filters,omitempty"`
	Page      int                 `json:"page,omitempty"`
	PageSize  int                 `json:"page_size,omitempty"`
	SortBy    string              `json:"sort_by,omitempty"`
	SortOrder string              `json:"sort_order,omitempty"`
	Seed      string              `json:"seed,omitempty"`
}

func NewSearchRequest(state browse.State) SearchRequest {
	request := state.Request()
	return SearchRequest{
		Query:     request.Query,
		Filters:   request.Filters,
		Page:      request.Page,
		PageSize:  request.PageSize,
		SortBy:    request.SortBy,
		SortOrder: request.SortOrder,
		Seed:      request.Seed,
	}
}

type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []string        `json:"errors"`
}

type Client struct {
	logger     logger.Logger
	baseURL    string
	httpClient *http.Client
}

func New(logger logger.Logger, baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{logger: logger, baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

func (c *Client) Search(ctx context.Context, request SearchRequest) (*search.Response, error) {
	var response search.Response
	if err := c.do(ctx, http.MethodPost, "/search", request, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func (c *Client) Schema(ctx context.Context) (*catalog.Schema, error) {
	var schema catalog.Schema
	if err := c.do(ctx, http.MethodGet, "/schema", nil, &schema); err != nil {
		return nil, err
	}
	return &schema, nil
}

func (c *Client) Paper(ctx context.Context, id int64) (catalog.Record, error) {
	var response struct {
		Paper catalog.Record `json:"paper"`
	}
	if err := c.do(ctx, http.MethodGet, "/papers/"+strconv.FormatInt(id, 10), nil, &response); err != nil {
		return nil, err
	}
	return response.Paper, nil
}

func (c *Client) Lookup(ctx context.Context, title string, author string) (*lookup.Link, error) {
	params := url.Values{}
	params.Set("title", title)
	if author != "" {
		params.Set("author", author)
	}

	var link lookup.Link
	if err := c.do(ctx, http.MethodGet, "/lookup?"+params.Encode(), nil, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

func (c *Client) do(ctx context.Context, method string, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("could not encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.logger.Warn("api request failed", "method", method, "path", path, "err", err.Error())
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	var payload envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&payload)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("api returned an error", "method", method, "path", path, "status", resp.StatusCode, "errors", payload.Errors)
		return &APIError{StatusCode: resp.StatusCode, Messages: payload.Errors}
	}
	if decodeErr != nil {
		return fmt.Errorf("%w: could not decode response: %v", ErrUpstreamUnavailable, decodeErr)
	}

	if err := json.Unmarshal(payload.Data, out); err != nil {
		return fmt.Errorf("%w: could not decode response data: %v", ErrUpstreamUnavailable, err)
	}
	return nil
}

// Package api is the terminal client's view of the movie proxy.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/marco/movieExplorer/internal/catalog"
)

const (
	MsgUnexpected     = "An unexpected error occurred"
	MsgDetailsFailed  = "Failed to fetch movie details"
	searchFailedFmt   = "Search failed with status %d"
	maxErrorBodyBytes = 64 << 10
)

// Error is a failed proxy call. Message is what the user sees.
type Error struct {
	Status  int // 0 when no response was received
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Client calls the proxy's /movies endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the proxy rooted at baseURL (e.g. http://host/api).
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SearchMovies fetches one page of results for query.
func (c *Client) SearchMovies(ctx context.Context, query string, page int) (*catalog.SearchPage, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("page", strconv.Itoa(page))

	var result catalog.SearchPage
	err := c.get(ctx, "/movies/search?"+params.Encode(), &result, func(status int) string {
		return fmt.Sprintf(searchFailedFmt, status)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetMovieDetails fetches the full record for id.
func (c *Client) GetMovieDetails(ctx context.Context, id int) (*catalog.MovieDetails, error) {
	var details catalog.MovieDetails
	err := c.get(ctx, fmt.Sprintf("/movies/%d", id), &details, func(int) string {
		return MsgDetailsFailed
	})
	if err != nil {
		return nil, err
	}
	return &details, nil
}

// get performs a GET and decodes a 2xx body into out. For other statuses the
// message comes from the {"error"} body, or from fallback when there is none.
func (c *Client) get(ctx context.Context, path string, out any, fallback func(status int) string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &Error{Message: MsgUnexpected, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Message: MsgUnexpected, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := fallback(resp.StatusCode)
		var body struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		if json.Unmarshal(data, &body) == nil && body.Error != "" {
			msg = body.Error
		}
		return &Error{Status: resp.StatusCode, Message: msg}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Status: resp.StatusCode, Message: MsgUnexpected, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

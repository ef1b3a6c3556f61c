package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/marco/movieExplorer/internal/credential"
	"github.com/marco/movieExplorer/internal/logctx"
)

const (
	// DefaultBaseURL is the TMDB v3 API root.
	DefaultBaseURL = "https://api.themoviedb.org/3"

	// Advisory cache lifetimes for proxied responses.
	DetailsMaxAge = time.Hour
	SearchMaxAge  = 5 * time.Minute

	opDetails = "details"
	opSearch  = "search"

	maxBodyBytes = 4 << 20
)

// RequestLogFunc is a callback invoked once per catalog operation with its
// outcome (KindUnknown on success), the upstream status (0 when none) and duration.
type RequestLogFunc func(op string, kind Kind, status int, d time.Duration)

// Client represents a TMDB API client. It never retries: one operation is
// at most one outbound request.
type Client struct {
	credentials    credential.Source
	baseURL        string
	language       string
	httpClient     *http.Client
	requestLogFunc RequestLogFunc
}

// ClientConfig holds configuration for the TMDB client
type ClientConfig struct {
	Credentials    credential.Source
	BaseURL        string
	Language       string
	Timeout        time.Duration
	HTTPClient     *http.Client
	RequestLogFunc RequestLogFunc
}

// NewClient creates a new TMDB API client
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Language == "" {
		cfg.Language = "en-US"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		credentials:    cfg.Credentials,
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		language:       cfg.Language,
		httpClient:     httpClient,
		requestLogFunc: cfg.RequestLogFunc,
	}
}

// ParseMovieID validates a movie identifier taken from user input.
func ParseMovieID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, newError(KindBadRequest, 0, MsgInvalidMovieID, err)
	}
	return id, nil
}

// ParseQuery rejects a blank search query.
func ParseQuery(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", newError(KindBadRequest, 0, MsgQueryRequired, nil)
	}
	return raw, nil
}

// ParsePage validates a 1-based page number. An empty value means page 1.
func ParsePage(raw string) (int, error) {
	if raw == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, newError(KindBadRequest, 0, MsgInvalidPage, err)
	}
	return page, nil
}

// MovieDetailsJSON fetches the raw TMDB details payload for a movie
func (c *Client) MovieDetailsJSON(ctx context.Context, id int) (json.RawMessage, error) {
	if id <= 0 {
		return nil, newError(KindBadRequest, 0, MsgInvalidMovieID, nil)
	}

	return c.fetch(ctx, opDetails, fmt.Sprintf("/movie/%d", id), url.Values{})
}

// GetMovieDetails fetches detailed information about a movie
func (c *Client) GetMovieDetails(ctx context.Context, id int) (*MovieDetails, error) {
	data, err := c.MovieDetailsJSON(ctx, id)
	if err != nil {
		return nil, err
	}

	var details MovieDetails
	if err := json.Unmarshal(data, &details); err != nil {
		return nil, newError(KindUpstream, http.StatusBadGateway, MsgDetailsFailed,
			fmt.Errorf("failed to decode movie details: %w", err))
	}
	return &details, nil
}

// SearchMoviesJSON fetches one raw page of TMDB search results. Adult titles
// are always excluded.
func (c *Client) SearchMoviesJSON(ctx context.Context, query string, page int) (json.RawMessage, error) {
	if _, err := ParseQuery(query); err != nil {
		return nil, err
	}
	if page < 1 {
		return nil, newError(KindBadRequest, 0, MsgInvalidPage, nil)
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("page", strconv.Itoa(page))
	params.Set("include_adult", "false")

	return c.fetch(ctx, opSearch, "/search/movie", params)
}

// SearchMovies searches for movies by title
func (c *Client) SearchMovies(ctx context.Context, query string, page int) (*SearchPage, error) {
	data, err := c.SearchMoviesJSON(ctx, query, page)
	if err != nil {
		return nil, err
	}

	var result SearchPage
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, newError(KindUpstream, http.StatusBadGateway, MsgSearchFailed,
			fmt.Errorf("failed to decode search response: %w", err))
	}
	return &result, nil
}

// fetch performs one GET against TMDB and reports the outcome to the request log callback
func (c *Client) fetch(ctx context.Context, op, path string, params url.Values) (json.RawMessage, error) {
	start := time.Now()
	body, err := c.doFetch(ctx, op, path, params)

	if c.requestLogFunc != nil {
		kind, status := KindUnknown, http.StatusOK
		var ce *Error
		if errors.As(err, &ce) {
			kind, status = ce.Kind, ce.Status
		}
		c.requestLogFunc(op, kind, status, time.Since(start))
	}

	return body, err
}

func (c *Client) doFetch(ctx context.Context, op, path string, params url.Values) (json.RawMessage, error) {
	lg := logctx.From(ctx)

	apiKey := ""
	if c.credentials != nil {
		apiKey = c.credentials.APIKey()
	}
	if apiKey == "" {
		lg.Error("TMDB API key is not configured", "op", op)
		return nil, newError(KindServiceNotConfigured, 0, MsgNotConfigured, nil)
	}

	params.Set("api_key", apiKey)
	params.Set("language", c.language)
	requestURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, newError(KindTransientNetwork, 0, MsgNetwork,
			fmt.Errorf("failed to build request: %s", redactURL(err.Error())))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = redactError(err)
		lg.Error("TMDB request failed", "op", op, "error", err)
		return nil, newError(KindTransientNetwork, 0, MsgNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		err = redactError(err)
		lg.Error("failed to read TMDB response", "op", op, "status", resp.StatusCode, "error", err)
		return nil, newError(KindTransientNetwork, 0, MsgNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		lg.Error("TMDB API error", "op", op, "status", resp.StatusCode, "body", truncate(string(body), 512))
		return nil, classifyStatus(op, resp.StatusCode, body)
	}

	if !json.Valid(body) {
		return nil, newError(KindUpstream, http.StatusBadGateway, failureMessage(op),
			fmt.Errorf("TMDB returned invalid JSON (status %d)", resp.StatusCode))
	}

	lg.Debug("TMDB request ok", "op", op, "status", resp.StatusCode, "bytes", len(body))
	return body, nil
}

// classifyStatus maps an upstream non-2xx status to the error taxonomy
func classifyStatus(op string, status int, body []byte) *Error {
	cause := fmt.Errorf("TMDB API error (status %d): %s", status, truncate(string(body), 512))

	switch status {
	case http.StatusNotFound:
		msg := MsgMovieNotFound
		if op == opSearch {
			msg = MsgSearchFailed
		}
		return newError(KindNotFound, status, msg, cause)
	case http.StatusUnauthorized:
		return newError(KindMisconfiguredService, status, MsgInvalidAPIConfig, cause)
	default:
		return newError(KindUpstream, status, failureMessage(op), cause)
	}
}

func failureMessage(op string) string {
	if op == opSearch {
		return MsgSearchFailed
	}
	return MsgDetailsFailed
}

// redactError strips the API key from errors that embed the request URL
func redactError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return &url.Error{Op: ue.Op, URL: redactURL(ue.URL), Err: ue.Err}
	}
	return err
}

// redactURL replaces the api_key query value in s
func redactURL(s string) string {
	const marker = "api_key="
	i := strings.Index(s, marker)
	if i < 0 {
		return s
	}
	start := i + len(marker)
	end := start
	for end < len(s) && s[end] != '&' && s[end] != ' ' && s[end] != '"' {
		end++
	}
	return s[:start] + "REDACTED" + s[end:]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrAuth marks a rejected API key. Callers should stop issuing requests
// for the rest of the run once they see it.
var ErrAuth = errors.New("tmdb authentication rejected")

// ErrTransient marks rate limiting or server errors that survived the
// retry budget. The affected lookup can be skipped without failing the item.
var ErrTransient = errors.New("tmdb temporarily unavailable")

// Result represents a single TMDB search match.
type Result struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	MediaType    string  `json:"media_type"`
	Popularity   float64 `json:"popularity"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int64   `json:"vote_count"`
}

// DisplayTitle returns the movie title or TV name, whichever is set.
func (r Result) DisplayTitle() string {
	if strings.TrimSpace(r.Title) != "" {
		return r.Title
	}
	return r.Name
}

// Year extracts the release or first-air year, or 0 when absent.
func (r Result) Year() int {
	date := r.ReleaseDate
	if strings.TrimSpace(date) == "" {
		date = r.FirstAirDate
	}
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}

// Response models the TMDB paginated search response.
type Response struct {
	Page         int      `json:"page"`
	Results      []Result `json:"results"`
	TotalPages   int      `json:"total_pages"`
	TotalResults int      `json:"total_results"`
}

// Person is a TMDB person search match.
type Person struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Popularity float64 `json:"popularity"`
}

// PersonResponse models the TMDB person search response.
type PersonResponse struct {
	Page    int      `json:"page"`
	Results []Person `json:"results"`
}

// Credit is one entry in a person's combined credits.
type Credit struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Name      string `json:"name"`
	MediaType string `json:"media_type"`
}

// Credits models the TMDB combined credits payload for a person.
type Credits struct {
	ID   int64    `json:"id"`
	Cast []Credit `json:"cast"`
}

// SearchOptions contains optional parameters for TMDB searches.
type SearchOptions struct {
	Year int `json:"year,omitempty"`
}

// Searcher defines the TMDB operations used by identification.
type Searcher interface {
	SearchMovie(ctx context.Context, query string, opts SearchOptions) (*Response, error)
	SearchTV(ctx context.Context, query string, opts SearchOptions) (*Response, error)
	SearchPerson(ctx context.Context, name string) (*PersonResponse, error)
	PersonCredits(ctx context.Context, personID int64) (*Credits, error)
}

// Client provides access to the TMDB API for searches.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	retries    int
	httpClient *http.Client
	sleep      func(time.Duration)
}

var _ Searcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetries sets the number of additional attempts after a retryable failure.
func WithRetries(retries int) Option {
	return func(c *Client) {
		if retries >= 0 {
			c.retries = retries
		}
	}
}

// New creates a TMDB client.
func New(apiKey, baseURL, language string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("tmdb api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("tmdb base url required")
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   strings.TrimSpace(language),
		retries:    3,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// SetSleepForTests replaces the retry backoff sleep during tests.
func (c *Client) SetSleepForTests(fn func(time.Duration)) {
	if fn != nil {
		c.sleep = fn
	}
}

// SearchMovie searches TMDB movies with optional filters.
func (c *Client) SearchMovie(ctx context.Context, query string, opts SearchOptions) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	params := url.Values{}
	params.Set("query", query)
	if opts.Year > 0 {
		params.Set("primary_release_year", strconv.Itoa(opts.Year))
	}
	var payload Response
	if err := c.get(ctx, "/search/movie", params, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// SearchTV searches TMDB TV shows with optional filters.
func (c *Client) SearchTV(ctx context.Context, query string, opts SearchOptions) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	params := url.Values{}
	params.Set("query", query)
	if opts.Year > 0 {
		params.Set("first_air_date_year", strconv.Itoa(opts.Year))
	}
	var payload Response
	if err := c.get(ctx, "/search/tv", params, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// SearchPerson searches TMDB people by name.
func (c *Client) SearchPerson(ctx context.Context, name string) (*PersonResponse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("name must not be empty")
	}
	params := url.Values{}
	params.Set("query", name)
	var payload PersonResponse
	if err := c.get(ctx, "/search/person", params, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// PersonCredits fetches a person's combined movie and TV credits.
func (c *Client) PersonCredits(ctx context.Context, personID int64) (*Credits, error) {
	if personID <= 0 {
		return nil, errors.New("person id must be positive")
	}
	var payload Credits
	if err := c.get(ctx, fmt.Sprintf("/person/%d/combined_credits", personID), url.Values{}, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// get performs one API request with bounded retries on rate limiting and
// server errors. Authentication rejections fail immediately with ErrAuth.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("parse tmdb url: %w", err)
	}
	params.Set("api_key", c.apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}
	endpoint.RawQuery = params.Encode()

	backoff := 500 * time.Millisecond
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			c.sleep(backoff)
			backoff *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}

		requestStart := time.Now()
		resp, err := c.httpClient.Do(req)
		latency := time.Since(requestStart)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("execute request (latency=%v): %w", latency, err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("decode tmdb response: %w", err)
			}
			return nil
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			resp.Body.Close()
			return fmt.Errorf("tmdb returned %d (latency=%v): %w", resp.StatusCode, latency, ErrAuth)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			resp.Body.Close()
			lastErr = fmt.Errorf("tmdb returned %d (latency=%v): %w", resp.StatusCode, latency, ErrTransient)
		default:
			resp.Body.Close()
			return fmt.Errorf("tmdb returned %d (latency=%v)", resp.StatusCode, latency)
		}
	}
	return lastErr
}

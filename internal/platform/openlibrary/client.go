// Package openlibrary is a thin client for the Open Library search API.
package openlibrary

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://openlibrary.org"
	coverURLFormat = "https://covers.openlibrary.org/b/id/%d-L.jpg"
	searchFields   = "key,title,author_name,cover_i,edition_count,subject"
)

type Options struct {
	BaseURL    string
	UserAgent  string
	RPS        int
	MaxRetries int
	Timeout    time.Duration
}

type Client struct {
	httpClient *http.Client
	userAgent  string
	baseURL    string
	limiter    *rate.Limiter
	maxRetries int
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.RPS <= 0 {
		opts.RPS = 5
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		userAgent:  opts.UserAgent,
		baseURL:    opts.BaseURL,
		limiter:    rate.NewLimiter(rate.Every(time.Second/time.Duration(opts.RPS)), opts.RPS),
		maxRetries: opts.MaxRetries,
	}
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("openlibrary: unexpected status code: %d", e.Code)
}

// Doc is one search.json result.
type Doc struct {
	Key          string   `json:"key"`
	Title        string   `json:"title"`
	AuthorNames  []string `json:"author_name"`
	CoverID      int      `json:"cover_i"`
	EditionCount int      `json:"edition_count"`
	Subjects     []string `json:"subject"`
}

// CoverURL returns the large cover image URL, or "" when the doc has none.
func (d Doc) CoverURL() string {
	if d.CoverID <= 0 {
		return ""
	}
	return fmt.Sprintf(coverURLFormat, d.CoverID)
}

// SearchResponse matches search.json
type SearchResponse struct {
	NumFound int   `json:"numFound"`
	Docs     []Doc `json:"docs"`
}

// Search runs a free-text query.
func (c *Client) Search(ctx context.Context, query string, limit int) (*SearchResponse, error) {
	params := url.Values{}
	params.Set("q", query)
	return c.search(ctx, params, limit)
}

// SearchByTitleAuthor queries the title and author fields; either may be empty.
func (c *Client) SearchByTitleAuthor(ctx context.Context, title, author string, limit int) (*SearchResponse, error) {
	params := url.Values{}
	if title != "" {
		params.Set("title", title)
	}
	if author != "" {
		params.Set("author", author)
	}
	return c.search(ctx, params, limit)
}

func (c *Client) search(ctx context.Context, params url.Values, limit int) (*SearchResponse, error) {
	params.Set("fields", searchFields)
	params.Set("limit", strconv.Itoa(limit))
	u := c.baseURL + "/search.json?" + params.Encode()

	var res SearchResponse
	if err := c.get(ctx, u, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) get(ctx context.Context, url string, target any) error {
	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			// 250ms, 500ms, 1s...
			backoff := time.Duration(1<<uint(i-1)) * 250 * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		retry, err := c.do(ctx, url, target)
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("after %d retries: %w", c.maxRetries, lastErr)
}

func (c *Client) do(ctx context.Context, url string, target any) (retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return retryable, &StatusError{Code: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return false, fmt.Errorf("openlibrary: decode response: %w", err)
	}
	return false, nil
}

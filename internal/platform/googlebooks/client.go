// Package googlebooks is a thin client for the Google Books volumes API.
package googlebooks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://www.googleapis.com"
	// the volumes endpoint rejects larger pages
	maxResultsCap = 40
)

type Options struct {
	BaseURL    string
	APIKey     string
	UserAgent  string
	RPS        int
	MaxRetries int
	Timeout    time.Duration
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	userAgent  string
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
		httpClient: &http.Client{Timeout: opts.Timeout},
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		userAgent:  opts.UserAgent,
		limiter:    rate.NewLimiter(rate.Every(time.Second/time.Duration(opts.RPS)), opts.RPS),
		maxRetries: opts.MaxRetries,
	}
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("googlebooks: unexpected status code: %d", e.Code)
}

type ImageLinks struct {
	SmallThumbnail string `json:"smallThumbnail"`
	Thumbnail      string `json:"thumbnail"`
}

type VolumeInfo struct {
	Title        string     `json:"title"`
	Subtitle     string     `json:"subtitle"`
	Authors      []string   `json:"authors"`
	Description  string     `json:"description"`
	Categories   []string   `json:"categories"`
	RatingsCount int        `json:"ratingsCount"`
	Language     string     `json:"language"`
	ImageLinks   ImageLinks `json:"imageLinks"`
	PreviewLink  string     `json:"previewLink"`
}

type SaleInfo struct {
	Saleability string `json:"saleability"`
	BuyLink     string `json:"buyLink"`
}

type AccessInfo struct {
	Viewability   string `json:"viewability"`
	WebReaderLink string `json:"webReaderLink"`
}

// Volume is one item of a volumes response.
type Volume struct {
	ID         string     `json:"id"`
	VolumeInfo VolumeInfo `json:"volumeInfo"`
	SaleInfo   SaleInfo   `json:"saleInfo"`
	AccessInfo AccessInfo `json:"accessInfo"`
}

// CoverURL prefers the thumbnail, upgraded to https.
func (v Volume) CoverURL() string {
	cover := v.VolumeInfo.ImageLinks.Thumbnail
	if cover == "" {
		cover = v.VolumeInfo.ImageLinks.SmallThumbnail
	}
	if strings.HasPrefix(cover, "http:") {
		cover = "https:" + strings.TrimPrefix(cover, "http:")
	}
	return cover
}

// VolumesResponse matches /books/v1/volumes
type VolumesResponse struct {
	TotalItems int      `json:"totalItems"`
	Items      []Volume `json:"items"`
}

// Search runs a free-text volumes query.
func (c *Client) Search(ctx context.Context, query string, maxResults int) (*VolumesResponse, error) {
	return c.volumes(ctx, query, maxResults)
}

// SearchByTitleAuthor builds an intitle:/inauthor: query; either part may be empty.
func (c *Client) SearchByTitleAuthor(ctx context.Context, title, author string, maxResults int) (*VolumesResponse, error) {
	var parts []string
	if title != "" {
		parts = append(parts, "intitle:"+title)
	}
	if author != "" {
		parts = append(parts, "inauthor:"+author)
	}
	return c.volumes(ctx, strings.Join(parts, " "), maxResults)
}

func (c *Client) volumes(ctx context.Context, q string, maxResults int) (*VolumesResponse, error) {
	if maxResults <= 0 || maxResults > maxResultsCap {
		maxResults = maxResultsCap
	}
	params := url.Values{}
	params.Set("q", q)
	params.Set("maxResults", strconv.Itoa(maxResults))
	params.Set("printType", "books")
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}
	u := c.baseURL + "/books/v1/volumes?" + params.Encode()

	var res VolumesResponse
	if err := c.get(ctx, u, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) get(ctx context.Context, url string, target any) error {
	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
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

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			lastErr = &StatusError{Code: resp.StatusCode}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				continue
			}
			return lastErr
		}

		err = json.NewDecoder(resp.Body).Decode(target)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("googlebooks: decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("after %d retries: %w", c.maxRetries, lastErr)
}

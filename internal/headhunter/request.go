package headhunter

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/utils"
)

const (
	contentType     = "application/json"
	contentEncoding = "gzip"
)

type ItemResponse struct {
	Items   []Item
	Found   int
	Pages   int
	Page    int
	PerPage int `json:"per_page"`
}

type Item interface{}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bad status: %s", e.Status)
}

// GetItems makes GET request to HeadHunter API and return items from all pages.
func (c *Client) GetItems(ctx context.Context, url string, q url.Values) ([]Item, error) {
	var items []Item

	req, err := c.newGetRequest(ctx, url, q)
	if err != nil {
		return nil, err
	}

	response, err := c.fetchPage(req)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("got response from HH.ru", zap.Int("pages", response.Pages), zap.Int("max items per page", response.PerPage))

	items = append(items, response.Items...)

	for response.Page < (response.Pages - 1) {
		c.logger.Debug("additional request needed", zap.String("reason", fmt.Sprintf(
			"current page (%d) < all page count (%d)", response.Page+1, response.Pages),
		))

		response, err = c.fetchPage(addPage(req, response.Page+1))
		if err != nil {
			return nil, err
		}

		items = append(items, response.Items...)
	}

	return items, nil
}

func (c *Client) fetchPage(req *http.Request) (*ItemResponse, error) {
	var response *ItemResponse
	if err := c.do(req, &response); err != nil {
		return nil, err
	}
	if response == nil {
		response = &ItemResponse{}
	}
	return response, nil
}

func (c *Client) getJSON(ctx context.Context, url string, q url.Values, target interface{}) error {
	req, err := c.newGetRequest(ctx, url, q)
	if err != nil {
		return err
	}
	return c.do(req, target)
}

func (c *Client) newGetRequest(ctx context.Context, url string, q url.Values) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	req = c.setHeaders(req)
	req.Header.Set("Content-Type", contentType)
	if q != nil {
		req.URL.RawQuery = q.Encode()
	}
	return req, nil
}

// do sends the request, retrying throttled and failed upstream responses,
// and decodes the body into target.
func (c *Client) do(req *http.Request, target interface{}) error {
	var lastErr error
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Debug("retrying request",
				zap.String("url", req.URL.String()),
				zap.Int("attempt", attempt),
				zap.Error(lastErr),
			)
			if err := utils.WaitFor(req.Context(), c.backoff(attempt)); err != nil {
				return err
			}
		}

		data, err := c.request(req)
		if err == nil {
			if target == nil {
				return nil
			}
			return json.Unmarshal(data, target)
		}

		lastErr = err
		if !retryable(err) {
			return err
		}
	}

	return fmt.Errorf("giving up after %d attempts: %w", c.MaxRetries+1, lastErr)
}

func (c *Client) request(req *http.Request) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}

	c.logger.Debug("make request", zap.String("url", req.URL.String()))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	return data, nil
}

func (c *Client) backoff(attempt int) time.Duration {
	if c.Backoff == nil {
		return exponentialBackoff(attempt)
	}
	return c.Backoff(attempt)
}

func retryable(err error) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= http.StatusInternalServerError
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept-Encoding", contentEncoding)

	return req
}

// addPage adds page parameter to request URL.
func addPage(req *http.Request, page int) *http.Request {
	q := req.URL.Query()
	q.Set("page", strconv.Itoa(page))
	req.URL.RawQuery = q.Encode()

	return req
}

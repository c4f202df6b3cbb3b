package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/angelitadias/ETL-Pipeline-API/internal/gastos/raw"
	"github.com/angelitadias/ETL-Pipeline-API/internal/gastos/types"
	"github.com/angelitadias/ETL-Pipeline-API/internal/logger"
	"github.com/angelitadias/ETL-Pipeline-API/internal/retry"
)

const component = "Fetcher"

var errRateLimited = errors.New("rate limited by the API")

// Options configures the fetch stage.
type Options struct {
	// BaseURL is the first-page URL; page-addressed URLs derive from it.
	BaseURL string
	Token   string
	// RequestDelay paces the client between successful page requests.
	RequestDelay time.Duration
}

// Client walks the API's cursor pagination and lands every page in the page
// store. Pages already present are skipped, which makes an interrupted run
// resumable without re-fetching.
type Client struct {
	httpClient *http.Client
	store      *raw.Store
	policy     *retry.Policy
	opts       Options
	appLogger  *logger.Logger
}

func New(store *raw.Store, policy *retry.Policy, opts Options, appLogger *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		store:      store,
		policy:     policy,
		opts:       opts,
		appLogger:  appLogger,
	}
}

// pageURL is the page-number-addressed form of the endpoint, used when
// resuming past already-persisted pages.
func (c *Client) pageURL(page int) string {
	return fmt.Sprintf("%s?page=%d", c.opts.BaseURL, page)
}

// Run fetches pages until the server reports no more data. A rate-limit
// response is retried with backoff through the retry policy; any other
// request failure aborts the stage, leaving previously fetched pages durable.
func (c *Client) Run(ctx context.Context) error {
	c.appLogger.Info(component, "Starting data collection: url=%s", c.opts.BaseURL)

	page := 1
	nextURL := c.opts.BaseURL

	for nextURL != "" {
		if c.store.Has(page) {
			c.appLogger.Info(component, "Page already fetched, skipping: page=%d", page)
			page++
			nextURL = c.pageURL(page)
			continue
		}

		payload, next, results, err := c.fetchPage(ctx, nextURL)
		if err != nil {
			return fmt.Errorf("fetching page %d: %w", page, err)
		}

		if results == 0 {
			c.appLogger.Info(component, "Empty result list, ending collection: page=%d", page)
			break
		}

		if err := c.store.Write(page, payload); err != nil {
			return err
		}
		c.appLogger.Info(component, "Page saved: page=%d records=%d path=%s", page, results, c.store.Path(page))

		if next == nil {
			break
		}
		nextURL = *next
		page++
		time.Sleep(c.opts.RequestDelay)
	}

	c.appLogger.Info(component, "Data collection completed")
	return nil
}

func (c *Client) fetchPage(ctx context.Context, url string) (payload []byte, next *string, results int, err error) {
	err = c.policy.Do(component, "GET "+url, func() (bool, error) {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if reqErr != nil {
			return false, reqErr
		}
		req.Header.Set("Authorization", "Token "+c.opts.Token)

		resp, doErr := c.httpClient.Do(req)
		if doErr != nil {
			return false, doErr
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			return true, errRateLimited
		}
		if resp.StatusCode != http.StatusOK {
			return false, fmt.Errorf("unexpected status %s", resp.Status)
		}

		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return false, readErr
		}

		var p types.Page
		if decErr := json.Unmarshal(body, &p); decErr != nil {
			return false, fmt.Errorf("decoding response: %w", decErr)
		}

		payload = body
		next = p.Next
		results = len(p.Results)
		return false, nil
	})
	return payload, next, results, err
}

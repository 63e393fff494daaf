// Package fxrates provides a client for the exchange-rate feed
package fxrates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/jaehoon-lim/wonfolio/internal/common"
	"github.com/jaehoon-lim/wonfolio/internal/interfaces"
	"github.com/jaehoon-lim/wonfolio/internal/models"
)

const (
	DefaultBaseURL   = "https://open.er-api.com/v6"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 5 // requests per second
)

// Client implements the FXClient interface against an open exchange-rate
// feed that serves latest rates per base currency.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

var _ interfaces.FXClient = (*Client)(nil)

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new exchange-rate client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// latestResponse is the feed's wire format: rates quoted against the
// requested base currency.
type latestResponse struct {
	Result string             `json:"result"`
	Base   string             `json:"base_code"`
	Rates  map[string]float64 `json:"rates"`
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", reqURL).Msg("fx feed request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("fx feed error: %s (status: %d)", string(body), resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// GetRates retrieves home-currency rates for all supported foreign
// currencies in one call. Each returned rate is "home units per one foreign
// unit", e.g. USD 1350 means 1 USD = 1350 KRW.
func (c *Client) GetRates(ctx context.Context) (models.ExchangeRates, error) {
	rates := models.ExchangeRates{}

	for _, currency := range []models.Currency{models.CurrencyUSD, models.CurrencyJPY} {
		var result latestResponse
		if err := c.get(ctx, "/latest/"+string(currency), nil, &result); err != nil {
			return nil, err
		}

		krw, ok := result.Rates[models.HomeCurrency]
		if !ok || krw <= 0 {
			return nil, fmt.Errorf("fx feed returned no %s rate for %s", models.HomeCurrency, currency)
		}
		rates[currency] = krw
	}

	return rates, nil
}

// GetRate retrieves the home-currency rate for one foreign currency.
func (c *Client) GetRate(ctx context.Context, currency models.Currency) (float64, error) {
	if currency == models.CurrencyKRW {
		return 1, nil
	}

	var result latestResponse
	if err := c.get(ctx, "/latest/"+string(currency), nil, &result); err != nil {
		return 0, err
	}

	krw, ok := result.Rates[models.HomeCurrency]
	if !ok || krw <= 0 {
		return 0, fmt.Errorf("fx feed returned no %s rate for %s", models.HomeCurrency, currency)
	}
	return krw, nil
}

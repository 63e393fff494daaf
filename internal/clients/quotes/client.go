// Package quotes provides a client for the market data feed
package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jaehoon-lim/wonfolio/internal/common"
	"github.com/jaehoon-lim/wonfolio/internal/interfaces"
	"github.com/jaehoon-lim/wonfolio/internal/models"
)

// flexFloat64 handles JSON values that may be either a number or a string.
type flexFloat64 float64

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" || s == "N/A" {
			*f = 0
			return nil
		}
		num, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat64(num)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

const (
	DefaultBaseURL   = "https://quotes.wonfolio.dev/api"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second

	// DefaultHistoryDays covers the longest moving-average window plus
	// enough slack for market holidays.
	DefaultHistoryDays = 300
)

// Client implements the QuoteClient interface
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

var _ interfaces.QuoteClient = (*Client)(nil)

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

// NewClient creates a new quote feed client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
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

// APIError represents a feed error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("quote feed error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	if c.apiKey != "" {
		params.Set("api_token", c.apiKey)
	}

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("quote feed request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// quoteResponse is the feed's wire format for one quote.
type quoteResponse struct {
	Ticker        string      `json:"ticker"`
	Exchange      string      `json:"exchange"`
	Currency      string      `json:"currency"`
	Price         flexFloat64 `json:"price"`
	HomePrice     flexFloat64 `json:"home_price"`
	PreviousClose flexFloat64 `json:"previous_close"`
	High52Week    flexFloat64 `json:"high_52_week"`
	ChangeRate    *float64    `json:"change_rate"`
	Signal        string      `json:"signal"`
	RSI           *float64    `json:"rsi"`
	RSIStatus     string      `json:"rsi_status"`
}

// GetQuotes retrieves live quotes for a batch of instruments. The result has
// one entry per request, in request order; instruments the feed cannot
// resolve come back with Mocked set and the last known figures zeroed.
func (c *Client) GetQuotes(ctx context.Context, requests []interfaces.QuoteRequest) ([]models.PriceQuote, error) {
	if len(requests) == 0 {
		return nil, nil
	}

	symbols := make([]string, 0, len(requests))
	for _, r := range requests {
		symbols = append(symbols, symbolFor(r.Ticker, r.Exchange))
	}

	params := url.Values{}
	params.Set("symbols", strings.Join(symbols, ","))

	var raw []quoteResponse
	if err := c.get(ctx, "/quotes", params, &raw); err != nil {
		return nil, err
	}

	// Index responses by normalized symbol so missing entries can be
	// detected per request.
	byKey := make(map[string]quoteResponse, len(raw))
	for _, q := range raw {
		byKey[symbolFor(q.Ticker, q.Exchange)] = q
	}

	now := time.Now()
	quotes := make([]models.PriceQuote, 0, len(requests))
	for _, r := range requests {
		resp, ok := byKey[symbolFor(r.Ticker, r.Exchange)]
		if !ok || float64(resp.Price) <= 0 {
			quotes = append(quotes, models.PriceQuote{
				Ticker:    r.Ticker,
				Exchange:  models.NormalizeExchange(r.Exchange),
				Currency:  r.Currency,
				Mocked:    true,
				Timestamp: now,
			})
			continue
		}

		currency := r.Currency
		if resp.Currency != "" && models.ValidCurrency(models.Currency(resp.Currency)) {
			currency = models.Currency(resp.Currency)
		}

		quotes = append(quotes, models.PriceQuote{
			Ticker:        r.Ticker,
			Exchange:      models.NormalizeExchange(r.Exchange),
			Currency:      currency,
			Price:         float64(resp.Price),
			HomePrice:     float64(resp.HomePrice),
			PreviousClose: float64(resp.PreviousClose),
			High52Week:    float64(resp.High52Week),
			ChangeRate:    resp.ChangeRate,
			Signal:        resp.Signal,
			RSI:           resp.RSI,
			RSIStatus:     resp.RSIStatus,
			Timestamp:     now,
		})
	}

	return quotes, nil
}

// historyPoint is the feed's wire format for one daily close.
type historyPoint struct {
	Date  string      `json:"date"` // YYYY-MM-DD
	Close flexFloat64 `json:"close"`
}

// GetHistory retrieves the daily close series for one instrument, ascending
// by date.
func (c *Client) GetHistory(ctx context.Context, ticker, exchange string, opts ...interfaces.HistoryOption) (*models.HistoricalSeries, error) {
	params := &interfaces.HistoryParams{}
	for _, opt := range opts {
		opt(params)
	}

	urlParams := url.Values{}
	urlParams.Set("symbol", symbolFor(ticker, exchange))
	if !params.From.IsZero() {
		urlParams.Set("from", params.From.Format("2006-01-02"))
	}
	if !params.To.IsZero() {
		urlParams.Set("to", params.To.Format("2006-01-02"))
	}
	limit := params.Limit
	if limit <= 0 {
		limit = DefaultHistoryDays
	}
	urlParams.Set("limit", strconv.Itoa(limit))

	var raw []historyPoint
	if err := c.get(ctx, "/history", urlParams, &raw); err != nil {
		return nil, err
	}

	points := make([]models.PricePoint, 0, len(raw))
	for _, p := range raw {
		date, err := time.Parse("2006-01-02", p.Date)
		if err != nil || float64(p.Close) <= 0 {
			continue // skip malformed observations
		}
		points = append(points, models.PricePoint{Date: date, Close: float64(p.Close)})
	}

	// The feed usually returns ascending data but does not guarantee it.
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

	if len(points) > limit {
		points = points[len(points)-limit:]
	}

	return &models.HistoricalSeries{
		Ticker:   ticker,
		Exchange: models.NormalizeExchange(exchange),
		Points:   points,
	}, nil
}

// symbolFor builds the feed symbol "TICKER.EXCHANGE" with the exchange
// normalized, matching models.Asset.Key.
func symbolFor(ticker, exchange string) string {
	return strings.ToUpper(ticker) + "." + models.NormalizeExchange(exchange)
}

package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaehoon-lim/wonfolio/internal/common"
	"github.com/jaehoon-lim/wonfolio/internal/interfaces"
	"github.com/jaehoon-lim/wonfolio/internal/models"
	"github.com/jaehoon-lim/wonfolio/internal/services/indicator"
	"github.com/jaehoon-lim/wonfolio/internal/services/valuation"
)

// memStore is an in-memory StateStore for service tests. Load returns a
// decoded copy, matching the document isolation of the file-backed store.
type memStore struct {
	mu    sync.Mutex
	state *models.AppState
	saves int
}

func newMemStore() *memStore {
	return &memStore{state: models.NewAppState()}
}

func (m *memStore) Load(ctx context.Context) (*models.AppState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.Marshal(m.state)
	if err != nil {
		return nil, err
	}
	var copied models.AppState
	if err := json.Unmarshal(data, &copied); err != nil {
		return nil, err
	}
	return &copied, nil
}

func (m *memStore) Save(ctx context.Context, state *models.AppState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	m.saves++
	return nil
}

func (m *memStore) Update(ctx context.Context, fn func(*models.AppState) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := fn(m.state); err != nil {
		return err
	}
	m.saves++
	return nil
}

func (m *memStore) WriteRaw(subdir, key string, data []byte) error { return nil }
func (m *memStore) Close() error                                   { return nil }

type stubQuoteClient struct {
	quotes    []models.PriceQuote
	quotesErr error

	// onGetQuotes, when set, runs at the start of the fetch. Tests use it
	// to interleave a concurrent writer with the network window.
	onGetQuotes func()

	history    map[string]*models.HistoricalSeries
	historyErr map[string]error
}

func (c *stubQuoteClient) GetQuotes(ctx context.Context, requests []interfaces.QuoteRequest) ([]models.PriceQuote, error) {
	if c.onGetQuotes != nil {
		c.onGetQuotes()
	}
	if c.quotesErr != nil {
		return nil, c.quotesErr
	}
	return c.quotes, nil
}

func (c *stubQuoteClient) GetHistory(ctx context.Context, ticker, exchange string, opts ...interfaces.HistoryOption) (*models.HistoricalSeries, error) {
	if err := c.historyErr[ticker]; err != nil {
		return nil, err
	}
	if series, ok := c.history[ticker]; ok {
		return series, nil
	}
	return nil, errors.New("no history")
}

type stubFXClient struct {
	rates models.ExchangeRates
	err   error
	calls int
}

func (c *stubFXClient) GetRates(ctx context.Context) (models.ExchangeRates, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.rates, nil
}

func (c *stubFXClient) GetRate(ctx context.Context, currency models.Currency) (float64, error) {
	if currency == models.CurrencyKRW {
		return 1, nil
	}
	if c.err != nil {
		return 0, c.err
	}
	return c.rates[currency], nil
}

func seriesFor(ticker string, days int) *models.HistoricalSeries {
	points := make([]models.PricePoint, days)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range points {
		points[i] = models.PricePoint{Date: base.AddDate(0, 0, i), Close: 100 + float64(i)}
	}
	return &models.HistoricalSeries{Ticker: ticker, Exchange: "NASDAQ", Points: points}
}

type fixture struct {
	store  *memStore
	quotes *stubQuoteClient
	fx     *stubFXClient
	svc    *Service
}

func newFixture(clock func() time.Time) *fixture {
	logger := common.NewSilentLogger()
	store := newMemStore()
	quotes := &stubQuoteClient{
		history:    make(map[string]*models.HistoricalSeries),
		historyErr: make(map[string]error),
	}
	fxc := &stubFXClient{rates: models.ExchangeRates{models.CurrencyUSD: 1350, models.CurrencyJPY: 9.1}}

	indicators := indicator.NewService(quotes, logger).WithBatching(100, 0)
	portfolio := valuation.NewService(store, logger)
	svc := NewService(store, quotes, fxc, indicators, portfolio, logger)
	if clock != nil {
		indicators.WithClock(clock)
		portfolio.WithClock(clock)
		svc.WithClock(clock)
	}
	return &fixture{store: store, quotes: quotes, fx: fxc, svc: svc}
}

func holding(ticker string, currency models.Currency) models.Asset {
	return models.Asset{
		ID:                   ticker,
		Ticker:               ticker,
		Exchange:             "NASDAQ",
		Category:             models.CategoryForeignStock,
		Currency:             currency,
		Quantity:             10,
		PurchasePrice:        100,
		PurchaseExchangeRate: 1300,
		PurchaseDate:         "2025-01-02",
	}
}

func TestRefreshAllHappyPath(t *testing.T) {
	f := newFixture(nil)
	f.store.state.Assets = []models.Asset{holding("AAPL", models.CurrencyUSD)}
	f.store.state.Watchlist.Items = []models.WatchlistItem{
		{Ticker: "MSFT", Exchange: "NASDAQ", Monitoring: true, Currency: models.CurrencyUSD},
	}

	change := 2.5
	f.quotes.quotes = []models.PriceQuote{
		{Ticker: "AAPL", Exchange: "NASDAQ", Currency: models.CurrencyUSD, Price: 120, HomePrice: 162000, PreviousClose: 118, ChangeRate: &change, Signal: "buy"},
		{Ticker: "MSFT", Exchange: "NASDAQ", Currency: models.CurrencyUSD, Price: 410, PreviousClose: 405},
	}
	f.quotes.history["AAPL"] = seriesFor("AAPL", 250)
	f.quotes.history["MSFT"] = seriesFor("MSFT", 250)

	report, err := f.svc.RefreshAll(context.Background(), false)
	require.NoError(t, err)

	assert.True(t, report.RatesUpdated)
	assert.Equal(t, 1, report.QuotesUpdated)
	assert.Equal(t, 0, report.QuotesFailed)
	assert.Equal(t, 2, report.HistoryUpdated)
	assert.Equal(t, 0, report.HistoryFailed)

	state := f.store.state
	assert.Equal(t, 1350.0, state.Rates[models.CurrencyUSD])
	assert.False(t, state.RatesTime.IsZero())

	a := &state.Assets[0]
	assert.Equal(t, 120.0, a.CurrentPrice)
	assert.Equal(t, 162000.0, a.HomePrice)
	assert.Equal(t, 118.0, a.PreviousClose)
	assert.Equal(t, "buy", a.Signal)
	assert.False(t, a.PriceFailed)
	assert.Equal(t, 120.0, a.HighestPrice)

	w := &state.Watchlist.Items[0]
	assert.Equal(t, 410.0, w.CurrentPrice)

	// The cycle ends with today's snapshot.
	require.Len(t, state.Snapshots, 1)
	assert.Len(t, state.Snapshots[0].Entries, 1)
}

func TestRefreshAllFXFailureKeepsLastKnownRates(t *testing.T) {
	f := newFixture(nil)
	f.store.state.Rates = models.ExchangeRates{models.CurrencyUSD: 1300}
	f.fx.err = errors.New("fx feed down")

	report, err := f.svc.RefreshAll(context.Background(), true)
	require.NoError(t, err)

	assert.False(t, report.RatesUpdated)
	assert.Equal(t, 1300.0, f.store.state.Rates[models.CurrencyUSD])
}

func TestRefreshAllRejectsRatesBelowFloor(t *testing.T) {
	f := newFixture(nil)
	f.store.state.Rates = models.ExchangeRates{models.CurrencyUSD: 1300, models.CurrencyJPY: 9.0}
	f.fx.rates = models.ExchangeRates{models.CurrencyUSD: 0.00074, models.CurrencyJPY: 9.2}

	_, err := f.svc.RefreshAll(context.Background(), true)
	require.NoError(t, err)

	// The inverted USD rate is dropped, JPY accepted.
	assert.Equal(t, 1300.0, f.store.state.Rates[models.CurrencyUSD])
	assert.Equal(t, 9.2, f.store.state.Rates[models.CurrencyJPY])
}

func TestRefreshAllSkipsFreshRatesUnlessForced(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	f := newFixture(func() time.Time { return now })
	f.store.state.Rates = models.ExchangeRates{models.CurrencyUSD: 1320}
	f.store.state.RatesTime = now.Add(-10 * time.Minute)

	report, err := f.svc.RefreshAll(context.Background(), false)
	require.NoError(t, err)
	assert.False(t, report.RatesUpdated)
	assert.Equal(t, 0, f.fx.calls)

	report, err = f.svc.RefreshAll(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, report.RatesUpdated)
	assert.Equal(t, 1, f.fx.calls)
}

func TestRefreshAllFlagsUnresolvedQuotes(t *testing.T) {
	f := newFixture(nil)
	a := holding("AAPL", models.CurrencyUSD)
	a.CurrentPrice = 115
	f.store.state.Assets = []models.Asset{a}

	f.quotes.quotes = []models.PriceQuote{
		{Ticker: "AAPL", Exchange: "NASDAQ", Currency: models.CurrencyUSD, Mocked: true},
	}

	report, err := f.svc.RefreshAll(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 0, report.QuotesUpdated)
	assert.Equal(t, 1, report.QuotesFailed)
	got := &f.store.state.Assets[0]
	assert.True(t, got.PriceFailed)
	// The stale price stays but is flagged.
	assert.Equal(t, 115.0, got.CurrentPrice)
}

func TestRefreshAllFlagsEveryAssetOnBatchFailure(t *testing.T) {
	f := newFixture(nil)
	f.store.state.Assets = []models.Asset{
		holding("AAPL", models.CurrencyUSD),
		holding("TSLA", models.CurrencyUSD),
	}
	f.quotes.quotesErr = errors.New("quote feed down")

	report, err := f.svc.RefreshAll(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 2, report.QuotesFailed)
	for i := range f.store.state.Assets {
		assert.True(t, f.store.state.Assets[i].PriceFailed)
	}
}

func TestRefreshAllCountsHistoryFailures(t *testing.T) {
	f := newFixture(nil)
	f.store.state.Assets = []models.Asset{
		holding("AAPL", models.CurrencyUSD),
		holding("DEAD", models.CurrencyUSD),
	}
	f.quotes.quotes = []models.PriceQuote{
		{Ticker: "AAPL", Exchange: "NASDAQ", Currency: models.CurrencyUSD, Price: 120},
		{Ticker: "DEAD", Exchange: "NASDAQ", Currency: models.CurrencyUSD, Price: 10},
	}
	f.quotes.history["AAPL"] = seriesFor("AAPL", 250)
	f.quotes.historyErr["DEAD"] = errors.New("no data")

	report, err := f.svc.RefreshAll(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 1, report.HistoryUpdated)
	assert.Equal(t, 1, report.HistoryFailed)
}

func TestRefreshAllAdoptsCryptoQuoteCurrency(t *testing.T) {
	f := newFixture(nil)
	f.store.state.Assets = []models.Asset{
		{
			ID:            "BTC",
			Ticker:        "BTC",
			Exchange:      "UPBIT",
			Category:      models.CategoryCrypto,
			Currency:      models.CurrencyKRW,
			Quantity:      0.5,
			PurchasePrice: 90000000,
			PurchaseDate:  "2025-01-02",
		},
	}
	f.quotes.quotes = []models.PriceQuote{
		{Ticker: "BTC", Exchange: "UPBIT", Currency: models.CurrencyUSD, Price: 68000},
	}

	_, err := f.svc.RefreshAll(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, models.CurrencyUSD, f.store.state.Assets[0].Currency)
}

func TestRefreshAllSkipsClosedPositions(t *testing.T) {
	f := newFixture(nil)
	closed := holding("GONE", models.CurrencyUSD)
	closed.Quantity = 0
	f.store.state.Assets = []models.Asset{closed, holding("AAPL", models.CurrencyUSD)}
	f.quotes.quotes = []models.PriceQuote{
		{Ticker: "AAPL", Exchange: "NASDAQ", Currency: models.CurrencyUSD, Price: 120},
	}
	f.quotes.history["AAPL"] = seriesFor("AAPL", 250)

	report, err := f.svc.RefreshAll(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 1, report.QuotesUpdated)
	assert.Equal(t, 0, report.QuotesFailed)
	assert.False(t, f.store.state.Assets[0].PriceFailed)
}

func TestRefreshAllKeepsAssetAddedMidCycle(t *testing.T) {
	f := newFixture(nil)
	f.store.state.Assets = []models.Asset{holding("AAPL", models.CurrencyUSD)}
	f.quotes.quotes = []models.PriceQuote{
		{Ticker: "AAPL", Exchange: "NASDAQ", Currency: models.CurrencyUSD, Price: 120},
	}
	f.quotes.history["AAPL"] = seriesFor("AAPL", 250)

	// A user adds a holding through the same store while the cycle is in
	// its quote-fetch window.
	f.quotes.onGetQuotes = func() {
		err := f.store.Update(context.Background(), func(state *models.AppState) error {
			state.Assets = append(state.Assets, holding("TSLA", models.CurrencyUSD))
			return nil
		})
		require.NoError(t, err)
	}

	report, err := f.svc.RefreshAll(context.Background(), false)
	require.NoError(t, err)

	state := f.store.state
	require.Len(t, state.Assets, 2, "holding added during the cycle survives")

	aapl, _ := state.FindAsset("AAPL")
	require.NotNil(t, aapl)
	assert.Equal(t, 120.0, aapl.CurrentPrice)
	assert.False(t, aapl.PriceFailed)
	assert.Equal(t, 1, report.QuotesUpdated)

	// The late arrival was not in this cycle's request set; it is flagged
	// rather than left looking fresh, and picked up next cycle.
	tsla, _ := state.FindAsset("TSLA")
	require.NotNil(t, tsla)
	assert.True(t, tsla.PriceFailed)
}

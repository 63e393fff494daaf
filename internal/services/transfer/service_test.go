package transfer

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaehoon-lim/wonfolio/internal/common"
	"github.com/jaehoon-lim/wonfolio/internal/models"
)

// memStore is an in-memory StateStore for service tests.
type memStore struct {
	state *models.AppState
	saves int
}

func newMemStore() *memStore {
	return &memStore{state: models.NewAppState()}
}

func (m *memStore) Load(ctx context.Context) (*models.AppState, error) {
	return m.state, nil
}

func (m *memStore) Save(ctx context.Context, state *models.AppState) error {
	m.state = state
	m.saves++
	return nil
}

func (m *memStore) Update(ctx context.Context, fn func(*models.AppState) error) error {
	if err := fn(m.state); err != nil {
		return err
	}
	m.saves++
	return nil
}

func (m *memStore) WriteRaw(subdir, key string, data []byte) error { return nil }
func (m *memStore) Close() error                                   { return nil }

func newTestService(store *memStore) *Service {
	return NewService(store, common.NewSilentLogger())
}

func TestImportCSVValidRows(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	input := strings.Join([]string{
		"ticker,exchange,quantity,purchasePrice,purchaseDate,category,currency,sellAlertDropRate",
		"AAPL,NASDAQ,10,100,2025-01-02,foreign_stock,USD,-20",
		"005930,KOSPI,15,71000,2025-02-10,domestic_stock,KRW,",
		"BTC,UPBIT,0.5,90000000,2025-03-01,crypto,KRW",
	}, "\n")

	result, err := svc.ImportCSV(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 3, result.Imported)
	assert.Empty(t, result.Skipped)
	assert.Equal(t, 1, store.saves)
	require.Len(t, store.state.Assets, 3)

	aapl := store.state.Assets[0]
	assert.NotEmpty(t, aapl.ID)
	assert.Equal(t, "AAPL", aapl.Ticker)
	assert.Equal(t, 10.0, aapl.Quantity)
	require.NotNil(t, aapl.SellAlertDropRate)
	assert.Equal(t, -20.0, *aapl.SellAlertDropRate)

	// Exchange aliases normalize on the way in.
	assert.Equal(t, "KRX", store.state.Assets[1].Exchange)
	assert.Nil(t, store.state.Assets[1].SellAlertDropRate)

	// The 7-column form is accepted.
	assert.Equal(t, 0.5, store.state.Assets[2].Quantity)
}

func TestImportCSVReportsBadRowsWithLineNumbers(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	input := strings.Join([]string{
		"ticker,exchange,quantity,purchasePrice,purchaseDate,category,currency",
		"AAPL,NASDAQ,ten,100,2025-01-02,foreign_stock,USD",
		"MSFT,NASDAQ,5,300,01/02/2025,foreign_stock,USD",
		"TSLA,NASDAQ,5,200,2025-01-02,spaceship,USD",
		"NVDA,NASDAQ,5,500,2025-01-02,foreign_stock,GBP",
		",NASDAQ,5,500,2025-01-02,foreign_stock,USD",
		"GOOG,NASDAQ,5",
		"AMZN,NASDAQ,-1,150,2025-01-02,foreign_stock,USD",
		"META,NASDAQ,5,450,2025-01-02,foreign_stock,USD",
	}, "\n")

	result, err := svc.ImportCSV(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Imported)
	require.Len(t, result.Skipped, 7)

	byLine := make(map[int]string)
	for _, re := range result.Skipped {
		byLine[re.Line] = re.Reason
	}
	assert.Contains(t, byLine[2], "quantity")
	assert.Contains(t, byLine[3], "YYYY-MM-DD")
	assert.Contains(t, byLine[4], "category")
	assert.Contains(t, byLine[5], "currency")
	assert.Contains(t, byLine[6], "ticker")
	assert.Contains(t, byLine[7], "columns")
	assert.Contains(t, byLine[8], "negative")

	require.Len(t, store.state.Assets, 1)
	assert.Equal(t, "META", store.state.Assets[0].Ticker)
}

func TestImportCSVUpsertsExistingPosition(t *testing.T) {
	store := newMemStore()
	store.state.Assets = []models.Asset{
		{
			ID:            "existing",
			Ticker:        "AAPL",
			Exchange:      "NASDAQ",
			Category:      models.CategoryForeignStock,
			Currency:      models.CurrencyUSD,
			Quantity:      5,
			PurchasePrice: 90,
			PurchaseDate:  "2024-06-01",
			CurrentPrice:  120,
			CreatedAt:     time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	svc := newTestService(store)

	input := "AAPL,NASDAQ,10,100,2025-01-02,foreign_stock,USD\n"
	result, err := svc.ImportCSV(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)

	require.Len(t, store.state.Assets, 1)
	got := store.state.Assets[0]
	assert.Equal(t, "existing", got.ID)
	assert.Equal(t, 10.0, got.Quantity)
	assert.Equal(t, 100.0, got.PurchasePrice)
	assert.Equal(t, "2025-01-02", got.PurchaseDate)
	// Live market data survives a re-import.
	assert.Equal(t, 120.0, got.CurrentPrice)
}

func TestImportCSVHeaderOptional(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	input := "AAPL,NASDAQ,10,100,2025-01-02,foreign_stock,USD\n"
	result, err := svc.ImportCSV(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
}

func TestImportCSVEmptyFile(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	result, err := svc.ImportCSV(context.Background(), strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Imported)
	assert.Empty(t, result.Skipped)
	assert.Equal(t, 0, store.saves)
}

func TestExportCSVRoundTrip(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	input := strings.Join([]string{
		"AAPL,NASDAQ,10,100.5,2025-01-02,foreign_stock,USD,-20",
		"005930,KRX,15,71000,2025-02-10,domestic_stock,KRW",
	}, "\n")
	_, err := svc.ImportCSV(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(context.Background(), &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ticker,exchange,quantity,purchasePrice,purchaseDate,category,currency,sellAlertDropRate", lines[0])
	assert.Equal(t, "AAPL,NASDAQ,10,100.5,2025-01-02,foreign_stock,USD,-20", lines[1])
	assert.Equal(t, "005930,KRX,15,71000,2025-02-10,domestic_stock,KRW,", lines[2])

	// Re-importing the export reproduces the same positions.
	store2 := newMemStore()
	svc2 := newTestService(store2)
	result, err := svc2.ImportCSV(context.Background(), strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Empty(t, result.Skipped)
}

// Package transfer implements CSV import and export of holdings
package transfer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jaehoon-lim/wonfolio/internal/common"
	"github.com/jaehoon-lim/wonfolio/internal/interfaces"
	"github.com/jaehoon-lim/wonfolio/internal/models"
)

// csvHeader is the fixed column order of the exchange format. The eighth
// column is optional on import and always written on export.
var csvHeader = []string{
	"ticker", "exchange", "quantity", "purchasePrice",
	"purchaseDate", "category", "currency", "sellAlertDropRate",
}

// Service implements TransferService.
type Service struct {
	store  interfaces.StateStore
	logger *common.Logger
	now    func() time.Time
}

var _ interfaces.TransferService = (*Service)(nil)

// NewService creates a new transfer service
func NewService(store interfaces.StateStore, logger *common.Logger) *Service {
	return &Service{store: store, logger: logger, now: time.Now}
}

// WithClock overrides the service clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ImportCSV reads holdings from r. Invalid rows are reported with their line
// number and skipped; valid rows are applied, so a partly bad file still
// imports its good rows.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader) (*interfaces.ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	result := &interfaces.ImportResult{}
	var parsed []models.Asset
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			result.Skipped = append(result.Skipped, interfaces.RowError{Line: line, Reason: "malformed CSV row"})
			continue
		}
		if line == 1 && isHeaderRow(record) {
			continue
		}
		asset, reason := parseRow(record)
		if reason != "" {
			result.Skipped = append(result.Skipped, interfaces.RowError{Line: line, Reason: reason})
			continue
		}
		parsed = append(parsed, asset)
		result.Imported++
	}

	if len(parsed) > 0 {
		err := s.store.Update(ctx, func(state *models.AppState) error {
			for _, asset := range parsed {
				s.upsert(state, asset)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("saving imported assets: %w", err)
		}
	}

	s.logger.Info().
		Int("imported", result.Imported).
		Int("skipped", len(result.Skipped)).
		Msg("CSV import complete")
	return result, nil
}

// isHeaderRow reports whether the first row is the column header rather
// than data.
func isHeaderRow(record []string) bool {
	return len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "ticker")
}

// parseRow validates one data row and builds the asset it describes.
// Returns a non-empty reason when the row must be skipped.
func parseRow(record []string) (models.Asset, string) {
	var a models.Asset

	if len(record) != 7 && len(record) != 8 {
		return a, fmt.Sprintf("expected 7 or 8 columns, got %d", len(record))
	}

	ticker := strings.TrimSpace(record[0])
	if ticker == "" {
		return a, "ticker is required"
	}

	quantity, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
	if err != nil {
		return a, fmt.Sprintf("invalid quantity %q", record[2])
	}
	if quantity < 0 {
		return a, "quantity must not be negative"
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(record[3]), 64)
	if err != nil {
		return a, fmt.Sprintf("invalid purchasePrice %q", record[3])
	}
	if price < 0 {
		return a, "purchasePrice must not be negative"
	}

	date := strings.TrimSpace(record[4])
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return a, fmt.Sprintf("invalid purchaseDate %q, want YYYY-MM-DD", record[4])
	}

	category := models.Category(strings.TrimSpace(record[5]))
	if !models.ValidCategory(category) {
		return a, fmt.Sprintf("unknown category %q", record[5])
	}

	currency := models.Currency(strings.ToUpper(strings.TrimSpace(record[6])))
	if !models.ValidCurrency(currency) {
		return a, fmt.Sprintf("unknown currency %q", record[6])
	}

	a = models.Asset{
		Ticker:        strings.ToUpper(ticker),
		Exchange:      models.NormalizeExchange(strings.TrimSpace(record[1])),
		Quantity:      quantity,
		PurchasePrice: price,
		PurchaseDate:  date,
		Category:      category,
		Currency:      currency,
	}

	if len(record) == 8 && strings.TrimSpace(record[7]) != "" {
		dropRate, err := strconv.ParseFloat(strings.TrimSpace(record[7]), 64)
		if err != nil {
			return a, fmt.Sprintf("invalid sellAlertDropRate %q", record[7])
		}
		a.SellAlertDropRate = &dropRate
	}

	return a, ""
}

// upsert replaces the holding matching (ticker, exchange) or appends a new
// one. An imported row describes the whole position, not an extra lot.
func (s *Service) upsert(state *models.AppState, asset models.Asset) {
	key := asset.Key()
	for i := range state.Assets {
		if state.Assets[i].Key() != key {
			continue
		}
		existing := &state.Assets[i]
		existing.Quantity = asset.Quantity
		existing.PurchasePrice = asset.PurchasePrice
		existing.PurchaseDate = asset.PurchaseDate
		existing.Category = asset.Category
		existing.Currency = asset.Currency
		existing.SellAlertDropRate = asset.SellAlertDropRate
		existing.UpdatedAt = s.now()
		return
	}

	asset.ID = uuid.New().String()
	asset.CreatedAt = s.now()
	asset.UpdatedAt = s.now()
	state.Assets = append(state.Assets, asset)
}

// ExportCSV writes every holding, open or closed, to w in the import format.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) error {
	state, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading state for export: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	for i := range state.Assets {
		a := &state.Assets[i]
		dropRate := ""
		if a.SellAlertDropRate != nil {
			dropRate = strconv.FormatFloat(*a.SellAlertDropRate, 'f', -1, 64)
		}
		row := []string{
			a.Ticker,
			a.Exchange,
			strconv.FormatFloat(a.Quantity, 'f', -1, 64),
			strconv.FormatFloat(a.PurchasePrice, 'f', -1, 64),
			a.PurchaseDate,
			string(a.Category),
			string(a.Currency),
			dropRate,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/jaehoon-lim/wonfolio/internal/common"
	"github.com/jaehoon-lim/wonfolio/internal/models"
)

// --- System handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

// --- Portfolio handlers ---

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	summary, err := s.app.PortfolioService.Summary(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error computing summary: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, summary)
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	days := queryInt(r, "days", 0)
	snapshots, err := s.app.PortfolioService.Snapshots(r.Context(), days)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error listing snapshots: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"snapshots": snapshots,
	})
}

func (s *Server) handleGrowthChart(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	days := queryInt(r, "days", 90)
	png, err := s.app.PortfolioService.RenderGrowthChart(r.Context(), days)
	if err != nil {
		WriteError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Chart error: %v", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Force bool `json:"force"`
	}
	if r.Body != nil {
		decodeOptionalJSON(r, &req)
	}

	report, err := s.app.RefreshService.RefreshAll(r.Context(), req.Force)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Refresh error: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, report)
}

// --- Asset handlers ---

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		assets, err := s.app.PortfolioService.ListAssets(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error listing assets: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"assets": assets,
		})

	case http.MethodPost:
		var asset models.Asset
		if !DecodeJSON(w, r, &asset) {
			return
		}
		created, err := s.app.PortfolioService.AddAsset(r.Context(), &asset)
		if err != nil {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("Error adding asset: %v", err))
			return
		}
		WriteJSON(w, http.StatusCreated, created)

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleAssetByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		asset, err := s.app.PortfolioService.GetAsset(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusNotFound, fmt.Sprintf("Asset not found: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, asset)

	case http.MethodPut:
		var asset models.Asset
		if !DecodeJSON(w, r, &asset) {
			return
		}
		asset.ID = id
		updated, err := s.app.PortfolioService.UpdateAsset(r.Context(), &asset)
		if err != nil {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("Error updating asset: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, updated)

	case http.MethodDelete:
		if err := s.app.PortfolioService.DeleteAsset(r.Context(), id); err != nil {
			WriteError(w, http.StatusNotFound, fmt.Sprintf("Error deleting asset: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"deleted": id})

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (s *Server) handleAssetBuy(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Quantity     float64 `json:"quantity"`
		Price        float64 `json:"price"`
		ExchangeRate float64 `json:"exchange_rate"`
		Date         string  `json:"date"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	asset, err := s.app.PortfolioService.Buy(r.Context(), id, req.Quantity, req.Price, req.ExchangeRate, req.Date)
	if err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Buy error: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, asset)
}

func (s *Server) handleAssetSell(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Quantity     float64 `json:"quantity"`
		Price        float64 `json:"price"`
		ExchangeRate float64 `json:"exchange_rate"`
		Date         string  `json:"date"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	asset, err := s.app.PortfolioService.Sell(r.Context(), id, models.SellRecord{
		Quantity:     req.Quantity,
		Price:        req.Price,
		ExchangeRate: req.ExchangeRate,
		Date:         req.Date,
	})
	if err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Sell error: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, asset)
}

// --- Filter & alert handlers ---

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Keys   []models.FilterKey  `json:"keys"`
		Config models.FilterConfig `json:"config"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	matches, err := s.app.AlertService.FilterAssets(r.Context(), req.Keys, req.Config)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Filter error: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"matches": matches,
	})
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	results, err := s.app.AlertService.Evaluate(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Alert error: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": results,
	})
}

func (s *Server) handleAlertNotify(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	results, notified, err := s.app.AlertService.EvaluateForNotify(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Alert error: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"alerts":           results,
		"already_notified": notified,
	})
}

// --- Watchlist handlers ---

func (s *Server) handleWatchlist(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items, err := s.app.WatchlistService.List(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error listing watchlist: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"items": items,
		})

	case http.MethodPost:
		var item models.WatchlistItem
		if !DecodeJSON(w, r, &item) {
			return
		}
		added, err := s.app.WatchlistService.Add(r.Context(), item)
		if err != nil {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("Error adding watchlist item: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, added)

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleWatchlistItem(w http.ResponseWriter, r *http.Request, ticker string) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	exchange := r.URL.Query().Get("exchange")
	if err := s.app.WatchlistService.Remove(r.Context(), ticker, exchange); err != nil {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("Error removing watchlist item: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"removed": ticker})
}

// --- Transfer handlers ---

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	result, err := s.app.TransferService.ImportCSV(r.Context(), r.Body)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Import error: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="portfolio.csv"`)
	if err := s.app.TransferService.ExportCSV(r.Context(), w); err != nil {
		s.logger.Warn().Err(err).Msg("CSV export failed mid-stream")
	}
}

// --- helpers ---

// queryInt parses an integer query parameter with a default.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// decodeOptionalJSON decodes a request body into v, ignoring errors. Used
// for endpoints whose body is entirely optional.
func decodeOptionalJSON(r *http.Request, v interface{}) {
	if r.Body == nil {
		return
	}
	json.NewDecoder(r.Body).Decode(v)
}

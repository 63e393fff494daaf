package server

import (
	"net/http"
	"strings"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)

	// Portfolio
	mux.HandleFunc("/api/portfolio/summary", s.handleSummary)
	mux.HandleFunc("/api/portfolio/snapshots", s.handleSnapshots)
	mux.HandleFunc("/api/portfolio/chart", s.handleGrowthChart)
	mux.HandleFunc("/api/portfolio/refresh", s.handleRefresh)

	// Assets
	mux.HandleFunc("/api/assets/", s.routeAssets)
	mux.HandleFunc("/api/assets", s.handleAssets)

	// Filters & alerts
	mux.HandleFunc("/api/filter", s.handleFilter)
	mux.HandleFunc("/api/alerts/notify", s.handleAlertNotify)
	mux.HandleFunc("/api/alerts", s.handleAlerts)

	// Watchlist
	mux.HandleFunc("/api/watchlist/", s.routeWatchlist)
	mux.HandleFunc("/api/watchlist", s.handleWatchlist)

	// Transfer
	mux.HandleFunc("/api/transfer/import", s.handleImport)
	mux.HandleFunc("/api/transfer/export", s.handleExport)
}

// routeAssets dispatches /api/assets/{id} and /api/assets/{id}/{action}.
func (s *Server) routeAssets(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/assets/")
	if path == "" {
		s.handleAssets(w, r)
		return
	}

	parts := strings.SplitN(path, "/", 2)
	id := parts[0]
	if len(parts) == 1 {
		s.handleAssetByID(w, r, id)
		return
	}

	switch parts[1] {
	case "buy":
		s.handleAssetBuy(w, r, id)
	case "sell":
		s.handleAssetSell(w, r, id)
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}

// routeWatchlist dispatches /api/watchlist/{ticker}.
func (s *Server) routeWatchlist(w http.ResponseWriter, r *http.Request) {
	ticker := strings.TrimPrefix(r.URL.Path, "/api/watchlist/")
	if ticker == "" {
		s.handleWatchlist(w, r)
		return
	}
	s.handleWatchlistItem(w, r, ticker)
}

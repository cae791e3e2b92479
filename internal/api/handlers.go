package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"crypto-tracker/internal/domain"
	"crypto-tracker/internal/observability"
	"crypto-tracker/internal/storage"
)

// healthTimeout bounds the store ping on /health.
const healthTimeout = 2 * time.Second

// coinResponse is the JSON shape of a registry entry.
type coinResponse struct {
	CoinID    string    `json:"coin_id"`
	Name      string    `json:"name"`
	Symbol    string    `json:"symbol"`
	ImageURL  *string   `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
}

// coinsResponse wraps the registry list.
type coinsResponse struct {
	Count int            `json:"count"`
	Coins []coinResponse `json:"coins"`
}

// trendingResponse wraps the ranked movers.
type trendingResponse struct {
	Period   string          `json:"period"`
	Count    int             `json:"count"`
	Trending []*domain.Mover `json:"trending"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.logger.Printf("Health check failed: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListCoins(w http.ResponseWriter, r *http.Request) {
	assets, err := s.store.List(r.Context())
	if err != nil {
		s.logger.Printf("Error listing coins: %v", err)
		observability.RecordStoreError("list_assets")
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}

	coins := make([]coinResponse, len(assets))
	for i, a := range assets {
		coins[i] = coinResponse{
			CoinID:    a.CoinID,
			Name:      a.Name,
			Symbol:    strings.ToUpper(a.Symbol),
			ImageURL:  a.ImageURL,
			CreatedAt: a.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, coinsResponse{Count: len(coins), Coins: coins})
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	coinID := chi.URLParam(r, "coinID")

	view, err := s.engine.CurrentPrice(r.Context(), coinID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "coin not found")
			return
		}
		s.logger.Printf("Error fetching price for %s: %v", coinID, err)
		observability.RecordStoreError("current_price")
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	view.Symbol = strings.ToUpper(view.Symbol)
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	coinID := chi.URLParam(r, "coinID")
	hours := intQuery(r, "hours")

	view, err := s.engine.History(r.Context(), coinID, hours)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no price history for coin")
			return
		}
		s.logger.Printf("Error fetching history for %s: %v", coinID, err)
		observability.RecordStoreError("history")
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	view.Symbol = strings.ToUpper(view.Symbol)
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	limit := intQuery(r, "limit")

	movers, err := s.engine.Trending(r.Context(), limit)
	if err != nil {
		s.logger.Printf("Error computing trending: %v", err)
		observability.RecordStoreError("trending")
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}

	for _, m := range movers {
		m.Symbol = strings.ToUpper(m.Symbol)
		m.ChangePercent = round2(m.ChangePercent)
	}
	if movers == nil {
		movers = []*domain.Mover{}
	}
	writeJSON(w, http.StatusOK, trendingResponse{
		Period:   "24h",
		Count:    len(movers),
		Trending: movers,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.engine.Summary(r.Context())
	if err != nil {
		s.logger.Printf("Error computing summary: %v", err)
		observability.RecordStoreError("summary")
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// intQuery parses an integer query parameter. Missing or malformed values
// return 0, which downstream clamps map to the default.
func intQuery(r *http.Request, name string) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

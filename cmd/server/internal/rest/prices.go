package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/HaydenEquityAi/stockmarket/cmd/server/internal/scheduler"
	"github.com/HaydenEquityAi/stockmarket/cmd/server/internal/store"
	"github.com/HaydenEquityAi/stockmarket/pkg/models"
)

// Handler serves the synchronous read path the dashboard hits on initial
// page load, before its WebSocket connection starts delivering updates.
type Handler struct {
	fetcher scheduler.QuoteFetcher
	store   store.StockStore
	logger  *zap.Logger

	// Coalesces concurrent identical batch fetches: N dashboards loading the
	// same watchlist at once share a single upstream round of requests.
	group singleflight.Group
}

func NewHandler(fetcher scheduler.QuoteFetcher, st store.StockStore, logger *zap.Logger) *Handler {
	return &Handler{fetcher: fetcher, store: st, logger: logger}
}

// Register mounts all routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /api/prices/quote/{symbol}", h.quote)
	mux.HandleFunc("GET /api/prices/quotes", h.quotes)
	mux.HandleFunc("GET /api/prices/snapshot", h.snapshot)
	mux.HandleFunc("GET /api/prices/history/{symbol}", h.history)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UnixMilli(),
	})
}

func (h *Handler) quote(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(r.PathValue("symbol")))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	quotes := h.fetch(r.Context(), []string{symbol})
	if len(quotes) == 0 {
		writeError(w, http.StatusNotFound, "no quote available for "+symbol)
		return
	}
	writeJSON(w, http.StatusOK, quotes[0])
}

func (h *Handler) quotes(w http.ResponseWriter, r *http.Request) {
	symbols := parseSymbols(r.URL.Query().Get("symbols"))
	if len(symbols) == 0 {
		writeError(w, http.StatusBadRequest, "symbols query parameter is required")
		return
	}
	writeJSON(w, http.StatusOK, h.fetch(r.Context(), symbols))
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	symbols := parseSymbols(r.URL.Query().Get("symbols"))
	if len(symbols) == 0 {
		writeError(w, http.StatusBadRequest, "symbols query parameter is required")
		return
	}

	snapshots, err := h.store.Snapshots(r.Context(), symbols)
	if err != nil {
		h.logger.Error("Snapshot read failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "snapshot read failed")
		return
	}

	records := make([]json.RawMessage, 0, len(snapshots))
	for _, s := range snapshots {
		records = append(records, json.RawMessage(s))
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(r.PathValue("symbol")))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := h.store.History(r.Context(), symbol, limit)
	if err != nil {
		h.logger.Error("History read failed", zap.String("symbol", symbol), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "history read failed")
		return
	}

	records := make([]json.RawMessage, 0, len(entries))
	for _, e := range entries {
		records = append(records, json.RawMessage(e))
	}
	writeJSON(w, http.StatusOK, records)
}

// fetch goes through singleflight so identical concurrent batches share one
// upstream call. The shared call runs detached from the initiating request's
// context: the first caller disconnecting must not cancel the batch for
// everyone coalesced behind it. The fetcher bounds the call with its own
// timeout.
func (h *Handler) fetch(ctx context.Context, symbols []string) []models.Quote {
	key := flightKey(symbols)
	fetchCtx := context.WithoutCancel(ctx)
	v, _, _ := h.group.Do(key, func() (interface{}, error) {
		return h.fetcher.FetchQuotes(fetchCtx, symbols), nil
	})
	return v.([]models.Quote)
}

func flightKey(symbols []string) string {
	sorted := make([]string, len(symbols))
	copy(sorted, symbols)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

func parseSymbols(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

package httpx

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/ariefcatur/go-yard-listings/internal/apperr"
	"github.com/ariefcatur/go-yard-listings/internal/listing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const maxPageSize = 100

// ListingsHandler serves the public projection. Tiers are re-resolved on
// every read so an expired promotion stops counting immediately.
type ListingsHandler struct {
	Store listing.Store
	Log   zerolog.Logger
	Now   func() time.Time
}

func (h *ListingsHandler) Register(r chi.Router) {
	r.Get("/listings", h.list)
	r.Get("/listings/{carID}", h.get)
}

func (h *ListingsHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *ListingsHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	l, err := h.Store.Get(ctx, chi.URLParam(r, "carID"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	page := []listing.Listing{*l}
	listing.Rerank(page, h.now())
	writeJSON(w, http.StatusOK, page[0])
}

func (h *ListingsHandler) list(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	limit, err := queryInt(r, "limit", 20)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	limit = min(max(limit, 1), maxPageSize)

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ls, err := h.Store.ListRanked(ctx, offset, limit)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	listing.Rerank(ls, h.now())
	if ls == nil {
		ls = []listing.Listing{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"offset": offset, "limit": limit, "items": ls})
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, apperr.New(apperr.ErrInvalidArgument, "%s must be a non-negative integer", key)
	}
	return n, nil
}

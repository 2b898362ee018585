package httpx

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ariefcatur/go-yard-listings/internal/apperr"
	"github.com/ariefcatur/go-yard-listings/internal/purchase"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type Purchaser interface {
	Apply(ctx context.Context, ownerID, carID string, g purchase.Grant, now time.Time) (purchase.Result, error)
}

type PromotionsHandler struct {
	Purchases Purchaser
	Log       zerolog.Logger
	Now       func() time.Time
}

func (h *PromotionsHandler) Register(r chi.Router) {
	r.Post("/yards/{ownerID}/cars/{carID}/promotions", h.apply)
}

func (h *PromotionsHandler) apply(w http.ResponseWriter, r *http.Request) {
	var g purchase.Grant
	if err := decodeJSON(r, &g); err != nil {
		writeError(w, h.Log, err)
		return
	}
	if g.ProductID == "" {
		writeError(w, h.Log, apperr.New(apperr.ErrInvalidArgument, "product_id required"))
		return
	}
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := h.Purchases.Apply(ctx, chi.URLParam(r, "ownerID"), chi.URLParam(r, "carID"), g, now())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case res.Granted && errors.Is(err, apperr.ErrTransient):
		// granted, listing refresh pending
		writeJSON(w, http.StatusAccepted, res)
	default:
		writeError(w, h.Log, err)
	}
}

package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/ariefcatur/go-yard-listings/internal/receipts"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// ReceiptLister is the audit read side; *receipts.PostgresRecorder implements it.
type ReceiptLister interface {
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]receipts.Receipt, error)
}

type ReceiptsHandler struct {
	Receipts ReceiptLister
	Log      zerolog.Logger
}

func (h *ReceiptsHandler) Register(r chi.Router) {
	r.Get("/yards/{ownerID}/receipts", h.list)
}

func (h *ReceiptsHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	limit = min(max(limit, 1), maxPageSize)

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	rs, err := h.Receipts.ListByOwner(ctx, chi.URLParam(r, "ownerID"), limit)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if rs == nil {
		rs = []receipts.Receipt{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": rs})
}

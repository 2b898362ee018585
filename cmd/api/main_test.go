package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ariefcatur/go-yard-listings/internal/receipts"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAudit struct{ owner string }

func (s *stubAudit) ListByOwner(_ context.Context, ownerID string, _ int) ([]receipts.Receipt, error) {
	s.owner = ownerID
	return []receipts.Receipt{{ID: "r-1", OwnerID: ownerID, Price: decimal.NewFromInt(29)}}, nil
}

func TestRoutes_ServesHealthAndAudit(t *testing.T) {
	audit := &stubAudit{}
	h := routes(nil, nil, nil, audit, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/yards/yard-7/receipts", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "yard-7", audit.owner)
	assert.Contains(t, rec.Body.String(), `"r-1"`)
}

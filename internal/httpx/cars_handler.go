package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/ariefcatur/go-yard-listings/internal/apperr"
	"github.com/ariefcatur/go-yard-listings/internal/yard"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// CarService is the yard inventory API; *yard.Store implements it.
type CarService interface {
	Create(ctx context.Context, ownerID string, d yard.Patch) (*yard.Car, error)
	Get(ctx context.Context, ownerID, carID string) (*yard.Car, error)
	Edit(ctx context.Context, ownerID, carID string, p yard.Patch) (*yard.Car, error)
	SetPublication(ctx context.Context, ownerID, carID string, to yard.PublicationState) (*yard.Car, error)
	MarkSold(ctx context.Context, ownerID, carID string) (*yard.Car, error)
	Delete(ctx context.Context, ownerID, carID string) error
}

type CarsHandler struct {
	Cars CarService
	Log  zerolog.Logger
}

// carDetails carries the editable display fields. Absent fields stay as they are.
type carDetails struct {
	Brand       *string   `json:"brand"`
	Model       *string   `json:"model"`
	Year        *int      `json:"year"`
	Mileage     *int      `json:"mileage"`
	PriceCents  *int64    `json:"price_cents"`
	Images      *[]string `json:"images"`
	City        *string   `json:"city"`
	Description *string   `json:"description"`
}

func (d carDetails) patch() yard.Patch {
	return yard.Patch{
		Brand: d.Brand, Model: d.Model, Year: d.Year, Mileage: d.Mileage,
		PriceCents: d.PriceCents, Images: d.Images, City: d.City, Description: d.Description,
	}
}

type publicationReq struct {
	State string `json:"state"`
}

func (h *CarsHandler) Register(r chi.Router) {
	r.Post("/yards/{ownerID}/cars", h.create)
	r.Get("/yards/{ownerID}/cars/{carID}", h.get)
	r.Patch("/yards/{ownerID}/cars/{carID}", h.edit)
	r.Delete("/yards/{ownerID}/cars/{carID}", h.delete)
	r.Post("/yards/{ownerID}/cars/{carID}/publication", h.setPublication)
	r.Post("/yards/{ownerID}/cars/{carID}/sold", h.markSold)
}

func (h *CarsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req carDetails
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	c, err := h.Cars.Create(ctx, chi.URLParam(r, "ownerID"), req.patch())
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *CarsHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	c, err := h.Cars.Get(ctx, chi.URLParam(r, "ownerID"), chi.URLParam(r, "carID"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CarsHandler) edit(w http.ResponseWriter, r *http.Request) {
	var req carDetails
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	c, err := h.Cars.Edit(ctx, chi.URLParam(r, "ownerID"), chi.URLParam(r, "carID"), req.patch())
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CarsHandler) setPublication(w http.ResponseWriter, r *http.Request) {
	var req publicationReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	to, ok := yard.ParsePublicationState(req.State)
	if !ok {
		writeError(w, h.Log, apperr.New(apperr.ErrInvalidArgument, "unknown publication state %q", req.State))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	c, err := h.Cars.SetPublication(ctx, chi.URLParam(r, "ownerID"), chi.URLParam(r, "carID"), to)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CarsHandler) markSold(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	c, err := h.Cars.MarkSold(ctx, chi.URLParam(r, "ownerID"), chi.URLParam(r, "carID"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CarsHandler) delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Cars.Delete(ctx, chi.URLParam(r, "ownerID"), chi.URLParam(r, "carID")); err != nil {
		writeError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

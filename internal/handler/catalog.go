package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/cleanup/dashboard/internal/enum"
	"github.com/cleanup/dashboard/internal/middleware"
	"github.com/cleanup/dashboard/internal/pricing"
	"github.com/go-chi/chi/v5"
)

// CatalogStore defines the catalog cache methods needed by CatalogHandler.
// Satisfied by *catalog.Cache.
type CatalogStore interface {
	Get(ctx context.Context) (pricing.Catalog, error)
	Refresh(ctx context.Context) (pricing.Catalog, error)
	FetchedAt() time.Time
}

// CatalogHandler serves the Service → Garment price list used by the order form.
type CatalogHandler struct {
	store CatalogStore
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(store CatalogStore) *CatalogHandler {
	return &CatalogHandler{store: store}
}

// RegisterRoutes registers catalog endpoints. Mounted at /catalog.
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.With(middleware.RequireRole(enum.RoleAdmin, enum.RoleManager)).Post("/refresh", h.Refresh)
}

type garmentResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	PriceMax string `json:"price_max"`
}

type serviceResponse struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Garments []garmentResponse `json:"garments"`
}

type catalogResponse struct {
	Services  []serviceResponse `json:"services"`
	FetchedAt time.Time         `json:"fetched_at"`
}

// Get handles GET /catalog.
func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	cat, err := h.store.Get(r.Context())
	if err != nil {
		writeServiceError(w, "get catalog", err)
		return
	}
	writeJSON(w, http.StatusOK, toCatalogResponse(cat, h.store.FetchedAt()))
}

// Refresh handles POST /catalog/refresh.
func (h *CatalogHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cat, err := h.store.Refresh(r.Context())
	if err != nil {
		writeServiceError(w, "refresh catalog", err)
		return
	}
	writeJSON(w, http.StatusOK, toCatalogResponse(cat, h.store.FetchedAt()))
}

// toCatalogResponse flattens the catalog maps into lists sorted by name, then ID.
func toCatalogResponse(cat pricing.Catalog, fetchedAt time.Time) catalogResponse {
	resp := catalogResponse{Services: make([]serviceResponse, 0, len(cat)), FetchedAt: fetchedAt}
	for _, svc := range cat {
		sr := serviceResponse{ID: svc.ID, Name: svc.Name, Garments: make([]garmentResponse, 0, len(svc.Garments))}
		for _, g := range svc.Garments {
			sr.Garments = append(sr.Garments, garmentResponse{ID: g.ID, Name: g.Name, PriceMax: g.PriceMax.StringFixed(2)})
		}
		sort.Slice(sr.Garments, func(i, j int) bool {
			a, b := sr.Garments[i], sr.Garments[j]
			if a.Name != b.Name {
				return a.Name < b.Name
			}
			return a.ID < b.ID
		})
		resp.Services = append(resp.Services, sr)
	}
	sort.Slice(resp.Services, func(i, j int) bool {
		a, b := resp.Services[i], resp.Services[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
	return resp
}

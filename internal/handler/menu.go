package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tableside/api/internal/database"
	"github.com/tableside/api/internal/logger"
	"go.uber.org/zap"
)

// MenuStore defines the database methods needed by menu handlers.
// Satisfied by *database.Queries.
type MenuStore interface {
	ListMenuItems(ctx context.Context) ([]database.MenuItem, error)
}

// MenuHandler serves the read-only menu catalogue.
type MenuHandler struct {
	store MenuStore
}

func NewMenuHandler(store MenuStore) *MenuHandler {
	return &MenuHandler{store: store}
}

func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
}

type menuItemResponse struct {
	Name         string  `json:"name"`
	AvailableQty int32   `json:"available_quantity"`
	Price        *string `json:"price"`
}

// List handles GET /menu.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListMenuItems(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("list menu items", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]menuItemResponse, len(items))
	for i, it := range items {
		resp[i] = menuItemResponse{Name: it.Name, AvailableQty: it.AvailableQty}
		if it.Price.Valid {
			p := it.Price.Decimal.StringFixed(2)
			resp[i].Price = &p
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

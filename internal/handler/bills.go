package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/tableside/api/internal/middleware"
	"github.com/tableside/api/internal/service"
)

// BillComputer is satisfied by *service.BillService.
type BillComputer interface {
	ComputeBill(ctx context.Context, tableNumber int32) (service.Bill, error)
}

// BillHandler serves per-table bills.
type BillHandler struct {
	bills BillComputer
}

func NewBillHandler(bills BillComputer) *BillHandler {
	return &BillHandler{bills: bills}
}

// RegisterRoutes expects to be mounted at /tables behind Authenticate.
// Customers may only read their own table's bill.
func (h *BillHandler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireTable).Get("/{table}/bill", h.Get)
}

type billResponse struct {
	TableNumber int32              `json:"table_number"`
	Items       []billLineResponse `json:"items"`
	Total       string             `json:"total"`
}

type billLineResponse struct {
	Name     string `json:"name"`
	Price    string `json:"price"`
	Quantity int32  `json:"quantity"`
	Total    string `json:"total"`
}

// Get handles GET /tables/{table}/bill.
func (h *BillHandler) Get(w http.ResponseWriter, r *http.Request) {
	table, err := strconv.ParseInt(chi.URLParam(r, "table"), 10, 32)
	if err != nil || table <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table number"})
		return
	}

	bill, err := h.bills.ComputeBill(r.Context(), int32(table))
	if err != nil {
		writeServiceError(w, r, "compute bill", err)
		return
	}

	items := make([]billLineResponse, len(bill.Items))
	for i, it := range bill.Items {
		items[i] = billLineResponse{
			Name:     it.Name,
			Price:    it.Price.StringFixed(2),
			Quantity: it.Quantity,
			Total:    it.Total.StringFixed(2),
		}
	}
	writeJSON(w, http.StatusOK, billResponse{
		TableNumber: bill.TableNumber,
		Items:       items,
		Total:       bill.Total.StringFixed(2),
	})
}

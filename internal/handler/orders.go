package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tableside/api/internal/database"
	"github.com/tableside/api/internal/enum"
	"github.com/tableside/api/internal/middleware"
	"github.com/tableside/api/internal/service"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	Submit(ctx context.Context, req service.SubmitRequest) error
	AdvanceItem(ctx context.Context, orderID uuid.UUID, itemName string) (*service.AdvanceResult, error)
	ListOrders(ctx context.Context) ([]database.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc OrderServicer
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted at /orders behind Authenticate.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	staff := middleware.RequireRole(enum.RoleWaiter, enum.RoleCook, enum.RoleManager)
	waiter := middleware.RequireRole(enum.RoleWaiter, enum.RoleManager)
	cook := middleware.RequireRole(enum.RoleCook, enum.RoleManager)

	r.With(waiter).Post("/", h.Submit)
	r.With(staff).Get("/", h.List)
	r.With(cook).Put("/update", h.AdvanceLegacy)
	r.With(staff).Get("/{id}", h.Get)
	r.With(cook).Put("/{id}/items/{name}/ready", h.Advance)
}

// --- Request / Response types ---

type submitOrderRequest struct {
	TableNumber int32               `json:"table_number"`
	Lines       []submitLineRequest `json:"lines"`
}

type submitLineRequest struct {
	Name     string `json:"name"`
	Quantity int32  `json:"quantity"`
}

type advanceLegacyRequest struct {
	OrderID  string `json:"order_id"`
	ItemName string `json:"item_name"`
}

type orderResponse struct {
	ID          uuid.UUID           `json:"id"`
	TableNumber int32               `json:"table_number"`
	Lines       []orderLineResponse `json:"lines"`
	Total       string              `json:"total"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

type orderLineResponse struct {
	Name     string `json:"name"`
	Quantity int32  `json:"quantity"`
	Price    string `json:"price"`
	Status   string `json:"status"`
	Total    string `json:"total"`
}

type advanceResponse struct {
	Message   string        `json:"message"`
	Completed bool          `json:"completed"`
	Order     orderResponse `json:"order"`
}

// --- Handlers ---

// Submit handles POST /orders. It creates the table's order or replaces its
// line list wholesale.
func (h *OrderHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	lines := make([]service.SubmitLine, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = service.SubmitLine{Name: l.Name, Quantity: l.Quantity}
	}

	if err := h.svc.Submit(r.Context(), service.SubmitRequest{
		TableNumber: req.TableNumber,
		Lines:       lines,
	}); err != nil {
		writeServiceError(w, r, "submit order", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"message": "order updated"})
}

// List handles GET /orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.ListOrders(r.Context())
	if err != nil {
		writeServiceError(w, r, "list orders", err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.svc.GetOrder(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "get order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// Advance handles PUT /orders/{id}/items/{name}/ready: one unit of the item
// has been prepared.
func (h *OrderHandler) Advance(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	// chi matches on RawPath when it is set, leaving the param escaped
	name := chi.URLParam(r, "name")
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(name)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item name"})
			return
		}
		name = unescaped
	}
	if name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item name"})
		return
	}

	h.advance(w, r, id, name)
}

// AdvanceLegacy handles PUT /orders/update with {"order_id","item_name"}
// for dashboards that still post the identifiers in the body.
func (h *OrderHandler) AdvanceLegacy(w http.ResponseWriter, r *http.Request) {
	var req advanceLegacyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	id, err := uuid.Parse(req.OrderID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}
	if req.ItemName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "item_name is required"})
		return
	}

	h.advance(w, r, id, req.ItemName)
}

func (h *OrderHandler) advance(w http.ResponseWriter, r *http.Request, id uuid.UUID, name string) {
	res, err := h.svc.AdvanceItem(r.Context(), id, name)
	if err != nil {
		writeServiceError(w, r, "advance item", err)
		return
	}

	msg := "item marked ready"
	if res.Completed {
		msg = "order completed"
	}
	writeJSON(w, http.StatusOK, advanceResponse{
		Message:   msg,
		Completed: res.Completed,
		Order:     toOrderResponse(res.Order),
	})
}

// --- Helpers ---

func toOrderResponse(o database.Order) orderResponse {
	lines := make([]orderLineResponse, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = orderLineResponse{
			Name:     l.Name,
			Quantity: l.Quantity,
			Price:    l.Price.StringFixed(2),
			Status:   l.Status,
			Total:    l.Total.StringFixed(2),
		}
	}
	return orderResponse{
		ID:          o.ID,
		TableNumber: o.TableNumber,
		Lines:       lines,
		Total:       o.Total.StringFixed(2),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

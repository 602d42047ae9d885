package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/tableside/api/internal/enum"
	"github.com/tableside/api/internal/handler"
	"github.com/tableside/api/internal/middleware"
	"github.com/tableside/api/internal/service"
)

type mockBillComputer struct {
	computeFn func(ctx context.Context, table int32) (service.Bill, error)
}

func (m *mockBillComputer) ComputeBill(ctx context.Context, table int32) (service.Bill, error) {
	return m.computeFn(ctx, table)
}

func setupBillRouter(bills *mockBillComputer) *chi.Mux {
	h := handler.NewBillHandler(bills)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/tables", h.RegisterRoutes)
	return r
}

func tableFiveBill() *mockBillComputer {
	return &mockBillComputer{
		computeFn: func(ctx context.Context, table int32) (service.Bill, error) {
			if table != 5 {
				return service.Bill{}, service.ErrNoActiveOrder
			}
			price := decimal.RequireFromString("10")
			return service.Bill{
				TableNumber: 5,
				Items: []service.BillLine{
					{Name: "Pizza", Price: price, Quantity: 2, Total: price.Mul(decimal.NewFromInt(2))},
				},
				Total: decimal.RequireFromString("20"),
			}, nil
		},
	}
}

func TestGetBill(t *testing.T) {
	router := setupBillRouter(tableFiveBill())

	rr := doAuthRequest(t, router, "GET", "/tables/5/bill", nil, enum.RoleCustomer, 5)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeBody(t, rr)
	if resp["total"] != "20.00" {
		t.Errorf("total: got %v, want 20.00", resp["total"])
	}
	items := resp["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("items: got %d, want 1", len(items))
	}
	item := items[0].(map[string]interface{})
	if item["name"] != "Pizza" || item["quantity"] != float64(2) || item["total"] != "20.00" {
		t.Errorf("item: %v", item)
	}
}

func TestGetBill_NoActiveOrder(t *testing.T) {
	router := setupBillRouter(tableFiveBill())

	rr := doAuthRequest(t, router, "GET", "/tables/7/bill", nil, enum.RoleWaiter, 0)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
	if resp := decodeBody(t, rr); resp["code"] != "no_active_order" {
		t.Errorf("code: got %v, want no_active_order", resp["code"])
	}
}

func TestGetBill_CustomerOtherTable(t *testing.T) {
	router := setupBillRouter(tableFiveBill())

	rr := doAuthRequest(t, router, "GET", "/tables/5/bill", nil, enum.RoleCustomer, 6)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestGetBill_InvalidTable(t *testing.T) {
	router := setupBillRouter(tableFiveBill())

	for _, path := range []string{"/tables/0/bill", "/tables/abc/bill"} {
		rr := doAuthRequest(t, router, "GET", path, nil, enum.RoleManager, 0)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d, want %d", path, rr.Code, http.StatusBadRequest)
		}
	}
}

func TestGetBill_InternalError(t *testing.T) {
	router := setupBillRouter(&mockBillComputer{
		computeFn: func(ctx context.Context, table int32) (service.Bill, error) {
			return service.Bill{}, errors.New("connection reset")
		},
	})

	rr := doAuthRequest(t, router, "GET", "/tables/5/bill", nil, enum.RoleWaiter, 0)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusInternalServerError)
	}
}

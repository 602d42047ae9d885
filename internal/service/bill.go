package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/tableside/api/internal/database"
)

// BillLine is one outstanding line of a bill.
type BillLine struct {
	Name     string
	Price    decimal.Decimal
	Quantity int32
	Total    decimal.Decimal
}

// Bill is derived on demand and never stored.
type Bill struct {
	TableNumber int32
	Items       []BillLine
	Total       decimal.Decimal
}

// BillStore is the read the bill calculator needs.
type BillStore interface {
	GetOrderByTable(ctx context.Context, tableNumber int32) (database.Order, error)
}

type BillService struct {
	store BillStore
}

func NewBillService(store BillStore) *BillService {
	return &BillService{store: store}
}

// ComputeBill returns the bill of the table's active order. It fails with
// ErrNoActiveOrder when the table has none, which is also the normal state
// right after the order completed.
func (s *BillService) ComputeBill(ctx context.Context, tableNumber int32) (Bill, error) {
	if tableNumber <= 0 {
		return Bill{}, fmt.Errorf("%w: table_number is required", ErrValidation)
	}

	order, err := s.store.GetOrderByTable(ctx, tableNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bill{}, ErrNoActiveOrder
		}
		return Bill{}, fmt.Errorf("get order by table: %w", err)
	}
	return BuildBill(order), nil
}

// BuildBill keeps lines with quantity > 0 that are not ready and sums
// price*quantity over them.
func BuildBill(order database.Order) Bill {
	bill := Bill{
		TableNumber: order.TableNumber,
		Items:       []BillLine{},
		Total:       decimal.Zero,
	}
	for _, l := range order.Lines {
		if l.Quantity <= 0 || l.IsReady() {
			continue
		}
		total := l.Price.Mul(decimal.NewFromInt32(l.Quantity))
		bill.Items = append(bill.Items, BillLine{
			Name:     l.Name,
			Price:    l.Price,
			Quantity: l.Quantity,
			Total:    total,
		})
		bill.Total = bill.Total.Add(total)
	}
	return bill
}

package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tableside/api/internal/enum"
)

// MenuItem is read-only to the order core. AvailableQty is advisory stock.
type MenuItem struct {
	Name         string
	AvailableQty int32
	Price        decimal.NullDecimal
}

// UnitPrice returns the menu price, treating an unset price as zero.
func (m MenuItem) UnitPrice() decimal.Decimal {
	if !m.Price.Valid {
		return decimal.Zero
	}
	return m.Price.Decimal
}

// OrderLine is one entry of an order document. Price is a snapshot taken
// from the menu when the order was submitted.
type OrderLine struct {
	Name     string          `json:"name"`
	Quantity int32           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Status   string          `json:"status"`
	Total    decimal.Decimal `json:"total"`
}

func (l OrderLine) IsReady() bool {
	return l.Status == enum.LineStatusReady
}

type OrderLines []OrderLine

// Recompute sets every line total to quantity*price and returns the sum.
// Every write query calls it before persisting.
func (ls OrderLines) Recompute() decimal.Decimal {
	sum := decimal.Zero
	for i := range ls {
		ls[i].Total = ls[i].Price.Mul(decimal.NewFromInt32(ls[i].Quantity))
		sum = sum.Add(ls[i].Total)
	}
	return sum
}

// AllReady reports whether every line has reached ready. An empty list is
// never considered ready.
func (ls OrderLines) AllReady() bool {
	if len(ls) == 0 {
		return false
	}
	for _, l := range ls {
		if !l.IsReady() {
			return false
		}
	}
	return true
}

// Find returns the index of the first line named name, or -1.
func (ls OrderLines) Find(name string) int {
	for i, l := range ls {
		if l.Name == name {
			return i
		}
	}
	return -1
}

type Order struct {
	ID          uuid.UUID
	TableNumber int32
	Lines       OrderLines
	Total       decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

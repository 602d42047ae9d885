package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tableside/api/internal/ws"
	"go.uber.org/zap"
)

// Customer follows the bill of one table.
type Customer struct {
	api    API
	table  int32
	logger *zap.Logger

	mu   sync.Mutex
	bill *Bill
}

func NewCustomer(api API, table int32, logger *zap.Logger) *Customer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Customer{api: api, table: table, logger: logger}
}

// FetchBill re-reads the table's bill. A nil bill with a nil error means
// nothing is outstanding, which is also what a completed order looks like.
func (c *Customer) FetchBill(ctx context.Context) (*Bill, error) {
	if c.table <= 0 {
		return nil, ErrNoTable
	}

	b, err := c.api.Bill(ctx, c.table)
	if err != nil {
		if errors.Is(err, ErrNoActiveOrder) {
			c.setBill(nil)
			return nil, nil
		}
		return nil, fmt.Errorf("fetch bill: %w", err)
	}
	c.setBill(&b)
	return &b, nil
}

func (c *Customer) setBill(b *Bill) {
	c.mu.Lock()
	c.bill = b
	c.mu.Unlock()
}

// Bill returns the last fetched bill, or nil.
func (c *Customer) Bill() *Bill {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bill == nil {
		return nil
	}
	b := *c.bill
	return &b
}

// Attach re-fetches the bill when any event names this table, and on
// reconnect. Events for other tables are ignored.
func (c *Customer) Attach(events Events) func() {
	refresh := func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		if _, err := c.FetchBill(ctx); err != nil {
			c.logger.Warn("customer bill refresh failed", zap.Error(err))
		}
	}
	removeHook := events.OnConnect(refresh)
	id := events.Subscribe("", func(ev ws.Event) {
		if ev.Table() == c.table {
			refresh()
		}
	})
	return func() {
		events.Unsubscribe(id)
		removeHook()
	}
}

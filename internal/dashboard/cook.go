package dashboard

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/tableside/api/internal/enum"
	"github.com/tableside/api/internal/ws"
	"go.uber.org/zap"
)

// Cook shows the last-fetched orders and marks items ready one unit at a
// time.
type Cook struct {
	api    API
	logger *zap.Logger

	mu     sync.Mutex
	orders []Order
}

func NewCook(api API, logger *zap.Logger) *Cook {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cook{api: api, logger: logger}
}

func (c *Cook) Refresh(ctx context.Context) error {
	orders, err := c.api.Orders(ctx)
	if err != nil {
		return fmt.Errorf("fetch orders: %w", err)
	}
	c.mu.Lock()
	c.orders = orders
	c.mu.Unlock()
	return nil
}

// Orders returns the current snapshot.
func (c *Cook) Orders() []Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Order(nil), c.orders...)
}

// MarkReady advances one unit of itemName and re-fetches. It reports
// whether the order completed.
func (c *Cook) MarkReady(ctx context.Context, orderID uuid.UUID, itemName string) (bool, error) {
	res, err := c.api.MarkReady(ctx, orderID, itemName)
	if err != nil {
		return false, fmt.Errorf("mark %s ready: %w", itemName, err)
	}
	if err := c.Refresh(ctx); err != nil {
		c.logger.Warn("cook refresh after mark ready failed", zap.Error(err))
	}
	return res.Completed, nil
}

func (c *Cook) dropTable(table int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.orders[:0:0]
	for _, o := range c.orders {
		if o.TableNumber != table {
			kept = append(kept, o)
		}
	}
	c.orders = kept
}

// Attach re-fetches on every broadcast and on reconnect. A completed table
// is dropped from the snapshot right away.
func (c *Cook) Attach(events Events) func() {
	refresh := func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		if err := c.Refresh(ctx); err != nil {
			c.logger.Warn("cook refresh failed", zap.Error(err))
		}
	}
	removeHook := events.OnConnect(refresh)
	changed := events.Subscribe(enum.EventOrderChanged, func(ws.Event) { refresh() })
	completed := events.Subscribe(enum.EventOrderCompleted, func(ev ws.Event) {
		if t := ev.Table(); t > 0 {
			c.dropTable(t)
		}
		refresh()
	})
	return func() {
		events.Unsubscribe(changed)
		events.Unsubscribe(completed)
		removeHook()
	}
}

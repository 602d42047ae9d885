package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tableside/api/internal/enum"
	"github.com/tableside/api/internal/ws"
	"go.uber.org/zap"
)

var (
	ErrNoTable         = errors.New("enter a table number first")
	ErrUnknownMenuItem = errors.New("item is not on the menu")
	ErrOutOfStock      = errors.New("item is out of stock")
	ErrNothingToSend   = errors.New("no orders for this table")
)

// refreshTimeout bounds a re-fetch triggered by an event.
const refreshTimeout = 10 * time.Second

// Events is what a dashboard attaches to. Satisfied by *Listener.
type Events interface {
	Subscribe(kind string, fn func(ws.Event)) uuid.UUID
	Unsubscribe(id uuid.UUID)
	// OnConnect registers a hook run after every (re)connect and returns a
	// func that removes it.
	OnConnect(fn func()) func()
}

// DefaultMenu is shown when the server has no menu or cannot be reached.
func DefaultMenu() []MenuItem {
	return []MenuItem{
		{Name: "Pizza", AvailableQty: 10},
		{Name: "Burger", AvailableQty: 15},
		{Name: "French Fries", AvailableQty: 20},
		{Name: "Coke", AvailableQty: 30},
	}
}

// Waiter stages lines per table before sending them to the kitchen. Stock
// counts are advisory and local: staging decrements them here only, the
// server never sees or checks them, so two waiters can oversell.
type Waiter struct {
	api    API
	logger *zap.Logger

	mu          sync.Mutex
	menu        []MenuItem
	outstanding map[int32][]Line
	staged      map[int32][]SubmitLine
}

func NewWaiter(api API, logger *zap.Logger) *Waiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Waiter{
		api:         api,
		logger:      logger,
		outstanding: make(map[int32][]Line),
		staged:      make(map[int32][]SubmitLine),
	}
}

// LoadMenu fetches the menu once, falling back to DefaultMenu. It resets
// the advisory stock.
func (w *Waiter) LoadMenu(ctx context.Context) {
	items, err := w.api.Menu(ctx)
	if err != nil {
		w.logger.Warn("fetch menu failed, using default menu", zap.Error(err))
	}
	if len(items) == 0 {
		items = DefaultMenu()
	}
	w.mu.Lock()
	w.menu = items
	w.mu.Unlock()
}

// Refresh replaces the server view of every table. Staged lines are kept.
func (w *Waiter) Refresh(ctx context.Context) error {
	orders, err := w.api.Orders(ctx)
	if err != nil {
		return fmt.Errorf("fetch orders: %w", err)
	}
	byTable := make(map[int32][]Line, len(orders))
	for _, o := range orders {
		byTable[o.TableNumber] = o.Lines
	}
	w.mu.Lock()
	w.outstanding = byTable
	w.mu.Unlock()
	return nil
}

// Stage adds one unit of itemName to the table's unsent lines and takes one
// from the local stock.
func (w *Waiter) Stage(table int32, itemName string) error {
	if table <= 0 {
		return ErrNoTable
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	idx := -1
	for i, it := range w.menu {
		if it.Name == itemName {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownMenuItem, itemName)
	}
	if w.menu[idx].AvailableQty <= 0 {
		return fmt.Errorf("%w: %s", ErrOutOfStock, itemName)
	}
	w.menu[idx].AvailableQty--

	lines := w.staged[table]
	for i := range lines {
		if lines[i].Name == itemName {
			lines[i].Quantity++
			return nil
		}
	}
	w.staged[table] = append(lines, SubmitLine{Name: itemName, Quantity: 1})
	return nil
}

// Send submits the table's full line list: what the kitchen still has to
// prepare plus the staged lines. The server replaces the order wholesale,
// so lines already delivered are left out. Staging is cleared on success.
func (w *Waiter) Send(ctx context.Context, table int32) error {
	if table <= 0 {
		return ErrNoTable
	}

	w.mu.Lock()
	lines := mergeLines(w.outstanding[table], w.staged[table])
	w.mu.Unlock()

	if len(lines) == 0 {
		return ErrNothingToSend
	}
	if err := w.api.Submit(ctx, table, lines); err != nil {
		return fmt.Errorf("submit table %d: %w", table, err)
	}

	w.mu.Lock()
	delete(w.staged, table)
	w.mu.Unlock()
	return nil
}

func mergeLines(outstanding []Line, staged []SubmitLine) []SubmitLine {
	var out []SubmitLine
	pos := make(map[string]int)
	for _, l := range outstanding {
		if l.Quantity <= 0 || l.Status == enum.LineStatusReady {
			continue
		}
		pos[l.Name] = len(out)
		out = append(out, SubmitLine{Name: l.Name, Quantity: l.Quantity})
	}
	for _, s := range staged {
		if i, ok := pos[s.Name]; ok {
			out[i].Quantity += s.Quantity
			continue
		}
		pos[s.Name] = len(out)
		out = append(out, s)
	}
	return out
}

func (w *Waiter) Menu() []MenuItem {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]MenuItem(nil), w.menu...)
}

func (w *Waiter) Staged(table int32) []SubmitLine {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]SubmitLine(nil), w.staged[table]...)
}

// Outstanding returns the server's lines for the table as last fetched.
func (w *Waiter) Outstanding(table int32) []Line {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Line(nil), w.outstanding[table]...)
}

// Pending sums the unsent staged value for a table at menu prices.
func (w *Waiter) Pending(table int32) decimal.Decimal {
	w.mu.Lock()
	defer w.mu.Unlock()
	sum := decimal.Zero
	for _, s := range w.staged[table] {
		for _, it := range w.menu {
			if it.Name == s.Name && it.Price.Valid {
				sum = sum.Add(it.Price.Decimal.Mul(decimal.NewFromInt32(s.Quantity)))
			}
		}
	}
	return sum
}

// Attach re-fetches orders on every broadcast and on reconnect. The
// returned func detaches.
func (w *Waiter) Attach(events Events) func() {
	refresh := func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		if err := w.Refresh(ctx); err != nil {
			w.logger.Warn("waiter refresh failed", zap.Error(err))
		}
	}
	removeHook := events.OnConnect(refresh)
	id := events.Subscribe("", func(ws.Event) { refresh() })
	return func() {
		events.Unsubscribe(id)
		removeHook()
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tableside/api/internal/database"
	"github.com/tableside/api/internal/enum"
	"github.com/tableside/api/internal/ws"
	"go.uber.org/zap"
)

// Errors returned by the order service.
var (
	ErrValidation    = errors.New("invalid order data")
	ErrUnknownItem   = errors.New("menu item not found")
	ErrOrderNotFound = errors.New("order not found")
	ErrItemNotFound  = errors.New("item not found in order")
	ErrAlreadyReady  = errors.New("item already marked as ready")
	ErrNoActiveOrder = errors.New("no active order for this table")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// DB is a pool that can both run queries and start transactions.
// Satisfied by *pgxpool.Pool.
type DB interface {
	database.DBTX
	TxBeginner
}

// OrderStore defines the DB methods needed by the order lifecycle.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetMenuItemByName(ctx context.Context, name string) (database.MenuItem, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetOrderByTable(ctx context.Context, tableNumber int32) (database.Order, error)
	ListOrders(ctx context.Context) ([]database.Order, error)
	UpsertOrderByTable(ctx context.Context, arg database.UpsertOrderByTableParams) (database.Order, error)
	UpdateOrderLines(ctx context.Context, arg database.UpdateOrderLinesParams) (database.Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) (int64, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// Broadcaster publishes order notifications. Satisfied by *ws.Hub.
type Broadcaster interface {
	OrderChanged(table int32)
	OrderCompleted(table int32)
}

// SubmitRequest is the waiter's full line list for one table.
type SubmitRequest struct {
	TableNumber int32
	Lines       []SubmitLine
}

type SubmitLine struct {
	Name     string
	Quantity int32
}

// AdvanceResult describes the order after one unit of an item was marked
// ready. When Completed is true the order no longer exists in the store and
// Order is the last snapshot before deletion.
type AdvanceResult struct {
	Order       database.Order
	TableNumber int32
	Completed   bool
}

// OrderService handles the order lifecycle: submission, per-unit
// advancement and completion.
type OrderService struct {
	db       DB
	newStore NewOrderStore
	events   Broadcaster
	logger   *zap.Logger
}

// NewOrderService creates a new OrderService.
func NewOrderService(db DB, newStore NewOrderStore, events Broadcaster, logger *zap.Logger) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{db: db, newStore: newStore, events: events, logger: logger}
}

// Submit creates the table's order or replaces its whole line list. Prices
// are copied from the menu at this point. Nothing is saved if any line
// references an unknown item. A name may appear only once per submission:
// lines are matched by name when advancing, so a second line with the same
// name could never become ready. Duplicates are rejected with ErrValidation.
func (s *OrderService) Submit(ctx context.Context, req SubmitRequest) error {
	if err := validateSubmit(req); err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	lines := make(database.OrderLines, 0, len(req.Lines))
	for i, l := range req.Lines {
		name := strings.TrimSpace(l.Name)
		item, err := store.GetMenuItemByName(ctx, name)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: %s", ErrUnknownItem, name)
			}
			return fmt.Errorf("lines[%d]: get menu item: %w", i, err)
		}
		lines = append(lines, database.OrderLine{
			Name:     item.Name,
			Quantity: l.Quantity,
			Price:    item.UnitPrice(),
			Status:   enum.LineStatusPending,
		})
	}

	order, err := store.UpsertOrderByTable(ctx, database.UpsertOrderByTableParams{
		TableNumber: req.TableNumber,
		Lines:       lines,
	})
	if err != nil {
		return fmt.Errorf("upsert order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	s.logger.Info("order submitted",
		zap.String("order_id", order.ID.String()),
		zap.Int32("table", order.TableNumber),
		zap.Int("lines", len(order.Lines)))
	s.events.OrderChanged(order.TableNumber)
	return nil
}

func validateSubmit(req SubmitRequest) error {
	if req.TableNumber <= 0 {
		return fmt.Errorf("%w: table_number is required", ErrValidation)
	}
	if len(req.Lines) == 0 {
		return fmt.Errorf("%w: lines are required", ErrValidation)
	}
	seen := make(map[string]bool, len(req.Lines))
	for i, l := range req.Lines {
		name := strings.TrimSpace(l.Name)
		if name == "" {
			return fmt.Errorf("%w: lines[%d]: name is required", ErrValidation, i)
		}
		if l.Quantity <= 0 {
			return fmt.Errorf("%w: lines[%d]: quantity must be > 0", ErrValidation, i)
		}
		if seen[name] {
			return fmt.Errorf("%w: lines[%d]: duplicate item %s", ErrValidation, i, name)
		}
		seen[name] = true
	}
	return nil
}

// AdvanceItem marks one unit of itemName as prepared. The line becomes ready
// when its quantity reaches zero; the order is deleted when every line is
// ready. The whole read-modify-write runs in one transaction holding the
// order's row lock, so concurrent advances cannot lose a decrement or delete
// twice. Notifications are sent only after commit.
func (s *OrderService) AdvanceItem(ctx context.Context, orderID uuid.UUID, itemName string) (*AdvanceResult, error) {
	if itemName == "" {
		return nil, fmt.Errorf("%w: item name is required", ErrValidation)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	idx := order.Lines.Find(itemName)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, itemName)
	}

	line := &order.Lines[idx]
	if line.Quantity <= 0 || line.IsReady() {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyReady, itemName)
	}
	line.Quantity--
	if line.Quantity == 0 {
		line.Status = enum.LineStatusReady
	}

	updated, err := store.UpdateOrderLines(ctx, database.UpdateOrderLinesParams{
		ID:    order.ID,
		Lines: order.Lines,
	})
	if err != nil {
		return nil, fmt.Errorf("update order lines: %w", err)
	}

	result := &AdvanceResult{Order: updated, TableNumber: updated.TableNumber}
	if updated.Lines.AllReady() {
		if _, err := store.DeleteOrder(ctx, updated.ID); err != nil {
			return nil, fmt.Errorf("delete completed order: %w", err)
		}
		result.Completed = true
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	if result.Completed {
		s.logger.Info("order completed",
			zap.String("order_id", updated.ID.String()),
			zap.Int32("table", updated.TableNumber))
		s.events.OrderCompleted(updated.TableNumber)
	} else {
		s.events.OrderChanged(updated.TableNumber)
	}
	return result, nil
}

// ListOrders returns every active order.
func (s *OrderService) ListOrders(ctx context.Context) ([]database.Order, error) {
	orders, err := s.newStore(s.db).ListOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// GetOrder returns one active order.
func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	order, err := s.newStore(s.db).GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// HandleInbound handles a dashboard's "order changed for table N" message:
// it re-reads the table's order and broadcasts order-completed if every
// line is ready, order-changed otherwise. A message without a table is
// re-broadcast as a plain hint.
func (s *OrderService) HandleInbound(ctx context.Context, ev ws.Event) {
	if ev.Type != enum.EventOrderChanged {
		s.logger.Debug("ignoring inbound event", zap.String("type", ev.Type))
		return
	}

	table := ev.Table()
	if table <= 0 {
		s.events.OrderChanged(0)
		return
	}

	order, err := s.newStore(s.db).GetOrderByTable(ctx, table)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("inbound update for table without order", zap.Int32("table", table))
			return
		}
		s.logger.Error("inbound update: get order", zap.Int32("table", table), zap.Error(err))
		return
	}

	if order.Lines.AllReady() {
		s.events.OrderCompleted(table)
		return
	}
	s.events.OrderChanged(table)
}

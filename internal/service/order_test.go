package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/tableside/api/internal/database"
	"github.com/tableside/api/internal/enum"
	"github.com/tableside/api/internal/ws"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr error
	committed bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitErr == nil {
		m.committed = true
	}
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error { return nil }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockDB implements DB. Query methods panic: the store factory ignores them.
type mockDB struct {
	tx  *mockTx
	err error
}

func (m *mockDB) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.tx, nil
}
func (m *mockDB) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockDB) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockDB) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	panic("not implemented")
}

// memStore is an in-memory OrderStore. It keeps the one-order-per-table
// rule and recomputes totals on every write, like the SQL queries do.
type memStore struct {
	mu     sync.Mutex
	menu   map[string]database.MenuItem
	orders map[uuid.UUID]database.Order

	upsertErr error
	updateErr error
}

func newMemStore() *memStore {
	return &memStore{
		menu: map[string]database.MenuItem{
			"Pizza":        {Name: "Pizza", AvailableQty: 10, Price: decimal.NewNullDecimal(decimal.RequireFromString("10.0"))},
			"Coke":         {Name: "Coke", AvailableQty: 50, Price: decimal.NewNullDecimal(decimal.RequireFromString("2.5"))},
			"Burger":       {Name: "Burger", AvailableQty: 20, Price: decimal.NewNullDecimal(decimal.RequireFromString("8.5"))},
			"Mystery Dish": {Name: "Mystery Dish", AvailableQty: 1},
		},
		orders: make(map[uuid.UUID]database.Order),
	}
}

func cloneLines(ls database.OrderLines) database.OrderLines {
	out := make(database.OrderLines, len(ls))
	copy(out, ls)
	return out
}

func (m *memStore) GetMenuItemByName(ctx context.Context, name string) (database.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.menu[name]
	if !ok {
		return database.MenuItem{}, pgx.ErrNoRows
	}
	return item, nil
}

func (m *memStore) GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	o.Lines = cloneLines(o.Lines)
	return o, nil
}

func (m *memStore) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.GetOrder(ctx, id)
}

func (m *memStore) GetOrderByTable(ctx context.Context, table int32) (database.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.TableNumber == table {
			o.Lines = cloneLines(o.Lines)
			return o, nil
		}
	}
	return database.Order{}, pgx.ErrNoRows
}

func (m *memStore) ListOrders(ctx context.Context) ([]database.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]database.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, o)
	}
	return out, nil
}

func (m *memStore) UpsertOrderByTable(ctx context.Context, arg database.UpsertOrderByTableParams) (database.Order, error) {
	if m.upsertErr != nil {
		return database.Order{}, m.upsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	lines := cloneLines(arg.Lines)
	total := lines.Recompute()
	for id, o := range m.orders {
		if o.TableNumber == arg.TableNumber {
			o.Lines, o.Total = lines, total
			m.orders[id] = o
			return o, nil
		}
	}
	o := database.Order{ID: uuid.New(), TableNumber: arg.TableNumber, Lines: lines, Total: total}
	m.orders[o.ID] = o
	return o, nil
}

func (m *memStore) UpdateOrderLines(ctx context.Context, arg database.UpdateOrderLinesParams) (database.Order, error) {
	if m.updateErr != nil {
		return database.Order{}, m.updateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[arg.ID]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	o.Lines = cloneLines(arg.Lines)
	o.Total = o.Lines.Recompute()
	m.orders[arg.ID] = o
	return o, nil
}

func (m *memStore) DeleteOrder(ctx context.Context, id uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return 0, nil
	}
	delete(m.orders, id)
	return 1, nil
}

// recorder implements Broadcaster.
type recorder struct {
	mu     sync.Mutex
	events []ws.Event
}

func (r *recorder) OrderChanged(table int32) {
	r.add(enum.EventOrderChanged, table)
}

func (r *recorder) OrderCompleted(table int32) {
	r.add(enum.EventOrderCompleted, table)
}

func (r *recorder) add(kind string, table int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var payload any
	if table != 0 {
		payload = ws.TablePayload{TableNumber: table}
	}
	ev, _ := ws.NewEvent(kind, payload)
	r.events = append(r.events, ev)
}

func (r *recorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

// --- Test helpers ---

func newTestService(store *memStore) (*OrderService, *mockTx, *recorder) {
	tx := &mockTx{}
	rec := &recorder{}
	newStore := func(db database.DBTX) OrderStore { return store }
	return NewOrderService(&mockDB{tx: tx}, newStore, rec, nil), tx, rec
}

func submit(t *testing.T, svc *OrderService, table int32, lines ...SubmitLine) {
	t.Helper()
	if err := svc.Submit(context.Background(), SubmitRequest{TableNumber: table, Lines: lines}); err != nil {
		t.Fatalf("submit: %v", err)
	}
}

func orderFor(t *testing.T, store *memStore, table int32) database.Order {
	t.Helper()
	o, err := store.GetOrderByTable(context.Background(), table)
	if err != nil {
		t.Fatalf("order for table %d: %v", table, err)
	}
	return o
}

func decEq(t *testing.T, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("amount: got %s, want %s", got, want)
	}
}

// =====================
// Submit
// =====================

func TestSubmit_CreatesOrderWithSnapshotPrices(t *testing.T) {
	store := newMemStore()
	svc, tx, rec := newTestService(store)

	submit(t, svc, 5, SubmitLine{Name: "Pizza", Quantity: 2}, SubmitLine{Name: "Coke", Quantity: 3})

	o := orderFor(t, store, 5)
	if len(o.Lines) != 2 {
		t.Fatalf("lines: got %d, want 2", len(o.Lines))
	}
	for _, l := range o.Lines {
		if l.Status != enum.LineStatusPending {
			t.Errorf("%s status: got %s, want pending", l.Name, l.Status)
		}
	}
	decEq(t, o.Lines[0].Price, "10.0")
	decEq(t, o.Lines[0].Total, "20.0")
	decEq(t, o.Lines[1].Total, "7.5")
	decEq(t, o.Total, "27.5")

	if !tx.committed {
		t.Error("expected commit")
	}
	if got := rec.kinds(); len(got) != 1 || got[0] != enum.EventOrderChanged {
		t.Errorf("events: got %v, want [order-changed]", got)
	}
}

func TestSubmit_ReplacesWholeLineList(t *testing.T) {
	store := newMemStore()
	svc, _, _ := newTestService(store)

	submit(t, svc, 5, SubmitLine{Name: "Pizza", Quantity: 2})
	first := orderFor(t, store, 5)

	submit(t, svc, 5, SubmitLine{Name: "Burger", Quantity: 1})
	second := orderFor(t, store, 5)

	if first.ID != second.ID {
		t.Error("expected the same order to be replaced")
	}
	if len(second.Lines) != 1 || second.Lines[0].Name != "Burger" {
		t.Errorf("lines after resubmit: %+v", second.Lines)
	}
	decEq(t, second.Total, "8.5")
	if len(store.orders) != 1 {
		t.Errorf("orders: got %d, want 1", len(store.orders))
	}
}

func TestSubmit_NullPriceIsZero(t *testing.T) {
	store := newMemStore()
	svc, _, _ := newTestService(store)

	submit(t, svc, 2, SubmitLine{Name: "Mystery Dish", Quantity: 4})

	o := orderFor(t, store, 2)
	decEq(t, o.Lines[0].Price, "0")
	decEq(t, o.Total, "0")
}

func TestSubmit_UnknownItemSavesNothing(t *testing.T) {
	store := newMemStore()
	svc, tx, rec := newTestService(store)

	err := svc.Submit(context.Background(), SubmitRequest{
		TableNumber: 5,
		Lines: []SubmitLine{
			{Name: "Pizza", Quantity: 1},
			{Name: "Unicorn Steak", Quantity: 1},
		},
	})
	if !errors.Is(err, ErrUnknownItem) {
		t.Fatalf("expected ErrUnknownItem, got: %v", err)
	}
	if len(store.orders) != 0 {
		t.Error("expected no order to be saved")
	}
	if tx.committed {
		t.Error("expected no commit")
	}
	if len(rec.kinds()) != 0 {
		t.Error("expected no broadcast on failure")
	}
}

func TestSubmit_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  SubmitRequest
	}{
		{"missing table", SubmitRequest{Lines: []SubmitLine{{Name: "Pizza", Quantity: 1}}}},
		{"negative table", SubmitRequest{TableNumber: -1, Lines: []SubmitLine{{Name: "Pizza", Quantity: 1}}}},
		{"no lines", SubmitRequest{TableNumber: 1}},
		{"blank name", SubmitRequest{TableNumber: 1, Lines: []SubmitLine{{Name: " ", Quantity: 1}}}},
		{"zero quantity", SubmitRequest{TableNumber: 1, Lines: []SubmitLine{{Name: "Pizza", Quantity: 0}}}},
		{"duplicate item", SubmitRequest{TableNumber: 1, Lines: []SubmitLine{{Name: "Pizza", Quantity: 1}, {Name: "Pizza", Quantity: 2}}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemStore()
			svc, _, rec := newTestService(store)

			err := svc.Submit(context.Background(), tc.req)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got: %v", err)
			}
			if len(store.orders) != 0 || len(rec.kinds()) != 0 {
				t.Error("expected no side effects")
			}
		})
	}
}

func TestSubmit_StoreErrorNoBroadcast(t *testing.T) {
	store := newMemStore()
	store.upsertErr = errors.New("connection reset")
	svc, _, rec := newTestService(store)

	err := svc.Submit(context.Background(), SubmitRequest{TableNumber: 1, Lines: []SubmitLine{{Name: "Pizza", Quantity: 1}}})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(rec.kinds()) != 0 {
		t.Error("expected no broadcast on failure")
	}
}

func TestSubmit_CommitErrorNoBroadcast(t *testing.T) {
	store := newMemStore()
	svc, tx, rec := newTestService(store)
	tx.commitErr = errors.New("commit failed")

	err := svc.Submit(context.Background(), SubmitRequest{TableNumber: 1, Lines: []SubmitLine{{Name: "Pizza", Quantity: 1}}})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(rec.kinds()) != 0 {
		t.Error("expected no broadcast when commit fails")
	}
}

func TestSubmit_BeginError(t *testing.T) {
	store := newMemStore()
	rec := &recorder{}
	svc := NewOrderService(&mockDB{err: errors.New("pool closed")}, func(db database.DBTX) OrderStore { return store }, rec, nil)

	err := svc.Submit(context.Background(), SubmitRequest{TableNumber: 1, Lines: []SubmitLine{{Name: "Pizza", Quantity: 1}}})
	if err == nil {
		t.Fatal("expected error")
	}
}

// =====================
// AdvanceItem
// =====================

func TestAdvanceItem_DecrementsOneUnit(t *testing.T) {
	store := newMemStore()
	svc, _, rec := newTestService(store)
	submit(t, svc, 5, SubmitLine{Name: "Pizza", Quantity: 2}, SubmitLine{Name: "Coke", Quantity: 1})
	o := orderFor(t, store, 5)

	res, err := svc.AdvanceItem(context.Background(), o.ID, "Pizza")
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if res.Completed {
		t.Fatal("order should not be complete")
	}
	line := res.Order.Lines[res.Order.Lines.Find("Pizza")]
	if line.Quantity != 1 || line.Status != enum.LineStatusPending {
		t.Errorf("pizza: got qty=%d status=%s, want 1 pending", line.Quantity, line.Status)
	}
	decEq(t, res.Order.Total, "12.5")

	kinds := rec.kinds()
	if kinds[len(kinds)-1] != enum.EventOrderChanged {
		t.Errorf("last event: got %s, want order-changed", kinds[len(kinds)-1])
	}
}

func TestAdvanceItem_LineBecomesReadyAtZero(t *testing.T) {
	store := newMemStore()
	svc, _, _ := newTestService(store)
	submit(t, svc, 5, SubmitLine{Name: "Pizza", Quantity: 1}, SubmitLine{Name: "Coke", Quantity: 1})
	o := orderFor(t, store, 5)

	res, err := svc.AdvanceItem(context.Background(), o.ID, "Pizza")
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	line := res.Order.Lines[res.Order.Lines.Find("Pizza")]
	if line.Quantity != 0 || !line.IsReady() {
		t.Errorf("pizza: got qty=%d status=%s, want 0 ready", line.Quantity, line.Status)
	}
	decEq(t, line.Total, "0")
}

func TestAdvanceItem_CompletesAndDeletes(t *testing.T) {
	store := newMemStore()
	svc, _, rec := newTestService(store)

	// table 5: Pizza x2 at 10.0
	submit(t, svc, 5, SubmitLine{Name: "Pizza", Quantity: 2})
	o := orderFor(t, store, 5)
	decEq(t, o.Total, "20.0")

	bills := NewBillService(store)

	if _, err := svc.AdvanceItem(context.Background(), o.ID, "Pizza"); err != nil {
		t.Fatalf("first advance: %v", err)
	}
	decEq(t, orderFor(t, store, 5).Total, "10.0")

	bill, err := bills.ComputeBill(context.Background(), 5)
	if err != nil {
		t.Fatalf("bill after first advance: %v", err)
	}
	decEq(t, bill.Total, "10.0")

	res, err := svc.AdvanceItem(context.Background(), o.ID, "Pizza")
	if err != nil {
		t.Fatalf("second advance: %v", err)
	}
	if !res.Completed || res.TableNumber != 5 {
		t.Errorf("result: got completed=%v table=%d", res.Completed, res.TableNumber)
	}
	if _, err := store.GetOrder(context.Background(), o.ID); !errors.Is(err, pgx.ErrNoRows) {
		t.Error("expected order to be deleted")
	}
	if _, err := bills.ComputeBill(context.Background(), 5); !errors.Is(err, ErrNoActiveOrder) {
		t.Errorf("bill after completion: got %v, want ErrNoActiveOrder", err)
	}

	kinds := rec.kinds()
	want := []string{enum.EventOrderChanged, enum.EventOrderChanged, enum.EventOrderCompleted}
	if len(kinds) != len(want) {
		t.Fatalf("events: got %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("event %d: got %s, want %s", i, kinds[i], want[i])
		}
	}
	if rec.events[2].Table() != 5 {
		t.Errorf("completed table: got %d, want 5", rec.events[2].Table())
	}
}

func TestAdvanceItem_AlreadyReady(t *testing.T) {
	store := newMemStore()
	svc, _, rec := newTestService(store)
	submit(t, svc, 5, SubmitLine{Name: "Pizza", Quantity: 1}, SubmitLine{Name: "Coke", Quantity: 1})
	o := orderFor(t, store, 5)

	if _, err := svc.AdvanceItem(context.Background(), o.ID, "Pizza"); err != nil {
		t.Fatalf("advance: %v", err)
	}
	before := len(rec.kinds())

	_, err := svc.AdvanceItem(context.Background(), o.ID, "Pizza")
	if !errors.Is(err, ErrAlreadyReady) {
		t.Fatalf("expected ErrAlreadyReady, got: %v", err)
	}
	if len(rec.kinds()) != before {
		t.Error("expected no broadcast on failure")
	}
	line := orderFor(t, store, 5).Lines[0]
	if line.Quantity != 0 || !line.IsReady() {
		t.Error("ready line must stay unchanged")
	}
}

func TestAdvanceItem_QuantityThreeNeedsThreeCalls(t *testing.T) {
	store := newMemStore()
	svc, _, _ := newTestService(store)
	submit(t, svc, 4, SubmitLine{Name: "Coke", Quantity: 3}, SubmitLine{Name: "Burger", Quantity: 1})
	o := orderFor(t, store, 4)

	for i := 1; i <= 3; i++ {
		res, err := svc.AdvanceItem(context.Background(), o.ID, "Coke")
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		coke := res.Order.Lines[res.Order.Lines.Find("Coke")]
		if coke.IsReady() != (i == 3) {
			t.Errorf("call %d: ready=%v", i, coke.IsReady())
		}
	}

	if _, err := svc.AdvanceItem(context.Background(), o.ID, "Coke"); !errors.Is(err, ErrAlreadyReady) {
		t.Fatalf("4th call: expected ErrAlreadyReady, got: %v", err)
	}
}

func TestAdvanceItem_OrderNotFound(t *testing.T) {
	store := newMemStore()
	svc, _, rec := newTestService(store)

	_, err := svc.AdvanceItem(context.Background(), uuid.New(), "Pizza")
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got: %v", err)
	}
	if len(rec.kinds()) != 0 {
		t.Error("expected no broadcast")
	}
}

func TestAdvanceItem_ItemNotFound(t *testing.T) {
	store := newMemStore()
	svc, _, _ := newTestService(store)
	submit(t, svc, 5, SubmitLine{Name: "Pizza", Quantity: 1})
	o := orderFor(t, store, 5)

	_, err := svc.AdvanceItem(context.Background(), o.ID, "Burger")
	if !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got: %v", err)
	}
}

func TestAdvanceItem_EmptyName(t *testing.T) {
	svc, _, _ := newTestService(newMemStore())

	_, err := svc.AdvanceItem(context.Background(), uuid.New(), "")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got: %v", err)
	}
}

func TestAdvanceItem_UpdateErrorNoBroadcast(t *testing.T) {
	store := newMemStore()
	svc, _, rec := newTestService(store)
	submit(t, svc, 5, SubmitLine{Name: "Pizza", Quantity: 2})
	o := orderFor(t, store, 5)
	store.updateErr = errors.New("disk full")
	before := len(rec.kinds())

	if _, err := svc.AdvanceItem(context.Background(), o.ID, "Pizza"); err == nil {
		t.Fatal("expected error")
	}
	if len(rec.kinds()) != before {
		t.Error("expected no broadcast on failure")
	}
}

// =====================
// Reads and inbound
// =====================

func TestGetOrder_NotFound(t *testing.T) {
	svc, _, _ := newTestService(newMemStore())

	_, err := svc.GetOrder(context.Background(), uuid.New())
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got: %v", err)
	}
}

func TestListOrders(t *testing.T) {
	store := newMemStore()
	svc, _, _ := newTestService(store)
	submit(t, svc, 1, SubmitLine{Name: "Pizza", Quantity: 1})
	submit(t, svc, 2, SubmitLine{Name: "Coke", Quantity: 1})

	orders, err := svc.ListOrders(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(orders) != 2 {
		t.Errorf("orders: got %d, want 2", len(orders))
	}
}

func inbound(kind string, table int32) ws.Event {
	var payload any
	if table != 0 {
		payload = ws.TablePayload{TableNumber: table}
	}
	ev, _ := ws.NewEvent(kind, payload)
	return ev
}

func TestHandleInbound(t *testing.T) {
	store := newMemStore()
	svc, _, rec := newTestService(store)
	submit(t, svc, 3, SubmitLine{Name: "Pizza", Quantity: 1})
	rec.events = nil

	svc.HandleInbound(context.Background(), inbound(enum.EventOrderChanged, 3))
	if got := rec.kinds(); len(got) != 1 || got[0] != enum.EventOrderChanged {
		t.Fatalf("pending order: got %v, want [order-changed]", got)
	}

	// mark every line ready without deleting, as a stale writer could
	o := orderFor(t, store, 3)
	o.Lines[0].Quantity = 0
	o.Lines[0].Status = enum.LineStatusReady
	store.orders[o.ID] = o
	rec.events = nil

	svc.HandleInbound(context.Background(), inbound(enum.EventOrderChanged, 3))
	if got := rec.kinds(); len(got) != 1 || got[0] != enum.EventOrderCompleted {
		t.Fatalf("ready order: got %v, want [order-completed]", got)
	}
}

func TestHandleInbound_NoOrderIsSilent(t *testing.T) {
	svc, _, rec := newTestService(newMemStore())

	svc.HandleInbound(context.Background(), inbound(enum.EventOrderChanged, 9))
	svc.HandleInbound(context.Background(), inbound("something-else", 9))

	if len(rec.kinds()) != 0 {
		t.Errorf("expected no events, got %v", rec.kinds())
	}
}

func TestHandleInbound_NoTableRebroadcasts(t *testing.T) {
	svc, _, rec := newTestService(newMemStore())

	svc.HandleInbound(context.Background(), inbound(enum.EventOrderChanged, 0))

	if got := rec.kinds(); len(got) != 1 || got[0] != enum.EventOrderChanged {
		t.Fatalf("got %v, want [order-changed]", got)
	}
	if rec.events[0].Table() != 0 {
		t.Error("expected no table in re-broadcast")
	}
}

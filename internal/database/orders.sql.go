package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const orderColumns = `id, table_number, lines, total, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o   Order
		raw []byte
	)
	if err := row.Scan(&o.ID, &o.TableNumber, &raw, &o.Total, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return Order{}, err
	}
	if err := json.Unmarshal(raw, &o.Lines); err != nil {
		return Order{}, fmt.Errorf("decode lines of order %s: %w", o.ID, err)
	}
	if o.Lines == nil {
		o.Lines = OrderLines{}
	}
	return o, nil
}

// encodeLines recomputes totals and serialises the document for storage.
func encodeLines(lines OrderLines) ([]byte, string, error) {
	total := lines.Recompute()
	raw, err := json.Marshal(lines)
	if err != nil {
		return nil, "", fmt.Errorf("encode lines: %w", err)
	}
	return raw, total.StringFixed(2), nil
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + ` FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const getOrderForUpdate = `-- name: GetOrderForUpdate :one
SELECT ` + orderColumns + ` FROM orders
WHERE id = $1
FOR UPDATE
`

// GetOrderForUpdate locks the order row until the surrounding transaction
// ends. Concurrent advances of the same order are serialised on it.
func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, id))
}

const getOrderByTable = `-- name: GetOrderByTable :one
SELECT ` + orderColumns + ` FROM orders
WHERE table_number = $1
`

func (q *Queries) GetOrderByTable(ctx context.Context, tableNumber int32) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderByTable, tableNumber))
}

const listOrders = `-- name: ListOrders :many
SELECT ` + orderColumns + ` FROM orders
ORDER BY created_at, table_number
`

func (q *Queries) ListOrders(ctx context.Context) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	orders := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

const upsertOrderByTable = `-- name: UpsertOrderByTable :one
INSERT INTO orders (table_number, lines, total)
VALUES ($1, $2::jsonb, $3::numeric)
ON CONFLICT (table_number) DO UPDATE
SET lines = EXCLUDED.lines,
    total = EXCLUDED.total,
    updated_at = now()
RETURNING ` + orderColumns + `
`

type UpsertOrderByTableParams struct {
	TableNumber int32
	Lines       OrderLines
}

// UpsertOrderByTable creates the table's order or replaces its whole line
// list. Lines are never merged with what was stored before.
func (q *Queries) UpsertOrderByTable(ctx context.Context, arg UpsertOrderByTableParams) (Order, error) {
	raw, total, err := encodeLines(arg.Lines)
	if err != nil {
		return Order{}, err
	}
	return scanOrder(q.db.QueryRow(ctx, upsertOrderByTable, arg.TableNumber, raw, total))
}

const updateOrderLines = `-- name: UpdateOrderLines :one
UPDATE orders
SET lines = $2::jsonb,
    total = $3::numeric,
    updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns + `
`

type UpdateOrderLinesParams struct {
	ID    uuid.UUID
	Lines OrderLines
}

func (q *Queries) UpdateOrderLines(ctx context.Context, arg UpdateOrderLinesParams) (Order, error) {
	raw, total, err := encodeLines(arg.Lines)
	if err != nil {
		return Order{}, err
	}
	return scanOrder(q.db.QueryRow(ctx, updateOrderLines, arg.ID, raw, total))
}

const deleteOrder = `-- name: DeleteOrder :execrows
DELETE FROM orders
WHERE id = $1
`

func (q *Queries) DeleteOrder(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteOrder, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

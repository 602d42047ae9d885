package database

import (
	"context"

	"github.com/shopspring/decimal"
)

const listMenuItems = `-- name: ListMenuItems :many
SELECT name, available_qty, price FROM menu_items
ORDER BY name
`

func (q *Queries) ListMenuItems(ctx context.Context) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listMenuItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []MenuItem{}
	for rows.Next() {
		var i MenuItem
		if err := rows.Scan(&i.Name, &i.AvailableQty, &i.Price); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getMenuItemByName = `-- name: GetMenuItemByName :one
SELECT name, available_qty, price FROM menu_items
WHERE name = $1
`

func (q *Queries) GetMenuItemByName(ctx context.Context, name string) (MenuItem, error) {
	row := q.db.QueryRow(ctx, getMenuItemByName, name)
	var i MenuItem
	err := row.Scan(&i.Name, &i.AvailableQty, &i.Price)
	return i, err
}

const upsertMenuItem = `-- name: UpsertMenuItem :one
INSERT INTO menu_items (name, available_qty, price)
VALUES ($1, $2, $3)
ON CONFLICT (name) DO UPDATE
SET available_qty = EXCLUDED.available_qty,
    price = EXCLUDED.price
RETURNING name, available_qty, price
`

type UpsertMenuItemParams struct {
	Name         string
	AvailableQty int32
	Price        decimal.NullDecimal
}

func (q *Queries) UpsertMenuItem(ctx context.Context, arg UpsertMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, upsertMenuItem, arg.Name, arg.AvailableQty, arg.Price)
	var i MenuItem
	err := row.Scan(&i.Name, &i.AvailableQty, &i.Price)
	return i, err
}

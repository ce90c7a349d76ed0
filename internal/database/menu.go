package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const menuCategoryColumns = `id, name, description, display_order, icon_url, is_active, created_at`

func scanMenuCategory(row interface{ Scan(dest ...any) error }) (MenuCategory, error) {
	var c MenuCategory
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Description,
		&c.DisplayOrder,
		&c.IconUrl,
		&c.IsActive,
		&c.CreatedAt,
	)
	return c, err
}

const menuItemColumns = `id, category_id, name, description, base_price, image_url, display_order,
	preparation_time, is_available, is_active, created_at, updated_at`

func scanMenuItem(row interface{ Scan(dest ...any) error }) (MenuItem, error) {
	var m MenuItem
	err := row.Scan(
		&m.ID,
		&m.CategoryID,
		&m.Name,
		&m.Description,
		&m.BasePrice,
		&m.ImageUrl,
		&m.DisplayOrder,
		&m.PreparationTime,
		&m.IsAvailable,
		&m.IsActive,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	return m, err
}

const listActiveCategories = `
SELECT ` + menuCategoryColumns + `
FROM menu_categories
WHERE is_active = true
ORDER BY display_order, name`

func (q *Queries) ListActiveCategories(ctx context.Context) ([]MenuCategory, error) {
	rows, err := q.db.Query(ctx, listActiveCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []MenuCategory
	for rows.Next() {
		c, err := scanMenuCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

type ListMenuRow struct {
	MenuItem
	CategoryName string
}

// ListMenu returns the customer-facing menu: active items of active
// categories in display order.
const listMenu = `
SELECT mi.id, mi.category_id, mi.name, mi.description, mi.base_price, mi.image_url, mi.display_order,
	mi.preparation_time, mi.is_available, mi.is_active, mi.created_at, mi.updated_at,
	mc.name AS category_name
FROM menu_items mi
JOIN menu_categories mc ON mc.id = mi.category_id
WHERE mi.is_active = true AND mc.is_active = true
ORDER BY mc.display_order, mi.display_order, mi.name`

func (q *Queries) ListMenu(ctx context.Context) ([]ListMenuRow, error) {
	rows, err := q.db.Query(ctx, listMenu)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ListMenuRow
	for rows.Next() {
		var r ListMenuRow
		if err := rows.Scan(
			&r.ID,
			&r.CategoryID,
			&r.Name,
			&r.Description,
			&r.BasePrice,
			&r.ImageUrl,
			&r.DisplayOrder,
			&r.PreparationTime,
			&r.IsAvailable,
			&r.IsActive,
			&r.CreatedAt,
			&r.UpdatedAt,
			&r.CategoryName,
		); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

type GetMenuItemForOrderRow struct {
	ID          uuid.UUID
	Name        string
	BasePrice   pgtype.Numeric
	IsAvailable bool
}

// GetMenuItemForOrder fetches the fields the order aggregator snapshots
// into order_items at submission time.
const getMenuItemForOrder = `
SELECT id, name, base_price, is_available
FROM menu_items
WHERE id = $1 AND is_active = true`

func (q *Queries) GetMenuItemForOrder(ctx context.Context, id uuid.UUID) (GetMenuItemForOrderRow, error) {
	var r GetMenuItemForOrderRow
	err := q.db.QueryRow(ctx, getMenuItemForOrder, id).Scan(&r.ID, &r.Name, &r.BasePrice, &r.IsAvailable)
	return r, err
}

type CreateMenuCategoryParams struct {
	Name         string
	Description  pgtype.Text
	DisplayOrder int32
	IconUrl      pgtype.Text
}

const createMenuCategory = `
INSERT INTO menu_categories (name, description, display_order, icon_url, is_active)
VALUES ($1, $2, $3, $4, true)
RETURNING ` + menuCategoryColumns

func (q *Queries) CreateMenuCategory(ctx context.Context, arg CreateMenuCategoryParams) (MenuCategory, error) {
	return scanMenuCategory(q.db.QueryRow(ctx, createMenuCategory,
		arg.Name,
		arg.Description,
		arg.DisplayOrder,
		arg.IconUrl,
	))
}

type UpdateMenuCategoryParams struct {
	ID           uuid.UUID
	Name         string
	Description  pgtype.Text
	DisplayOrder int32
	IconUrl      pgtype.Text
	IsActive     bool
}

const updateMenuCategory = `
UPDATE menu_categories
SET name = $2, description = $3, display_order = $4, icon_url = $5, is_active = $6
WHERE id = $1
RETURNING ` + menuCategoryColumns

func (q *Queries) UpdateMenuCategory(ctx context.Context, arg UpdateMenuCategoryParams) (MenuCategory, error) {
	return scanMenuCategory(q.db.QueryRow(ctx, updateMenuCategory,
		arg.ID,
		arg.Name,
		arg.Description,
		arg.DisplayOrder,
		arg.IconUrl,
		arg.IsActive,
	))
}

// DeactivateMenuCategory soft-deletes; historical order items keep their
// snapshots regardless.
const deactivateMenuCategory = `
UPDATE menu_categories SET is_active = false WHERE id = $1`

func (q *Queries) DeactivateMenuCategory(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deactivateMenuCategory, id)
	return err
}

type CreateMenuItemParams struct {
	CategoryID      uuid.UUID
	Name            string
	Description     pgtype.Text
	BasePrice       pgtype.Numeric
	ImageUrl        pgtype.Text
	DisplayOrder    int32
	PreparationTime pgtype.Int4
	IsAvailable     bool
}

const createMenuItem = `
INSERT INTO menu_items (category_id, name, description, base_price, image_url, display_order,
	preparation_time, is_available, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, true)
RETURNING ` + menuItemColumns

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, createMenuItem,
		arg.CategoryID,
		arg.Name,
		arg.Description,
		arg.BasePrice,
		arg.ImageUrl,
		arg.DisplayOrder,
		arg.PreparationTime,
		arg.IsAvailable,
	))
}

type UpdateMenuItemParams struct {
	ID              uuid.UUID
	CategoryID      uuid.UUID
	Name            string
	Description     pgtype.Text
	BasePrice       pgtype.Numeric
	ImageUrl        pgtype.Text
	DisplayOrder    int32
	PreparationTime pgtype.Int4
	IsAvailable     bool
}

const updateMenuItem = `
UPDATE menu_items
SET category_id = $2, name = $3, description = $4, base_price = $5, image_url = $6,
	display_order = $7, preparation_time = $8, is_available = $9, updated_at = now()
WHERE id = $1
RETURNING ` + menuItemColumns

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, updateMenuItem,
		arg.ID,
		arg.CategoryID,
		arg.Name,
		arg.Description,
		arg.BasePrice,
		arg.ImageUrl,
		arg.DisplayOrder,
		arg.PreparationTime,
		arg.IsAvailable,
	))
}

const deactivateMenuItem = `
UPDATE menu_items SET is_active = false, updated_at = now() WHERE id = $1`

func (q *Queries) DeactivateMenuItem(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deactivateMenuItem, id)
	return err
}

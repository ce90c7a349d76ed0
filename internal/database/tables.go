package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const tableColumns = `id, table_number, qr_code, capacity, location_zone, is_active, is_occupied, created_at, updated_at`

func scanTable(row interface{ Scan(dest ...any) error }) (Table, error) {
	var t Table
	err := row.Scan(
		&t.ID,
		&t.TableNumber,
		&t.QrCode,
		&t.Capacity,
		&t.LocationZone,
		&t.IsActive,
		&t.IsOccupied,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	return t, err
}

type CreateTableParams struct {
	TableNumber  string
	QrCode       string
	Capacity     int32
	LocationZone pgtype.Text
	IsActive     bool
}

const createTable = `
INSERT INTO tables (table_number, qr_code, capacity, location_zone, is_active, is_occupied)
VALUES ($1, $2, $3, $4, $5, false)
RETURNING ` + tableColumns

func (q *Queries) CreateTable(ctx context.Context, arg CreateTableParams) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, createTable,
		arg.TableNumber,
		arg.QrCode,
		arg.Capacity,
		arg.LocationZone,
		arg.IsActive,
	))
}

const getTable = `
SELECT ` + tableColumns + ` FROM tables WHERE id = $1`

func (q *Queries) GetTable(ctx context.Context, id uuid.UUID) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, getTable, id))
}

const getTableByNumber = `
SELECT ` + tableColumns + ` FROM tables WHERE table_number = $1`

func (q *Queries) GetTableByNumber(ctx context.Context, tableNumber string) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, getTableByNumber, tableNumber))
}

type ListTablesRow struct {
	Table
	OutstandingAmount pgtype.Numeric
	OpenOrderCount    int64
}

// ListTables returns every table with its open-order exposure, for the
// floor-plan view.
const listTables = `
SELECT t.id, t.table_number, t.qr_code, t.capacity, t.location_zone, t.is_active, t.is_occupied,
	t.created_at, t.updated_at,
	COALESCE(SUM(o.total_amount), 0) AS outstanding_amount,
	COUNT(o.id) AS open_order_count
FROM tables t
LEFT JOIN orders o ON o.table_id = t.id AND o.payment_status IN ('OUTSTANDING', 'PARTIALLY_PAID')
GROUP BY t.id
ORDER BY t.table_number`

func (q *Queries) ListTables(ctx context.Context) ([]ListTablesRow, error) {
	rows, err := q.db.Query(ctx, listTables)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []ListTablesRow
	for rows.Next() {
		var r ListTablesRow
		if err := rows.Scan(
			&r.ID,
			&r.TableNumber,
			&r.QrCode,
			&r.Capacity,
			&r.LocationZone,
			&r.IsActive,
			&r.IsOccupied,
			&r.CreatedAt,
			&r.UpdatedAt,
			&r.OutstandingAmount,
			&r.OpenOrderCount,
		); err != nil {
			return nil, err
		}
		tables = append(tables, r)
	}
	return tables, rows.Err()
}

type UpdateTableParams struct {
	ID           uuid.UUID
	TableNumber  string
	QrCode       string
	Capacity     int32
	LocationZone pgtype.Text
	IsActive     bool
	IsOccupied   bool
}

const updateTable = `
UPDATE tables
SET table_number = $2, qr_code = $3, capacity = $4, location_zone = $5,
	is_active = $6, is_occupied = $7, updated_at = now()
WHERE id = $1
RETURNING ` + tableColumns

func (q *Queries) UpdateTable(ctx context.Context, arg UpdateTableParams) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, updateTable,
		arg.ID,
		arg.TableNumber,
		arg.QrCode,
		arg.Capacity,
		arg.LocationZone,
		arg.IsActive,
		arg.IsOccupied,
	))
}

const deleteTable = `
DELETE FROM tables WHERE id = $1`

func (q *Queries) DeleteTable(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteTable, id)
	return err
}

package database

import (
	"context"
)

const customerColumns = `id, phone_number, full_name, is_guest, created_at`

func scanCustomer(row interface{ Scan(dest ...any) error }) (Customer, error) {
	var c Customer
	err := row.Scan(
		&c.ID,
		&c.PhoneNumber,
		&c.FullName,
		&c.IsGuest,
		&c.CreatedAt,
	)
	return c, err
}

const getCustomerByPhone = `
SELECT ` + customerColumns + ` FROM customers WHERE phone_number = $1`

func (q *Queries) GetCustomerByPhone(ctx context.Context, phoneNumber string) (Customer, error) {
	return scanCustomer(q.db.QueryRow(ctx, getCustomerByPhone, phoneNumber))
}

type CreateCustomerParams struct {
	PhoneNumber string
	FullName    string
	IsGuest     bool
}

const createCustomer = `
INSERT INTO customers (phone_number, full_name, is_guest)
VALUES ($1, $2, $3)
RETURNING ` + customerColumns

func (q *Queries) CreateCustomer(ctx context.Context, arg CreateCustomerParams) (Customer, error) {
	return scanCustomer(q.db.QueryRow(ctx, createCustomer,
		arg.PhoneNumber,
		arg.FullName,
		arg.IsGuest,
	))
}

package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const staffColumns = `id, employee_id, full_name, email, phone_number, username, password_hash,
	role, is_active, last_login_at, created_at`

func scanStaff(row interface{ Scan(dest ...any) error }) (Staff, error) {
	var s Staff
	err := row.Scan(
		&s.ID,
		&s.EmployeeID,
		&s.FullName,
		&s.Email,
		&s.PhoneNumber,
		&s.Username,
		&s.PasswordHash,
		&s.Role,
		&s.IsActive,
		&s.LastLoginAt,
		&s.CreatedAt,
	)
	return s, err
}

const getStaffByUsername = `
SELECT ` + staffColumns + ` FROM staff WHERE username = $1`

func (q *Queries) GetStaffByUsername(ctx context.Context, username string) (Staff, error) {
	return scanStaff(q.db.QueryRow(ctx, getStaffByUsername, username))
}

const getStaff = `
SELECT ` + staffColumns + ` FROM staff WHERE id = $1`

func (q *Queries) GetStaff(ctx context.Context, id uuid.UUID) (Staff, error) {
	return scanStaff(q.db.QueryRow(ctx, getStaff, id))
}

const listStaff = `
SELECT ` + staffColumns + ` FROM staff ORDER BY full_name`

func (q *Queries) ListStaff(ctx context.Context) ([]Staff, error) {
	rows, err := q.db.Query(ctx, listStaff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var staff []Staff
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		staff = append(staff, s)
	}
	return staff, rows.Err()
}

type CreateStaffParams struct {
	EmployeeID   string
	FullName     string
	Email        pgtype.Text
	PhoneNumber  pgtype.Text
	Username     string
	PasswordHash string
	Role         string
}

const createStaff = `
INSERT INTO staff (employee_id, full_name, email, phone_number, username, password_hash, role, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7, true)
RETURNING ` + staffColumns

func (q *Queries) CreateStaff(ctx context.Context, arg CreateStaffParams) (Staff, error) {
	return scanStaff(q.db.QueryRow(ctx, createStaff,
		arg.EmployeeID,
		arg.FullName,
		arg.Email,
		arg.PhoneNumber,
		arg.Username,
		arg.PasswordHash,
		arg.Role,
	))
}

type UpdateStaffParams struct {
	ID          uuid.UUID
	FullName    string
	Email       pgtype.Text
	PhoneNumber pgtype.Text
	Role        string
	IsActive    bool
}

const updateStaff = `
UPDATE staff
SET full_name = $2, email = $3, phone_number = $4, role = $5, is_active = $6
WHERE id = $1
RETURNING ` + staffColumns

func (q *Queries) UpdateStaff(ctx context.Context, arg UpdateStaffParams) (Staff, error) {
	return scanStaff(q.db.QueryRow(ctx, updateStaff,
		arg.ID,
		arg.FullName,
		arg.Email,
		arg.PhoneNumber,
		arg.Role,
		arg.IsActive,
	))
}

type UpdateStaffPasswordParams struct {
	ID           uuid.UUID
	PasswordHash string
}

const updateStaffPassword = `
UPDATE staff SET password_hash = $2 WHERE id = $1`

func (q *Queries) UpdateStaffPassword(ctx context.Context, arg UpdateStaffPasswordParams) error {
	_, err := q.db.Exec(ctx, updateStaffPassword, arg.ID, arg.PasswordHash)
	return err
}

const deactivateStaff = `
UPDATE staff SET is_active = false WHERE id = $1`

func (q *Queries) DeactivateStaff(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deactivateStaff, id)
	return err
}

const touchStaffLogin = `
UPDATE staff SET last_login_at = now() WHERE id = $1`

func (q *Queries) TouchStaffLogin(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, touchStaffLogin, id)
	return err
}

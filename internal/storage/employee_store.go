package storage

import (
	"context"
	"fmt"

	"github.com/finops-tools/staffload/internal/loader"
)

// Compile-time interface assertion.
var _ loader.Store = (*EmployeeStore)(nil)

const (
	nameCountQuery = `SELECT COUNT(*) FROM employee_table WHERE first_name = $1 AND last_name = $2`

	identifierCountQuery = `SELECT COUNT(*) FROM employee_table WHERE unique_id = $1`

	insertEmployeeQuery = `
		INSERT INTO employee_table
			(serial_number, first_name, last_name, salary, job_position, unique_id, phone_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
)

// EmployeeStore implements loader.Store on employee_table.
// The queries use $n placeholders, which both lib/pq and SQLite accept.
type EmployeeStore struct {
	conn *Connection
}

// NewEmployeeStore creates an employee store on an open connection.
// The connection is managed by the caller.
func NewEmployeeStore(conn *Connection) (*EmployeeStore, error) {
	if conn == nil {
		return nil, ErrNoDatabaseConnection
	}

	return &EmployeeStore{conn: conn}, nil
}

// NameExists reports whether an employee with this exact name pair exists.
func (s *EmployeeStore) NameExists(ctx context.Context, firstName, lastName string) (bool, error) {
	return s.exists(ctx, nameCountQuery, firstName, lastName)
}

// IdentifierExists reports whether uniqueID is already assigned.
func (s *EmployeeStore) IdentifierExists(ctx context.Context, uniqueID string) (bool, error) {
	return s.exists(ctx, identifierCountQuery, uniqueID)
}

// Insert writes one employee row.
func (s *EmployeeStore) Insert(ctx context.Context, employee *loader.Employee) error {
	_, err := s.conn.ExecContext(ctx, insertEmployeeQuery,
		employee.SerialNumber,
		employee.FirstName,
		employee.LastName,
		employee.Salary,
		employee.JobPosition,
		employee.UniqueID,
		employee.PhoneNumber,
	)
	if err != nil {
		return fmt.Errorf("failed to insert employee %s: %w", employee.UniqueID, err)
	}

	return nil
}

func (s *EmployeeStore) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var count int

	if err := s.conn.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to count employees: %w", err)
	}

	return count > 0, nil
}

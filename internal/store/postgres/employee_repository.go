// Copyright 2026 The FOSYS Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fosys/fosys/internal/authz"
	"github.com/fosys/fosys/internal/identity"
)

// EmployeeRepository implements identity.Repository. It also serves as
// authz.LegacyRoleSource and authn.EmployeeDirectory: both read the
// subject_id cross-reference off the same table.
type EmployeeRepository struct {
	db *DB
}

// NewEmployeeRepository creates a new employee repository
func NewEmployeeRepository(db *DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// Create inserts a new employee record
func (r *EmployeeRepository) Create(ctx context.Context, e *identity.Employee) error {
	now := time.Now()
	err := r.db.pool.QueryRow(ctx, `
		INSERT INTO employees (name, email, role, password_hash, subject_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, e.Name, e.Email, e.Role, e.PasswordHash, e.SubjectID, now, now).Scan(&e.ID)

	if err != nil {
		return fmt.Errorf("failed to insert employee: %w", err)
	}

	e.CreatedAt = now
	e.UpdatedAt = now
	return nil
}

const employeeColumns = `id, name, email, role, password_hash, subject_id, created_at, updated_at`

func scanEmployee(row pgx.Row) (*identity.Employee, error) {
	var e identity.Employee
	err := row.Scan(
		&e.ID, &e.Name, &e.Email, &e.Role,
		&e.PasswordHash, &e.SubjectID, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrEmployeeNotFound
		}
		return nil, fmt.Errorf("failed to scan employee: %w", err)
	}
	return &e, nil
}

// GetByID retrieves an employee by legacy id
func (r *EmployeeRepository) GetByID(ctx context.Context, id int64) (*identity.Employee, error) {
	row := r.db.pool.QueryRow(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id)
	return scanEmployee(row)
}

// GetByEmail retrieves an employee by email
func (r *EmployeeRepository) GetByEmail(ctx context.Context, email string) (*identity.Employee, error) {
	row := r.db.pool.QueryRow(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE email = $1`, email)
	return scanEmployee(row)
}

// GetBySubjectID retrieves an employee by provider subject id
func (r *EmployeeRepository) GetBySubjectID(ctx context.Context, subjectID string) (*identity.Employee, error) {
	row := r.db.pool.QueryRow(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE subject_id = $1`, subjectID)
	return scanEmployee(row)
}

// UpdateRole updates the denormalized legacy role field
func (r *EmployeeRepository) UpdateRole(ctx context.Context, id int64, legacyRole string) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE employees SET role = $2, updated_at = now() WHERE id = $1
	`, id, legacyRole)

	if err != nil {
		return fmt.Errorf("failed to update employee role: %w", err)
	}
	if result.RowsAffected() == 0 {
		return identity.ErrEmployeeNotFound
	}
	return nil
}

// LinkSubject stores the provider subject cross-reference
func (r *EmployeeRepository) LinkSubject(ctx context.Context, id int64, subjectID string) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE employees SET subject_id = $2, updated_at = now() WHERE id = $1
	`, id, subjectID)

	if err != nil {
		return fmt.Errorf("failed to link subject: %w", err)
	}
	if result.RowsAffected() == 0 {
		return identity.ErrEmployeeNotFound
	}
	return nil
}

// List retrieves all employees
func (r *EmployeeRepository) List(ctx context.Context) ([]*identity.Employee, error) {
	rows, err := r.db.pool.Query(ctx,
		`SELECT `+employeeColumns+` FROM employees ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var employees []*identity.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

// LegacyRoleBySubject reads the denormalized role for the employee linked
// to a provider subject. Implements authz.LegacyRoleSource.
func (r *EmployeeRepository) LegacyRoleBySubject(ctx context.Context, subjectID string) (string, error) {
	var role string
	err := r.db.pool.QueryRow(ctx,
		`SELECT role FROM employees WHERE subject_id = $1`, subjectID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", authz.ErrLegacyRoleNotFound
		}
		return "", fmt.Errorf("failed to read legacy role: %w", err)
	}
	return role, nil
}

// EmployeeBySubject bridges a provider subject to its legacy employee id.
// Implements authn.EmployeeDirectory.
func (r *EmployeeRepository) EmployeeBySubject(ctx context.Context, subjectID string) (int64, string, error) {
	var id int64
	var email string
	err := r.db.pool.QueryRow(ctx,
		`SELECT id, email FROM employees WHERE subject_id = $1`, subjectID).Scan(&id, &email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, "", identity.ErrEmployeeNotLinked
		}
		return 0, "", fmt.Errorf("failed to bridge subject: %w", err)
	}
	return id, email, nil
}

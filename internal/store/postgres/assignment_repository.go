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

	"github.com/jackc/pgx/v5"

	"github.com/fosys/fosys/internal/authz"
	"github.com/fosys/fosys/internal/rbac"
)

// AssignmentRepository implements authz.AssignmentRepository
type AssignmentRepository struct {
	db *DB
}

// NewAssignmentRepository creates a new assignment repository
func NewAssignmentRepository(db *DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Get retrieves the assignment for a subject
func (r *AssignmentRepository) Get(ctx context.Context, subjectID string) (*authz.Assignment, error) {
	var a authz.Assignment
	var role string

	err := r.db.pool.QueryRow(ctx, `
		SELECT subject_id, role, assigned_at, assigned_by
		FROM role_assignments
		WHERE subject_id = $1
	`, subjectID).Scan(&a.SubjectID, &role, &a.AssignedAt, &a.AssignedBy)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, authz.ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	a.Role = rbac.Role(role)
	return &a, nil
}

// Upsert writes the assignment as a single atomic statement. subject_id
// is the primary key, so a re-assignment replaces the row in place and
// concurrent readers always see either the old role or the new one.
func (r *AssignmentRepository) Upsert(ctx context.Context, a *authz.Assignment) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO role_assignments (subject_id, role, assigned_at, assigned_by)
		VALUES ($1, $2, now(), $3)
		ON CONFLICT (subject_id) DO UPDATE SET
			role = EXCLUDED.role,
			assigned_at = EXCLUDED.assigned_at,
			assigned_by = EXCLUDED.assigned_by
	`, a.SubjectID, string(a.Role), a.AssignedBy)

	if err != nil {
		return fmt.Errorf("failed to upsert assignment: %w", err)
	}
	return nil
}

// Delete removes the assignment for a subject
func (r *AssignmentRepository) Delete(ctx context.Context, subjectID string) error {
	result, err := r.db.pool.Exec(ctx, `
		DELETE FROM role_assignments WHERE subject_id = $1
	`, subjectID)

	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return authz.ErrAssignmentNotFound
	}
	return nil
}

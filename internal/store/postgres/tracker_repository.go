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

	"github.com/fosys/fosys/internal/tracker"
)

// ProjectRepository implements tracker.ProjectRepository
type ProjectRepository struct {
	db *DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create creates a new project
func (r *ProjectRepository) Create(ctx context.Context, p *tracker.Project) error {
	now := time.Now()
	err := r.db.pool.QueryRow(ctx, `
		INSERT INTO projects (name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, p.Name, p.Description, now, now).Scan(&p.ID)

	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

// GetByID retrieves a project by ID
func (r *ProjectRepository) GetByID(ctx context.Context, id int64) (*tracker.Project, error) {
	var p tracker.Project
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM projects
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tracker.ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &p, nil
}

// Update updates project information
func (r *ProjectRepository) Update(ctx context.Context, p *tracker.Project) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE projects SET name = $2, description = $3, updated_at = now()
		WHERE id = $1
	`, p.ID, p.Name, p.Description)

	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	if result.RowsAffected() == 0 {
		return tracker.ErrProjectNotFound
	}
	return nil
}

// Delete deletes a project and, by cascade, its tasks
func (r *ProjectRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if result.RowsAffected() == 0 {
		return tracker.ErrProjectNotFound
	}
	return nil
}

// List retrieves all projects, newest first
func (r *ProjectRepository) List(ctx context.Context) ([]*tracker.Project, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM projects
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*tracker.Project
	for rows.Next() {
		var p tracker.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, &p)
	}
	return projects, rows.Err()
}

// TaskRepository implements tracker.TaskRepository
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, title, description, status, project_id, assigned_to, created_at, updated_at`

func scanTask(row pgx.Row) (*tracker.Task, error) {
	var t tracker.Task
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.Status,
		&t.ProjectID, &t.AssignedTo, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tracker.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}
	return &t, nil
}

// Create creates a new task
func (r *TaskRepository) Create(ctx context.Context, t *tracker.Task) error {
	now := time.Now()
	err := r.db.pool.QueryRow(ctx, `
		INSERT INTO tasks (title, description, status, project_id, assigned_to, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, t.Title, t.Description, t.Status, t.ProjectID, t.AssignedTo, now, now).Scan(&t.ID)

	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

// GetByID retrieves a task by ID
func (r *TaskRepository) GetByID(ctx context.Context, id int64) (*tracker.Task, error) {
	row := r.db.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	return scanTask(row)
}

// Update updates a task's mutable fields
func (r *TaskRepository) Update(ctx context.Context, t *tracker.Task) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE tasks SET
			title = $2,
			description = $3,
			status = $4,
			assigned_to = $5,
			updated_at = now()
		WHERE id = $1
	`, t.ID, t.Title, t.Description, t.Status, t.AssignedTo)

	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if result.RowsAffected() == 0 {
		return tracker.ErrTaskNotFound
	}
	return nil
}

// List retrieves all tasks, newest first
func (r *TaskRepository) List(ctx context.Context) ([]*tracker.Task, error) {
	rows, err := r.db.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

// ListByAssignee retrieves tasks assigned to an employee, newest first
func (r *TaskRepository) ListByAssignee(ctx context.Context, employeeID int64) ([]*tracker.Task, error) {
	rows, err := r.db.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE assigned_to = $1 ORDER BY created_at DESC`, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assigned tasks: %w", err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

func collectTasks(rows pgx.Rows) ([]*tracker.Task, error) {
	var tasks []*tracker.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

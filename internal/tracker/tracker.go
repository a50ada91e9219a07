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

// Package tracker holds the project and task domain that the
// authorization layer protects. It is deliberately small: enough to
// exercise role-gated routes and ownership-scoped updates end to end.
package tracker

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrProjectNotFound = errors.New("project not found")
	ErrNotTaskOwner    = errors.New("task is assigned to someone else")
	ErrInvalidStatus   = errors.New("invalid task status")
)

// Task statuses
const (
	StatusTodo       = "To-Do"
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"
)

// ValidStatus reports whether s is a defined task status.
func ValidStatus(s string) bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Project groups tasks.
type Project struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Task is a unit of work. AssignedTo is the legacy employee id of the
// assignee; nil means unassigned.
type Task struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Status      string    `json:"status"`
	ProjectID   int64     `json:"project_id"`
	AssignedTo  *int64    `json:"assigned_to"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProjectRepository defines the interface for project persistence.
type ProjectRepository interface {
	Create(ctx context.Context, project *Project) error
	GetByID(ctx context.Context, id int64) (*Project, error)
	Update(ctx context.Context, project *Project) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]*Project, error)
}

// TaskRepository defines the interface for task persistence.
type TaskRepository interface {
	Create(ctx context.Context, task *Task) error
	GetByID(ctx context.Context, id int64) (*Task, error)
	Update(ctx context.Context, task *Task) error
	List(ctx context.Context) ([]*Task, error)
	ListByAssignee(ctx context.Context, employeeID int64) ([]*Task, error)
}

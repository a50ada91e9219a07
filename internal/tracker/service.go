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

package tracker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fosys/fosys/internal/observability/logger"
	"github.com/fosys/fosys/internal/rbac"
)

// Service provides project and task business logic. Role gating happens
// at the transport layer; ownership checks happen here because they need
// the task row.
type Service struct {
	projects ProjectRepository
	tasks    TaskRepository
}

// NewService creates a new tracker service.
func NewService(projects ProjectRepository, tasks TaskRepository) *Service {
	return &Service{projects: projects, tasks: tasks}
}

// CreateProject creates a new project.
func (s *Service) CreateProject(ctx context.Context, name string, description *string) (*Project, error) {
	project := &Project{Name: name, Description: description}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return project, nil
}

// UpdateProject updates a project's name and description. Nil fields are
// left unchanged.
func (s *Service) UpdateProject(ctx context.Context, id int64, name *string, description *string) (*Project, error) {
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if name != nil {
		project.Name = *name
	}
	if description != nil {
		project.Description = description
	}
	if err := s.projects.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	return project, nil
}

// DeleteProject deletes a project.
func (s *Service) DeleteProject(ctx context.Context, id int64) error {
	return s.projects.Delete(ctx, id)
}

// GetProject retrieves a project by id.
func (s *Service) GetProject(ctx context.Context, id int64) (*Project, error) {
	return s.projects.GetByID(ctx, id)
}

// ListProjects retrieves all projects.
func (s *Service) ListProjects(ctx context.Context) ([]*Project, error) {
	return s.projects.List(ctx)
}

// TaskInput carries the fields for task creation.
type TaskInput struct {
	Title       string
	Description *string
	Status      string
	ProjectID   int64
	AssignedTo  *int64
}

// CreateTask creates a task under an existing project. An empty status
// defaults to To-Do.
func (s *Service) CreateTask(ctx context.Context, in TaskInput) (*Task, error) {
	if in.Status == "" {
		in.Status = StatusTodo
	}
	if !ValidStatus(in.Status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, in.Status)
	}

	if _, err := s.projects.GetByID(ctx, in.ProjectID); err != nil {
		return nil, err
	}

	task := &Task{
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		ProjectID:   in.ProjectID,
		AssignedTo:  in.AssignedTo,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return task, nil
}

// AssignTask sets or clears a task's assignee.
func (s *Service) AssignTask(ctx context.Context, taskID int64, assignedTo *int64) (*Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	task.AssignedTo = assignedTo
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to assign task: %w", err)
	}
	return task, nil
}

// TaskUpdate carries the optional fields for a task update.
type TaskUpdate struct {
	Title       *string
	Description *string
	Status      *string
}

// UpdateTask applies an ownership-scoped task edit. Admins and managers
// edit any task; developers and interns only tasks assigned to them.
func (s *Service) UpdateTask(ctx context.Context, role rbac.Role, actingEmployeeID, taskID int64, update TaskUpdate) (*Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if !rbac.AllowsOwned(string(role), rbac.ActionEditTask, actingEmployeeID, task.AssignedTo) {
		slog.DebugContext(ctx, "task edit denied",
			logger.Role(string(role)),
			logger.EmployeeID(actingEmployeeID),
			logger.Action(rbac.ActionEditTask))
		return nil, ErrNotTaskOwner
	}

	if update.Title != nil {
		task.Title = *update.Title
	}
	if update.Description != nil {
		task.Description = update.Description
	}
	if update.Status != nil {
		if !ValidStatus(*update.Status) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *update.Status)
		}
		task.Status = *update.Status
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return task, nil
}

// UpdateStatus applies an ownership-scoped status change.
func (s *Service) UpdateStatus(ctx context.Context, role rbac.Role, actingEmployeeID, taskID int64, status string) (*Task, error) {
	if !ValidStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if !rbac.AllowsOwned(string(role), rbac.ActionUpdateOwnTaskStatus, actingEmployeeID, task.AssignedTo) {
		return nil, ErrNotTaskOwner
	}

	task.Status = status
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task status: %w", err)
	}
	return task, nil
}

// GetTask retrieves a task, enforcing visibility: roles that cannot view
// all tasks only see their own.
func (s *Service) GetTask(ctx context.Context, role rbac.Role, actingEmployeeID, taskID int64) (*Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !rbac.ViewsAllTasks(role) {
		if task.AssignedTo == nil || *task.AssignedTo != actingEmployeeID {
			return nil, ErrNotTaskOwner
		}
	}
	return task, nil
}

// ListTasks retrieves tasks visible to the caller. Admins and managers
// see everything; developers and interns see only their assignments.
func (s *Service) ListTasks(ctx context.Context, role rbac.Role, actingEmployeeID int64) ([]*Task, error) {
	if rbac.ViewsAllTasks(role) {
		return s.tasks.List(ctx)
	}
	return s.tasks.ListByAssignee(ctx, actingEmployeeID)
}

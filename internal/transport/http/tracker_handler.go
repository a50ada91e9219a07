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

package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fosys/fosys/internal/observability/logger"
	"github.com/fosys/fosys/internal/tracker"
)

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

// respondTrackerError maps tracker domain errors. Ownership denials are
// 403 with the message the update endpoints always used; invalid input is
// the caller's fault, everything else is ours.
func respondTrackerError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, tracker.ErrTaskNotFound):
		respondError(w, http.StatusNotFound, "Task not found")
	case errors.Is(err, tracker.ErrProjectNotFound):
		respondError(w, http.StatusNotFound, "Project not found")
	case errors.Is(err, tracker.ErrNotTaskOwner):
		respondError(w, http.StatusForbidden, "You can only update tasks assigned to you")
	case errors.Is(err, tracker.ErrInvalidStatus):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		slog.ErrorContext(r.Context(), "tracker operation failed", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// CreateProjectRequest represents project creation data
type CreateProjectRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description"`
}

// CreateProject creates a new project.
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	project, err := h.trackerService.CreateProject(r.Context(), req.Name, req.Description)
	if err != nil {
		respondTrackerError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"message": "Project created successfully",
		"project": project,
	})
}

// UpdateProjectRequest represents a partial project update
type UpdateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// UpdateProject updates a project's name and description.
func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	var req UpdateProjectRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	project, err := h.trackerService.UpdateProject(r.Context(), id, req.Name, req.Description)
	if err != nil {
		respondTrackerError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Project updated successfully",
		"project": project,
	})
}

// DeleteProject deletes a project.
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	if err := h.trackerService.DeleteProject(r.Context(), id); err != nil {
		respondTrackerError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Project deleted successfully",
	})
}

// GetProject retrieves a single project.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	project, err := h.trackerService.GetProject(r.Context(), id)
	if err != nil {
		respondTrackerError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"project": project})
}

// ListProjects retrieves all projects.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.trackerService.ListProjects(r.Context())
	if err != nil {
		respondTrackerError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

// CreateTaskRequest represents task creation data
type CreateTaskRequest struct {
	Title       string  `json:"title" validate:"required"`
	Description *string `json:"description"`
	Status      string  `json:"status"`
	ProjectID   int64   `json:"project_id" validate:"required"`
	AssignedTo  *int64  `json:"assigned_to"`
}

// CreateTask creates a new task.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	task, err := h.trackerService.CreateTask(r.Context(), tracker.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		ProjectID:   req.ProjectID,
		AssignedTo:  req.AssignedTo,
	})
	if err != nil {
		respondTrackerError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"message": "Task created successfully",
		"task":    task,
	})
}

// AssignTaskRequest sets or clears the assignee
type AssignTaskRequest struct {
	AssignedTo *int64 `json:"assigned_to"`
}

// AssignTask sets or clears a task's assignee.
func (h *Handler) AssignTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	var req AssignTaskRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	task, err := h.trackerService.AssignTask(r.Context(), id, req.AssignedTo)
	if err != nil {
		respondTrackerError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Task assigned successfully",
		"task":    task,
	})
}

// UpdateTaskRequest represents a partial task update
type UpdateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

// UpdateTask applies an ownership-scoped task edit.
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	var req UpdateTaskRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	caller := GetIdentity(r.Context())
	task, err := h.trackerService.UpdateTask(r.Context(), caller.Role, caller.EmployeeID, id, tracker.TaskUpdate{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
	})
	if err != nil {
		respondTrackerError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Task updated successfully",
		"task":    task,
	})
}

// UpdateStatusRequest carries the new status
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateTaskStatus applies an ownership-scoped status change.
func (h *Handler) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	var req UpdateStatusRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	caller := GetIdentity(r.Context())
	task, err := h.trackerService.UpdateStatus(r.Context(), caller.Role, caller.EmployeeID, id, req.Status)
	if err != nil {
		respondTrackerError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Task status updated successfully",
		"task":    task,
	})
}

// GetTask retrieves a single task, honoring visibility.
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	caller := GetIdentity(r.Context())
	task, err := h.trackerService.GetTask(r.Context(), caller.Role, caller.EmployeeID, id)
	if err != nil {
		respondTrackerError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"task": task})
}

// ListTasks retrieves the tasks visible to the caller.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	caller := GetIdentity(r.Context())
	tasks, err := h.trackerService.ListTasks(r.Context(), caller.Role, caller.EmployeeID)
	if err != nil {
		respondTrackerError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

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

	"github.com/fosys/fosys/internal/authz"
	"github.com/fosys/fosys/internal/identity"
	"github.com/fosys/fosys/internal/observability/logger"
)

// ListEmployees returns all employee records.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.identityService.List(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list employees", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	out := make([]employeeResponse, 0, len(employees))
	for _, e := range employees {
		out = append(out, toEmployeeResponse(e))
	}
	respondJSON(w, http.StatusOK, map[string]any{"employees": out})
}

// ChangeRoleRequest carries the new role in either naming scheme.
type ChangeRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// ChangeEmployeeRole updates an employee's role in both the denormalized
// field and, for provider-linked accounts, the assignment table.
func (h *Handler) ChangeEmployeeRole(w http.ResponseWriter, r *http.Request) {
	employeeID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid employee id")
		return
	}

	var req ChangeRoleRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	actor := ""
	if caller := GetIdentity(r.Context()); caller != nil {
		actor = caller.SubjectID
	}

	employee, err := h.identityService.ChangeRole(r.Context(), employeeID, req.Role, actor)
	if err != nil {
		switch {
		case errors.Is(err, authz.ErrUnknownRole):
			respondError(w, http.StatusBadRequest, "unknown role: "+req.Role)
		case errors.Is(err, identity.ErrEmployeeNotFound):
			respondError(w, http.StatusNotFound, "employee not found")
		default:
			slog.ErrorContext(r.Context(), "role change failed",
				logger.EmployeeID(employeeID), logger.Error(err))
			respondError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message":  "Role updated successfully",
		"employee": toEmployeeResponse(employee),
	})
}

// RevokeEmployeeRole removes an employee's dedicated role assignment,
// leaving the legacy fallback in effect.
func (h *Handler) RevokeEmployeeRole(w http.ResponseWriter, r *http.Request) {
	employeeID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid employee id")
		return
	}

	actor := ""
	if caller := GetIdentity(r.Context()); caller != nil {
		actor = caller.SubjectID
	}

	employee, err := h.identityService.RevokeRole(r.Context(), employeeID, actor)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrEmployeeNotFound):
			respondError(w, http.StatusNotFound, "employee not found")
		case errors.Is(err, identity.ErrEmployeeNotLinked):
			respondError(w, http.StatusConflict, "employee has no provider subject to revoke")
		case errors.Is(err, authz.ErrAssignmentNotFound):
			respondError(w, http.StatusNotFound, "no role assignment to revoke")
		default:
			slog.ErrorContext(r.Context(), "role revocation failed",
				logger.EmployeeID(employeeID), logger.Error(err))
			respondError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message":  "Role assignment revoked",
		"employee": toEmployeeResponse(employee),
	})
}

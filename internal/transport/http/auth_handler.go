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

	"github.com/fosys/fosys/internal/identity"
	"github.com/fosys/fosys/internal/observability/logger"
	"github.com/fosys/fosys/internal/rbac"
)

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignupRequest represents signup data
type SignupRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type employeeResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	SubjectID string `json:"subject_id,omitempty"`
}

func toEmployeeResponse(e *identity.Employee) employeeResponse {
	resp := employeeResponse{
		ID:    e.ID,
		Name:  e.Name,
		Email: e.Email,
		Role:  e.Role,
	}
	if e.SubjectID != nil {
		resp.SubjectID = *e.SubjectID
	}
	return resp
}

// Login authenticates an employee. Provider-backed accounts get both the
// provider access token and the locally signed one; legacy accounts only
// the local one.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	result, err := h.identityService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidCredentials):
			respondError(w, http.StatusUnauthorized, "Invalid credentials.")
		case errors.Is(err, identity.ErrProviderManaged):
			respondJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Please log in using provider authentication.",
				"hint":  "This account has no local password.",
			})
		case errors.Is(err, identity.ErrEmployeeNotLinked):
			respondJSON(w, http.StatusNotFound, map[string]string{
				"error":   "Employee record not found for provider user",
				"details": "Make sure signup created a matching employee record.",
			})
		default:
			slog.ErrorContext(r.Context(), "login failed", logger.Email(req.Email), logger.Error(err))
			respondError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"token":          result.Token,
		"provider_token": result.ProviderToken,
		"user":           toEmployeeResponse(result.Employee),
		"legacy":         result.Legacy,
	})
}

// Signup provisions a provider account with the default role and logs the
// new employee straight in.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	result, err := h.identityService.Provision(r.Context(), req.Name, req.Email, req.Password, rbac.LegacyEmployee)
	if err != nil {
		if errors.Is(err, identity.ErrEmployeeExists) {
			respondError(w, http.StatusConflict, "employee already exists")
			return
		}
		slog.ErrorContext(r.Context(), "signup failed", logger.Email(req.Email), logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	// Sign the new account in so the response carries usable tokens, the
	// way the signup flow always behaved.
	login, err := h.identityService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		slog.WarnContext(r.Context(), "post-signup login failed", logger.Email(req.Email), logger.Error(err))
		respondJSON(w, http.StatusCreated, map[string]any{
			"message":       "User created successfully",
			"user":          toEmployeeResponse(result.Employee),
			"role_assigned": result.RoleAssigned,
		})
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"message":        "User created successfully",
		"token":          login.Token,
		"provider_token": login.ProviderToken,
		"user":           toEmployeeResponse(result.Employee),
		"role_assigned":  result.RoleAssigned,
	})
}

// Me returns the resolved identity for the presented credential.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	identity := GetIdentity(r.Context())
	if identity == nil {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"employee_id": identity.EmployeeID,
		"subject_id":  identity.SubjectID,
		"email":       identity.Email,
		"role":        string(identity.Role),
	})
}

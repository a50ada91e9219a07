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
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fosys/fosys/internal/audit"
	"github.com/fosys/fosys/internal/authn"
	"github.com/fosys/fosys/internal/identity"
	"github.com/fosys/fosys/internal/rbac"
	"github.com/fosys/fosys/internal/tracker"
)

// Role lists for coarse-gated routes. Admin is listed explicitly even
// though the catalog wildcards it; RequireRoles compares names, not
// permissions.
var (
	adminOnly    = []rbac.Role{rbac.RoleAdmin}
	adminManager = []rbac.Role{rbac.RoleAdmin, rbac.RoleManager}
	allRoles     = rbac.All()
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	resolver        *authn.Resolver
	identityService *identity.Service
	trackerService  *tracker.Service
	auditLogger     audit.Logger
	validate        *validator.Validate
}

// NewHandler creates a new HTTP handler
func NewHandler(
	resolver *authn.Resolver,
	identityService *identity.Service,
	trackerService *tracker.Service,
	auditLogger audit.Logger,
) *Handler {
	return &Handler{
		resolver:        resolver,
		identityService: identityService,
		trackerService:  trackerService,
		auditLogger:     auditLogger,
		validate:        validator.New(),
	}
}

// NewRouter builds the route tree. Every protected route is gated either
// by a role list or by a catalog action, never both.
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check
	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		// Public
		r.Post("/auth/login", h.Login)
		r.Post("/auth/signup", h.Signup)

		// Protected
		r.Group(func(r chi.Router) {
			r.Use(h.Authenticate)

			r.Get("/auth/me", h.Me)

			r.Route("/employees", func(r chi.Router) {
				r.With(h.RequireRoles(adminManager...)).Get("/", h.ListEmployees)
				r.With(h.RequireRoles(adminOnly...)).Patch("/{id}/role", h.ChangeEmployeeRole)
				r.With(h.RequireRoles(adminOnly...)).Delete("/{id}/role", h.RevokeEmployeeRole)
			})

			r.Route("/projects", func(r chi.Router) {
				r.With(h.RequireRoles(adminManager...)).Post("/", h.CreateProject)
				r.With(h.RequireRoles(allRoles...)).Get("/", h.ListProjects)
				r.With(h.RequireRoles(allRoles...)).Get("/{id}", h.GetProject)
				r.With(h.RequireRoles(adminManager...)).Patch("/{id}", h.UpdateProject)
				r.With(h.RequireRoles(adminOnly...)).Delete("/{id}", h.DeleteProject)
			})

			r.Route("/tasks", func(r chi.Router) {
				r.With(h.RequireRoles(adminManager...)).Post("/", h.CreateTask)
				r.With(h.RequireRoles(allRoles...)).Get("/", h.ListTasks)
				r.With(h.RequireRoles(allRoles...)).Get("/{id}", h.GetTask)
				r.With(h.RequireRoles(adminManager...)).Patch("/{id}/assign", h.AssignTask)
				r.With(h.RequireRoles(allRoles...)).Patch("/{id}", h.UpdateTask)
				r.With(h.RequirePermission(rbac.ActionUpdateOwnTaskStatus)).Patch("/{id}/status", h.UpdateTaskStatus)
			})
		})
	})

	return r
}

// HealthCheck returns the health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "fosys",
	})
}

// decodeValid decodes a JSON body and runs struct validation. It writes
// the 400 itself; callers just return on false.
func (h *Handler) decodeValid(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

func getIPAddress(r *http.Request) string {
	// Check X-Forwarded-For header first
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

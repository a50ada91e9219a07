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
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/fosys/fosys/internal/audit"
	"github.com/fosys/fosys/internal/authn"
	"github.com/fosys/fosys/internal/observability/logger"
	"github.com/fosys/fosys/internal/rbac"
)

// Authorization Gate principles:
// 1. Resolution happens once per request; handlers read the context.
// 2. Exactly one error kind per failed request, never 200 on failure.
// 3. A route is gated by roles or by an action, never both.
// 4. Internal causes are logged, not leaked.

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			slog.InfoContext(r.Context(), "http_request_start",
				logger.RequestID(middleware.GetReqID(r.Context())),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.RemoteAddr(r.RemoteAddr),
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				slog.InfoContext(r.Context(), "http_request_end",
					logger.RequestID(middleware.GetReqID(r.Context())),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.RemoteAddr(r.RemoteAddr),
					logger.UserAgent(r.UserAgent()),
					logger.StatusCode(ww.Status()),
					logger.Duration(time.Since(start).Milliseconds()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// Authenticate resolves the bearer credential and attaches the identity
// to the request context. It does not authorize anything; RequireRoles or
// RequirePermission does that per route.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := h.resolver.Resolve(r.Context(), bearerToken(r))
		if err != nil {
			h.respondResolveError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

// respondResolveError maps the resolution error taxonomy to HTTP. Each
// branch is terminal; no fallthrough from one failure kind to another.
func (h *Handler) respondResolveError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, authn.ErrMissingCredential):
		respondError(w, http.StatusUnauthorized, "missing bearer token")
	case errors.Is(err, authn.ErrExpiredCredential):
		respondError(w, http.StatusUnauthorized, "token expired")
	case errors.Is(err, authn.ErrInvalidCredential):
		respondError(w, http.StatusUnauthorized, "invalid token")
	case errors.Is(err, authn.ErrProviderUnavailable):
		slog.ErrorContext(r.Context(), "identity provider unreachable", logger.Error(err))
		respondError(w, http.StatusServiceUnavailable, "identity provider unavailable")
	case errors.Is(err, authn.ErrRoleNotAssigned):
		respondJSON(w, http.StatusForbidden, map[string]string{
			"error":   "User role not found",
			"details": "No role assigned to user",
		})
	default:
		slog.ErrorContext(r.Context(), "identity resolution failed", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// RequireRoles gates a route on a coarse role list. The denial names both
// sides so a misconfigured client can see what it asked for.
func (h *Handler) RequireRoles(roles ...rbac.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := GetIdentity(r.Context())
			if identity == nil {
				respondError(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			for _, role := range roles {
				if identity.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			h.auditDenied(r, identity, "roles: "+joinRoles(roles))
			respondJSON(w, http.StatusForbidden, map[string]string{
				"error":   "Access denied",
				"message": "Required roles: " + joinRoles(roles) + ", User role: " + string(identity.Role),
			})
		})
	}
}

// RequirePermission gates a route on a single catalog action.
func (h *Handler) RequirePermission(action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := GetIdentity(r.Context())
			if identity == nil {
				respondError(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			if !rbac.Allows(string(identity.Role), action) {
				h.auditDenied(r, identity, "action: "+action)
				respondJSON(w, http.StatusForbidden, map[string]string{
					"error":           "You do not have permission to perform this action.",
					"required_action": action,
					"user_role":       string(identity.Role),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (h *Handler) auditDenied(r *http.Request, identity *authn.Identity, requirement string) {
	h.auditLogger.Log(r.Context(), audit.Event{
		Type:      audit.TypeAccessDenied,
		ActorID:   identity.SubjectID,
		Resource:  r.Method + " " + r.URL.Path,
		IPAddress: getIPAddress(r),
		UserAgent: r.UserAgent(),
		Metadata: map[string]any{
			"role":        string(identity.Role),
			"requirement": requirement,
		},
	})
}

func joinRoles(roles []rbac.Role) string {
	parts := make([]string, len(roles))
	for i, role := range roles {
		parts[i] = string(role)
	}
	return strings.Join(parts, ", ")
}

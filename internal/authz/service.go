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

// Package authz resolves the effective role for a subject. Two sources
// exist during the migration: the dedicated role-assignment table, and
// the denormalized role field on the legacy employee record. The
// dedicated table wins; the legacy field is a fallback only.
package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fosys/fosys/internal/observability/logger"
	"github.com/fosys/fosys/internal/rbac"
)

// Service provides role resolution and assignment.
type Service struct {
	assignments AssignmentRepository
	legacy      LegacyRoleSource
}

// NewService creates a new role store service.
func NewService(assignments AssignmentRepository, legacy LegacyRoleSource) *Service {
	return &Service{assignments: assignments, legacy: legacy}
}

// Role resolves the current role for a provider subject. The dedicated
// assignment store is authoritative; if it has no row, the legacy account
// record's denormalized role is translated through the naming table.
// Only when both sources miss does the subject count as unassigned —
// that case is a distinct, user-diagnosable error, never a silent default.
func (s *Service) Role(ctx context.Context, subjectID string) (rbac.Role, error) {
	assignment, err := s.assignments.Get(ctx, subjectID)
	if err == nil {
		role := rbac.Normalize(string(assignment.Role))
		if !rbac.Known(role) {
			return "", fmt.Errorf("malformed role %q stored for subject %s", assignment.Role, subjectID)
		}
		return role, nil
	}
	if !errors.Is(err, ErrAssignmentNotFound) {
		return "", fmt.Errorf("failed to read role assignment: %w", err)
	}

	legacyRole, err := s.legacy.LegacyRoleBySubject(ctx, subjectID)
	if err != nil {
		if errors.Is(err, ErrLegacyRoleNotFound) {
			return "", ErrRoleNotAssigned
		}
		return "", fmt.Errorf("failed to read legacy role: %w", err)
	}

	role := rbac.FromLegacy(legacyRole)
	slog.DebugContext(ctx, "role resolved via legacy fallback",
		logger.SubjectID(subjectID),
		logger.Role(string(role)),
	)
	return role, nil
}

// Assign sets the subject's current role as a single atomic upsert. The
// subject_id uniqueness constraint guarantees at most one current
// assignment; there is no delete-then-insert window for readers to fall
// into.
func (s *Service) Assign(ctx context.Context, subjectID string, role rbac.Role, assignedBy string) error {
	role = rbac.Normalize(string(role))
	if !rbac.Known(role) {
		return fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}

	assignment := &Assignment{
		SubjectID:  subjectID,
		Role:       role,
		AssignedAt: time.Now(),
		AssignedBy: assignedBy,
	}
	if err := s.assignments.Upsert(ctx, assignment); err != nil {
		return fmt.Errorf("failed to upsert role assignment: %w", err)
	}

	slog.InfoContext(ctx, "role assigned",
		logger.SubjectID(subjectID),
		logger.Role(string(role)),
	)
	return nil
}

// Revoke removes the subject's assignment, leaving only the legacy
// fallback (if any) in effect.
func (s *Service) Revoke(ctx context.Context, subjectID string) error {
	if err := s.assignments.Delete(ctx, subjectID); err != nil {
		return fmt.Errorf("failed to delete role assignment: %w", err)
	}
	return nil
}

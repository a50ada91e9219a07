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

package authz

import (
	"context"
	"errors"
	"time"

	"github.com/fosys/fosys/internal/rbac"
)

// Domain errors
var (
	ErrAssignmentNotFound = errors.New("role assignment not found")
	ErrLegacyRoleNotFound = errors.New("no legacy role for subject")
	ErrRoleNotAssigned    = errors.New("no role assigned to subject")
	ErrUnknownRole        = errors.New("unknown role")
)

// Assignment binds a provider subject to exactly one current role. The
// subject id is the primary key, so the store can never hold two current
// assignments for the same subject.
type Assignment struct {
	SubjectID  string
	Role       rbac.Role
	AssignedAt time.Time
	AssignedBy string
}

// AssignmentRepository is the dedicated role-assignment store.
type AssignmentRepository interface {
	// Get retrieves the current assignment for a subject.
	Get(ctx context.Context, subjectID string) (*Assignment, error)

	// Upsert atomically creates or replaces the subject's assignment.
	// Concurrent readers observe either the old or the new role, never
	// a transient absence.
	Upsert(ctx context.Context, assignment *Assignment) error

	// Delete removes the subject's assignment.
	Delete(ctx context.Context, subjectID string) error
}

// LegacyRoleSource reads the denormalized role field off the legacy
// account record, keyed by the provider subject cross-reference. It is
// consulted only when the dedicated store has no answer.
type LegacyRoleSource interface {
	LegacyRoleBySubject(ctx context.Context, subjectID string) (string, error)
}

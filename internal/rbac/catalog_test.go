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

package rbac_test

import (
	"testing"

	"github.com/fosys/fosys/internal/rbac"
	"github.com/stretchr/testify/assert"
)

func TestAllows_AdminWildcard(t *testing.T) {
	actions := []string{
		rbac.ActionCreateProject,
		rbac.ActionDeleteProject,
		rbac.ActionApprovePR,
		rbac.ActionUpdateOwnTaskStatus,
		"some_action_nobody_declared",
	}

	for _, action := range actions {
		assert.True(t, rbac.Allows("admin", action), "admin must satisfy %s", action)
		assert.True(t, rbac.Allows("ADMIN", action), "role comparison must be case-insensitive for %s", action)
	}
}

func TestAllows_CaseInsensitive(t *testing.T) {
	assert.Equal(t,
		rbac.Allows("admin", rbac.ActionAssignTask),
		rbac.Allows("ADMIN", rbac.ActionAssignTask),
	)
	assert.Equal(t,
		rbac.Allows("Manager", rbac.ActionApprovePR),
		rbac.Allows("manager", rbac.ActionApprovePR),
	)
	assert.True(t, rbac.Allows("MANAGER", "APPROVE_PR"))
}

func TestAllows_UnknownRoleDeniesEverything(t *testing.T) {
	for _, role := range []string{"", "superuser", "ADMINISTRATOR", "guest"} {
		for _, action := range []string{
			rbac.ActionCreateProject,
			rbac.ActionRaisePR,
			rbac.ActionViewAssignedTasks,
		} {
			assert.False(t, rbac.Allows(role, action), "role %q must be denied %s", role, action)
		}
	}
}

func TestAllows_RoleTables(t *testing.T) {
	tests := []struct {
		role    string
		action  string
		allowed bool
	}{
		{"manager", rbac.ActionCreateProject, true},
		{"manager", rbac.ActionApprovePR, true},
		{"manager", rbac.ActionViewAssignedTasks, false},
		{"developer", rbac.ActionViewAssignedTasks, true},
		{"developer", rbac.ActionRaisePR, true},
		{"developer", rbac.ActionCreateProject, false},
		{"developer", rbac.ActionApprovePR, false},
		{"intern", rbac.ActionCompleteAssignedTask, true},
		{"intern", rbac.ActionViewProjectProgress, true},
		{"intern", rbac.ActionDeleteProject, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, rbac.Allows(tt.role, tt.action),
			"%s / %s", tt.role, tt.action)
	}
}

func TestAllowsOwned_OwnershipScoped(t *testing.T) {
	owner := int64(42)
	other := int64(7)

	t.Run("developer edits only own task", func(t *testing.T) {
		assert.True(t, rbac.AllowsOwned("developer", rbac.ActionEditTask, owner, &owner))
		assert.False(t, rbac.AllowsOwned("developer", rbac.ActionEditTask, other, &owner))
	})

	t.Run("intern updates only own status", func(t *testing.T) {
		assert.True(t, rbac.AllowsOwned("intern", rbac.ActionUpdateOwnTaskStatus, owner, &owner))
		assert.False(t, rbac.AllowsOwned("intern", rbac.ActionUpdateOwnTaskStatus, other, &owner))
	})

	t.Run("unassigned resource denies non-bypass roles", func(t *testing.T) {
		assert.False(t, rbac.AllowsOwned("developer", rbac.ActionEditTask, owner, nil))
		assert.False(t, rbac.AllowsOwned("intern", rbac.ActionCompleteAssignedTask, owner, nil))
	})

	t.Run("admin and manager bypass ownership", func(t *testing.T) {
		assert.True(t, rbac.AllowsOwned("admin", rbac.ActionEditTask, other, &owner))
		assert.True(t, rbac.AllowsOwned("ADMIN", rbac.ActionEditTask, other, nil))
		// bypass never grants an action the role lacks
		assert.False(t, rbac.AllowsOwned("manager", rbac.ActionRaisePR, other, &owner))
	})
}

func TestFromLegacy_Mapping(t *testing.T) {
	tests := []struct {
		legacy string
		want   rbac.Role
	}{
		{"ADMIN", rbac.RoleAdmin},
		{"MANAGER", rbac.RoleManager},
		{"EMPLOYEE", rbac.RoleDeveloper},
		{"INTERN", rbac.RoleIntern},
		{"employee", rbac.RoleDeveloper},
		{"CONTRACTOR", rbac.RoleDeveloper}, // unrecognized values default to developer
		{"", rbac.RoleDeveloper},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, rbac.FromLegacy(tt.legacy), "legacy %q", tt.legacy)
	}
}

func TestToLegacy_RoundTrip(t *testing.T) {
	assert.Equal(t, "EMPLOYEE", rbac.ToLegacy(rbac.RoleDeveloper))
	assert.Equal(t, "ADMIN", rbac.ToLegacy(rbac.RoleAdmin))

	for _, r := range rbac.All() {
		assert.Equal(t, r, rbac.FromLegacy(rbac.ToLegacy(r)))
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, rbac.RoleAdmin, rbac.Normalize("  ADMIN "))
	assert.Equal(t, rbac.Role("unknown"), rbac.Normalize("Unknown"))
	assert.True(t, rbac.Known(rbac.RoleIntern))
	assert.False(t, rbac.Known(rbac.Role("unknown")))
}

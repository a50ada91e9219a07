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

// Package rbac holds the static permission catalog: which role may invoke
// which action, and which actions additionally require the acting subject
// to own the resource. The catalog is pure data plus lookups; it performs
// no I/O and keeps no per-request state.
package rbac

import "strings"

// rolePermissions maps each role to its explicit action set. Admin is
// intentionally absent: it satisfies every action via the wildcard check
// in Allows, not via an enumerated list.
var rolePermissions = map[Role]map[string]struct{}{
	RoleManager: actionSet(
		ActionCreateProject,
		ActionEditProject,
		ActionDeleteProject,
		ActionAssignTask,
		ActionApprovePR,
		ActionRejectPR,
		ActionViewAllProjects,
		ActionViewEmployeeProgress,
		ActionMarkMilestone,
		ActionViewPRComments,
		ActionEditTask,
		ActionUpdateOwnTaskStatus,
	),
	RoleDeveloper: actionSet(
		ActionViewAssignedTasks,
		ActionRaisePR,
		ActionViewProjectDashboard,
		ActionUpdateOwnTaskStatus,
		ActionEditTask,
	),
	RoleIntern: actionSet(
		ActionViewAssignedTasks,
		ActionRaisePR,
		ActionViewProjectProgress,
		ActionCompleteAssignedTask,
		ActionUpdateOwnTaskStatus,
		ActionEditTask,
	),
}

// ownershipScoped lists the actions that are only permitted on resources
// assigned to the acting subject, unless the role bypasses ownership.
var ownershipScoped = actionSet(
	ActionUpdateOwnTaskStatus,
	ActionCompleteAssignedTask,
	ActionEditTask,
)

func actionSet(actions ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(actions))
	for _, a := range actions {
		set[a] = struct{}{}
	}
	return set
}

// Allows reports whether the role may invoke the action. Role and action
// casing is normalized here, once; unknown roles and unknown actions deny.
func Allows(role, action string) bool {
	r := Normalize(role)
	if r == RoleAdmin {
		return true
	}
	perms, ok := rolePermissions[r]
	if !ok {
		return false
	}
	_, ok = perms[strings.ToLower(strings.TrimSpace(action))]
	return ok
}

// AllowsOwned is Allows plus the ownership rule. For ownership-scoped
// actions, admin and manager act on any resource; developer and intern
// only on resources assigned to them. A resource with no owner denies for
// non-bypass roles rather than falling open.
func AllowsOwned(role, action string, actingEmployeeID int64, ownerID *int64) bool {
	if !Allows(role, action) {
		return false
	}
	if !OwnershipScoped(action) {
		return true
	}
	r := Normalize(role)
	if r == RoleAdmin || r == RoleManager {
		return true
	}
	return ownerID != nil && *ownerID == actingEmployeeID
}

// OwnershipScoped reports whether the action carries the ownership rule.
func OwnershipScoped(action string) bool {
	_, ok := ownershipScoped[strings.ToLower(strings.TrimSpace(action))]
	return ok
}

// BypassesOwnership reports whether the role acts on any resource
// regardless of assignment.
func BypassesOwnership(role Role) bool {
	return role == RoleAdmin || role == RoleManager
}

// ViewsAllTasks reports whether the role sees every task rather than only
// the ones assigned to it.
func ViewsAllTasks(role Role) bool {
	return role == RoleAdmin || role == RoleManager
}

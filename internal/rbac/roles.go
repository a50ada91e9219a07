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

package rbac

import "strings"

// Role is a canonical role name as stored in the role-assignment table.
// Canonical form is lower-case; Normalize is the single place casing is
// fixed up. Anything downstream assumes it already holds.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleManager   Role = "manager"
	RoleDeveloper Role = "developer"
	RoleIntern    Role = "intern"
)

// Legacy role enum values carried by the employee table and by locally
// issued credentials. These predate the role-assignment table.
const (
	LegacyAdmin    = "ADMIN"
	LegacyManager  = "MANAGER"
	LegacyEmployee = "EMPLOYEE"
	LegacyIntern   = "INTERN"
)

// legacyToRole is the explicit bridge between the two naming schemes.
// EMPLOYEE maps to "developer" — the two systems disagree on the name and
// the mapping is a lookup table on purpose, never derived from the string.
var legacyToRole = map[string]Role{
	LegacyAdmin:    RoleAdmin,
	LegacyManager:  RoleManager,
	LegacyEmployee: RoleDeveloper,
	LegacyIntern:   RoleIntern,
}

var roleToLegacy = map[Role]string{
	RoleAdmin:     LegacyAdmin,
	RoleManager:   LegacyManager,
	RoleDeveloper: LegacyEmployee,
	RoleIntern:    LegacyIntern,
}

// Normalize lower-cases a role string into its canonical form. Unknown
// names pass through (lower-cased) and deny everywhere by default.
func Normalize(role string) Role {
	return Role(strings.ToLower(strings.TrimSpace(role)))
}

// FromLegacy translates a legacy employee role value to its canonical
// role name. Unrecognized values default to developer, matching how
// accounts were provisioned before the role table existed.
func FromLegacy(legacy string) Role {
	if r, ok := legacyToRole[strings.ToUpper(strings.TrimSpace(legacy))]; ok {
		return r
	}
	return RoleDeveloper
}

// ToLegacy translates a canonical role name back to the legacy enum value
// embedded in locally issued credentials. Unknown roles come back as
// EMPLOYEE, the legacy default.
func ToLegacy(role Role) string {
	if l, ok := roleToLegacy[Normalize(string(role))]; ok {
		return l
	}
	return LegacyEmployee
}

// Parse accepts a role in either naming scheme (canonical "developer" or
// legacy "EMPLOYEE") and returns the canonical role. ok is false for
// anything that is not a defined role in either scheme.
func Parse(s string) (Role, bool) {
	r := Normalize(s)
	if Known(r) {
		return r, true
	}
	if r, ok := legacyToRole[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return r, true
	}
	return "", false
}

// Known reports whether the role is one of the four defined roles.
func Known(role Role) bool {
	_, ok := roleToLegacy[role]
	return ok
}

// All lists the canonical roles.
func All() []Role {
	return []Role{RoleAdmin, RoleManager, RoleDeveloper, RoleIntern}
}

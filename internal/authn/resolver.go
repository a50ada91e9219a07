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

// Package authn turns a bearer credential into a resolved identity. Two
// credential kinds coexist during the migration: tokens issued by the
// hosted identity provider, and locally signed tokens from the legacy
// login path. The resolver classifies which kind it was handed instead of
// chaining failures: a token that verifies (or verified once and has
// expired) under the local signing key is local, everything else is sent
// to the provider.
package authn

import (
	"context"
	"errors"
	"fmt"

	"github.com/fosys/fosys/internal/authz"
	"github.com/fosys/fosys/internal/identity"
	"github.com/fosys/fosys/internal/idp"
	"github.com/fosys/fosys/internal/rbac"
	"github.com/fosys/fosys/internal/token"
)

// Identity is the canonical resolved actor attached to a request.
// EmployeeID is the legacy integer key used by resource ownership fields;
// SubjectID is the provider UUID (empty for pure legacy accounts).
type Identity struct {
	EmployeeID int64
	SubjectID  string
	Email      string
	Role       rbac.Role
}

// EmployeeDirectory bridges provider subjects to legacy employee records
// via the persisted subject_id cross-reference.
type EmployeeDirectory interface {
	// EmployeeBySubject returns the legacy employee id and email for a
	// provider subject, or identity.ErrEmployeeNotLinked when no record
	// carries the cross-reference.
	EmployeeBySubject(ctx context.Context, subjectID string) (employeeID int64, email string, err error)
}

// RoleResolver resolves the current role for a provider subject.
type RoleResolver interface {
	Role(ctx context.Context, subjectID string) (rbac.Role, error)
}

// Resolver validates bearer credentials against both identity sources.
type Resolver struct {
	provider  idp.Verifier
	local     *token.Issuer
	roles     RoleResolver
	directory EmployeeDirectory
}

// NewResolver creates an identity resolver.
func NewResolver(provider idp.Verifier, local *token.Issuer, roles RoleResolver, directory EmployeeDirectory) *Resolver {
	return &Resolver{provider: provider, local: local, roles: roles, directory: directory}
}

// Resolve validates the credential and produces the acting identity.
// Pure validation: no writes, no side effects.
func (r *Resolver) Resolve(ctx context.Context, bearer string) (*Identity, error) {
	if bearer == "" {
		return nil, ErrMissingCredential
	}

	// Local classification first: only our own signing key can vouch for
	// a locally issued token, and an expired local token must surface as
	// expired rather than being retried against the provider.
	claims, err := r.local.Verify(bearer)
	switch {
	case err == nil:
		return &Identity{
			EmployeeID: claims.EmployeeID,
			SubjectID:  claims.SubjectID,
			Role:       rbac.FromLegacy(claims.Role),
		}, nil
	case errors.Is(err, token.ErrExpired):
		return nil, ErrExpiredCredential
	}

	return r.resolveProvider(ctx, bearer)
}

func (r *Resolver) resolveProvider(ctx context.Context, bearer string) (*Identity, error) {
	subject, err := r.provider.ValidateToken(ctx, bearer)
	if err != nil {
		switch {
		case errors.Is(err, idp.ErrInvalidToken):
			return nil, ErrInvalidCredential
		case errors.Is(err, idp.ErrUnavailable):
			return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
		default:
			return nil, fmt.Errorf("provider validation failed: %w", err)
		}
	}

	role, err := r.roles.Role(ctx, subject.SubjectID)
	if err != nil {
		if errors.Is(err, authz.ErrRoleNotAssigned) {
			return nil, ErrRoleNotAssigned
		}
		return nil, fmt.Errorf("role resolution failed: %w", err)
	}

	resolved := &Identity{
		SubjectID: subject.SubjectID,
		Email:     subject.Email,
		Role:      role,
	}

	// Ownership checks compare legacy employee ids, so bridge the
	// provider subject to its employee record. An unlinked subject still
	// authenticates; it just owns nothing. Any other directory failure is
	// a store outage and must not masquerade as an ownership denial.
	employeeID, email, err := r.directory.EmployeeBySubject(ctx, subject.SubjectID)
	switch {
	case err == nil:
		resolved.EmployeeID = employeeID
		if resolved.Email == "" {
			resolved.Email = email
		}
	case errors.Is(err, identity.ErrEmployeeNotLinked):
	default:
		return nil, fmt.Errorf("employee bridge failed: %w", err)
	}

	return resolved, nil
}

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

// Package identity manages employee accounts across the two auth systems:
// login (provider first, bcrypt fallback for unmigrated accounts),
// provisioning (provider account + linked employee record + role
// assignment), and role changes (denormalized field and assignment table
// kept in sync).
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/fosys/fosys/internal/audit"
	"github.com/fosys/fosys/internal/authz"
	"github.com/fosys/fosys/internal/idp"
	"github.com/fosys/fosys/internal/observability/logger"
	"github.com/fosys/fosys/internal/rbac"
	"github.com/fosys/fosys/internal/token"
)

// Service provides account business logic.
type Service struct {
	repo        Repository
	provider    idp.Authenticator
	roles       *authz.Service
	issuer      *token.Issuer
	auditLogger audit.Logger
}

// NewService creates a new identity service.
func NewService(
	repo Repository,
	provider idp.Authenticator,
	roles *authz.Service,
	issuer *token.Issuer,
	auditLogger audit.Logger,
) *Service {
	return &Service{
		repo:        repo,
		provider:    provider,
		roles:       roles,
		issuer:      issuer,
		auditLogger: auditLogger,
	}
}

// LoginResult is returned on successful authentication. Token is the
// locally signed credential; ProviderToken is present only when the
// provider authenticated the user. Legacy marks the bcrypt path.
type LoginResult struct {
	Token         string
	ProviderToken string
	Employee      *Employee
	Legacy        bool
}

// Login authenticates an employee. The provider is tried first; accounts
// that never migrated fall back to their stored bcrypt hash. Accounts
// with no local hash are provider-only and are never bcrypt-checked.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	session, err := s.provider.SignInWithPassword(ctx, email, password)
	if err == nil {
		return s.loginProvider(ctx, session)
	}
	if !errors.Is(err, idp.ErrInvalidCredentials) {
		slog.WarnContext(ctx, "provider sign-in failed, trying legacy path",
			logger.Email(email), logger.Error(err))
	}
	return s.loginLegacy(ctx, email, password)
}

func (s *Service) loginProvider(ctx context.Context, session *idp.Session) (*LoginResult, error) {
	employee, err := s.repo.GetBySubjectID(ctx, session.User.SubjectID)
	if err != nil {
		if errors.Is(err, ErrEmployeeNotFound) {
			return nil, ErrEmployeeNotLinked
		}
		return nil, fmt.Errorf("failed to look up employee for subject: %w", err)
	}

	signed, err := s.issuer.Issue(employee.ID, employee.Role, session.User.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:    audit.TypeLoginSuccess,
		ActorID: session.User.SubjectID,
		Metadata: map[string]any{
			"email":  employee.Email,
			"legacy": false,
		},
	})
	s.auditTokenIssued(ctx, session.User.SubjectID, employee.ID, false)

	return &LoginResult{
		Token:         signed,
		ProviderToken: session.AccessToken,
		Employee:      employee,
	}, nil
}

func (s *Service) loginLegacy(ctx context.Context, email, password string) (*LoginResult, error) {
	employee, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrEmployeeNotFound) {
			s.auditFailedLogin(ctx, email)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up employee: %w", err)
	}

	if employee.PasswordHash == nil {
		return nil, ErrProviderManaged
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*employee.PasswordHash), []byte(password)); err != nil {
		s.auditFailedLogin(ctx, email)
		return nil, ErrInvalidCredentials
	}

	subjectID := ""
	if employee.SubjectID != nil {
		subjectID = *employee.SubjectID
	}
	signed, err := s.issuer.Issue(employee.ID, employee.Role, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:    audit.TypeLoginSuccess,
		ActorID: fmt.Sprintf("employee:%d", employee.ID),
		Metadata: map[string]any{
			"email":  employee.Email,
			"legacy": true,
		},
	})
	s.auditTokenIssued(ctx, subjectID, employee.ID, true)

	return &LoginResult{Token: signed, Employee: employee, Legacy: true}, nil
}

func (s *Service) auditFailedLogin(ctx context.Context, email string) {
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeLoginFailed,
		Metadata: map[string]any{"email": email},
	})
}

// auditTokenIssued records every local credential mint. Tokens are not
// revocable, so issuance is the only point the trail can capture.
func (s *Service) auditTokenIssued(ctx context.Context, subjectID string, employeeID int64, legacy bool) {
	actor := subjectID
	if actor == "" {
		actor = fmt.Sprintf("employee:%d", employeeID)
	}
	s.auditLogger.Log(ctx, audit.Event{
		Type:    audit.TypeTokenIssued,
		ActorID: actor,
		Metadata: map[string]any{
			"employee_id": employeeID,
			"legacy":      legacy,
		},
	})
}

// ProvisionResult reports what provisioning accomplished. RoleAssigned is
// false when the employee record exists but the assignment write failed;
// the role can be assigned later.
type ProvisionResult struct {
	Employee     *Employee
	RoleAssigned bool
}

// Provision creates a provider account, the linked employee record, and
// the initial role assignment. The provider owns the password; no local
// hash is stored for provisioned accounts.
func (s *Service) Provision(ctx context.Context, name, email, password, legacyRole string) (*ProvisionResult, error) {
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmployeeExists
	} else if !errors.Is(err, ErrEmployeeNotFound) {
		return nil, fmt.Errorf("failed to check for existing employee: %w", err)
	}

	providerIdentity, err := s.provider.CreateUser(ctx, email, password, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider user: %w", err)
	}

	subjectID := providerIdentity.SubjectID
	employee := &Employee{
		Name:      name,
		Email:     email,
		Role:      legacyRole,
		SubjectID: &subjectID,
	}
	if err := s.repo.Create(ctx, employee); err != nil {
		return nil, fmt.Errorf("failed to create employee record: %w", err)
	}

	result := &ProvisionResult{Employee: employee, RoleAssigned: true}

	role := rbac.FromLegacy(legacyRole)
	if err := s.roles.Assign(ctx, subjectID, role, "provisioning"); err != nil {
		// The account is usable without an assignment; the legacy role
		// field keeps authorization working until the assignment is fixed.
		slog.ErrorContext(ctx, "role assignment failed during provisioning",
			logger.SubjectID(subjectID), logger.Error(err))
		result.RoleAssigned = false
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:    audit.TypeUserCreated,
		ActorID: subjectID,
		Metadata: map[string]any{
			"email": email,
			"role":  string(role),
		},
	})

	return result, nil
}

// ChangeRole updates an employee's role in both systems: the denormalized
// legacy field and, for provider-linked accounts, the assignment table
// via atomic upsert.
func (s *Service) ChangeRole(ctx context.Context, employeeID int64, legacyRole, actor string) (*Employee, error) {
	role, ok := rbac.Parse(legacyRole)
	if !ok {
		return nil, fmt.Errorf("%w: %q", authz.ErrUnknownRole, legacyRole)
	}
	legacyRole = rbac.ToLegacy(role)

	employee, err := s.repo.GetByID(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateRole(ctx, employeeID, legacyRole); err != nil {
		return nil, fmt.Errorf("failed to update employee role: %w", err)
	}
	employee.Role = legacyRole

	if employee.SubjectID != nil {
		if err := s.roles.Assign(ctx, *employee.SubjectID, rbac.FromLegacy(legacyRole), actor); err != nil {
			return nil, fmt.Errorf("failed to sync role assignment: %w", err)
		}
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:    audit.TypeRoleAssigned,
		ActorID: actor,
		Metadata: map[string]any{
			"employee_id": employeeID,
			"role":        legacyRole,
		},
	})

	return employee, nil
}

// RevokeRole removes a provider-linked employee's dedicated role
// assignment. The denormalized legacy field is left in place, so the
// subject falls back to it on the next resolution; clearing both would
// lock the account out entirely.
func (s *Service) RevokeRole(ctx context.Context, employeeID int64, actor string) (*Employee, error) {
	employee, err := s.repo.GetByID(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if employee.SubjectID == nil {
		return nil, fmt.Errorf("%w: employee %d has no provider subject", ErrEmployeeNotLinked, employeeID)
	}

	if err := s.roles.Revoke(ctx, *employee.SubjectID); err != nil {
		return nil, fmt.Errorf("failed to revoke role assignment: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:    audit.TypeRoleRevoked,
		ActorID: actor,
		Metadata: map[string]any{
			"employee_id": employeeID,
			"subject_id":  *employee.SubjectID,
		},
	})

	return employee, nil
}

// GetByID retrieves an employee by legacy id.
func (s *Service) GetByID(ctx context.Context, id int64) (*Employee, error) {
	return s.repo.GetByID(ctx, id)
}

// List retrieves all employees.
func (s *Service) List(ctx context.Context) ([]*Employee, error) {
	return s.repo.List(ctx)
}

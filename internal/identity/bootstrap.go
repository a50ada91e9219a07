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

package identity

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fosys/fosys/internal/audit"
	"github.com/fosys/fosys/internal/rbac"
)

const (
	EnvBootstrapAdminEmail    = "FOSYS_BOOTSTRAP_ADMIN_EMAIL"
	EnvBootstrapAdminPassword = "FOSYS_BOOTSTRAP_ADMIN_PASSWORD"
	EnvBootstrapAdminName     = "FOSYS_BOOTSTRAP_ADMIN_NAME"
)

// BootstrapService provisions the initial admin account on first run.
type BootstrapService struct {
	identityService *Service
	auditLogger     audit.Logger
}

// NewBootstrapService creates a new bootstrap service.
func NewBootstrapService(identityService *Service, auditLogger audit.Logger) *BootstrapService {
	return &BootstrapService{identityService: identityService, auditLogger: auditLogger}
}

// Bootstrap provisions an admin from environment configuration. It is a
// no-op when the email is unset or the account already exists, so it is
// safe to run on every startup.
func (s *BootstrapService) Bootstrap(ctx context.Context) error {
	email := os.Getenv(EnvBootstrapAdminEmail)
	if email == "" {
		return nil
	}

	password := os.Getenv(EnvBootstrapAdminPassword)
	if password == "" {
		return fmt.Errorf("%s is set but %s is empty", EnvBootstrapAdminEmail, EnvBootstrapAdminPassword)
	}

	name := os.Getenv(EnvBootstrapAdminName)
	if name == "" {
		name = "Administrator"
	}

	if _, err := s.identityService.repo.GetByEmail(ctx, email); err == nil {
		// Already bootstrapped, skip silently.
		return nil
	} else if !errors.Is(err, ErrEmployeeNotFound) {
		return fmt.Errorf("failed to check for bootstrap admin: %w", err)
	}

	result, err := s.identityService.Provision(ctx, name, email, password, rbac.LegacyAdmin)
	if err != nil {
		return fmt.Errorf("failed to provision bootstrap admin: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:    audit.TypeAdminBootstrap,
		ActorID: audit.ActorSystemBootstrap,
		Metadata: map[string]any{
			"email":         email,
			"role_assigned": result.RoleAssigned,
		},
	})

	fmt.Printf("Successfully bootstrapped initial admin: %s\n", email)
	return nil
}

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
	"time"
)

// Domain errors
var (
	ErrEmployeeNotFound   = errors.New("employee not found")
	ErrEmployeeExists     = errors.New("employee already exists")
	ErrEmployeeNotLinked  = errors.New("no employee record linked to subject")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrProviderManaged    = errors.New("account is provider-managed, no local password")
)

// Employee is the legacy account record. It predates the identity
// provider: Role is the denormalized legacy enum value, PasswordHash is
// set only for accounts that still log in with a local password, and
// SubjectID links the record to its provider identity once migrated.
type Employee struct {
	ID           int64
	Name         string
	Email        string
	Role         string // legacy enum value (ADMIN, MANAGER, EMPLOYEE, INTERN)
	PasswordHash *string
	SubjectID    *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Repository defines the interface for employee persistence.
type Repository interface {
	// Create inserts a new employee record.
	Create(ctx context.Context, employee *Employee) error

	// GetByID retrieves an employee by legacy id.
	GetByID(ctx context.Context, id int64) (*Employee, error)

	// GetByEmail retrieves an employee by email.
	GetByEmail(ctx context.Context, email string) (*Employee, error)

	// GetBySubjectID retrieves an employee by provider subject id.
	GetBySubjectID(ctx context.Context, subjectID string) (*Employee, error)

	// UpdateRole updates the denormalized legacy role field.
	UpdateRole(ctx context.Context, id int64, legacyRole string) error

	// LinkSubject stores the provider subject cross-reference.
	LinkSubject(ctx context.Context, id int64, subjectID string) error

	// List retrieves all employees.
	List(ctx context.Context) ([]*Employee, error)
}

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

// Package token issues and verifies the locally signed bearer credential.
// The credential embeds the legacy employee id and role so requests on the
// legacy path need no role lookup. Tokens are not revocable before expiry;
// logout is a client-side deletion.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fosys/fosys/internal/id"
)

// Domain errors
var (
	ErrExpired = errors.New("token expired")
	ErrInvalid = errors.New("token invalid")
)

// DefaultTTL matches the lifetime the legacy system always used.
const DefaultTTL = time.Hour

// Claims is the payload of a locally signed credential.
type Claims struct {
	EmployeeID int64  `json:"eid"`
	Role       string `json:"role"`          // legacy enum value (ADMIN, MANAGER, EMPLOYEE, INTERN)
	SubjectID  string `json:"sid,omitempty"` // provider subject cross-reference, empty for pure legacy accounts
	jwt.RegisteredClaims
}

// Issuer mints and verifies HS256 credentials with a fixed TTL.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewIssuer creates an issuer. A zero ttl falls back to DefaultTTL.
func NewIssuer(secret []byte, issuer string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: secret, issuer: issuer, ttl: ttl}
}

// TTL returns the configured credential lifetime.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue mints a signed credential for the given employee. subjectID may be
// empty for accounts that predate the identity provider.
func (i *Issuer) Issue(employeeID int64, legacyRole, subjectID string) (string, error) {
	now := time.Now()
	claims := Claims{
		EmployeeID: employeeID,
		Role:       legacyRole,
		SubjectID:  subjectID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id.NewUUIDv7(),
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a credential. Expiry and invalidity are
// distinct failures: an expired-but-authentic token returns ErrExpired,
// anything else (bad signature, wrong algorithm, malformed) ErrInvalid.
func (i *Issuer) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithIssuer(i.issuer))

	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpired
	default:
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
}

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

// Package idp talks to the hosted identity provider. The provider owns
// primary credentials and subject identities; this client only validates
// tokens, exchanges passwords for sessions, and provisions users through
// the admin surface. A provider outage is reported as ErrUnavailable so
// callers never mistake it for a bad token.
package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Domain errors
var (
	ErrInvalidToken       = errors.New("provider rejected token")
	ErrInvalidCredentials = errors.New("provider rejected credentials")
	ErrUnavailable        = errors.New("identity provider unavailable")
)

// DefaultTimeout bounds every provider call.
const DefaultTimeout = 5 * time.Second

// Identity is the provider's view of a subject.
type Identity struct {
	SubjectID string `json:"id"`
	Email     string `json:"email"`
}

// Session is a provider-issued session from a password grant.
type Session struct {
	AccessToken string   `json:"access_token"`
	User        Identity `json:"user"`
}

// Verifier validates provider-issued bearer tokens.
type Verifier interface {
	ValidateToken(ctx context.Context, accessToken string) (*Identity, error)
}

// Authenticator exchanges primary credentials for a provider session and
// provisions new provider accounts.
type Authenticator interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	CreateUser(ctx context.Context, email, password, name string) (*Identity, error)
}

// Config holds provider connection settings.
type Config struct {
	BaseURL    string
	ServiceKey string
	Timeout    time.Duration
}

// Client is the REST implementation of Verifier and Authenticator.
type Client struct {
	baseURL    string
	serviceKey string
	http       *http.Client
}

// NewClient creates a provider client. A zero timeout falls back to
// DefaultTimeout.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		serviceKey: cfg.ServiceKey,
		http:       &http.Client{Timeout: timeout},
	}
}

// ValidateToken asks the provider who the bearer of accessToken is.
func (c *Client) ValidateToken(ctx context.Context, accessToken string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("apikey", c.serviceKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var identity Identity
		if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
			return nil, fmt.Errorf("failed to decode provider response: %w", err)
		}
		if identity.SubjectID == "" {
			return nil, fmt.Errorf("%w: empty subject in provider response", ErrInvalidToken)
		}
		return &identity, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrInvalidToken
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: provider returned %d", ErrUnavailable, resp.StatusCode)
	default:
		return nil, fmt.Errorf("unexpected provider status %d", resp.StatusCode)
	}
}

// SignInWithPassword performs the provider password grant.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	url := c.baseURL + "/auth/v1/token?grant_type=password"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.serviceKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var session Session
		if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
			return nil, fmt.Errorf("failed to decode provider response: %w", err)
		}
		return &session, nil
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrInvalidCredentials
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: provider returned %d", ErrUnavailable, resp.StatusCode)
	default:
		return nil, fmt.Errorf("unexpected provider status %d", resp.StatusCode)
	}
}

// CreateUser provisions a provider account through the admin surface. The
// account is created pre-confirmed; the provider is the source of truth
// for the subject id it returns.
func (c *Client) CreateUser(ctx context.Context, email, password, name string) (*Identity, error) {
	body, err := json.Marshal(map[string]any{
		"email":         email,
		"password":      password,
		"email_confirm": true,
		"user_metadata": map[string]string{"name": name},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/v1/admin/users", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		var identity Identity
		if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
			return nil, fmt.Errorf("failed to decode provider response: %w", err)
		}
		return &identity, nil
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: provider returned %d", ErrUnavailable, resp.StatusCode)
	default:
		return nil, fmt.Errorf("provider refused user creation: status %d", resp.StatusCode)
	}
}

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

package idp_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fosys/fosys/internal/idp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateToken_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, "Bearer provider-token", r.Header.Get("Authorization"))
		assert.Equal(t, "service-key", r.Header.Get("apikey"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"6f1e8a00-0000-0000-0000-000000000001","email":"dev@fosys.io"}`))
	}))
	defer srv.Close()

	client := idp.NewClient(idp.Config{BaseURL: srv.URL, ServiceKey: "service-key"})

	identity, err := client.ValidateToken(context.Background(), "provider-token")
	require.NoError(t, err)
	assert.Equal(t, "6f1e8a00-0000-0000-0000-000000000001", identity.SubjectID)
	assert.Equal(t, "dev@fosys.io", identity.Email)
}

func TestValidateToken_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := idp.NewClient(idp.Config{BaseURL: srv.URL, ServiceKey: "service-key"})

	_, err := client.ValidateToken(context.Background(), "bad-token")
	assert.ErrorIs(t, err, idp.ErrInvalidToken)
}

func TestValidateToken_ServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := idp.NewClient(idp.Config{BaseURL: srv.URL, ServiceKey: "service-key"})

	_, err := client.ValidateToken(context.Background(), "token")
	assert.ErrorIs(t, err, idp.ErrUnavailable)
	assert.NotErrorIs(t, err, idp.ErrInvalidToken)
}

func TestValidateToken_TimeoutIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := idp.NewClient(idp.Config{
		BaseURL:    srv.URL,
		ServiceKey: "service-key",
		Timeout:    20 * time.Millisecond,
	})

	_, err := client.ValidateToken(context.Background(), "token")
	assert.ErrorIs(t, err, idp.ErrUnavailable)
}

func TestSignInWithPassword(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at-123","user":{"id":"6f1e8a00-0000-0000-0000-000000000002","email":"mgr@fosys.io"}}`))
	}))
	defer srv.Close()

	client := idp.NewClient(idp.Config{BaseURL: srv.URL, ServiceKey: "service-key"})

	session, err := client.SignInWithPassword(context.Background(), "mgr@fosys.io", "pw")
	require.NoError(t, err)
	assert.Equal(t, "at-123", session.AccessToken)
	assert.Equal(t, "mgr@fosys.io", session.User.Email)
}

func TestSignInWithPassword_BadCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := idp.NewClient(idp.Config{BaseURL: srv.URL, ServiceKey: "service-key"})

	_, err := client.SignInWithPassword(context.Background(), "mgr@fosys.io", "wrong")
	assert.ErrorIs(t, err, idp.ErrInvalidCredentials)
}

func TestCreateUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/admin/users", r.URL.Path)
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"6f1e8a00-0000-0000-0000-000000000003","email":"new@fosys.io"}`))
	}))
	defer srv.Close()

	client := idp.NewClient(idp.Config{BaseURL: srv.URL, ServiceKey: "service-key"})

	identity, err := client.CreateUser(context.Background(), "new@fosys.io", "pw", "New Hire")
	require.NoError(t, err)
	assert.Equal(t, "6f1e8a00-0000-0000-0000-000000000003", identity.SubjectID)
}

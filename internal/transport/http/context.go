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

package http

import (
	"context"

	"github.com/fosys/fosys/internal/authn"
)

type contextKey string

const identityKey contextKey = "identity"

// GetIdentity retrieves the resolved identity from context. It is nil on
// routes that never passed the Authenticate middleware.
func GetIdentity(ctx context.Context) *authn.Identity {
	if val, ok := ctx.Value(identityKey).(*authn.Identity); ok {
		return val
	}
	return nil
}

func withIdentity(ctx context.Context, identity *authn.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

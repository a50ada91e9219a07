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

package authn

import "errors"

// Resolution failure taxonomy. Every failed resolution maps to exactly
// one of these; anything else is an internal error and must not leak its
// cause to the caller. Access denials are produced at the gate, which
// has the route's requirement in hand for the diagnostic body.
var (
	ErrMissingCredential   = errors.New("missing bearer credential")
	ErrInvalidCredential   = errors.New("invalid credential")
	ErrExpiredCredential   = errors.New("expired credential")
	ErrProviderUnavailable = errors.New("identity provider unavailable")
	ErrRoleNotAssigned     = errors.New("no role assigned")
)

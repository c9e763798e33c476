// Copyright 2026 Blink Labs Software
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

// Package common provides shared types, interfaces, and errors for the
// multi-token ledger.
//
// # Key Files by Purpose
//
// Interfaces (start here to understand the API):
//   - state.go: BalanceState, AllowanceState
//
// Core Types:
//   - account.go: Account identifiers, the ZeroAccount sentinel, bech32 form
//   - token.go: TokenId, Leg, Legs and the Unlimited allowance sentinel
//
// Errors:
//   - errors.go: typed errors carrying context, each matching a sentinel
//     (ErrInsufficientBalance, ErrNotAllowed, ...) via errors.Is
//
// # Testing
//
// Use the mocks in internal/test/ledger for hooks, receivers and emitters.
package common

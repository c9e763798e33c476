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

package common

// Related files:
//   - ledger/balances.go: in-memory BalanceState
//   - ledger/allowances.go: in-memory AllowanceState

// BalanceState defines the interface for reading and mutating per-account,
// per-token balances
type BalanceState interface {
	BalanceOf(Account, TokenId) uint64
	TotalSupply(TokenId) uint64
	// IncreaseBalance credits an account. When mint is set the total supply
	// for the token grows by the same amount
	IncreaseBalance(account Account, id TokenId, amount uint64, mint bool) error
	// DecreaseBalance debits an account, failing with ErrInsufficientBalance
	// without modifying anything if the balance is too small. When burn is
	// set the total supply shrinks by the same amount
	DecreaseBalance(account Account, id TokenId, amount uint64, burn bool) error
}

// AllowanceState defines the interface for (owner, operator, token id)
// spending approvals. A nil token id addresses the blanket record, which is
// stored independently of any id-specific record
type AllowanceState interface {
	// Allowance returns the stored amount, or zero if no record exists
	Allowance(owner Account, operator Account, id *TokenId) uint64
	SetAllowance(owner Account, operator Account, id *TokenId, amount uint64)
	// DecreaseAllowance subtracts amount from the record, failing with
	// ErrInsufficientAllowance if the record is too small. Records holding
	// Unlimited are left untouched, and a zero amount never creates a record
	DecreaseAllowance(owner Account, operator Account, id *TokenId, amount uint64) error
}

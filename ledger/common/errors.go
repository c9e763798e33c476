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

import (
	"errors"
	"fmt"
)

// Sentinel errors so callers can use errors.Is regardless of the typed
// error carrying the details
var (
	ErrTransferToZeroAddress = errors.New("transfer to zero address")
	ErrNotAllowed            = errors.New("operator not allowed")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrHookRejected          = errors.New("transfer hook rejected")
	ErrRecipientRejected     = errors.New("recipient rejected transfer")
	ErrBalanceOverflow       = errors.New("balance overflow")
	ErrSelfApproval          = errors.New("cannot approve self")
)

// InsufficientBalanceError indicates a debit larger than the stored balance
type InsufficientBalanceError struct {
	Account Account
	Id      TokenId
	Balance uint64
	Amount  uint64
}

func (e InsufficientBalanceError) Error() string {
	return fmt.Sprintf(
		"insufficient balance: account %s has %d of token %s, need %d",
		e.Account.String(),
		e.Balance,
		e.Id.String(),
		e.Amount,
	)
}

func (InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}

// BalanceOverflowError indicates a credit (or mint) that would exceed the
// amount representable for a balance or total supply
type BalanceOverflowError struct {
	Account Account
	Id      TokenId
	Current uint64
	Amount  uint64
	// Supply is set when the total supply, rather than the balance, would overflow
	Supply bool
}

func (e BalanceOverflowError) Error() string {
	if e.Supply {
		return fmt.Sprintf(
			"total supply overflow: token %s has supply %d, cannot add %d",
			e.Id.String(),
			e.Current,
			e.Amount,
		)
	}
	return fmt.Sprintf(
		"balance overflow: account %s has %d of token %s, cannot add %d",
		e.Account.String(),
		e.Current,
		e.Id.String(),
		e.Amount,
	)
}

func (BalanceOverflowError) Is(target error) bool {
	return target == ErrBalanceOverflow
}

// InsufficientAllowanceError indicates an allowance record below the amount
// being spent. A nil Id refers to the blanket record
type InsufficientAllowanceError struct {
	Owner     Account
	Operator  Account
	Id        *TokenId
	Allowance uint64
	Amount    uint64
}

func (e InsufficientAllowanceError) Error() string {
	scope := "all tokens"
	if e.Id != nil {
		scope = "token " + e.Id.String()
	}
	return fmt.Sprintf(
		"insufficient allowance: operator %s may spend %d of %s for owner %s, need %d",
		e.Operator.String(),
		e.Allowance,
		scope,
		e.Owner.String(),
		e.Amount,
	)
}

func (InsufficientAllowanceError) Is(target error) bool {
	return target == ErrInsufficientAllowance
}

// NotAllowedError is returned by the validation pass when an operator lacks
// allowance for one of the legs. Err carries the allowance shortfall
type NotAllowedError struct {
	Leg int
	Err error
}

func (e NotAllowedError) Error() string {
	return fmt.Sprintf("operator not allowed for leg %d: %v", e.Leg, e.Err)
}

func (e NotAllowedError) Unwrap() error { return e.Err }

func (NotAllowedError) Is(target error) bool {
	return target == ErrNotAllowed
}

// HookRejectedError wraps a failure returned by a before/after transfer hook
type HookRejectedError struct {
	Hook string
	Err  error
}

func (e HookRejectedError) Error() string {
	return fmt.Sprintf("%s hook rejected transfer: %v", e.Hook, e.Err)
}

func (e HookRejectedError) Unwrap() error { return e.Err }

func (HookRejectedError) Is(target error) bool {
	return target == ErrHookRejected
}

// RecipientRejectedError wraps a failure returned by the recipient's
// receiver capability
type RecipientRejectedError struct {
	Recipient Account
	Err       error
}

func (e RecipientRejectedError) Error() string {
	return fmt.Sprintf(
		"recipient %s rejected transfer: %v",
		e.Recipient.String(),
		e.Err,
	)
}

func (e RecipientRejectedError) Unwrap() error { return e.Err }

func (RecipientRejectedError) Is(target error) bool {
	return target == ErrRecipientRejected
}

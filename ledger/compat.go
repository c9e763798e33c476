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

package ledger

import (
	"github.com/blinklabs-io/batchledger/ledger/common"
)

// The below are convenience aliases so that callers of the engine rarely
// need to import the common package directly

// Accounts
type Account = common.Account

var ZeroAccount = common.ZeroAccount

func NewAccountFromBech32(account string) (Account, error) {
	return common.NewAccountFromBech32(account)
}

// Tokens
type TokenId = common.TokenId
type Leg = common.Leg
type Legs = common.Legs

const Unlimited = common.Unlimited

func TokenIdFromUint64(n uint64) TokenId {
	return common.TokenIdFromUint64(n)
}

func NewLeg(id TokenId, amount uint64) Leg {
	return common.NewLeg(id, amount)
}

// Errors
var (
	ErrTransferToZeroAddress = common.ErrTransferToZeroAddress
	ErrNotAllowed            = common.ErrNotAllowed
	ErrInsufficientAllowance = common.ErrInsufficientAllowance
	ErrInsufficientBalance   = common.ErrInsufficientBalance
	ErrHookRejected          = common.ErrHookRejected
	ErrRecipientRejected     = common.ErrRecipientRejected
	ErrBalanceOverflow       = common.ErrBalanceOverflow
	ErrSelfApproval          = common.ErrSelfApproval
)

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

var _ common.BalanceState = (*Balances)(nil)

// Balances holds per-account, per-token balances and the running total
// supply of each token. A record that has been written stays present even
// when it drops to zero. Zero-amount changes never create a record
type Balances struct {
	balances map[Account]map[TokenId]uint64
	supply   map[TokenId]uint64
	journal  *journal
}

func newBalances(j *journal) *Balances {
	return &Balances{
		balances: make(map[Account]map[TokenId]uint64),
		supply:   make(map[TokenId]uint64),
		journal:  j,
	}
}

func (b *Balances) BalanceOf(account Account, id TokenId) uint64 {
	return b.balances[account][id]
}

func (b *Balances) TotalSupply(id TokenId) uint64 {
	return b.supply[id]
}

// Accounts returns the number of accounts with at least one balance record
func (b *Balances) Accounts() int {
	return len(b.balances)
}

func (b *Balances) IncreaseBalance(
	account Account,
	id TokenId,
	amount uint64,
	mint bool,
) error {
	if amount == 0 {
		return nil
	}
	current := b.BalanceOf(account, id)
	if amount > common.Unlimited-current {
		return common.BalanceOverflowError{
			Account: account,
			Id:      id,
			Current: current,
			Amount:  amount,
		}
	}
	if mint {
		supply := b.supply[id]
		if amount > common.Unlimited-supply {
			return common.BalanceOverflowError{
				Id:      id,
				Current: supply,
				Amount:  amount,
				Supply:  true,
			}
		}
		b.setSupply(id, supply+amount)
	}
	b.setBalance(account, id, current+amount)
	return nil
}

func (b *Balances) DecreaseBalance(
	account Account,
	id TokenId,
	amount uint64,
	burn bool,
) error {
	if amount == 0 {
		return nil
	}
	current := b.BalanceOf(account, id)
	if current < amount {
		return common.InsufficientBalanceError{
			Account: account,
			Id:      id,
			Balance: current,
			Amount:  amount,
		}
	}
	if burn {
		// Supply always covers every balance, so this cannot underflow
		b.setSupply(id, b.supply[id]-amount)
	}
	b.setBalance(account, id, current-amount)
	return nil
}

func (b *Balances) setBalance(account Account, id TokenId, amount uint64) {
	accountBalances, ok := b.balances[account]
	if !ok {
		accountBalances = make(map[TokenId]uint64)
		b.balances[account] = accountBalances
		b.journal.record(func() {
			delete(b.balances, account)
		})
	}
	prev, existed := accountBalances[id]
	accountBalances[id] = amount
	b.journal.record(func() {
		if !existed {
			delete(b.balances[account], id)
			return
		}
		b.balances[account][id] = prev
	})
}

func (b *Balances) setSupply(id TokenId, amount uint64) {
	prev, existed := b.supply[id]
	b.supply[id] = amount
	b.journal.record(func() {
		if !existed {
			delete(b.supply, id)
			return
		}
		b.supply[id] = prev
	})
}

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

var _ common.AllowanceState = (*Allowances)(nil)

// Allowances holds (owner, operator, token id) spending approvals. Blanket
// records (nil token id) live in their own map and never interact with
// id-specific records at this level
type Allowances struct {
	specific map[Account]map[Account]map[TokenId]uint64
	blanket  map[Account]map[Account]uint64
	journal  *journal
}

func newAllowances(j *journal) *Allowances {
	return &Allowances{
		specific: make(map[Account]map[Account]map[TokenId]uint64),
		blanket:  make(map[Account]map[Account]uint64),
		journal:  j,
	}
}

func (a *Allowances) Allowance(
	owner Account,
	operator Account,
	id *TokenId,
) uint64 {
	if id == nil {
		return a.blanket[owner][operator]
	}
	return a.specific[owner][operator][*id]
}

func (a *Allowances) SetAllowance(
	owner Account,
	operator Account,
	id *TokenId,
	amount uint64,
) {
	if id == nil {
		a.setBlanket(owner, operator, amount)
		return
	}
	a.setSpecific(owner, operator, *id, amount)
}

// DecreaseAllowance subtracts amount from a record. Unlimited records and
// zero amounts leave the ledger untouched
func (a *Allowances) DecreaseAllowance(
	owner Account,
	operator Account,
	id *TokenId,
	amount uint64,
) error {
	// Zero never creates a record
	if amount == 0 {
		return nil
	}
	current := a.Allowance(owner, operator, id)
	if current == common.Unlimited {
		return nil
	}
	if current < amount {
		return common.InsufficientAllowanceError{
			Owner:     owner,
			Operator:  operator,
			Id:        id,
			Allowance: current,
			Amount:    amount,
		}
	}
	a.SetAllowance(owner, operator, id, current-amount)
	return nil
}

func (a *Allowances) setBlanket(owner Account, operator Account, amount uint64) {
	ownerRecords, ok := a.blanket[owner]
	if !ok {
		ownerRecords = make(map[Account]uint64)
		a.blanket[owner] = ownerRecords
		a.journal.record(func() {
			delete(a.blanket, owner)
		})
	}
	prev, existed := ownerRecords[operator]
	ownerRecords[operator] = amount
	a.journal.record(func() {
		if !existed {
			delete(a.blanket[owner], operator)
			return
		}
		a.blanket[owner][operator] = prev
	})
}

func (a *Allowances) setSpecific(
	owner Account,
	operator Account,
	id TokenId,
	amount uint64,
) {
	ownerRecords, ok := a.specific[owner]
	if !ok {
		ownerRecords = make(map[Account]map[TokenId]uint64)
		a.specific[owner] = ownerRecords
		a.journal.record(func() {
			delete(a.specific, owner)
		})
	}
	operatorRecords, ok := ownerRecords[operator]
	if !ok {
		operatorRecords = make(map[TokenId]uint64)
		ownerRecords[operator] = operatorRecords
		a.journal.record(func() {
			delete(a.specific[owner], operator)
		})
	}
	prev, existed := operatorRecords[id]
	operatorRecords[id] = amount
	a.journal.record(func() {
		if !existed {
			delete(a.specific[owner][operator], id)
			return
		}
		a.specific[owner][operator][id] = prev
	})
}

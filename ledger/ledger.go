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
	"bytes"
	"cmp"
	"fmt"
	"slices"

	"github.com/blinklabs-io/batchledger/cbor"
	"github.com/jinzhu/copier"
)

// Ledger owns the balance and allowance stores for one token collection.
// Each engine operates on a Ledger passed in by reference, so independent
// ledgers never share state
type Ledger struct {
	balances   *Balances
	allowances *Allowances
	journal    *journal
}

func NewLedger() *Ledger {
	j := &journal{}
	return &Ledger{
		balances:   newBalances(j),
		allowances: newAllowances(j),
		journal:    j,
	}
}

func (l *Ledger) Balances() *Balances {
	return l.balances
}

func (l *Ledger) Allowances() *Allowances {
	return l.allowances
}

// ledgerData mirrors the ledger maps with exported fields for copier
type ledgerData struct {
	Balances map[Account]map[TokenId]uint64
	Supply   map[TokenId]uint64
	Specific map[Account]map[Account]map[TokenId]uint64
	Blanket  map[Account]map[Account]uint64
}

// Clone returns a deep copy of the ledger. Mutations to the clone are never
// visible in the original and vice versa
func (l *Ledger) Clone() (*Ledger, error) {
	src := ledgerData{
		Balances: l.balances.balances,
		Supply:   l.balances.supply,
		Specific: l.allowances.specific,
		Blanket:  l.allowances.blanket,
	}
	var dst ledgerData
	if err := copier.CopyWithOption(&dst, &src, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("clone ledger: %w", err)
	}
	ret := NewLedger()
	if dst.Balances != nil {
		ret.balances.balances = dst.Balances
	}
	if dst.Supply != nil {
		ret.balances.supply = dst.Supply
	}
	if dst.Specific != nil {
		ret.allowances.specific = dst.Specific
	}
	if dst.Blanket != nil {
		ret.allowances.blanket = dst.Blanket
	}
	return ret, nil
}

// BalanceRecord is a persisted (account, token id) -> amount entry
type BalanceRecord struct {
	cbor.StructAsArray
	Account Account
	Id      TokenId
	Amount  uint64
}

// SupplyRecord is a persisted token id -> total supply entry
type SupplyRecord struct {
	cbor.StructAsArray
	Id     TokenId
	Amount uint64
}

// AllowanceRecord is a persisted (owner, operator, optional token id) ->
// amount entry. A nil Id is the blanket record
type AllowanceRecord struct {
	cbor.StructAsArray
	Owner    Account
	Operator Account
	Id       *TokenId
	Amount   uint64
}

// Snapshot is the full, ordered record set of a ledger
type Snapshot struct {
	cbor.StructAsArray
	Balances   []BalanceRecord
	Supply     []SupplyRecord
	Allowances []AllowanceRecord
}

// Snapshot returns every record in the ledger in a stable order, so equal
// ledgers always produce equal snapshots
func (l *Ledger) Snapshot() Snapshot {
	var ret Snapshot
	for account, tokens := range l.balances.balances {
		for id, amount := range tokens {
			ret.Balances = append(
				ret.Balances,
				BalanceRecord{Account: account, Id: id, Amount: amount},
			)
		}
	}
	slices.SortFunc(ret.Balances, func(a, b BalanceRecord) int {
		return cmp.Or(
			bytes.Compare(a.Account[:], b.Account[:]),
			cmp.Compare(a.Id, b.Id),
		)
	})
	for id, amount := range l.balances.supply {
		ret.Supply = append(ret.Supply, SupplyRecord{Id: id, Amount: amount})
	}
	slices.SortFunc(ret.Supply, func(a, b SupplyRecord) int {
		return cmp.Compare(a.Id, b.Id)
	})
	for owner, operators := range l.allowances.blanket {
		for operator, amount := range operators {
			ret.Allowances = append(
				ret.Allowances,
				AllowanceRecord{Owner: owner, Operator: operator, Amount: amount},
			)
		}
	}
	for owner, operators := range l.allowances.specific {
		for operator, tokens := range operators {
			for id, amount := range tokens {
				tmpId := id
				ret.Allowances = append(
					ret.Allowances,
					AllowanceRecord{
						Owner:    owner,
						Operator: operator,
						Id:       &tmpId,
						Amount:   amount,
					},
				)
			}
		}
	}
	slices.SortFunc(ret.Allowances, compareAllowanceRecords)
	return ret
}

// Blanket records sort before id-specific records for the same pair
func compareAllowanceRecords(a, b AllowanceRecord) int {
	if c := bytes.Compare(a.Owner[:], b.Owner[:]); c != 0 {
		return c
	}
	if c := bytes.Compare(a.Operator[:], b.Operator[:]); c != 0 {
		return c
	}
	switch {
	case a.Id == nil && b.Id == nil:
		return 0
	case a.Id == nil:
		return -1
	case b.Id == nil:
		return 1
	}
	return cmp.Compare(*a.Id, *b.Id)
}

// NewLedgerFromSnapshot rebuilds a ledger from its records. The balances of
// each token must add up to its recorded total supply
func NewLedgerFromSnapshot(snapshot Snapshot) (*Ledger, error) {
	ret := NewLedger()
	sums := make(map[TokenId]uint64)
	for _, rec := range snapshot.Balances {
		if _, ok := ret.balances.balances[rec.Account][rec.Id]; ok {
			return nil, fmt.Errorf(
				"duplicate balance record for account %s token %s",
				rec.Account.String(),
				rec.Id.String(),
			)
		}
		if rec.Amount > Unlimited-sums[rec.Id] {
			return nil, fmt.Errorf(
				"balances of token %s overflow",
				rec.Id.String(),
			)
		}
		sums[rec.Id] += rec.Amount
		ret.balances.setBalance(rec.Account, rec.Id, rec.Amount)
	}
	for _, rec := range snapshot.Supply {
		if _, ok := ret.balances.supply[rec.Id]; ok {
			return nil, fmt.Errorf(
				"duplicate supply record for token %s",
				rec.Id.String(),
			)
		}
		ret.balances.setSupply(rec.Id, rec.Amount)
	}
	for id, sum := range sums {
		if supply := ret.balances.supply[id]; supply != sum {
			return nil, fmt.Errorf(
				"balances of token %s sum to %d but total supply is %d",
				id.String(),
				sum,
				supply,
			)
		}
	}
	for id, supply := range ret.balances.supply {
		if _, ok := sums[id]; !ok && supply != 0 {
			return nil, fmt.Errorf(
				"token %s has total supply %d but no balances",
				id.String(),
				supply,
			)
		}
	}
	for _, rec := range snapshot.Allowances {
		ret.allowances.SetAllowance(rec.Owner, rec.Operator, rec.Id, rec.Amount)
	}
	return ret, nil
}

func (l *Ledger) MarshalCBOR() ([]byte, error) {
	return cbor.Encode(l.Snapshot())
}

func (l *Ledger) UnmarshalCBOR(cborData []byte) error {
	var snapshot Snapshot
	if _, err := cbor.Decode(cborData, &snapshot); err != nil {
		return err
	}
	tmp, err := NewLedgerFromSnapshot(snapshot)
	if err != nil {
		return err
	}
	*l = *tmp
	return nil
}

func (l *Ledger) begin() error {
	return l.journal.begin()
}

func (l *Ledger) commit() {
	l.journal.commit()
}

func (l *Ledger) rollback() {
	l.journal.rollback()
}

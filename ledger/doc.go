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

// Package ledger implements a multi-token ledger with atomic batch transfers.
//
// A Ledger stores per-account balances, per-token total supply, and
// operator allowances. An Engine moves tokens between accounts: a batch of
// (token id, amount) legs either moves completely or not at all, including
// any changes made by transfer hooks. Third-party operators spend from
// id-specific or blanket allowances; a blanket allowance of Unlimited is
// never consumed.
//
// Every mutation made during an engine operation is journaled, so a failure
// at any step restores the exact prior state:
//
//	e := ledger.NewEngine(ledger.NewLedger(), ledger.WithEventEmitter(log))
//	err := e.BatchTransfer(from, to, ledger.Legs{ledger.NewLeg(id, 50)}, nil)
//	if errors.Is(err, ledger.ErrInsufficientBalance) {
//		// nothing changed
//	}
package ledger

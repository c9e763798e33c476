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

import "errors"

var errJournalOpen = errors.New("ledger journal already open")

// journal records undo actions for every mutation made while it is open.
// Rolling back replays them newest first, which restores the exact prior
// value of every touched record, including whether the record existed
type journal struct {
	open bool
	undo []func()
}

func (j *journal) begin() error {
	if j.open {
		return errJournalOpen
	}
	j.open = true
	j.undo = j.undo[:0]
	return nil
}

// record registers an undo action. It is a no-op when the journal is closed,
// so mutations made outside an engine operation are applied directly
func (j *journal) record(undo func()) {
	if !j.open {
		return
	}
	j.undo = append(j.undo, undo)
}

func (j *journal) commit() {
	j.open = false
	clear(j.undo)
	j.undo = j.undo[:0]
}

func (j *journal) rollback() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.commit()
}

func (j *journal) size() int {
	return len(j.undo)
}

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

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/batchledger/ledger"
)

const (
	opMint     = "mint"
	opBurn     = "burn"
	opApprove  = "approve"
	opTransfer = "transfer"
	opSimulate = "simulate"
)

// step is one scenario operation. Accounts are bech32 strings and token ids
// are hex strings. Operator defaults to From for transfers and burns
type step struct {
	Op        string          `json:"op"`
	Operator  *ledger.Account `json:"operator,omitempty"`
	From      ledger.Account  `json:"from"`
	To        ledger.Account  `json:"to"`
	Legs      ledger.Legs     `json:"legs"`
	Data      []byte          `json:"data,omitempty"`
	Id        *ledger.TokenId `json:"id,omitempty"`
	Amount    uint64          `json:"amount"`
	ExpectErr bool            `json:"expectError,omitempty"`
}

type scenario struct {
	Steps []step `json:"steps"`
}

func readScenario(r io.Reader) (scenario, error) {
	var ret scenario
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ret); err != nil {
		return scenario{}, fmt.Errorf("decode scenario: %w", err)
	}
	return ret, nil
}

func (s step) operator() ledger.Account {
	if s.Operator != nil {
		return *s.Operator
	}
	return s.From
}

func (s step) apply(e *ledger.Engine) error {
	switch s.Op {
	case opMint:
		return e.Mint(s.operator(), s.To, s.Legs, s.Data)
	case opBurn:
		return e.Burn(s.operator(), s.From, s.Legs)
	case opApprove:
		return e.Approve(s.From, s.To, s.Id, s.Amount)
	case opTransfer:
		return e.BatchTransferFrom(s.operator(), s.From, s.To, s.Legs, s.Data)
	case opSimulate:
		_, err := e.Simulate(s.operator(), s.From, s.To, s.Legs, s.Data)
		return err
	default:
		return fmt.Errorf("unknown operation %q", s.Op)
	}
}

// runScenario applies every step in order. A step that fails without
// expectError stops the run; one that succeeds despite expectError does too
func runScenario(e *ledger.Engine, sc scenario, logger *slog.Logger) error {
	for idx, s := range sc.Steps {
		err := s.apply(e)
		switch {
		case err != nil && !s.ExpectErr:
			return fmt.Errorf("step %d (%s): %w", idx, s.Op, err)
		case err == nil && s.ExpectErr:
			return fmt.Errorf("step %d (%s): expected an error", idx, s.Op)
		case err != nil:
			logger.Info(
				"step failed as expected",
				"component", "cli",
				"step", idx,
				"op", s.Op,
				"error", err,
			)
		default:
			logger.Debug(
				"step applied",
				"component", "cli",
				"step", idx,
				"op", s.Op,
				"legs", s.Legs.String(),
			)
		}
	}
	return nil
}

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
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/blinklabs-io/batchledger/ledger"
	"github.com/blinklabs-io/batchledger/ledger/common"
)

func cmdRun(f *globalFlags, logger *slog.Logger) error {
	args := f.flagset.Args()[1:]
	if len(args) != 1 {
		return errors.New("usage: run <scenario.json>")
	}
	scenarioFile, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer scenarioFile.Close()
	sc, err := readScenario(scenarioFile)
	if err != nil {
		return err
	}

	ctx := context.Background()
	state, err := openState(f, logger)
	if err != nil {
		return err
	}
	defer state.Close()
	l, err := state.Load(ctx)
	if err != nil {
		return err
	}

	events := &ledger.EventLog{}
	// Events reach the events file only once the ledger they describe is saved
	pending := &pendingEvents{}
	e := ledger.NewEngine(
		l,
		ledger.WithEventEmitter(fanout{events, pending}),
		ledger.WithLogger(logger),
	)
	if err := runScenario(e, sc, logger); err != nil {
		return err
	}
	if err := state.Save(ctx, l); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	if f.events != "" {
		if err := appendEvents(f.events, pending, logger); err != nil {
			return fmt.Errorf("write events: %w", err)
		}
	}
	logger.Info(
		"scenario complete",
		"component", "cli",
		"steps", len(sc.Steps),
		"transfers", len(events.TransferBatches()),
		"approvals", len(events.Approvals()),
		"accounts", l.Balances().Accounts(),
	)
	return printBalances(os.Stdout, l)
}

func cmdBalances(f *globalFlags, logger *slog.Logger) error {
	state, err := openState(f, logger)
	if err != nil {
		return err
	}
	defer state.Close()
	l, err := state.Load(context.Background())
	if err != nil {
		return err
	}
	return printBalances(os.Stdout, l)
}

func printBalances(w io.Writer, l *ledger.Ledger) error {
	snapshot := l.Snapshot()
	for _, rec := range snapshot.Balances {
		if _, err := fmt.Fprintf(w, "%s %s %d\n", rec.Account.String(), rec.Id.String(), rec.Amount); err != nil {
			return err
		}
	}
	for _, rec := range snapshot.Supply {
		if _, err := fmt.Fprintf(w, "supply %s %d\n", rec.Id.String(), rec.Amount); err != nil {
			return err
		}
	}
	return nil
}

// cmdEvents prints an event file written with -events as JSON lines
func cmdEvents(f *globalFlags) error {
	args := f.flagset.Args()[1:]
	if len(args) != 1 {
		return errors.New("usage: events <events.cbor>")
	}
	eventsFile, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer eventsFile.Close()
	printer := &jsonPrinter{enc: json.NewEncoder(os.Stdout)}
	if err := ledger.ReadEvents(eventsFile, printer); err != nil {
		return err
	}
	return printer.err
}

// cmdAccount derives the account for an ed25519 public key
func cmdAccount(f *globalFlags) error {
	args := f.flagset.Args()[1:]
	if len(args) != 1 {
		return errors.New("usage: account <pubkey-hex>")
	}
	pubKey, err := hex.DecodeString(args[0])
	if err != nil {
		return err
	}
	account, err := common.NewAccountFromPubKey(pubKey)
	if err != nil {
		return err
	}
	fmt.Println(account.String())
	return nil
}

// appendEvents appends the pending events to the CBOR event file at path
func appendEvents(path string, pending *pendingEvents, logger *slog.Logger) error {
	eventsFile, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer eventsFile.Close()
	writer, err := ledger.NewEventWriter(eventsFile, logger)
	if err != nil {
		return err
	}
	async := ledger.NewAsyncEmitter(writer, 64, logger)
	pending.replay(async)
	async.Stop()
	return eventsFile.Sync()
}

// pendingEvents holds events in emission order until they are replayed
type pendingEvents struct {
	events []any
}

func (p *pendingEvents) EmitTransferBatch(evt ledger.TransferBatchEvent) {
	evt.Legs = slices.Clone(evt.Legs)
	p.events = append(p.events, evt)
}

func (p *pendingEvents) EmitApproval(evt ledger.ApprovalEvent) {
	p.events = append(p.events, evt)
}

func (p *pendingEvents) replay(target ledger.EventEmitter) {
	for _, evt := range p.events {
		switch v := evt.(type) {
		case ledger.TransferBatchEvent:
			target.EmitTransferBatch(v)
		case ledger.ApprovalEvent:
			target.EmitApproval(v)
		}
	}
}

// fanout forwards every event to each emitter in order
type fanout []ledger.EventEmitter

func (f fanout) EmitTransferBatch(evt ledger.TransferBatchEvent) {
	for _, e := range f {
		e.EmitTransferBatch(evt)
	}
}

func (f fanout) EmitApproval(evt ledger.ApprovalEvent) {
	for _, e := range f {
		e.EmitApproval(evt)
	}
}

type jsonPrinter struct {
	enc *json.Encoder
	err error
}

func (p *jsonPrinter) EmitTransferBatch(evt ledger.TransferBatchEvent) {
	p.print("transferBatch", evt)
}

func (p *jsonPrinter) EmitApproval(evt ledger.ApprovalEvent) {
	p.print("approval", evt)
}

func (p *jsonPrinter) print(eventType string, evt any) {
	if p.err != nil {
		return
	}
	p.err = p.enc.Encode(map[string]any{"type": eventType, "event": evt})
}

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
	"errors"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"sync"

	"github.com/blinklabs-io/batchledger/cbor"
)

const (
	EventTypeTransferBatch = 0
	EventTypeApproval      = 1
)

// TransferBatchEvent is emitted once per successful batch, mint or burn.
// From is the zero account for a mint and To is the zero account for a burn
type TransferBatchEvent struct {
	cbor.StructAsArray
	Operator Account
	From     Account
	To       Account
	Legs     Legs
}

// ApprovalEvent is emitted when an allowance record is set. A nil Id is the
// blanket record
type ApprovalEvent struct {
	cbor.StructAsArray
	Owner    Account
	Operator Account
	Id       *TokenId
	Amount   uint64
}

// EventEmitter receives ledger notifications. Emission is fire-and-forget:
// an emitter cannot fail an operation or cause a rollback
type EventEmitter interface {
	EmitTransferBatch(TransferBatchEvent)
	EmitApproval(ApprovalEvent)
}

// NopEmitter discards every event
type NopEmitter struct{}

func (NopEmitter) EmitTransferBatch(TransferBatchEvent) {}
func (NopEmitter) EmitApproval(ApprovalEvent)           {}

// EventLog keeps every event in memory, in emission order
type EventLog struct {
	mutex     sync.Mutex
	transfers []TransferBatchEvent
	approvals []ApprovalEvent
}

func (e *EventLog) EmitTransferBatch(evt TransferBatchEvent) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	evt.Legs = slices.Clone(evt.Legs)
	e.transfers = append(e.transfers, evt)
}

func (e *EventLog) EmitApproval(evt ApprovalEvent) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.approvals = append(e.approvals, evt)
}

func (e *EventLog) TransferBatches() []TransferBatchEvent {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return slices.Clone(e.transfers)
}

func (e *EventLog) Approvals() []ApprovalEvent {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return slices.Clone(e.approvals)
}

// EventRecord is the tagged wire form written by EventWriter:
// [type, event]
type EventRecord struct {
	cbor.StructAsArray
	Type  uint
	Event cbor.RawMessage
}

// EventWriter writes every event as a CBOR EventRecord to an io.Writer.
// Write failures are logged and otherwise ignored
type EventWriter struct {
	mutex  sync.Mutex
	enc    *cbor.Encoder
	logger *slog.Logger
}

func NewEventWriter(w io.Writer, logger *slog.Logger) (*EventWriter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	enc, err := cbor.NewEncoder(w)
	if err != nil {
		return nil, err
	}
	return &EventWriter{
		enc:    enc,
		logger: logger,
	}, nil
}

func (e *EventWriter) EmitTransferBatch(evt TransferBatchEvent) {
	e.write(EventTypeTransferBatch, evt)
}

func (e *EventWriter) EmitApproval(evt ApprovalEvent) {
	e.write(EventTypeApproval, evt)
}

func (e *EventWriter) write(eventType uint, evt any) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	evtCbor, err := cbor.Encode(evt)
	if err != nil {
		e.logger.Warn(
			"failed to encode event",
			"component", "ledger",
			"type", eventType,
			"error", err,
		)
		return
	}
	if err := e.enc.Encode(EventRecord{Type: eventType, Event: evtCbor}); err != nil {
		e.logger.Warn(
			"failed to write event",
			"component", "ledger",
			"type", eventType,
			"error", err,
		)
	}
}

// ReadEvents decodes a stream produced by EventWriter and replays it into
// the given emitter
func ReadEvents(r io.Reader, emitter EventEmitter) error {
	dec, err := cbor.NewStreamDecoder(r)
	if err != nil {
		return err
	}
	for {
		var rec EventRecord
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		switch rec.Type {
		case EventTypeTransferBatch:
			var evt TransferBatchEvent
			if _, err := cbor.Decode(rec.Event, &evt); err != nil {
				return err
			}
			emitter.EmitTransferBatch(evt)
		case EventTypeApproval:
			var evt ApprovalEvent
			if _, err := cbor.Decode(rec.Event, &evt); err != nil {
				return err
			}
			emitter.EmitApproval(evt)
		default:
			return UnknownEventTypeError{Type: rec.Type}
		}
	}
}

// UnknownEventTypeError indicates an event record with an unrecognized tag
type UnknownEventTypeError struct {
	Type uint
}

func (e UnknownEventTypeError) Error() string {
	return "unknown event type: " + strconv.FormatUint(uint64(e.Type), 10)
}

// AsyncEmitter hands events to another emitter on a dedicated goroutine, so
// slow consumers never delay an operation. Stop drains pending events and
// waits for the goroutine to exit
type AsyncEmitter struct {
	target   EventEmitter
	eventsCh chan any
	doneCh   chan struct{}
	stopOnce sync.Once
	mutex    sync.RWMutex
	stopped  bool
	logger   *slog.Logger
}

func NewAsyncEmitter(target EventEmitter, bufferSize int, logger *slog.Logger) *AsyncEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	if target == nil {
		target = NopEmitter{}
	}
	e := &AsyncEmitter{
		target:   target,
		eventsCh: make(chan any, bufferSize),
		doneCh:   make(chan struct{}),
		logger:   logger,
	}
	go e.run()
	return e
}

func (e *AsyncEmitter) run() {
	defer close(e.doneCh)
	for evt := range e.eventsCh {
		switch v := evt.(type) {
		case TransferBatchEvent:
			e.target.EmitTransferBatch(v)
		case ApprovalEvent:
			e.target.EmitApproval(v)
		}
	}
}

func (e *AsyncEmitter) EmitTransferBatch(evt TransferBatchEvent) {
	evt.Legs = slices.Clone(evt.Legs)
	e.send(evt)
}

func (e *AsyncEmitter) EmitApproval(evt ApprovalEvent) {
	e.send(evt)
}

func (e *AsyncEmitter) send(evt any) {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	if e.stopped {
		e.logger.Debug(
			"dropping event after stop",
			"component", "ledger",
		)
		return
	}
	e.eventsCh <- evt
}

// Stop stops accepting events, delivers everything already queued, and
// returns once the delivery goroutine has exited
func (e *AsyncEmitter) Stop() {
	e.stopOnce.Do(func() {
		e.mutex.Lock()
		e.stopped = true
		close(e.eventsCh)
		e.mutex.Unlock()
	})
	<-e.doneCh
}

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
	"context"
	"log/slog"
	"sync"

	"github.com/blinklabs-io/batchledger/ledger/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/blinklabs-io/batchledger/ledger"

// Engine moves tokens between accounts of a Ledger. Every operation is
// atomic: it either commits all of its balance and allowance changes or
// leaves the ledger exactly as it found it. Operations are serialized, one
// at a time, for the lifetime of the engine
type Engine struct {
	mutex          sync.Mutex
	ledger         *Ledger
	hooks          Hooks
	receivers      ReceiverDirectory
	dispatcher     *HookDispatcher
	emitter        EventEmitter
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	tracer         trace.Tracer
}

// NewEngine returns an engine operating on the provided ledger. A nil ledger
// is replaced with a new, empty one
func NewEngine(ledger *Ledger, opts ...EngineOptionFunc) *Engine {
	e := &Engine{
		ledger: ledger,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.ledger == nil {
		e.ledger = NewLedger()
	}
	if e.emitter == nil {
		e.emitter = NopEmitter{}
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.tracerProvider == nil {
		e.tracerProvider = otel.GetTracerProvider()
	}
	e.tracer = e.tracerProvider.Tracer(tracerName)
	e.dispatcher = NewHookDispatcher(e.hooks, e.receivers)
	return e
}

// Ledger returns the ledger this engine operates on
func (e *Engine) Ledger() *Ledger {
	return e.ledger
}

// BatchTransfer moves legs from the caller's own account to another
func (e *Engine) BatchTransfer(caller Account, to Account, legs Legs, data []byte) error {
	return e.Execute(caller, caller, to, legs, data)
}

// BatchTransferFrom moves legs out of from's account on behalf of the caller,
// consuming the caller's allowance unless the caller owns the account
func (e *Engine) BatchTransferFrom(
	caller Account,
	from Account,
	to Account,
	legs Legs,
	data []byte,
) error {
	return e.Execute(caller, from, to, legs, data)
}

// Transfer is the single-leg form of BatchTransfer
func (e *Engine) Transfer(
	caller Account,
	to Account,
	id TokenId,
	amount uint64,
	data []byte,
) error {
	return e.Execute(caller, caller, to, Legs{NewLeg(id, amount)}, data)
}

// TransferFrom is the single-leg form of BatchTransferFrom
func (e *Engine) TransferFrom(
	caller Account,
	from Account,
	to Account,
	id TokenId,
	amount uint64,
	data []byte,
) error {
	return e.Execute(caller, from, to, Legs{NewLeg(id, amount)}, data)
}

// Execute runs the batch transfer protocol:
//
//  1. validate the destination and, for a third-party operator, every leg's allowance
//  2. run the before-transfer hook
//  3. debit the allowance (third-party operators only) and the balance of each leg
//  4. run the recipient's acceptance check
//  5. credit each leg to the recipient
//  6. run the after-transfer hook
//  7. commit and emit a single TransferBatchEvent
//
// Any failure discards every change made by the call. Duplicate token ids
// are processed as independent legs
func (e *Engine) Execute(
	operator Account,
	from Account,
	to Account,
	legs Legs,
	data []byte,
) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	err := e.atomic(
		"ledger.BatchTransfer",
		[]attribute.KeyValue{
			attribute.String("ledger.operator", operator.String()),
			attribute.String("ledger.from", from.String()),
			attribute.String("ledger.to", to.String()),
			attribute.Int("ledger.legs", len(legs)),
		},
		func() error {
			return e.executeBatch(operator, from, to, legs, data)
		},
	)
	if err != nil {
		return err
	}
	e.emitter.EmitTransferBatch(
		TransferBatchEvent{
			Operator: operator,
			From:     from,
			To:       to,
			Legs:     legs,
		},
	)
	return nil
}

func (e *Engine) executeBatch(
	operator Account,
	from Account,
	to Account,
	legs Legs,
	data []byte,
) error {
	// Validation pass, no mutation
	if to.IsZero() {
		return common.ErrTransferToZeroAddress
	}
	if err := e.checkAllowances(operator, from, legs); err != nil {
		return err
	}
	if err := e.dispatcher.BeforeTransfer(from, to, legs); err != nil {
		return err
	}
	// Debit pass
	if err := e.debit(operator, from, legs, false); err != nil {
		return err
	}
	if err := e.dispatcher.AcceptRecipient(operator, from, to, legs, data); err != nil {
		return err
	}
	// Credit pass
	if err := e.credit(to, legs, false); err != nil {
		return err
	}
	return e.dispatcher.AfterTransfer(from, to, legs)
}

// allowanceScope picks the allowance record consulted for one leg. An
// Unlimited blanket record always wins. Otherwise a non-zero id-specific
// record is used when it covers amount, then the blanket record when it
// does. When neither covers the leg, the record that would have been
// consulted is returned for the error
func (e *Engine) allowanceScope(
	owner Account,
	operator Account,
	id TokenId,
	amount uint64,
) (*TokenId, uint64) {
	allowances := e.ledger.Allowances()
	blanket := allowances.Allowance(owner, operator, nil)
	if blanket == Unlimited {
		return nil, blanket
	}
	specific := allowances.Allowance(owner, operator, &id)
	if specific > 0 && specific >= amount {
		return &id, specific
	}
	if blanket >= amount || specific == 0 {
		return nil, blanket
	}
	return &id, specific
}

// checkAllowances verifies, without consuming anything, that a third-party
// operator is allowed to move every leg on its own
func (e *Engine) checkAllowances(operator Account, owner Account, legs Legs) error {
	if operator == owner {
		return nil
	}
	for idx, leg := range legs {
		scope, allowance := e.allowanceScope(owner, operator, leg.Id, leg.Amount)
		if allowance < leg.Amount {
			return common.NotAllowedError{
				Leg: idx,
				Err: common.InsufficientAllowanceError{
					Owner:     owner,
					Operator:  operator,
					Id:        scope,
					Allowance: allowance,
					Amount:    leg.Amount,
				},
			}
		}
	}
	return nil
}

func (e *Engine) debit(operator Account, owner Account, legs Legs, burn bool) error {
	for _, leg := range legs {
		if operator != owner {
			scope, _ := e.allowanceScope(owner, operator, leg.Id, leg.Amount)
			if err := e.ledger.Allowances().DecreaseAllowance(owner, operator, scope, leg.Amount); err != nil {
				return err
			}
		}
		if err := e.ledger.Balances().DecreaseBalance(owner, leg.Id, leg.Amount, burn); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) credit(to Account, legs Legs, mint bool) error {
	for _, leg := range legs {
		if err := e.ledger.Balances().IncreaseBalance(to, leg.Id, leg.Amount, mint); err != nil {
			return err
		}
	}
	return nil
}

// Mint creates legs out of nothing and credits them to the recipient, after
// the recipient's acceptance check. Total supply grows by each leg
func (e *Engine) Mint(operator Account, to Account, legs Legs, data []byte) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	err := e.atomic(
		"ledger.Mint",
		[]attribute.KeyValue{
			attribute.String("ledger.operator", operator.String()),
			attribute.String("ledger.to", to.String()),
			attribute.Int("ledger.legs", len(legs)),
		},
		func() error {
			if to.IsZero() {
				return common.ErrTransferToZeroAddress
			}
			if err := e.dispatcher.BeforeTransfer(ZeroAccount, to, legs); err != nil {
				return err
			}
			if err := e.credit(to, legs, true); err != nil {
				return err
			}
			if err := e.dispatcher.AcceptRecipient(operator, ZeroAccount, to, legs, data); err != nil {
				return err
			}
			return e.dispatcher.AfterTransfer(ZeroAccount, to, legs)
		},
	)
	if err != nil {
		return err
	}
	e.emitter.EmitTransferBatch(
		TransferBatchEvent{
			Operator: operator,
			From:     ZeroAccount,
			To:       to,
			Legs:     legs,
		},
	)
	return nil
}

// Burn destroys legs held by from. A third-party operator needs allowance
// for every leg, exactly as for a transfer. Total supply shrinks by each leg
func (e *Engine) Burn(operator Account, from Account, legs Legs) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	err := e.atomic(
		"ledger.Burn",
		[]attribute.KeyValue{
			attribute.String("ledger.operator", operator.String()),
			attribute.String("ledger.from", from.String()),
			attribute.Int("ledger.legs", len(legs)),
		},
		func() error {
			if err := e.checkAllowances(operator, from, legs); err != nil {
				return err
			}
			if err := e.dispatcher.BeforeTransfer(from, ZeroAccount, legs); err != nil {
				return err
			}
			if err := e.debit(operator, from, legs, true); err != nil {
				return err
			}
			return e.dispatcher.AfterTransfer(from, ZeroAccount, legs)
		},
	)
	if err != nil {
		return err
	}
	e.emitter.EmitTransferBatch(
		TransferBatchEvent{
			Operator: operator,
			From:     from,
			To:       ZeroAccount,
			Legs:     legs,
		},
	)
	return nil
}

// Approve sets the amount operator may spend from owner's account. A nil id
// sets the blanket record, which applies to every token id; pass Unlimited
// for an approval that is never consumed
func (e *Engine) Approve(
	owner Account,
	operator Account,
	id *TokenId,
	amount uint64,
) error {
	if owner == operator {
		return common.ErrSelfApproval
	}
	e.mutex.Lock()
	defer e.mutex.Unlock()
	err := e.atomic(
		"ledger.Approve",
		[]attribute.KeyValue{
			attribute.String("ledger.owner", owner.String()),
			attribute.String("ledger.operator", operator.String()),
		},
		func() error {
			e.ledger.Allowances().SetAllowance(owner, operator, id, amount)
			return nil
		},
	)
	if err != nil {
		return err
	}
	var tmpId *TokenId
	if id != nil {
		idCopy := *id
		tmpId = &idCopy
	}
	e.emitter.EmitApproval(
		ApprovalEvent{
			Owner:    owner,
			Operator: operator,
			Id:       tmpId,
			Amount:   amount,
		},
	)
	return nil
}

// Simulate runs the batch against the live ledger under its journal, takes
// a deep copy of the result and then rolls every change back, including
// changes made by hooks. The returned copy is the ledger Execute would have
// produced. No events are emitted
func (e *Engine) Simulate(
	operator Account,
	from Account,
	to Account,
	legs Legs,
	data []byte,
) (*Ledger, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	_, span := e.tracer.Start(
		context.Background(),
		"ledger.Simulate",
		trace.WithAttributes(
			attribute.String("ledger.operator", operator.String()),
			attribute.String("ledger.from", from.String()),
			attribute.String("ledger.to", to.String()),
			attribute.Int("ledger.legs", len(legs)),
		),
	)
	defer span.End()
	if err := e.ledger.begin(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	defer e.ledger.rollback()
	if err := e.executeBatch(operator, from, to, legs, data); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	ret, err := e.ledger.Clone()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return ret, nil
}

// BalanceQuery names one (account, token id) pair for BalanceOfBatch
type BalanceQuery struct {
	Account Account
	Id      TokenId
}

// BalanceOf returns the balance of one (account, token id) pair
func (e *Engine) BalanceOf(account Account, id TokenId) uint64 {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.ledger.Balances().BalanceOf(account, id)
}

// BalanceOfBatch returns the balance for each query, in order
func (e *Engine) BalanceOfBatch(queries []BalanceQuery) []uint64 {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	ret := make([]uint64, 0, len(queries))
	for _, q := range queries {
		ret = append(ret, e.ledger.Balances().BalanceOf(q.Account, q.Id))
	}
	return ret
}

// TotalSupply returns the amount of id in existence
func (e *Engine) TotalSupply(id TokenId) uint64 {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.ledger.Balances().TotalSupply(id)
}

// Allowance returns the stored allowance record. A nil id reads the blanket
// record
func (e *Engine) Allowance(owner Account, operator Account, id *TokenId) uint64 {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.ledger.Allowances().Allowance(owner, operator, id)
}

// atomic runs fn inside a ledger journal and a tracing span, committing on
// success and rolling back every recorded mutation on failure. The caller
// must hold the engine mutex
func (e *Engine) atomic(
	name string,
	attrs []attribute.KeyValue,
	fn func() error,
) error {
	_, span := e.tracer.Start(
		context.Background(),
		name,
		trace.WithAttributes(attrs...),
	)
	defer span.End()
	if err := e.ledger.begin(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if err := fn(); err != nil {
		mutations := e.ledger.journal.size()
		e.ledger.rollback()
		e.logger.Debug(
			"operation rolled back",
			"component", "ledger",
			"operation", name,
			"mutations", mutations,
			"error", err,
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	mutations := e.ledger.journal.size()
	e.ledger.commit()
	e.logger.Debug(
		"operation committed",
		"component", "ledger",
		"operation", name,
		"mutations", mutations,
	)
	span.SetStatus(codes.Ok, "")
	return nil
}

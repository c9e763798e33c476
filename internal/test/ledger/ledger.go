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

package test_ledger

import (
	"sync"

	"github.com/blinklabs-io/batchledger/ledger"
	"github.com/blinklabs-io/batchledger/ledger/common"
)

// Compile-time checks that the mocks implement the engine's extension points
var (
	_ ledger.Hooks        = (*MockHooks)(nil)
	_ ledger.Receiver     = (*MockReceiver)(nil)
	_ ledger.EventEmitter = (*MockEmitter)(nil)
)

// HookCall records the arguments of one hook invocation
type HookCall struct {
	From common.Account
	To   common.Account
	Legs common.Legs
}

// MockHooks is the canonical hooks mock used by tests. Tests should
// construct &test_ledger.MockHooks{} and configure the func fields to control
// behavior. Unset funcs accept the transfer. Every call is recorded
type MockHooks struct {
	mutex sync.Mutex
	// BeforeTransferFunc optionally overrides the before-transfer hook
	BeforeTransferFunc func(from, to common.Account, legs common.Legs) error
	// AfterTransferFunc optionally overrides the after-transfer hook
	AfterTransferFunc func(from, to common.Account, legs common.Legs) error
	BeforeCalls       []HookCall
	AfterCalls        []HookCall
}

func (m *MockHooks) BeforeTransfer(
	from common.Account,
	to common.Account,
	legs common.Legs,
) error {
	m.mutex.Lock()
	m.BeforeCalls = append(m.BeforeCalls, HookCall{From: from, To: to, Legs: legs})
	m.mutex.Unlock()
	if m.BeforeTransferFunc != nil {
		return m.BeforeTransferFunc(from, to, legs)
	}
	return nil
}

func (m *MockHooks) AfterTransfer(
	from common.Account,
	to common.Account,
	legs common.Legs,
) error {
	m.mutex.Lock()
	m.AfterCalls = append(m.AfterCalls, HookCall{From: from, To: to, Legs: legs})
	m.mutex.Unlock()
	if m.AfterTransferFunc != nil {
		return m.AfterTransferFunc(from, to, legs)
	}
	return nil
}

// ReceiveCall records the arguments of one receiver invocation
type ReceiveCall struct {
	Operator common.Account
	From     common.Account
	Legs     common.Legs
	Data     []byte
}

// MockReceiver accepts every transfer unless RejectNext is set or
// OnBatchReceivedFunc returns an error
type MockReceiver struct {
	mutex sync.Mutex
	// RejectNext makes the next call fail with this error, then resets
	RejectNext          error
	OnBatchReceivedFunc func(operator, from common.Account, legs common.Legs, data []byte) error
	Calls               []ReceiveCall
}

func (m *MockReceiver) OnBatchReceived(
	operator common.Account,
	from common.Account,
	legs common.Legs,
	data []byte,
) error {
	m.mutex.Lock()
	m.Calls = append(
		m.Calls,
		ReceiveCall{Operator: operator, From: from, Legs: legs, Data: data},
	)
	rejectErr := m.RejectNext
	m.RejectNext = nil
	m.mutex.Unlock()
	if rejectErr != nil {
		return rejectErr
	}
	if m.OnBatchReceivedFunc != nil {
		return m.OnBatchReceivedFunc(operator, from, legs, data)
	}
	return nil
}

// MockEmitter counts events and optionally forwards them to funcs
type MockEmitter struct {
	mutex                 sync.Mutex
	EmitTransferBatchFunc func(ledger.TransferBatchEvent)
	EmitApprovalFunc      func(ledger.ApprovalEvent)
	TransferBatchCount    int
	ApprovalCount         int
}

func (m *MockEmitter) EmitTransferBatch(evt ledger.TransferBatchEvent) {
	m.mutex.Lock()
	m.TransferBatchCount++
	m.mutex.Unlock()
	if m.EmitTransferBatchFunc != nil {
		m.EmitTransferBatchFunc(evt)
	}
}

func (m *MockEmitter) EmitApproval(evt ledger.ApprovalEvent) {
	m.mutex.Lock()
	m.ApprovalCount++
	m.mutex.Unlock()
	if m.EmitApprovalFunc != nil {
		m.EmitApprovalFunc(evt)
	}
}

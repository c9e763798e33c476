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
	"sync"

	"github.com/blinklabs-io/batchledger/ledger/common"
	"github.com/blinklabs-io/plutigo/data"
)

// Hooks are extension points invoked around every balance movement. The
// zero account stands in for the missing side of a mint or burn. Returning
// an error aborts the whole operation.
//
// Hooks run while the engine holds its lock and must not call back into the
// same engine. Mutations they make through the engine's Ledger are rolled
// back together with the operation, and always rolled back by Simulate
type Hooks interface {
	BeforeTransfer(from Account, to Account, legs Legs) error
	AfterTransfer(from Account, to Account, legs Legs) error
}

// NopHooks accepts every transfer. Embed it to override a single hook
type NopHooks struct{}

func (NopHooks) BeforeTransfer(Account, Account, Legs) error { return nil }
func (NopHooks) AfterTransfer(Account, Account, Legs) error  { return nil }

// Receiver is the capability of an account to inspect, and possibly veto,
// incoming tokens before they are credited
type Receiver interface {
	OnBatchReceived(operator Account, from Account, legs Legs, data []byte) error
}

// ReceiverFunc adapts a plain function into a Receiver
type ReceiverFunc func(operator Account, from Account, legs Legs, data []byte) error

func (f ReceiverFunc) OnBatchReceived(
	operator Account,
	from Account,
	legs Legs,
	data []byte,
) error {
	return f(operator, from, legs, data)
}

// PlutusReceiverFunc receives the transfer as Plutus data:
// Constr 0 [operator, from, [[id, amount], ...], payload]
type PlutusReceiverFunc func(transfer data.PlutusData) error

func (f PlutusReceiverFunc) OnBatchReceived(
	operator Account,
	from Account,
	legs Legs,
	payload []byte,
) error {
	return f(
		data.NewConstr(
			0,
			operator.ToPlutusData(),
			from.ToPlutusData(),
			legs.ToPlutusData(),
			data.NewByteString(payload),
		),
	)
}

// ReceiverDirectory answers whether an account has the receiver capability
type ReceiverDirectory interface {
	Receiver(account Account) (Receiver, bool)
}

// ReceiverRegistry is a ReceiverDirectory backed by explicit registration
type ReceiverRegistry struct {
	mutex     sync.RWMutex
	receivers map[Account]Receiver
}

func NewReceiverRegistry() *ReceiverRegistry {
	return &ReceiverRegistry{
		receivers: make(map[Account]Receiver),
	}
}

// Register gives account the receiver capability, replacing any previous one
func (r *ReceiverRegistry) Register(account Account, receiver Receiver) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.receivers[account] = receiver
}

func (r *ReceiverRegistry) Unregister(account Account) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.receivers, account)
}

func (r *ReceiverRegistry) Receiver(account Account) (Receiver, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	receiver, ok := r.receivers[account]
	return receiver, ok
}

// HookDispatcher invokes the configured hooks and recipient check, wrapping
// their failures in the matching typed error
type HookDispatcher struct {
	hooks     Hooks
	receivers ReceiverDirectory
}

// NewHookDispatcher returns a dispatcher. Nil arguments fall back to
// NopHooks and to a directory with no receivers, so every recipient accepts
func NewHookDispatcher(hooks Hooks, receivers ReceiverDirectory) *HookDispatcher {
	if hooks == nil {
		hooks = NopHooks{}
	}
	return &HookDispatcher{
		hooks:     hooks,
		receivers: receivers,
	}
}

func (d *HookDispatcher) BeforeTransfer(from Account, to Account, legs Legs) error {
	if err := d.hooks.BeforeTransfer(from, to, legs); err != nil {
		return common.HookRejectedError{Hook: "before", Err: err}
	}
	return nil
}

// AcceptRecipient runs the recipient's receiver capability. Recipients
// without one accept automatically
func (d *HookDispatcher) AcceptRecipient(
	operator Account,
	from Account,
	to Account,
	legs Legs,
	data []byte,
) error {
	if d.receivers == nil {
		return nil
	}
	receiver, ok := d.receivers.Receiver(to)
	if !ok || receiver == nil {
		return nil
	}
	if err := receiver.OnBatchReceived(operator, from, legs, data); err != nil {
		return common.RecipientRejectedError{Recipient: to, Err: err}
	}
	return nil
}

func (d *HookDispatcher) AfterTransfer(from Account, to Account, legs Legs) error {
	if err := d.hooks.AfterTransfer(from, to, legs); err != nil {
		return common.HookRejectedError{Hook: "after", Err: err}
	}
	return nil
}

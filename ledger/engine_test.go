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

package ledger_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/batchledger/internal/test"
	test_ledger "github.com/blinklabs-io/batchledger/internal/test/ledger"
	"github.com/blinklabs-io/batchledger/ledger"
	"github.com/blinklabs-io/batchledger/ledger/common"
)

var (
	alice = test.NewAccount(0xa1)
	bob   = test.NewAccount(0xb0)
	carol = test.NewAccount(0xc0)

	token1 = test.TokenId(1)
	token2 = test.TokenId(2)
	token3 = test.TokenId(3)

	errVeto = errors.New("veto")
)

func newTestEngine(
	t *testing.T,
	opts ...ledger.EngineOptionFunc,
) (*ledger.Engine, *ledger.EventLog) {
	t.Helper()
	events := &ledger.EventLog{}
	opts = append(
		[]ledger.EngineOptionFunc{ledger.WithEventEmitter(events)},
		opts...,
	)
	return ledger.NewEngine(ledger.NewLedger(), opts...), events
}

// seed mints directly into the ledger, bypassing the engine and its events
func seed(t *testing.T, e *ledger.Engine, account common.Account, id common.TokenId, amount uint64) {
	t.Helper()
	require.NoError(
		t,
		e.Ledger().Balances().IncreaseBalance(account, id, amount, true),
	)
}

func ledgerCbor(t *testing.T, l *ledger.Ledger) []byte {
	t.Helper()
	cborData, err := l.MarshalCBOR()
	require.NoError(t, err)
	return cborData
}

func tokenSum(e *ledger.Engine, id common.TokenId, accounts ...common.Account) uint64 {
	var ret uint64
	for _, account := range accounts {
		ret += e.BalanceOf(account, id)
	}
	return ret
}

func TestBatchTransferExample(t *testing.T) {
	e, events := newTestEngine(t)
	seed(t, e, alice, token1, 100)
	seed(t, e, alice, token2, 10)

	legs := ledger.Legs{
		ledger.NewLeg(token1, 50),
		ledger.NewLeg(token2, 10),
	}
	require.NoError(t, e.BatchTransfer(alice, bob, legs, nil))

	assert.Equal(
		t,
		[]uint64{50, 0, 50, 10},
		e.BalanceOfBatch([]ledger.BalanceQuery{
			{Account: alice, Id: token1},
			{Account: alice, Id: token2},
			{Account: bob, Id: token1},
			{Account: bob, Id: token2},
		}),
	)
	batches := events.TransferBatches()
	require.Len(t, batches, 1)
	assert.Equal(t, alice, batches[0].Operator)
	assert.Equal(t, alice, batches[0].From)
	assert.Equal(t, bob, batches[0].To)
	assert.Equal(t, legs, batches[0].Legs)
}

func TestBatchTransferInsufficientBalance(t *testing.T) {
	testDefs := []struct {
		name    string
		balance map[common.TokenId]uint64
		failLeg common.TokenId
		have    uint64
	}{
		{
			name:    "first_leg_short",
			balance: map[common.TokenId]uint64{token1: 40, token2: 10},
			failLeg: token1,
			have:    40,
		},
		{
			name:    "second_leg_short_after_first_debited",
			balance: map[common.TokenId]uint64{token1: 100, token2: 5},
			failLeg: token2,
			have:    5,
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			e, events := newTestEngine(t)
			for id, amount := range testDef.balance {
				seed(t, e, alice, id, amount)
			}
			before := ledgerCbor(t, e.Ledger())

			err := e.BatchTransfer(
				alice,
				bob,
				ledger.Legs{
					ledger.NewLeg(token1, 50),
					ledger.NewLeg(token2, 10),
				},
				nil,
			)
			require.ErrorIs(t, err, ledger.ErrInsufficientBalance)
			var balanceErr common.InsufficientBalanceError
			require.ErrorAs(t, err, &balanceErr)
			assert.Equal(t, testDef.failLeg, balanceErr.Id)
			assert.Equal(t, testDef.have, balanceErr.Balance)

			assert.Equal(t, before, ledgerCbor(t, e.Ledger()))
			for id, amount := range testDef.balance {
				assert.Equal(t, amount, e.BalanceOf(alice, id))
				assert.Zero(t, e.BalanceOf(bob, id))
			}
			assert.Empty(t, events.TransferBatches())
		})
	}
}

func TestTransferToZeroAddress(t *testing.T) {
	testDefs := []struct {
		name     string
		operator common.Account
		legs     ledger.Legs
	}{
		{
			name:     "funded_owner",
			operator: alice,
			legs:     ledger.Legs{ledger.NewLeg(token1, 10)},
		},
		{
			name:     "unfunded_leg",
			operator: alice,
			legs:     ledger.Legs{ledger.NewLeg(token3, 10)},
		},
		{
			name:     "empty_batch",
			operator: alice,
			legs:     ledger.Legs{},
		},
		{
			name:     "operator_with_allowance",
			operator: carol,
			legs:     ledger.Legs{ledger.NewLeg(token1, 10)},
		},
		{
			name:     "operator_without_allowance",
			operator: bob,
			legs:     ledger.Legs{ledger.NewLeg(token1, 10)},
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			hooks := &test_ledger.MockHooks{}
			e, events := newTestEngine(t, ledger.WithHooks(hooks))
			seed(t, e, alice, token1, 100)
			require.NoError(t, e.Approve(alice, carol, &token1, 100))
			before := ledgerCbor(t, e.Ledger())

			err := e.BatchTransferFrom(
				testDef.operator,
				alice,
				ledger.ZeroAccount,
				testDef.legs,
				nil,
			)
			require.ErrorIs(t, err, ledger.ErrTransferToZeroAddress)
			assert.Equal(t, before, ledgerCbor(t, e.Ledger()))
			assert.Empty(t, hooks.BeforeCalls)
			assert.Empty(t, events.TransferBatches())
		})
	}
}

func TestAllowanceExactness(t *testing.T) {
	e, events := newTestEngine(t)
	seed(t, e, alice, token1, 100)
	require.NoError(t, e.Approve(alice, carol, &token1, 50))

	require.NoError(
		t,
		e.BatchTransferFrom(carol, alice, bob, ledger.Legs{ledger.NewLeg(token1, 50)}, nil),
	)
	assert.Zero(t, e.Allowance(alice, carol, &token1))
	assert.Equal(t, uint64(50), e.BalanceOf(alice, token1))
	assert.Equal(t, uint64(50), e.BalanceOf(bob, token1))

	// A consumed allowance stays present as a zero record
	snapshot := e.Ledger().Snapshot()
	require.Len(t, snapshot.Allowances, 1)
	assert.Equal(t, alice, snapshot.Allowances[0].Owner)
	assert.Equal(t, carol, snapshot.Allowances[0].Operator)
	require.NotNil(t, snapshot.Allowances[0].Id)
	assert.Equal(t, token1, *snapshot.Allowances[0].Id)
	assert.Zero(t, snapshot.Allowances[0].Amount)

	batches := events.TransferBatches()
	require.Len(t, batches, 1)
	assert.Equal(t, carol, batches[0].Operator)
	assert.Equal(t, alice, batches[0].From)
}

func TestAllowanceShortfall(t *testing.T) {
	e, events := newTestEngine(t)
	seed(t, e, alice, token1, 100)
	seed(t, e, alice, token2, 100)
	require.NoError(t, e.Approve(alice, carol, &token1, 20))
	require.NoError(t, e.Approve(alice, carol, &token2, 49))
	before := ledgerCbor(t, e.Ledger())

	err := e.BatchTransferFrom(
		carol,
		alice,
		bob,
		ledger.Legs{
			ledger.NewLeg(token1, 20),
			ledger.NewLeg(token2, 50),
		},
		nil,
	)
	require.ErrorIs(t, err, ledger.ErrNotAllowed)
	require.ErrorIs(t, err, ledger.ErrInsufficientAllowance)
	var notAllowedErr common.NotAllowedError
	require.ErrorAs(t, err, &notAllowedErr)
	assert.Equal(t, 1, notAllowedErr.Leg)
	var allowanceErr common.InsufficientAllowanceError
	require.ErrorAs(t, err, &allowanceErr)
	assert.Equal(t, uint64(49), allowanceErr.Allowance)
	assert.Equal(t, uint64(50), allowanceErr.Amount)

	assert.Equal(t, before, ledgerCbor(t, e.Ledger()))
	assert.Equal(t, uint64(20), e.Allowance(alice, carol, &token1))
	assert.Equal(t, uint64(49), e.Allowance(alice, carol, &token2))
	assert.Empty(t, events.TransferBatches())
}

func TestOperatorWithoutAllowance(t *testing.T) {
	e, _ := newTestEngine(t)
	seed(t, e, alice, token1, 1)

	err := e.TransferFrom(bob, alice, bob, token1, 1, nil)
	require.ErrorIs(t, err, ledger.ErrNotAllowed)
	assert.Equal(t, uint64(1), e.BalanceOf(alice, token1))
	assert.Zero(t, e.BalanceOf(bob, token1))
}

func TestSelfTransferBypassesAllowance(t *testing.T) {
	e, _ := newTestEngine(t)
	seed(t, e, alice, token1, 100)
	// Records an owner could never create through Approve
	e.Ledger().Allowances().SetAllowance(alice, alice, &token1, 3)
	e.Ledger().Allowances().SetAllowance(alice, alice, nil, 0)

	require.NoError(
		t,
		e.BatchTransferFrom(alice, alice, bob, ledger.Legs{ledger.NewLeg(token1, 50)}, nil),
	)
	assert.Equal(t, uint64(3), e.Allowance(alice, alice, &token1))
	assert.Zero(t, e.Allowance(alice, alice, nil))
	assert.Equal(t, uint64(50), e.BalanceOf(bob, token1))
}

func TestAllowanceScopes(t *testing.T) {
	t.Run("unlimited_blanket_never_decremented", func(t *testing.T) {
		e, _ := newTestEngine(t)
		seed(t, e, alice, token1, 100)
		seed(t, e, alice, token2, 100)
		require.NoError(t, e.Approve(alice, carol, nil, ledger.Unlimited))
		require.NoError(t, e.Approve(alice, carol, &token1, 5))

		for range 3 {
			require.NoError(
				t,
				e.BatchTransferFrom(
					carol,
					alice,
					bob,
					ledger.Legs{ledger.NewLeg(token1, 10), ledger.NewLeg(token2, 10)},
					nil,
				),
			)
		}
		assert.Equal(t, ledger.Unlimited, e.Allowance(alice, carol, nil))
		assert.Equal(t, uint64(5), e.Allowance(alice, carol, &token1))
		assert.Equal(t, uint64(30), e.BalanceOf(bob, token1))
		assert.Equal(t, uint64(30), e.BalanceOf(bob, token2))
	})

	t.Run("finite_blanket_consumed_across_ids", func(t *testing.T) {
		e, _ := newTestEngine(t)
		seed(t, e, alice, token1, 100)
		seed(t, e, alice, token2, 100)
		require.NoError(t, e.Approve(alice, carol, nil, 100))

		require.NoError(
			t,
			e.BatchTransferFrom(
				carol,
				alice,
				bob,
				ledger.Legs{ledger.NewLeg(token1, 10), ledger.NewLeg(token2, 20)},
				nil,
			),
		)
		assert.Equal(t, uint64(70), e.Allowance(alice, carol, nil))
		assert.Zero(t, e.Allowance(alice, carol, &token1))
	})

	t.Run("specific_preferred_then_blanket", func(t *testing.T) {
		e, _ := newTestEngine(t)
		seed(t, e, alice, token1, 100)
		require.NoError(t, e.Approve(alice, carol, nil, 100))
		require.NoError(t, e.Approve(alice, carol, &token1, 10))

		require.NoError(t, e.TransferFrom(carol, alice, bob, token1, 10, nil))
		assert.Zero(t, e.Allowance(alice, carol, &token1))
		assert.Equal(t, uint64(100), e.Allowance(alice, carol, nil))

		require.NoError(t, e.TransferFrom(carol, alice, bob, token1, 10, nil))
		assert.Zero(t, e.Allowance(alice, carol, &token1))
		assert.Equal(t, uint64(90), e.Allowance(alice, carol, nil))
	})

	t.Run("blanket_covers_short_specific", func(t *testing.T) {
		e, _ := newTestEngine(t)
		seed(t, e, alice, token1, 100)
		require.NoError(t, e.Approve(alice, carol, nil, 100))
		require.NoError(t, e.Approve(alice, carol, &token1, 5))

		require.NoError(t, e.TransferFrom(carol, alice, bob, token1, 10, nil))
		assert.Equal(t, uint64(5), e.Allowance(alice, carol, &token1))
		assert.Equal(t, uint64(90), e.Allowance(alice, carol, nil))
		assert.Equal(t, uint64(10), e.BalanceOf(bob, token1))

		// The specific record is still preferred when it covers the leg
		require.NoError(t, e.TransferFrom(carol, alice, bob, token1, 5, nil))
		assert.Zero(t, e.Allowance(alice, carol, &token1))
		assert.Equal(t, uint64(90), e.Allowance(alice, carol, nil))
	})

	t.Run("neither_record_covers", func(t *testing.T) {
		e, _ := newTestEngine(t)
		seed(t, e, alice, token1, 100)
		require.NoError(t, e.Approve(alice, carol, nil, 8))
		require.NoError(t, e.Approve(alice, carol, &token1, 5))
		before := ledgerCbor(t, e.Ledger())

		err := e.TransferFrom(carol, alice, bob, token1, 10, nil)
		require.ErrorIs(t, err, ledger.ErrNotAllowed)
		var allowanceErr common.InsufficientAllowanceError
		require.ErrorAs(t, err, &allowanceErr)
		require.NotNil(t, allowanceErr.Id)
		assert.Equal(t, uint64(5), allowanceErr.Allowance)
		assert.Equal(t, before, ledgerCbor(t, e.Ledger()))
	})

	t.Run("specific_record_does_not_cover_other_ids", func(t *testing.T) {
		e, _ := newTestEngine(t)
		seed(t, e, alice, token2, 100)
		require.NoError(t, e.Approve(alice, carol, &token1, 100))

		err := e.TransferFrom(carol, alice, bob, token2, 1, nil)
		require.ErrorIs(t, err, ledger.ErrNotAllowed)
	})
}

func TestZeroAmountLegsCreateNoRecords(t *testing.T) {
	e, events := newTestEngine(t)
	seed(t, e, alice, token1, 100)
	before := e.Ledger().Snapshot()

	// carol was never approved, but a zero leg needs no allowance
	require.NoError(
		t,
		e.BatchTransferFrom(carol, alice, bob, ledger.Legs{ledger.NewLeg(token1, 0)}, nil),
	)
	require.NoError(t, e.Mint(alice, bob, ledger.Legs{ledger.NewLeg(token2, 0)}, nil))
	require.NoError(t, e.Burn(carol, alice, ledger.Legs{ledger.NewLeg(token1, 0)}))

	assert.Equal(t, before, e.Ledger().Snapshot())
	assert.Empty(t, e.Ledger().Snapshot().Allowances)
	assert.Len(t, events.TransferBatches(), 3)
}

func TestDuplicateLegsAreIndependent(t *testing.T) {
	t.Run("owner", func(t *testing.T) {
		e, events := newTestEngine(t)
		seed(t, e, alice, token1, 100)
		legs := ledger.Legs{ledger.NewLeg(token1, 60), ledger.NewLeg(token1, 40)}

		require.NoError(t, e.BatchTransfer(alice, bob, legs, nil))
		assert.Zero(t, e.BalanceOf(alice, token1))
		assert.Equal(t, uint64(100), e.BalanceOf(bob, token1))
		batches := events.TransferBatches()
		require.Len(t, batches, 1)
		assert.Len(t, batches[0].Legs, 2)
	})

	t.Run("owner_overdrawn_by_second_leg", func(t *testing.T) {
		e, _ := newTestEngine(t)
		seed(t, e, alice, token1, 100)
		before := ledgerCbor(t, e.Ledger())

		err := e.BatchTransfer(
			alice,
			bob,
			ledger.Legs{ledger.NewLeg(token1, 60), ledger.NewLeg(token1, 60)},
			nil,
		)
		require.ErrorIs(t, err, ledger.ErrInsufficientBalance)
		assert.Equal(t, before, ledgerCbor(t, e.Ledger()))
	})

	t.Run("operator_allowance_underflow_on_second_leg", func(t *testing.T) {
		e, _ := newTestEngine(t)
		seed(t, e, alice, token1, 100)
		require.NoError(t, e.Approve(alice, carol, &token1, 60))
		before := ledgerCbor(t, e.Ledger())

		// Each leg passes validation on its own, the second debit underflows
		err := e.BatchTransferFrom(
			carol,
			alice,
			bob,
			ledger.Legs{ledger.NewLeg(token1, 40), ledger.NewLeg(token1, 40)},
			nil,
		)
		require.ErrorIs(t, err, ledger.ErrInsufficientAllowance)
		assert.NotErrorIs(t, err, ledger.ErrNotAllowed)
		assert.Equal(t, before, ledgerCbor(t, e.Ledger()))
		assert.Equal(t, uint64(60), e.Allowance(alice, carol, &token1))
	})
}

func TestHookRejectionRollsBack(t *testing.T) {
	testDefs := []struct {
		name     string
		setup    func(*test_ledger.MockHooks, *test_ledger.MockReceiver)
		sentinel error
	}{
		{
			name: "before_hook",
			setup: func(h *test_ledger.MockHooks, _ *test_ledger.MockReceiver) {
				h.BeforeTransferFunc = func(_, _ common.Account, _ common.Legs) error {
					return errVeto
				}
			},
			sentinel: ledger.ErrHookRejected,
		},
		{
			name: "recipient_check",
			setup: func(_ *test_ledger.MockHooks, r *test_ledger.MockReceiver) {
				r.RejectNext = errVeto
			},
			sentinel: ledger.ErrRecipientRejected,
		},
		{
			name: "after_hook",
			setup: func(h *test_ledger.MockHooks, _ *test_ledger.MockReceiver) {
				h.AfterTransferFunc = func(_, _ common.Account, _ common.Legs) error {
					return errVeto
				}
			},
			sentinel: ledger.ErrHookRejected,
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			hooks := &test_ledger.MockHooks{}
			receiver := &test_ledger.MockReceiver{}
			receivers := ledger.NewReceiverRegistry()
			receivers.Register(bob, receiver)
			testDef.setup(hooks, receiver)
			e, events := newTestEngine(
				t,
				ledger.WithHooks(hooks),
				ledger.WithReceivers(receivers),
			)
			seed(t, e, alice, token1, 100)
			require.NoError(t, e.Approve(alice, carol, &token1, 100))
			before := ledgerCbor(t, e.Ledger())

			err := e.BatchTransferFrom(
				carol,
				alice,
				bob,
				ledger.Legs{ledger.NewLeg(token1, 30)},
				[]byte("data"),
			)
			require.ErrorIs(t, err, testDef.sentinel)
			require.ErrorIs(t, err, errVeto)
			assert.Equal(t, before, ledgerCbor(t, e.Ledger()))
			assert.Equal(t, uint64(100), e.Allowance(alice, carol, &token1))
			assert.Empty(t, events.TransferBatches())
		})
	}
}

func TestHookOrdering(t *testing.T) {
	var e *ledger.Engine
	var steps []string
	hooks := &test_ledger.MockHooks{
		BeforeTransferFunc: func(from, to common.Account, legs common.Legs) error {
			steps = append(steps, "before")
			assert.Equal(t, uint64(100), e.Ledger().Balances().BalanceOf(alice, token1))
			assert.Zero(t, e.Ledger().Balances().BalanceOf(bob, token1))
			return nil
		},
		AfterTransferFunc: func(from, to common.Account, legs common.Legs) error {
			steps = append(steps, "after")
			assert.Equal(t, uint64(70), e.Ledger().Balances().BalanceOf(alice, token1))
			assert.Equal(t, uint64(30), e.Ledger().Balances().BalanceOf(bob, token1))
			return nil
		},
	}
	receiver := &test_ledger.MockReceiver{
		OnBatchReceivedFunc: func(operator, from common.Account, legs common.Legs, data []byte) error {
			steps = append(steps, "recipient")
			// Debited but not yet credited
			assert.Equal(t, uint64(70), e.Ledger().Balances().BalanceOf(alice, token1))
			assert.Zero(t, e.Ledger().Balances().BalanceOf(bob, token1))
			return nil
		},
	}
	receivers := ledger.NewReceiverRegistry()
	receivers.Register(bob, receiver)
	emitter := &test_ledger.MockEmitter{
		EmitTransferBatchFunc: func(ledger.TransferBatchEvent) {
			steps = append(steps, "event")
		},
	}
	e = ledger.NewEngine(
		ledger.NewLedger(),
		ledger.WithHooks(hooks),
		ledger.WithReceivers(receivers),
		ledger.WithEventEmitter(emitter),
	)
	seed(t, e, alice, token1, 100)

	require.NoError(
		t,
		e.BatchTransfer(alice, bob, ledger.Legs{ledger.NewLeg(token1, 30)}, []byte("payload")),
	)
	assert.Equal(t, []string{"before", "recipient", "after", "event"}, steps)
	require.Len(t, hooks.BeforeCalls, 1)
	assert.Equal(t, alice, hooks.BeforeCalls[0].From)
	assert.Equal(t, bob, hooks.BeforeCalls[0].To)
	require.Len(t, receiver.Calls, 1)
	assert.Equal(t, alice, receiver.Calls[0].Operator)
	assert.Equal(t, alice, receiver.Calls[0].From)
	assert.Equal(t, []byte("payload"), receiver.Calls[0].Data)
	assert.Equal(t, 1, emitter.TransferBatchCount)
}

func TestHookMutationsRolledBack(t *testing.T) {
	var e *ledger.Engine
	hooks := &test_ledger.MockHooks{
		AfterTransferFunc: func(_, _ common.Account, _ common.Legs) error {
			// A composing ledger could pay a fee in its hook before failing
			if err := e.Ledger().Balances().IncreaseBalance(carol, token2, 7, true); err != nil {
				return err
			}
			return errVeto
		},
	}
	e, _ = newTestEngine(t, ledger.WithHooks(hooks))
	seed(t, e, alice, token1, 100)
	before := ledgerCbor(t, e.Ledger())

	err := e.Transfer(alice, bob, token1, 10, nil)
	require.ErrorIs(t, err, ledger.ErrHookRejected)
	assert.Equal(t, before, ledgerCbor(t, e.Ledger()))
	assert.Zero(t, e.BalanceOf(carol, token2))
	assert.Zero(t, e.TotalSupply(token2))
}

func TestRecipientCapability(t *testing.T) {
	receiver := &test_ledger.MockReceiver{}
	receivers := ledger.NewReceiverRegistry()
	receivers.Register(bob, receiver)
	e, _ := newTestEngine(t, ledger.WithReceivers(receivers))
	seed(t, e, alice, token1, 10)

	// Accounts without a receiver accept automatically
	require.NoError(t, e.Transfer(alice, carol, token1, 1, nil))
	assert.Empty(t, receiver.Calls)

	// Receiver can reject the next transfer
	receiver.RejectNext = errVeto
	err := e.Transfer(alice, bob, token1, 1, []byte("data"))
	require.ErrorIs(t, err, ledger.ErrRecipientRejected)
	var rejectedErr common.RecipientRejectedError
	require.ErrorAs(t, err, &rejectedErr)
	assert.Equal(t, bob, rejectedErr.Recipient)
	assert.Equal(t, uint64(9), e.BalanceOf(alice, token1))
	assert.Zero(t, e.BalanceOf(bob, token1))

	// And accepts the one after
	require.NoError(t, e.Transfer(alice, bob, token1, 1, []byte("data")))
	assert.Equal(t, uint64(1), e.BalanceOf(bob, token1))
	assert.Len(t, receiver.Calls, 2)

	receivers.Unregister(bob)
	receiver.RejectNext = errVeto
	require.NoError(t, e.Transfer(alice, bob, token1, 1, nil))
	assert.Len(t, receiver.Calls, 2)
}

func TestSupplyConservation(t *testing.T) {
	e, _ := newTestEngine(t)
	accounts := []common.Account{alice, bob, carol}
	ids := []common.TokenId{token1, token2, token3}
	for i, account := range accounts {
		for j, id := range ids {
			seed(t, e, account, id, uint64(100*(i+1)+j))
		}
	}
	supply := make(map[common.TokenId]uint64)
	for _, id := range ids {
		supply[id] = tokenSum(e, id, accounts...)
		require.Equal(t, supply[id], e.TotalSupply(id))
	}

	for step := range 30 {
		from := accounts[step%3]
		to := accounts[(step+1)%3]
		legs := ledger.Legs{
			ledger.NewLeg(ids[step%3], uint64(step)),
			ledger.NewLeg(ids[(step+2)%3], uint64(step%7)),
		}
		// Failures are fine here, only committed transfers must conserve
		_ = e.BatchTransfer(from, to, legs, nil)
		for _, id := range ids {
			require.Equal(t, supply[id], tokenSum(e, id, accounts...))
			require.Equal(t, supply[id], e.TotalSupply(id))
		}
	}
}

func TestMintAndBurn(t *testing.T) {
	e, events := newTestEngine(t)

	require.NoError(
		t,
		e.Mint(alice, bob, ledger.Legs{ledger.NewLeg(token1, 100), ledger.NewLeg(token2, 5)}, nil),
	)
	assert.Equal(t, uint64(100), e.TotalSupply(token1))
	assert.Equal(t, uint64(5), e.TotalSupply(token2))
	assert.Equal(t, uint64(100), e.BalanceOf(bob, token1))

	require.NoError(t, e.Burn(bob, bob, ledger.Legs{ledger.NewLeg(token1, 30)}))
	assert.Equal(t, uint64(70), e.TotalSupply(token1))
	assert.Equal(t, uint64(70), e.BalanceOf(bob, token1))

	batches := events.TransferBatches()
	require.Len(t, batches, 2)
	assert.Equal(t, ledger.ZeroAccount, batches[0].From)
	assert.Equal(t, bob, batches[0].To)
	assert.Equal(t, bob, batches[1].From)
	assert.Equal(t, ledger.ZeroAccount, batches[1].To)

	t.Run("burn_more_than_balance", func(t *testing.T) {
		before := ledgerCbor(t, e.Ledger())
		err := e.Burn(bob, bob, ledger.Legs{ledger.NewLeg(token2, 1), ledger.NewLeg(token1, 71)})
		require.ErrorIs(t, err, ledger.ErrInsufficientBalance)
		assert.Equal(t, before, ledgerCbor(t, e.Ledger()))
	})

	t.Run("mint_to_zero_account", func(t *testing.T) {
		err := e.Mint(alice, ledger.ZeroAccount, ledger.Legs{ledger.NewLeg(token1, 1)}, nil)
		require.ErrorIs(t, err, ledger.ErrTransferToZeroAddress)
	})

	t.Run("mint_overflow", func(t *testing.T) {
		before := ledgerCbor(t, e.Ledger())
		err := e.Mint(
			alice,
			carol,
			ledger.Legs{ledger.NewLeg(token2, 1), ledger.NewLeg(token1, ledger.Unlimited)},
			nil,
		)
		require.ErrorIs(t, err, ledger.ErrBalanceOverflow)
		var overflowErr common.BalanceOverflowError
		require.ErrorAs(t, err, &overflowErr)
		assert.True(t, overflowErr.Supply)
		assert.Equal(t, before, ledgerCbor(t, e.Ledger()))
	})

	t.Run("burn_by_operator_needs_allowance", func(t *testing.T) {
		err := e.Burn(carol, bob, ledger.Legs{ledger.NewLeg(token1, 10)})
		require.ErrorIs(t, err, ledger.ErrNotAllowed)

		require.NoError(t, e.Approve(bob, carol, &token1, 10))
		require.NoError(t, e.Burn(carol, bob, ledger.Legs{ledger.NewLeg(token1, 10)}))
		assert.Equal(t, uint64(60), e.TotalSupply(token1))
		assert.Zero(t, e.Allowance(bob, carol, &token1))
	})

	t.Run("mint_rejected_by_receiver", func(t *testing.T) {
		receivers := ledger.NewReceiverRegistry()
		receivers.Register(carol, &test_ledger.MockReceiver{RejectNext: errVeto})
		e2, _ := newTestEngine(t, ledger.WithReceivers(receivers))
		err := e2.Mint(alice, carol, ledger.Legs{ledger.NewLeg(token1, 1)}, nil)
		require.ErrorIs(t, err, ledger.ErrRecipientRejected)
		assert.Zero(t, e2.TotalSupply(token1))
		assert.Zero(t, e2.BalanceOf(carol, token1))
	})
}

func TestApprove(t *testing.T) {
	e, events := newTestEngine(t)

	require.ErrorIs(t, e.Approve(alice, alice, nil, 1), ledger.ErrSelfApproval)

	id := token1
	require.NoError(t, e.Approve(alice, bob, &id, 25))
	// The event must not alias the caller's id
	id = token2
	require.NoError(t, e.Approve(alice, bob, nil, ledger.Unlimited))
	assert.Equal(t, uint64(25), e.Allowance(alice, bob, &token1))
	assert.Zero(t, e.Allowance(alice, bob, &token2))
	assert.Equal(t, ledger.Unlimited, e.Allowance(alice, bob, nil))

	approvals := events.Approvals()
	require.Len(t, approvals, 2)
	require.NotNil(t, approvals[0].Id)
	assert.Equal(t, token1, *approvals[0].Id)
	assert.Equal(t, uint64(25), approvals[0].Amount)
	assert.Nil(t, approvals[1].Id)
	assert.Equal(t, ledger.Unlimited, approvals[1].Amount)

	// Revoking leaves a zero record behind
	require.NoError(t, e.Approve(alice, bob, &token1, 0))
	assert.Zero(t, e.Allowance(alice, bob, &token1))
	assert.Len(t, e.Ledger().Snapshot().Allowances, 2)
}

func TestSimulate(t *testing.T) {
	e, events := newTestEngine(t)
	seed(t, e, alice, token1, 100)
	require.NoError(t, e.Approve(alice, carol, &token1, 40))
	before := ledgerCbor(t, e.Ledger())

	result, err := e.Simulate(
		carol,
		alice,
		bob,
		ledger.Legs{ledger.NewLeg(token1, 40)},
		nil,
	)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), result.Balances().BalanceOf(alice, token1))
	assert.Equal(t, uint64(40), result.Balances().BalanceOf(bob, token1))
	assert.Zero(t, result.Allowances().Allowance(alice, carol, &token1))

	assert.Equal(t, before, ledgerCbor(t, e.Ledger()))
	assert.Len(t, events.Approvals(), 1)
	assert.Empty(t, events.TransferBatches())

	_, err = e.Simulate(carol, alice, bob, ledger.Legs{ledger.NewLeg(token1, 41)}, nil)
	require.ErrorIs(t, err, ledger.ErrNotAllowed)
	assert.Equal(t, before, ledgerCbor(t, e.Ledger()))
}

func TestSimulateRollsBackHookMutations(t *testing.T) {
	var e *ledger.Engine
	hooks := &test_ledger.MockHooks{
		BeforeTransferFunc: func(_, _ common.Account, _ common.Legs) error {
			return e.Ledger().Balances().IncreaseBalance(carol, token1, 7, true)
		},
	}
	e, events := newTestEngine(t, ledger.WithHooks(hooks))
	seed(t, e, alice, token1, 100)
	before := ledgerCbor(t, e.Ledger())

	result, err := e.Simulate(alice, alice, bob, ledger.Legs{ledger.NewLeg(token1, 10)}, nil)
	require.NoError(t, err)
	// The hook's mint is part of the simulated outcome only
	assert.Equal(t, uint64(7), result.Balances().BalanceOf(carol, token1))
	assert.Equal(t, uint64(107), result.Balances().TotalSupply(token1))
	assert.Equal(t, uint64(10), result.Balances().BalanceOf(bob, token1))

	assert.Equal(t, before, ledgerCbor(t, e.Ledger()))
	assert.Zero(t, e.BalanceOf(carol, token1))
	assert.Equal(t, uint64(100), e.TotalSupply(token1))
	assert.Empty(t, events.TransferBatches())

	// The live engine is usable afterwards
	require.NoError(t, e.Transfer(alice, bob, token1, 10, nil))
	assert.Equal(t, uint64(7), e.BalanceOf(carol, token1))
}

func TestEngineNilLedger(t *testing.T) {
	e := ledger.NewEngine(nil)
	require.NotNil(t, e.Ledger())
	require.NoError(t, e.Mint(alice, alice, ledger.Legs{ledger.NewLeg(token1, 1)}, nil))
	assert.Equal(t, uint64(1), e.BalanceOf(alice, token1))
}

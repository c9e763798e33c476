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
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/blinklabs-io/batchledger/cbor"
	"github.com/blinklabs-io/batchledger/ledger"
	"github.com/blinklabs-io/batchledger/ledger/store/sqlite"
)

// stateBackend loads and saves the ledger between invocations
type stateBackend interface {
	Load(ctx context.Context) (*ledger.Ledger, error)
	Save(ctx context.Context, l *ledger.Ledger) error
	Close() error
}

// fileState keeps the ledger as a CBOR snapshot file
type fileState struct {
	path string
}

func (s fileState) Load(context.Context) (*ledger.Ledger, error) {
	cborData, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ledger.NewLedger(), nil
		}
		return nil, err
	}
	var l ledger.Ledger
	if _, err := cbor.Decode(cborData, &l); err != nil {
		return nil, fmt.Errorf("decode state %s: %w", s.path, err)
	}
	return &l, nil
}

func (s fileState) Save(_ context.Context, l *ledger.Ledger) error {
	cborData, err := l.MarshalCBOR()
	if err != nil {
		return err
	}
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, cborData, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.path)
}

func (fileState) Close() error { return nil }

// memoryState is used when no state location is configured
type memoryState struct{}

func (memoryState) Load(context.Context) (*ledger.Ledger, error) {
	return ledger.NewLedger(), nil
}

func (memoryState) Save(context.Context, *ledger.Ledger) error { return nil }
func (memoryState) Close() error                               { return nil }

func openState(f *globalFlags, logger *slog.Logger) (stateBackend, error) {
	switch {
	case f.database != "":
		store, err := sqlite.Open(f.database, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case f.state != "":
		return fileState{path: f.state}, nil
	default:
		logger.Warn(
			"no -state or -db given, changes will not be saved",
			"component", "cli",
		)
		return memoryState{}, nil
	}
}

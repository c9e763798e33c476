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

// Package sqlite persists ledger snapshots in a SQLite database
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/blinklabs-io/batchledger/ledger"
	"github.com/blinklabs-io/batchledger/ledger/common"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

const (
	scopeBlanket  = 0
	scopeSpecific = 1
)

// Store keeps the latest saved ledger. Amounts are stored as the int64 with
// the same bits as the uint64 value, since SQLite integers are signed
type Store struct {
	sqlDB  *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the database at path and applies the schema
func Open(path string, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB, logger: logger}, nil
}

// Close closes the SQLite handle
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Save replaces the stored ledger with the contents of l in a single
// transaction
func (s *Store) Save(ctx context.Context, l *ledger.Ledger) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return errors.New("storage is not configured")
	}
	snapshot := l.Snapshot()
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for _, table := range []string{"balances", "supply", "allowances"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	for _, rec := range snapshot.Balances {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO balances (account, token, amount) VALUES (?, ?, ?)`,
			rec.Account.Bytes(),
			rec.Id.Bytes(),
			toInt64(rec.Amount),
		); err != nil {
			return fmt.Errorf("insert balance: %w", err)
		}
	}
	for _, rec := range snapshot.Supply {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO supply (token, amount) VALUES (?, ?)`,
			rec.Id.Bytes(),
			toInt64(rec.Amount),
		); err != nil {
			return fmt.Errorf("insert supply: %w", err)
		}
	}
	for _, rec := range snapshot.Allowances {
		scope := scopeBlanket
		token := []byte{}
		if rec.Id != nil {
			scope = scopeSpecific
			token = rec.Id.Bytes()
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO allowances (owner, operator, scope, token, amount) VALUES (?, ?, ?, ?, ?)`,
			rec.Owner.Bytes(),
			rec.Operator.Bytes(),
			scope,
			token,
			toInt64(rec.Amount),
		); err != nil {
			return fmt.Errorf("insert allowance: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	s.logger.Debug(
		"saved ledger",
		"component", "store",
		"balances", len(snapshot.Balances),
		"supply", len(snapshot.Supply),
		"allowances", len(snapshot.Allowances),
	)
	return nil
}

// Load rebuilds the stored ledger. An empty database yields an empty ledger
func (s *Store) Load(ctx context.Context) (*ledger.Ledger, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, errors.New("storage is not configured")
	}
	var snapshot ledger.Snapshot
	if err := s.query(
		ctx,
		`SELECT account, token, amount FROM balances`,
		func(rows *sql.Rows) error {
			var accountBytes, token []byte
			var amount int64
			if err := rows.Scan(&accountBytes, &token, &amount); err != nil {
				return err
			}
			account, err := common.NewAccount(accountBytes)
			if err != nil {
				return err
			}
			snapshot.Balances = append(snapshot.Balances, ledger.BalanceRecord{
				Account: account,
				Id:      common.NewTokenId(token),
				Amount:  uint64(amount),
			})
			return nil
		},
	); err != nil {
		return nil, fmt.Errorf("load balances: %w", err)
	}
	if err := s.query(
		ctx,
		`SELECT token, amount FROM supply`,
		func(rows *sql.Rows) error {
			var token []byte
			var amount int64
			if err := rows.Scan(&token, &amount); err != nil {
				return err
			}
			snapshot.Supply = append(snapshot.Supply, ledger.SupplyRecord{
				Id:     common.NewTokenId(token),
				Amount: uint64(amount),
			})
			return nil
		},
	); err != nil {
		return nil, fmt.Errorf("load supply: %w", err)
	}
	if err := s.query(
		ctx,
		`SELECT owner, operator, scope, token, amount FROM allowances`,
		func(rows *sql.Rows) error {
			var ownerBytes, operatorBytes, token []byte
			var scope int
			var amount int64
			if err := rows.Scan(&ownerBytes, &operatorBytes, &scope, &token, &amount); err != nil {
				return err
			}
			owner, err := common.NewAccount(ownerBytes)
			if err != nil {
				return err
			}
			operator, err := common.NewAccount(operatorBytes)
			if err != nil {
				return err
			}
			rec := ledger.AllowanceRecord{
				Owner:    owner,
				Operator: operator,
				Amount:   uint64(amount),
			}
			if scope == scopeSpecific {
				id := common.NewTokenId(token)
				rec.Id = &id
			}
			snapshot.Allowances = append(snapshot.Allowances, rec)
			return nil
		},
	); err != nil {
		return nil, fmt.Errorf("load allowances: %w", err)
	}
	return ledger.NewLedgerFromSnapshot(snapshot)
}

func (s *Store) query(ctx context.Context, query string, scan func(*sql.Rows) error) error {
	rows, err := s.sqlDB.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func toInt64(v uint64) int64 {
	// #nosec G115 -- bit-preserving round trip, reversed by uint64() on load
	return int64(v)
}

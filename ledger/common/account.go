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

package common

import (
	"encoding/hex"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/blinklabs-io/batchledger/cbor"
	"github.com/blinklabs-io/plutigo/data"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"golang.org/x/crypto/blake2b"
)

const (
	AccountSize = 28

	// Human readable part used for bech32 account strings
	AccountHrp = "acct"

	PubKeySize = 32
)

// Account identifies a ledger participant. The all-zero value is the
// burn-only sentinel and is never a valid transfer destination
type Account [AccountSize]byte

// ZeroAccount is the invalid/burn-only account
var ZeroAccount = Account{}

// NewAccount returns an Account from exactly AccountSize raw bytes
func NewAccount(accountBytes []byte) (Account, error) {
	if len(accountBytes) != AccountSize {
		return Account{}, fmt.Errorf(
			"invalid account length: expected %d bytes, got %d",
			AccountSize,
			len(accountBytes),
		)
	}
	var a Account
	copy(a[:], accountBytes)
	return a, nil
}

// NewAccountFromPubKey derives an Account from an ed25519 public key by
// hashing it with blake2b-224. The key must be a valid curve point
func NewAccountFromPubKey(pubKey []byte) (Account, error) {
	if len(pubKey) != PubKeySize {
		return Account{}, fmt.Errorf(
			"invalid public key length: expected %d bytes, got %d",
			PubKeySize,
			len(pubKey),
		)
	}
	if _, err := new(edwards25519.Point).SetBytes(pubKey); err != nil {
		return Account{}, fmt.Errorf("invalid public key: %w", err)
	}
	tmpHash, err := blake2b.New(AccountSize, nil)
	if err != nil {
		panic(
			fmt.Sprintf(
				"unexpected error generating empty blake2b hash: %s",
				err,
			),
		)
	}
	tmpHash.Write(pubKey)
	return Account(tmpHash.Sum(nil)), nil
}

// NewAccountFromBech32 parses an account string as produced by Account.String
func NewAccountFromBech32(accountStr string) (Account, error) {
	hrp, tmpData, err := bech32.Decode(accountStr)
	if err != nil {
		return Account{}, err
	}
	if hrp != AccountHrp {
		return Account{}, fmt.Errorf(
			"unexpected account prefix %q, expected %q",
			hrp,
			AccountHrp,
		)
	}
	decoded, err := bech32.ConvertBits(tmpData, 5, 8, false)
	if err != nil {
		return Account{}, err
	}
	return NewAccount(decoded)
}

// IsZero reports whether this is the zero (invalid/burn-only) account
func (a Account) IsZero() bool {
	return a == ZeroAccount
}

func (a Account) Bytes() []byte {
	return a[:]
}

// Hex returns the raw account bytes as hex
func (a Account) Hex() string {
	return hex.EncodeToString(a[:])
}

// String returns the bech32 encoding of the account
func (a Account) String() string {
	convData, err := bech32.ConvertBits(a[:], 8, 5, true)
	if err != nil {
		panic(fmt.Sprintf("unexpected error converting data to base32: %s", err))
	}
	encoded, err := bech32.Encode(AccountHrp, convData)
	if err != nil {
		panic(fmt.Sprintf("unexpected error encoding data as bech32: %s", err))
	}
	return encoded
}

func (a Account) ToPlutusData() data.PlutusData {
	return data.NewByteString(a[:])
}

func (a Account) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Account) UnmarshalText(text []byte) error {
	tmp, err := NewAccountFromBech32(string(text))
	if err != nil {
		return err
	}
	*a = tmp
	return nil
}

func (a Account) MarshalCBOR() ([]byte, error) {
	// Always encode a full-sized bytestring, even for the zero account
	return cbor.Encode(a[:])
}

func (a *Account) UnmarshalCBOR(cborData []byte) error {
	var tmp []byte
	if _, err := cbor.Decode(cborData, &tmp); err != nil {
		return err
	}
	account, err := NewAccount(tmp)
	if err != nil {
		return err
	}
	*a = account
	return nil
}

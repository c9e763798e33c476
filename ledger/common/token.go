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
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/blinklabs-io/batchledger/cbor"
	"github.com/blinklabs-io/plutigo/data"
)

// Unlimited is the infinite approval amount. An allowance record holding
// this value is never decremented
const Unlimited uint64 = math.MaxUint64

// TokenId names one fungible or semi-fungible token class inside the ledger.
// We use a string because []byte isn't comparable, which means it can't be
// used as a map key
type TokenId string

func NewTokenId(idBytes []byte) TokenId {
	return TokenId(idBytes)
}

// TokenIdFromUint64 returns the 8-byte big endian token id for n
func TokenIdFromUint64(n uint64) TokenId {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], n)
	return TokenId(tmp[:])
}

// NewTokenIdFromHex parses the hex form returned by TokenId.String
func NewTokenIdFromHex(idHex string) (TokenId, error) {
	idBytes, err := hex.DecodeString(strings.TrimPrefix(idHex, "0x"))
	if err != nil {
		return "", fmt.Errorf("invalid token id %q: %w", idHex, err)
	}
	return TokenId(idBytes), nil
}

func (t TokenId) Bytes() []byte {
	return []byte(t)
}

func (t TokenId) String() string {
	return hex.EncodeToString([]byte(t))
}

func (t TokenId) ToPlutusData() data.PlutusData {
	return data.NewByteString([]byte(t))
}

func (t TokenId) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TokenId) UnmarshalText(text []byte) error {
	tmp, err := NewTokenIdFromHex(string(text))
	if err != nil {
		return err
	}
	*t = tmp
	return nil
}

func (t TokenId) MarshalCBOR() ([]byte, error) {
	return cbor.Encode([]byte(t))
}

func (t *TokenId) UnmarshalCBOR(cborData []byte) error {
	var tmp []byte
	if _, err := cbor.Decode(cborData, &tmp); err != nil {
		return err
	}
	*t = TokenId(tmp)
	return nil
}

// Leg is one (token id, amount) unit of a batch transfer
type Leg struct {
	cbor.StructAsArray
	Id     TokenId `json:"id"`
	Amount uint64  `json:"amount"`
}

func NewLeg(id TokenId, amount uint64) Leg {
	return Leg{Id: id, Amount: amount}
}

func (l Leg) String() string {
	return fmt.Sprintf("%s:%d", l.Id.String(), l.Amount)
}

// Legs is the ordered set of legs moved by one batch. Duplicate token ids are
// distinct legs and are never merged
type Legs []Leg

// Ids returns the token id of each leg, in order
func (l Legs) Ids() []TokenId {
	ret := make([]TokenId, 0, len(l))
	for _, leg := range l {
		ret = append(ret, leg.Id)
	}
	return ret
}

func (l Legs) String() string {
	parts := make([]string, 0, len(l))
	for _, leg := range l {
		parts = append(parts, leg.String())
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// ToPlutusData returns the legs as a list of (id, amount) pairs. A list is
// used instead of a map so that duplicate ids survive the conversion
func (l Legs) ToPlutusData() data.PlutusData {
	tmpItems := make([]data.PlutusData, 0, len(l))
	for _, leg := range l {
		tmpItems = append(
			tmpItems,
			data.NewList(
				leg.Id.ToPlutusData(),
				data.NewInteger(new(big.Int).SetUint64(leg.Amount)),
			),
		)
	}
	return data.NewList(tmpItems...)
}

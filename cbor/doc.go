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

// Package cbor provides CBOR encoding/decoding utilities for ledger records
// and events.
//
// This package wraps github.com/fxamacker/cbor/v2. Encoding always uses core
// deterministic map ordering, so two equal values encode to identical bytes.
// Ledger snapshots rely on this to compare state before and after a failed
// operation.
//
// # Key Types
//
//   - StructAsArray: Embed to encode struct fields as CBOR array instead of map
//   - RawMessage: Deferred decoding (like json.RawMessage)
//   - Encoder / StreamDecoder: sequences of items on an io.Writer / io.Reader
//
// Example:
//
//	type Leg struct {
//	    cbor.StructAsArray
//	    Id     TokenId
//	    Amount uint64
//	}
package cbor

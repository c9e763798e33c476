package test

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/blinklabs-io/batchledger/ledger/common"
)

// DecodeHexString is a helper function for tests that decodes hex strings. It doesn't return
// an error value, which makes it usable inline.
func DecodeHexString(hexData string) []byte {
	// Strip off any leading/trailing whitespace in hex string
	hexData = strings.TrimSpace(hexData)
	decoded, err := hex.DecodeString(hexData)
	if err != nil {
		panic(fmt.Sprintf("error decoding hex: %s", err))
	}
	return decoded
}

// NewAccount returns a distinct, non-zero account for each seed byte. It
// doesn't return an error value, which makes it usable inline.
func NewAccount(seed byte) common.Account {
	if seed == 0 {
		panic("account seed must be non-zero")
	}
	var a common.Account
	for i := range a {
		a[i] = seed
	}
	return a
}

// TokenId is a shorthand for common.TokenIdFromUint64
func TokenId(n uint64) common.TokenId {
	return common.TokenIdFromUint64(n)
}

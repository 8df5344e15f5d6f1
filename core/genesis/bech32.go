package genesis

import (
	"fmt"

	"github.com/btcsuite/btcutil/bech32"

	"hashmelody/crypto"
)

// ParseBech32Account decodes an hm1 wallet or authority address.
func ParseBech32Account(addr string) ([20]byte, error) {
	return parseBech32(addr, crypto.AccountPrefix)
}

// ParseBech32Token decodes an hmt1 token identifier.
func ParseBech32Token(addr string) ([20]byte, error) {
	return parseBech32(addr, crypto.TokenPrefix)
}

func parseBech32(addr string, want crypto.AddressPrefix) ([20]byte, error) {
	var out [20]byte
	hrp, data, err := bech32.Decode(addr)
	if err != nil {
		return out, fmt.Errorf("decode bech32 address: %w", err)
	}
	if hrp != string(want) {
		return out, fmt.Errorf("decode bech32 address: unsupported hrp %q, want %q", hrp, want)
	}
	decoded, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return out, fmt.Errorf("decode bech32 address: %w", err)
	}
	if len(decoded) != len(out) {
		return out, fmt.Errorf("decode bech32 address: invalid address length %d", len(decoded))
	}
	copy(out[:], decoded)
	return out, nil
}

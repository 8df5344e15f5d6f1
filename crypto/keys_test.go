package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressRoundTrip(t *testing.T) {
	var raw [AddressLength]byte
	raw[19] = 0x42
	encoded := FormatAccount(raw)
	require.True(t, strings.HasPrefix(encoded, "hm1"))

	decoded, err := ParseAddress(encoded)
	require.NoError(t, err)
	require.Equal(t, raw, decoded)

	fromHex, err := ParseAddress("0x0000000000000000000000000000000000000042")
	require.NoError(t, err)
	require.Equal(t, raw, fromHex)
}

func TestParseAddressRejectsBadInput(t *testing.T) {
	_, err := ParseAddress("")
	require.Error(t, err)
	_, err = ParseAddress("0x1234")
	require.Error(t, err)
	_, err = ParseAddress("not-an-address")
	require.Error(t, err)
}

func TestDeriveAddressDeterministic(t *testing.T) {
	seed := []byte{1, 2, 3}
	first := DeriveAddress("token_vault", seed)
	second := DeriveAddress("token_vault", seed)
	other := DeriveAddress("mint_authority", seed)
	require.Equal(t, first, second)
	require.NotEqual(t, first, other)
}

func TestTokenPrefix(t *testing.T) {
	var token [AddressLength]byte
	token[0] = 0xAB
	require.True(t, strings.HasPrefix(FormatToken(token), "hmt1"))
}

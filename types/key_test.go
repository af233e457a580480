package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// distance must be symmetric and zero on identical keys
func Test_KEY_DistanceInvariants(t *testing.T) {
	a := NewKey("127.0.0.1:2001")
	b := NewKey("127.0.0.1:2002")

	require.Equal(t, a.Distance(b), b.Distance(a))
	require.True(t, a.Distance(a).IsZero())
	require.True(t, b.Distance(b).IsZero())
	require.False(t, a.Distance(b).IsZero())
}

func Test_KEY_TotalOrder(t *testing.T) {
	a, err := KeyFromHex("0f")
	require.NoError(t, err)
	b, err := KeyFromHex("f0")
	require.NoError(t, err)

	require.True(t, a.Less(b))
	require.False(t, b.Less(a))
	require.Equal(t, 0, a.Cmp(a))
}

func Test_KEY_HexRoundtrip(t *testing.T) {
	k, err := KeyFromHex("5a00fc30e073b095a6266136552a3da1")
	require.NoError(t, err)
	require.Equal(t, "5a00fc30e073b095a6266136552a3da1", k.String())

	// a distance reads as the bitwise xor
	o, err := KeyFromHex("5a00fc30e073b095a6266136552a3da0")
	require.NoError(t, err)
	require.Equal(t, "00000000000000000000000000000001", k.Distance(o).String())
}

func Test_KEY_FromHexRejectsGarbage(t *testing.T) {
	_, err := KeyFromHex("not-hex")
	require.Error(t, err)

	// 33 hex digits, 132 bits
	_, err = KeyFromHex("f5a00fc30e073b095a6266136552a3da1")
	require.Error(t, err)
}

func Test_KEY_AddressDerivationIsStable(t *testing.T) {
	require.Equal(t, NewKey("127.0.0.1:1"), NewKey("127.0.0.1:1"))
	require.NotEqual(t, NewKey("127.0.0.1:1"), NewKey("127.0.0.1:2"))
	require.Equal(t, KeyLength, 128)
}

package types

import (
	"crypto/md5"
	"fmt"
	"math/big"

	"golang.org/x/xerrors"
	"lukechampine.com/uint128"
)

// KeyLength is the width of a Key in bits.
const KeyLength = 128

// Key is a fixed-width identifier used both as a node id and as a coordinate
// in the XOR metric space. Keys are value-comparable and usable as map keys.
type Key uint128.Uint128

// NewKey derives the key for a network address by hashing it.
// md5 yields exactly KeyLength bits.
func NewKey(addr string) Key {
	hash := md5.Sum([]byte(addr))
	return Key(uint128.FromBytes(hash[:]))
}

// KeyFromHex parses a hex-encoded key (at most 32 hex digits).
func KeyFromHex(s string) (Key, error) {
	i, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return Key{}, xerrors.Errorf("key from hex: invalid hex string %q", s)
	}
	if i.Sign() < 0 || i.BitLen() > KeyLength {
		return Key{}, xerrors.Errorf("key from hex: %q does not fit in %d bits", s, KeyLength)
	}
	return Key(uint128.FromBig(i)), nil
}

// Distance returns the XOR distance between two keys. It is symmetric and
// Distance(k, k) is zero.
func (k Key) Distance(o Key) Key {
	return Key(uint128.Uint128(k).Xor(uint128.Uint128(o)))
}

// Cmp compares two keys read as unsigned integers.
func (k Key) Cmp(o Key) int {
	return uint128.Uint128(k).Cmp(uint128.Uint128(o))
}

// Less reports whether k sorts before o.
func (k Key) Less(o Key) bool {
	return k.Cmp(o) < 0
}

// IsZero reports whether the key is all zero bits.
func (k Key) IsZero() bool {
	return uint128.Uint128(k).IsZero()
}

// BitLen returns the minimum number of bits required to represent the key.
func (k Key) BitLen() int {
	return uint128.Uint128(k).Len()
}

func (k Key) String() string {
	return fmt.Sprintf("%032x", uint128.Uint128(k).Big())
}

// Package bigint converts between arbitrary-precision integers and the
// unsigned big-endian octet strings the JOSE specifications use on the
// wire, such as RSA modulus values, elliptic curve coordinates, and
// ECDSA signature components.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-2
package bigint

import (
	"fmt"
	"math/big"

	"github.com/ronniedz/jose4go/pkg/joseerrors"
)

// ToOctets returns the unsigned big-endian representation of n using the
// minimum number of octets needed to represent the value. Zero is
// represented as a single zero octet.
func ToOctets(n *big.Int) []byte {
	b := n.Bytes()
	if len(b) == 0 {
		return []byte{0}
	}
	return b
}

// ToFixedOctets returns the unsigned big-endian representation of n
// left-padded with zeroes to exactly targetLen octets. Values that do
// not fit fail with joseerrors.ErrIntegerTooLarge.
//
// This is used wherever the standards fix field widths, such as EC
// coordinates and ECDSA signature components, which are always
// ceil(bits(curve)/8) octets.
func ToFixedOctets(n *big.Int, targetLen int) ([]byte, error) {
	if (n.BitLen()+7)/8 > targetLen {
		return nil, fmt.Errorf("%w: %d bits into %d octets", joseerrors.ErrIntegerTooLarge, n.BitLen(), targetLen)
	}
	return n.FillBytes(make([]byte, targetLen)), nil
}

// FromOctets interprets the given octets as an unsigned big-endian integer.
func FromOctets(o []byte) *big.Int {
	return new(big.Int).SetBytes(o)
}

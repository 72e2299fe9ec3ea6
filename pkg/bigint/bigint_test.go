package bigint

import (
	"math/big"
	"testing"

	"github.com/ronniedz/jose4go/pkg/joseerrors"
	"github.com/stretchr/testify/require"
)

func TestToOctets(t *testing.T) {
	tests := []struct {
		Name   string
		Input  *big.Int
		Output []byte
	}{
		{
			Name:   "zero",
			Input:  big.NewInt(0),
			Output: []byte{0},
		},
		{
			Name:   "single octet",
			Input:  big.NewInt(255),
			Output: []byte{0xff},
		},
		{
			Name:   "no leading zeroes",
			Input:  big.NewInt(0x0100),
			Output: []byte{0x01, 0x00},
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			require.Equal(t, test.Output, ToOctets(test.Input))
		})
	}
}

func TestToFixedOctets(t *testing.T) {
	o, err := ToFixedOctets(big.NewInt(1), 4)
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 0, 1}, o)

	_, err = ToFixedOctets(big.NewInt(0x01_00_00_00_00), 4)
	require.Error(t, err)
	require.ErrorIs(t, err, joseerrors.ErrIntegerTooLarge)
}

func TestRoundTrip(t *testing.T) {
	n := new(big.Int).Lsh(big.NewInt(0x1234), 120)
	require.Zero(t, n.Cmp(FromOctets(ToOctets(n))))
}

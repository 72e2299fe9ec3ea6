package sig

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/ronniedz/jose4go/pkg/bigint"
	"github.com/ronniedz/jose4go/pkg/joseerrors"
	"github.com/ronniedz/jose4go/pkg/jwa"
	"github.com/ronniedz/jose4go/pkg/jwk"
)

// ECDSA implements the ES256, ES384, and ES512 signature algorithms.
//
// The wire signature is the fixed-width concatenation of R and S, each
// ceil(bits(curve)/8) octets left-padded with zeroes; DER is never
// emitted. Verification rejects component values of zero or at least
// the curve order.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-3.4
type ECDSA struct {
	id        jwa.Algorithm
	hash      crypto.Hash
	curveBits int
}

func (e ECDSA) ID() jwa.Algorithm {
	return e.id
}

// componentByteLength is ceil(bits(curve)/8).
func (e ECDSA) componentByteLength() int {
	return (e.curveBits + 7) / 8
}

func (e ECDSA) signingKey(key any) (*ecdsa.PrivateKey, error) {
	switch key := key.(type) {
	case *ecdsa.PrivateKey:
		return key, nil
	case jwk.Value:
		pkey, err := jwk.ECDSAPrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", joseerrors.ErrAlgorithmKeyMismatch, err)
		}
		return pkey, nil
	default:
		return nil, fmt.Errorf("%w: private key is %T, not ECDSA", joseerrors.ErrAlgorithmKeyMismatch, key)
	}
}

func (e ECDSA) verificationKey(key any) (*ecdsa.PublicKey, error) {
	switch key := key.(type) {
	case *ecdsa.PublicKey:
		return key, nil
	case *ecdsa.PrivateKey:
		return &key.PublicKey, nil
	case jwk.Value:
		pkey, err := jwk.ECDSAPublicKey(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", joseerrors.ErrAlgorithmKeyMismatch, err)
		}
		return pkey, nil
	default:
		return nil, fmt.Errorf("%w: public key is %T, not ECDSA", joseerrors.ErrAlgorithmKeyMismatch, key)
	}
}

func (e ECDSA) Sign(key any, signingInput []byte) ([]byte, error) {
	pkey, err := e.signingKey(key)
	if err != nil {
		return nil, err
	}

	if pkey.Curve.Params().BitSize != e.curveBits {
		return nil, fmt.Errorf("%w: key curve %q does not match algorithm %q",
			joseerrors.ErrAlgorithmKeyMismatch, pkey.Curve.Params().Name, e.id)
	}

	newHash, err := hashFunc(e.hash)
	if err != nil {
		return nil, err
	}

	h := newHash()
	h.Write(signingInput)

	r, s, err := ecdsa.Sign(rand.Reader, pkey, h.Sum(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to sign with ECDSA private key: %w", err)
	}

	byteLen := e.componentByteLength()

	rOctets, err := bigint.ToFixedOctets(r, byteLen)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ECDSA signature R: %w", err)
	}
	sOctets, err := bigint.ToFixedOctets(s, byteLen)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ECDSA signature S: %w", err)
	}

	return append(rOctets, sOctets...), nil
}

func (e ECDSA) Verify(key any, signingInput, signature []byte) error {
	pkey, err := e.verificationKey(key)
	if err != nil {
		return err
	}

	if pkey.Curve.Params().BitSize != e.curveBits {
		return fmt.Errorf("%w: key curve %q does not match algorithm %q",
			joseerrors.ErrAlgorithmKeyMismatch, pkey.Curve.Params().Name, e.id)
	}

	byteLen := e.componentByteLength()
	if len(signature) != 2*byteLen {
		return fmt.Errorf("%w: invalid ECDSA signature length %d", joseerrors.ErrSignatureMismatch, len(signature))
	}

	r := bigint.FromOctets(signature[:byteLen])
	s := bigint.FromOctets(signature[byteLen:])

	order := pkey.Curve.Params().N
	zero := big.NewInt(0)
	if r.Cmp(zero) == 0 || s.Cmp(zero) == 0 || r.Cmp(order) >= 0 || s.Cmp(order) >= 0 {
		return fmt.Errorf("%w: ECDSA signature component out of range", joseerrors.ErrSignatureMismatch)
	}

	newHash, err := hashFunc(e.hash)
	if err != nil {
		return err
	}

	h := newHash()
	h.Write(signingInput)

	if !ecdsa.Verify(pkey, h.Sum(nil), r, s) {
		return fmt.Errorf("%w: invalid ECDSA signature", joseerrors.ErrSignatureMismatch)
	}

	return nil
}

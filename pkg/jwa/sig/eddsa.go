package sig

import (
	"crypto/ed25519"
	"fmt"

	"github.com/ronniedz/jose4go/pkg/joseerrors"
	"github.com/ronniedz/jose4go/pkg/jwa"
	"github.com/ronniedz/jose4go/pkg/jwk"
)

// EdDSA implements the EdDSA signature algorithm over Ed25519, with
// its curve-defined 64 octet signature length.
//
// https://datatracker.ietf.org/doc/html/rfc8037#section-3.1
type EdDSA struct{}

func (EdDSA) ID() jwa.Algorithm {
	return jwa.EdDSA
}

func (EdDSA) Sign(key any, signingInput []byte) ([]byte, error) {
	var pkey ed25519.PrivateKey

	switch key := key.(type) {
	case ed25519.PrivateKey:
		pkey = key
	case jwk.Value:
		var err error
		pkey, err = jwk.Ed25519PrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", joseerrors.ErrAlgorithmKeyMismatch, err)
		}
	default:
		return nil, fmt.Errorf("%w: private key is %T, not Ed25519", joseerrors.ErrAlgorithmKeyMismatch, key)
	}

	if len(pkey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: invalid Ed25519 private key size %d", joseerrors.ErrAlgorithmKeyMismatch, len(pkey))
	}

	return ed25519.Sign(pkey, signingInput), nil
}

func (EdDSA) Verify(key any, signingInput, signature []byte) error {
	var pkey ed25519.PublicKey

	switch key := key.(type) {
	case ed25519.PublicKey:
		pkey = key
	case ed25519.PrivateKey:
		pkey = key.Public().(ed25519.PublicKey)
	case jwk.Value:
		var err error
		pkey, err = jwk.Ed25519PublicKey(key)
		if err != nil {
			return fmt.Errorf("%w: %v", joseerrors.ErrAlgorithmKeyMismatch, err)
		}
	default:
		return fmt.Errorf("%w: public key is %T, not Ed25519", joseerrors.ErrAlgorithmKeyMismatch, key)
	}

	if len(pkey) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: invalid Ed25519 public key size %d", joseerrors.ErrAlgorithmKeyMismatch, len(pkey))
	}

	if !ed25519.Verify(pkey, signingInput, signature) {
		return fmt.Errorf("%w: invalid EdDSA signature", joseerrors.ErrSignatureMismatch)
	}

	return nil
}

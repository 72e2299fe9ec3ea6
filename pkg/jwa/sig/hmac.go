package sig

import (
	"crypto"
	"crypto/hmac"
	"fmt"

	"github.com/ronniedz/jose4go/pkg/joseerrors"
	"github.com/ronniedz/jose4go/pkg/jwa"
)

// HMAC implements the HS256, HS384, and HS512 signature algorithms.
//
// The tag length equals the hash output length, and verification uses
// a constant-time comparison.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-3.2
type HMAC struct {
	id   jwa.Algorithm
	hash crypto.Hash
}

func (h HMAC) ID() jwa.Algorithm {
	return h.id
}

func (h HMAC) Sign(key any, signingInput []byte) ([]byte, error) {
	secretKey, err := symmetricKey(key)
	if err != nil {
		return nil, err
	}

	if len(secretKey) == 0 {
		return nil, fmt.Errorf("no secret key provided, cannot complete operation")
	}

	newHash, err := hashFunc(h.hash)
	if err != nil {
		return nil, err
	}

	mac := hmac.New(newHash, secretKey)
	mac.Write(signingInput)

	return mac.Sum(nil), nil
}

func (h HMAC) Verify(key any, signingInput, signature []byte) error {
	expected, err := h.Sign(key, signingInput)
	if err != nil {
		return err
	}

	if !hmac.Equal(expected, signature) {
		return fmt.Errorf("%w: invalid HMAC", joseerrors.ErrSignatureMismatch)
	}

	return nil
}

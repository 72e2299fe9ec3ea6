package sig

import (
	"fmt"

	"github.com/ronniedz/jose4go/pkg/joseerrors"
	"github.com/ronniedz/jose4go/pkg/jwa"
)

// None implements the unsecured "none" algorithm: no signature or MAC
// is performed and the signature part is empty.
//
// # Warning
//
// The use of this algorithm is considered dangerous, and the jws
// engine refuses to verify it unless explicitly allowed.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-3.6
type None struct{}

func (None) ID() jwa.Algorithm {
	return jwa.None
}

func (None) Sign(key any, signingInput []byte) ([]byte, error) {
	return nil, nil
}

func (None) Verify(key any, signingInput, signature []byte) error {
	if len(signature) != 0 {
		return fmt.Errorf("%w: unsecured JWS carries a signature", joseerrors.ErrSignatureMismatch)
	}
	return nil
}

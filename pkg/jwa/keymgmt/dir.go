package keymgmt

import (
	"crypto/subtle"
	"fmt"

	"github.com/ronniedz/jose4go/pkg/header"
	"github.com/ronniedz/jose4go/pkg/joseerrors"
	"github.com/ronniedz/jose4go/pkg/jwa"
)

// Direct implements the "dir" key management algorithm: the shared
// symmetric key IS the content encryption key, and the encrypted key
// part of the compact serialization is empty.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-4.5
type Direct struct{}

func (Direct) ID() jwa.Algorithm {
	return jwa.Direct
}

func (Direct) ManageForEncrypt(key any, desc jwa.CEKDescriptor, cek []byte, params *header.Parameters) ([]byte, []byte, *header.Parameters, error) {
	shared, err := symmetricKey(key)
	if err != nil {
		return nil, nil, nil, err
	}

	if len(shared) != desc.ByteLength() {
		return nil, nil, nil, fmt.Errorf("%w: direct key is %d bits, content encryption requires %d",
			joseerrors.ErrAlgorithmKeyMismatch, len(shared)*8, desc.BitLength)
	}

	if cek != nil && subtle.ConstantTimeCompare(cek, shared) != 1 {
		return nil, nil, nil, fmt.Errorf("cannot use an externally supplied CEK with direct encryption")
	}

	return shared, nil, nil, nil
}

func (Direct) ManageForDecrypt(key any, encryptedKey []byte, desc jwa.CEKDescriptor, params *header.Parameters) ([]byte, error) {
	if len(encryptedKey) != 0 {
		return nil, fmt.Errorf("%w: encrypted key must be empty for direct encryption", joseerrors.ErrMalformedCompact)
	}

	shared, err := symmetricKey(key)
	if err != nil {
		return nil, err
	}

	if len(shared) != desc.ByteLength() {
		return nil, fmt.Errorf("%w: direct key is %d bits, content encryption requires %d",
			joseerrors.ErrAlgorithmKeyMismatch, len(shared)*8, desc.BitLength)
	}

	return shared, nil
}

package enc

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/ronniedz/jose4go/pkg/joseerrors"
	"github.com/ronniedz/jose4go/pkg/jwa"
)

// AESGCM implements the A128GCM, A192GCM, and A256GCM content
// encryption algorithms: standard NIST GCM with a 96-bit IV and a
// 128-bit tag.
//
// IV reuse with the same key is a fatal caller error; the jwe engine
// draws a fresh IV for every encryption unless one is supplied to
// reproduce a known-answer vector.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-5.3
type AESGCM struct {
	id      jwa.Algorithm
	keyBits int
}

const (
	gcmIVByteLength  = 12
	gcmTagByteLength = 16
)

func (a AESGCM) ID() jwa.Algorithm {
	return a.id
}

func (a AESGCM) CEK() jwa.CEKDescriptor {
	return jwa.CEKDescriptor{BitLength: a.keyBits, Family: jwa.CEKFamilyAES}
}

func (a AESGCM) IVByteLength() int {
	return gcmIVByteLength
}

func (a AESGCM) aead(cek []byte) (cipher.AEAD, error) {
	if len(cek) != a.keyBits/8 {
		return nil, fmt.Errorf("%w: %q requires a %d bit CEK, got %d bits",
			joseerrors.ErrAlgorithmKeyMismatch, a.id, a.keyBits, len(cek)*8)
	}

	block, err := aes.NewCipher(cek)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	return cipher.NewGCM(block)
}

func (a AESGCM) Encrypt(cek, iv, plaintext, aad []byte) ([]byte, []byte, error) {
	aead, err := a.aead(cek)
	if err != nil {
		return nil, nil, err
	}

	if len(iv) != gcmIVByteLength {
		return nil, nil, fmt.Errorf("invalid IV length %d for %q", len(iv), a.id)
	}

	sealed := aead.Seal(nil, iv, plaintext, aad)

	ciphertext := sealed[:len(sealed)-gcmTagByteLength]
	tag := sealed[len(sealed)-gcmTagByteLength:]

	return ciphertext, tag, nil
}

func (a AESGCM) Decrypt(cek, iv, ciphertext, tag, aad []byte) ([]byte, error) {
	aead, err := a.aead(cek)
	if err != nil {
		return nil, err
	}

	if len(iv) != gcmIVByteLength {
		return nil, fmt.Errorf("%w: invalid IV length %d", joseerrors.ErrDecryptionFailure, len(iv))
	}
	if len(tag) != gcmTagByteLength {
		return nil, fmt.Errorf("%w: invalid tag length %d", joseerrors.ErrDecryptionFailure, len(tag))
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, iv, sealed, aad)
	if err != nil {
		return nil, fmt.Errorf("%w: authentication failed", joseerrors.ErrDecryptionFailure)
	}

	return plaintext, nil
}

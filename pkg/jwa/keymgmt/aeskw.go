package keymgmt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
	"fmt"

	"github.com/ronniedz/jose4go/pkg/header"
	"github.com/ronniedz/jose4go/pkg/joseerrors"
	"github.com/ronniedz/jose4go/pkg/jwa"
)

// AESKW implements the A128KW, A192KW, and A256KW key management
// algorithms: AES Key Wrap as defined in RFC 3394, with the default
// initial value. The KEK length must match the algorithm.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-4.4
type AESKW struct {
	id      jwa.Algorithm
	keyBits int
}

func (a AESKW) ID() jwa.Algorithm {
	return a.id
}

func (a AESKW) kek(key any) (cipher.Block, error) {
	kek, err := symmetricKey(key)
	if err != nil {
		return nil, err
	}
	if len(kek) != a.keyBits/8 {
		return nil, fmt.Errorf("%w: %q requires a %d bit KEK, got %d bits",
			joseerrors.ErrAlgorithmKeyMismatch, a.id, a.keyBits, len(kek)*8)
	}
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	return block, nil
}

func (a AESKW) ManageForEncrypt(key any, desc jwa.CEKDescriptor, cek []byte, params *header.Parameters) ([]byte, []byte, *header.Parameters, error) {
	block, err := a.kek(key)
	if err != nil {
		return nil, nil, nil, err
	}

	cek, err = generateCEK(desc, cek)
	if err != nil {
		return nil, nil, nil, err
	}

	wrapped, err := wrapKey(block, cek)
	if err != nil {
		return nil, nil, nil, err
	}

	return cek, wrapped, nil, nil
}

func (a AESKW) ManageForDecrypt(key any, encryptedKey []byte, desc jwa.CEKDescriptor, params *header.Parameters) ([]byte, error) {
	block, err := a.kek(key)
	if err != nil {
		return nil, err
	}

	return unwrapKey(block, encryptedKey)
}

// kwIV is the RFC 3394 section 2.2.3.1 default initial value.
var kwIV = [8]byte{0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6}

// wrapKey wraps the plaintext key per RFC 3394 section 2.2.1.
func wrapKey(block cipher.Block, plaintext []byte) ([]byte, error) {
	if len(plaintext) < 16 || len(plaintext)%8 != 0 {
		return nil, fmt.Errorf("invalid key length %d for AES key wrap", len(plaintext))
	}

	n := len(plaintext) / 8

	a := make([]byte, 8)
	copy(a, kwIV[:])

	r := make([]byte, len(plaintext))
	copy(r, plaintext)

	buf := make([]byte, 16)

	for j := 0; j <= 5; j++ {
		for i := 1; i <= n; i++ {
			copy(buf[:8], a)
			copy(buf[8:], r[(i-1)*8:i*8])
			block.Encrypt(buf, buf)

			t := uint64(n*j + i)
			copy(a, buf[:8])
			for k := 0; k < 8; k++ {
				a[7-k] ^= byte(t >> (8 * k))
			}
			copy(r[(i-1)*8:i*8], buf[8:])
		}
	}

	return append(a, r...), nil
}

// unwrapKey unwraps the wrapped key per RFC 3394 section 2.2.2,
// checking the recovered initial value in constant time.
func unwrapKey(block cipher.Block, wrapped []byte) ([]byte, error) {
	if len(wrapped) < 24 || len(wrapped)%8 != 0 {
		return nil, fmt.Errorf("%w: invalid wrapped key length %d", joseerrors.ErrDecryptionFailure, len(wrapped))
	}

	n := len(wrapped)/8 - 1

	a := make([]byte, 8)
	copy(a, wrapped[:8])

	r := make([]byte, n*8)
	copy(r, wrapped[8:])

	buf := make([]byte, 16)

	for j := 5; j >= 0; j-- {
		for i := n; i >= 1; i-- {
			t := uint64(n*j + i)
			copy(buf[:8], a)
			for k := 0; k < 8; k++ {
				buf[7-k] ^= byte(t >> (8 * k))
			}
			copy(buf[8:], r[(i-1)*8:i*8])
			block.Decrypt(buf, buf)

			copy(a, buf[:8])
			copy(r[(i-1)*8:i*8], buf[8:])
		}
	}

	if subtle.ConstantTimeCompare(a, kwIV[:]) != 1 {
		return nil, fmt.Errorf("%w: key unwrap integrity check failed", joseerrors.ErrDecryptionFailure)
	}

	return r, nil
}

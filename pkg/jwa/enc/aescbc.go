package enc

import (
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"encoding/binary"
	"fmt"

	"github.com/ronniedz/jose4go/pkg/joseerrors"
	"github.com/ronniedz/jose4go/pkg/jwa"
)

// AESCBCHMAC implements the A128CBC-HS256, A192CBC-HS384, and
// A256CBC-HS512 content encryption algorithms: AES in CBC mode with
// PKCS#7 padding, authenticated by HMAC-SHA2 over
// AAD || IV || ciphertext || AL, where AL is the 64-bit big-endian
// bit length of the AAD. The CEK is split into a MAC key (first half)
// and an encryption key (second half); the tag is the first half of
// the MAC output.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-5.2
type AESCBCHMAC struct {
	id      jwa.Algorithm
	keyBits int
	hash    crypto.Hash
}

func (a AESCBCHMAC) ID() jwa.Algorithm {
	return a.id
}

func (a AESCBCHMAC) CEK() jwa.CEKDescriptor {
	return jwa.CEKDescriptor{BitLength: a.keyBits, Family: jwa.CEKFamilyAES}
}

func (a AESCBCHMAC) IVByteLength() int {
	return aes.BlockSize
}

func (a AESCBCHMAC) tagByteLength() int {
	return a.hash.Size() / 2
}

func (a AESCBCHMAC) splitKey(cek []byte) (macKey, encKey []byte, err error) {
	if len(cek) != a.keyBits/8 {
		return nil, nil, fmt.Errorf("%w: %q requires a %d bit CEK, got %d bits",
			joseerrors.ErrAlgorithmKeyMismatch, a.id, a.keyBits, len(cek)*8)
	}
	half := len(cek) / 2
	return cek[:half], cek[half:], nil
}

// computeTag MACs AAD || IV || ciphertext || AL and truncates to half
// the hash output.
func (a AESCBCHMAC) computeTag(macKey, iv, ciphertext, aad []byte) []byte {
	al := make([]byte, 8)
	binary.BigEndian.PutUint64(al, uint64(len(aad))*8)

	mac := hmac.New(a.hash.New, macKey)
	mac.Write(aad)
	mac.Write(iv)
	mac.Write(ciphertext)
	mac.Write(al)

	return mac.Sum(nil)[:a.tagByteLength()]
}

func (a AESCBCHMAC) Encrypt(cek, iv, plaintext, aad []byte) ([]byte, []byte, error) {
	macKey, encKey, err := a.splitKey(cek)
	if err != nil {
		return nil, nil, err
	}

	if len(iv) != a.IVByteLength() {
		return nil, nil, fmt.Errorf("invalid IV length %d for %q", len(iv), a.id)
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	padded := padPKCS7(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	tag := a.computeTag(macKey, iv, ciphertext, aad)

	return ciphertext, tag, nil
}

func (a AESCBCHMAC) Decrypt(cek, iv, ciphertext, tag, aad []byte) ([]byte, error) {
	macKey, encKey, err := a.splitKey(cek)
	if err != nil {
		return nil, err
	}

	if len(iv) != a.IVByteLength() {
		return nil, fmt.Errorf("%w: invalid IV length %d", joseerrors.ErrDecryptionFailure, len(iv))
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: invalid ciphertext length %d", joseerrors.ErrDecryptionFailure, len(ciphertext))
	}

	// Authenticate before decrypting; a MAC failure and a padding
	// failure below are deliberately the same error.
	expected := a.computeTag(macKey, iv, ciphertext, aad)
	if !hmac.Equal(expected, tag) {
		return nil, fmt.Errorf("%w: authentication failed", joseerrors.ErrDecryptionFailure)
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)

	plaintext, err := unpadPKCS7(padded, aes.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: authentication failed", joseerrors.ErrDecryptionFailure)
	}

	return plaintext, nil
}

func padPKCS7(input []byte, blockSize int) []byte {
	padLen := blockSize - len(input)%blockSize
	padded := make([]byte, len(input)+padLen)
	copy(padded, input)
	for i := len(input); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func unpadPKCS7(input []byte, blockSize int) ([]byte, error) {
	if len(input) == 0 || len(input)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(input))
	}
	padLen := int(input[len(input)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(input) {
		return nil, fmt.Errorf("invalid padding length %d", padLen)
	}
	for _, b := range input[len(input)-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("inconsistent padding")
		}
	}
	return input[:len(input)-padLen], nil
}

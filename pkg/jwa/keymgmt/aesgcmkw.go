package keymgmt

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/ronniedz/jose4go/pkg/base64"
	"github.com/ronniedz/jose4go/pkg/header"
	"github.com/ronniedz/jose4go/pkg/joseerrors"
	"github.com/ronniedz/jose4go/pkg/jwa"
)

// AESGCMKW implements the A128GCMKW, A192GCMKW, and A256GCMKW key
// management algorithms: the CEK is encrypted with AES-GCM under the
// shared key, using a fresh 96-bit IV placed in the "iv" header
// parameter and the 128-bit tag placed in "tag".
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-4.7
type AESGCMKW struct {
	id      jwa.Algorithm
	keyBits int
}

const (
	gcmKWIVByteLength  = 12
	gcmKWTagByteLength = 16
)

func (a AESGCMKW) ID() jwa.Algorithm {
	return a.id
}

func (a AESGCMKW) aead(key any) (cipher.AEAD, error) {
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

	return cipher.NewGCM(block)
}

func (a AESGCMKW) ManageForEncrypt(key any, desc jwa.CEKDescriptor, cek []byte, params *header.Parameters) ([]byte, []byte, *header.Parameters, error) {
	aead, err := a.aead(key)
	if err != nil {
		return nil, nil, nil, err
	}

	cek, err = generateCEK(desc, cek)
	if err != nil {
		return nil, nil, nil, err
	}

	updates := header.New()

	var iv []byte
	if params.Has(header.InitializationVector) {
		encoded, err := params.GetString(header.InitializationVector)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("invalid %q header parameter: %w", header.InitializationVector, err)
		}
		iv, err = base64.Decode(encoded)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("invalid %q header parameter: %w", header.InitializationVector, err)
		}
	} else {
		iv, err = randomBytes(gcmKWIVByteLength)
		if err != nil {
			return nil, nil, nil, err
		}
		updates.Set(header.InitializationVector, base64.Encode(iv))
	}

	if len(iv) != gcmKWIVByteLength {
		return nil, nil, nil, fmt.Errorf("invalid IV length %d for %q", len(iv), a.id)
	}

	sealed := aead.Seal(nil, iv, cek, nil)

	encryptedKey := sealed[:len(sealed)-gcmKWTagByteLength]
	tag := sealed[len(sealed)-gcmKWTagByteLength:]

	updates.Set(header.AuthenticationTag, base64.Encode(tag))

	return cek, encryptedKey, updates, nil
}

func (a AESGCMKW) ManageForDecrypt(key any, encryptedKey []byte, desc jwa.CEKDescriptor, params *header.Parameters) ([]byte, error) {
	aead, err := a.aead(key)
	if err != nil {
		return nil, err
	}

	ivEncoded, err := params.GetString(header.InitializationVector)
	if err != nil {
		return nil, fmt.Errorf("invalid %q header parameter: %w", header.InitializationVector, err)
	}
	iv, err := base64.Decode(ivEncoded)
	if err != nil {
		return nil, fmt.Errorf("invalid %q header parameter: %w", header.InitializationVector, err)
	}
	if len(iv) != gcmKWIVByteLength {
		return nil, fmt.Errorf("%w: invalid IV length %d", joseerrors.ErrDecryptionFailure, len(iv))
	}

	tagEncoded, err := params.GetString(header.AuthenticationTag)
	if err != nil {
		return nil, fmt.Errorf("invalid %q header parameter: %w", header.AuthenticationTag, err)
	}
	tag, err := base64.Decode(tagEncoded)
	if err != nil {
		return nil, fmt.Errorf("invalid %q header parameter: %w", header.AuthenticationTag, err)
	}
	if len(tag) != gcmKWTagByteLength {
		return nil, fmt.Errorf("%w: invalid tag length %d", joseerrors.ErrDecryptionFailure, len(tag))
	}

	sealed := make([]byte, 0, len(encryptedKey)+len(tag))
	sealed = append(sealed, encryptedKey...)
	sealed = append(sealed, tag...)

	cek, err := aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: authentication failed", joseerrors.ErrDecryptionFailure)
	}

	return cek, nil
}

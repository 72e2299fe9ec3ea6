package keymgmt

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"fmt"
	"hash"

	"github.com/ronniedz/jose4go/pkg/header"
	"github.com/ronniedz/jose4go/pkg/joseerrors"
	"github.com/ronniedz/jose4go/pkg/jwa"
	"github.com/ronniedz/jose4go/pkg/jwk"
)

func rsaEncryptionKey(key any) (*rsa.PublicKey, error) {
	switch key := key.(type) {
	case *rsa.PublicKey:
		return key, nil
	case *rsa.PrivateKey:
		return &key.PublicKey, nil
	case jwk.Value:
		pkey, _, err := jwk.RSAPublicKey(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", joseerrors.ErrAlgorithmKeyMismatch, err)
		}
		return pkey, nil
	default:
		return nil, fmt.Errorf("%w: key is %T, not RSA", joseerrors.ErrAlgorithmKeyMismatch, key)
	}
}

func rsaDecryptionKey(key any) (*rsa.PrivateKey, error) {
	switch key := key.(type) {
	case *rsa.PrivateKey:
		return key, nil
	case jwk.Value:
		pkey, err := jwk.RSAPrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", joseerrors.ErrAlgorithmKeyMismatch, err)
		}
		return pkey, nil
	default:
		return nil, fmt.Errorf("%w: key is %T, not RSA", joseerrors.ErrAlgorithmKeyMismatch, key)
	}
}

// RSA15 implements the RSA1_5 key management algorithm:
// RSAES-PKCS1-v1_5 encryption of a freshly generated CEK. Encryption
// is nondeterministic.
//
// On decryption, a padding failure yields a pseudo-random CEK of the
// correct length rather than an error, so the downstream
// authentication failure is indistinguishable from the padding
// failure. This blinds the Bleichenbacher padding oracle.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-4.2
type RSA15 struct{}

func (RSA15) ID() jwa.Algorithm {
	return jwa.RSA1_5
}

func (RSA15) ManageForEncrypt(key any, desc jwa.CEKDescriptor, cek []byte, params *header.Parameters) ([]byte, []byte, *header.Parameters, error) {
	pub, err := rsaEncryptionKey(key)
	if err != nil {
		return nil, nil, nil, err
	}

	cek, err = generateCEK(desc, cek)
	if err != nil {
		return nil, nil, nil, err
	}

	encryptedKey, err := rsa.EncryptPKCS1v15(rand.Reader, pub, cek)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encrypt CEK with RSA1_5: %w", err)
	}

	return cek, encryptedKey, nil, nil
}

func (RSA15) ManageForDecrypt(key any, encryptedKey []byte, desc jwa.CEKDescriptor, params *header.Parameters) ([]byte, error) {
	priv, err := rsaDecryptionKey(key)
	if err != nil {
		return nil, err
	}

	cek, err := randomBytes(desc.ByteLength())
	if err != nil {
		return nil, err
	}

	// On success the random CEK is overwritten in constant time; on
	// padding failure it is left in place and content decryption fails
	// downstream with the same error and timing profile.
	if err := rsa.DecryptPKCS1v15SessionKey(rand.Reader, priv, encryptedKey, cek); err != nil {
		return nil, fmt.Errorf("%w: %v", joseerrors.ErrDecryptionFailure, err)
	}

	return cek, nil
}

// RSAOAEP implements the RSA-OAEP and RSA-OAEP-256 key management
// algorithms: RSAES-OAEP with MGF1 using the algorithm's hash and an
// empty label.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-4.3
type RSAOAEP struct {
	id jwa.Algorithm
}

func (r RSAOAEP) ID() jwa.Algorithm {
	return r.id
}

func (r RSAOAEP) hash() hash.Hash {
	if r.id == jwa.RSAOAEP256 {
		return sha256.New()
	}
	return sha1.New()
}

func (r RSAOAEP) ManageForEncrypt(key any, desc jwa.CEKDescriptor, cek []byte, params *header.Parameters) ([]byte, []byte, *header.Parameters, error) {
	pub, err := rsaEncryptionKey(key)
	if err != nil {
		return nil, nil, nil, err
	}

	cek, err = generateCEK(desc, cek)
	if err != nil {
		return nil, nil, nil, err
	}

	encryptedKey, err := rsa.EncryptOAEP(r.hash(), rand.Reader, pub, cek, nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encrypt CEK with %s: %w", r.id, err)
	}

	return cek, encryptedKey, nil, nil
}

func (r RSAOAEP) ManageForDecrypt(key any, encryptedKey []byte, desc jwa.CEKDescriptor, params *header.Parameters) ([]byte, error) {
	priv, err := rsaDecryptionKey(key)
	if err != nil {
		return nil, err
	}

	cek, err := rsa.DecryptOAEP(r.hash(), rand.Reader, priv, encryptedKey, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", joseerrors.ErrDecryptionFailure, err)
	}

	return cek, nil
}

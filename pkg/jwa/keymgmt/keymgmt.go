// Package keymgmt implements the JWE key management algorithms
// defined in RFC 7518 section 4: direct use of a shared key, AES Key
// Wrap, RSAES-PKCS1-v1_5, RSAES-OAEP, PBES2 with AES Key Wrap,
// ECDH-ES key agreement with and without key wrapping, and AES GCM
// key wrapping.
//
// Every algorithm implements both directions of the key management
// contract: determining the content encryption key when producing a
// JWE, and recovering it when consuming one. Header updates produced
// by the encryption direction (such as "epk", "p2s"/"p2c", or
// "iv"/"tag") are returned to the engine, which merges them into the
// protected header before the header is used as AAD.
package keymgmt

import (
	"crypto/rand"
	"fmt"

	"github.com/ronniedz/jose4go/pkg/joseerrors"
	"github.com/ronniedz/jose4go/pkg/jwa"
	"github.com/ronniedz/jose4go/pkg/jwa/registry"
	"github.com/ronniedz/jose4go/pkg/jwk"
)

// All returns one instance of every key management algorithm this
// package implements.
func All() []registry.KeyManagement {
	return []registry.KeyManagement{
		Direct{},
		AESKW{id: jwa.A128KW, keyBits: 128},
		AESKW{id: jwa.A192KW, keyBits: 192},
		AESKW{id: jwa.A256KW, keyBits: 256},
		RSA15{},
		RSAOAEP{id: jwa.RSAOAEP},
		RSAOAEP{id: jwa.RSAOAEP256},
		PBES2{id: jwa.PBES2HS256A128KW, keyBits: 128},
		PBES2{id: jwa.PBES2HS384A192KW, keyBits: 192},
		PBES2{id: jwa.PBES2HS512A256KW, keyBits: 256},
		ECDHES{id: jwa.ECDHES},
		ECDHES{id: jwa.ECDHESA128KW, kekBits: 128},
		ECDHES{id: jwa.ECDHESA192KW, kekBits: 192},
		ECDHES{id: jwa.ECDHESA256KW, kekBits: 256},
		AESGCMKW{id: jwa.A128GCMKW, keyBits: 128},
		AESGCMKW{id: jwa.A192GCMKW, keyBits: 192},
		AESGCMKW{id: jwa.A256GCMKW, keyBits: 256},
	}
}

// Register adds every key management algorithm this package implements
// to the given registry.
func Register(r *registry.Registry) {
	for _, alg := range All() {
		r.RegisterKeyManagement(alg)
	}
}

// symmetricKey coerces the supported symmetric key representations
// into raw octets.
func symmetricKey(key any) ([]byte, error) {
	switch key := key.(type) {
	case []byte:
		return key, nil
	case string:
		return []byte(key), nil
	case jwk.Value:
		return jwk.SymmetricKeyBytes(key)
	default:
		return nil, fmt.Errorf("%w: key is %T, not a byte slice, string, or JWK value", joseerrors.ErrAlgorithmKeyMismatch, key)
	}
}

// randomBytes draws n bytes from the cryptographically secure source.
func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return b, nil
}

// generateCEK returns the supplied CEK after checking its length, or
// draws a fresh one matching the descriptor.
func generateCEK(desc jwa.CEKDescriptor, cek []byte) ([]byte, error) {
	if cek != nil {
		if len(cek) != desc.ByteLength() {
			return nil, fmt.Errorf("%w: supplied CEK is %d bits, content encryption requires %d",
				joseerrors.ErrAlgorithmKeyMismatch, len(cek)*8, desc.BitLength)
		}
		return cek, nil
	}
	return randomBytes(desc.ByteLength())
}

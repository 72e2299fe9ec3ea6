// Package sig implements the JWS signature algorithms defined in
// RFC 7518 section 3 and RFC 8037: HMAC with SHA-2, RSASSA-PKCS1-v1_5,
// RSASSA-PSS, ECDSA, and EdDSA, plus the unsecured "none" algorithm.
//
// Every algorithm accepts native crypto keys and JWK values
// interchangeably; opaque crypto.Signer implementations are accepted
// for signing so that hardware-backed keys can be used.
package sig

import (
	"crypto"
	"fmt"
	"hash"

	"github.com/ronniedz/jose4go/pkg/joseerrors"
	"github.com/ronniedz/jose4go/pkg/jwa"
	"github.com/ronniedz/jose4go/pkg/jwa/registry"
	"github.com/ronniedz/jose4go/pkg/jwk"
)

// All returns one instance of every signature algorithm this package
// implements.
func All() []registry.Signature {
	return []registry.Signature{
		HMAC{id: jwa.HS256, hash: crypto.SHA256},
		HMAC{id: jwa.HS384, hash: crypto.SHA384},
		HMAC{id: jwa.HS512, hash: crypto.SHA512},
		RSAPKCS1{id: jwa.RS256, hash: crypto.SHA256},
		RSAPKCS1{id: jwa.RS384, hash: crypto.SHA384},
		RSAPKCS1{id: jwa.RS512, hash: crypto.SHA512},
		RSAPSS{id: jwa.PS256, hash: crypto.SHA256},
		RSAPSS{id: jwa.PS384, hash: crypto.SHA384},
		RSAPSS{id: jwa.PS512, hash: crypto.SHA512},
		ECDSA{id: jwa.ES256, hash: crypto.SHA256, curveBits: 256},
		ECDSA{id: jwa.ES384, hash: crypto.SHA384, curveBits: 384},
		ECDSA{id: jwa.ES512, hash: crypto.SHA512, curveBits: 521},
		EdDSA{},
		None{},
	}
}

// Register adds every signature algorithm this package implements to
// the given registry.
func Register(r *registry.Registry) {
	for _, alg := range All() {
		r.RegisterSignature(alg)
	}
}

// hashFunc returns the constructor for a crypto.Hash, failing when the
// backend does not link the hash in.
func hashFunc(h crypto.Hash) (func() hash.Hash, error) {
	if !h.Available() {
		return nil, fmt.Errorf("%w: hash %v is not available", joseerrors.ErrUnknownAlgorithm, h)
	}
	return h.New, nil
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
		return nil, fmt.Errorf("%w: secret key is %T, not a byte slice, string, or JWK value", joseerrors.ErrAlgorithmKeyMismatch, key)
	}
}

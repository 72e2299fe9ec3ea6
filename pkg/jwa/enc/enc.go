// Package enc implements the JWE content encryption algorithms
// defined in RFC 7518 section 5: the composed AES-CBC with HMAC-SHA2
// AEAD constructions and AES-GCM.
package enc

import (
	"crypto"

	"github.com/ronniedz/jose4go/pkg/jwa"
	"github.com/ronniedz/jose4go/pkg/jwa/registry"
)

// All returns one instance of every content encryption algorithm this
// package implements.
func All() []registry.ContentEncryption {
	return []registry.ContentEncryption{
		AESCBCHMAC{id: jwa.A128CBCHS256, keyBits: 256, hash: crypto.SHA256},
		AESCBCHMAC{id: jwa.A192CBCHS384, keyBits: 384, hash: crypto.SHA384},
		AESCBCHMAC{id: jwa.A256CBCHS512, keyBits: 512, hash: crypto.SHA512},
		AESGCM{id: jwa.A128GCM, keyBits: 128},
		AESGCM{id: jwa.A192GCM, keyBits: 192},
		AESGCM{id: jwa.A256GCM, keyBits: 256},
	}
}

// Register adds every content encryption algorithm this package
// implements to the given registry.
func Register(r *registry.Registry) {
	for _, alg := range All() {
		r.RegisterContentEncryption(alg)
	}
}

// Package registry provides named catalogs of JOSE algorithm
// implementations for the three algorithm families: JWS signature,
// JWE key management, and JWE content encryption.
//
// A registry is an explicit collaborator of the jws and jwe engines,
// injected via their options. Each engine keeps a package-level
// default instance populated at init for convenience, but has no
// structural dependency on a process-wide singleton.
package registry

import (
	"fmt"
	"sync"

	"github.com/ronniedz/jose4go/pkg/header"
	"github.com/ronniedz/jose4go/pkg/joseerrors"
	"github.com/ronniedz/jose4go/pkg/jwa"
)

// Signature is implemented by JWS signature algorithms.
//
// The signing input is the concatenation of the encoded protected
// header, a single dot octet, and the encoded payload.
type Signature interface {
	// ID returns the algorithm identifier, such as "RS256".
	ID() jwa.Algorithm

	// Sign produces the signature octets over the signing input.
	Sign(key any, signingInput []byte) ([]byte, error)

	// Verify checks the signature octets over the signing input,
	// failing with joseerrors.ErrSignatureMismatch on any algebraic
	// failure and joseerrors.ErrAlgorithmKeyMismatch when the key type
	// is incompatible with the algorithm.
	Verify(key any, signingInput, signature []byte) error
}

// KeyManagement is implemented by JWE key management algorithms.
type KeyManagement interface {
	// ID returns the algorithm identifier, such as "RSA-OAEP".
	ID() jwa.Algorithm

	// ManageForEncrypt determines the content encryption key for an
	// encryption operation. It returns the CEK, the encrypted key part
	// of the compact serialization (empty where the algorithm dictates),
	// and any header updates (such as "epk", "p2s", or "iv"/"tag") that
	// the engine must merge into the protected header before the header
	// is used as AAD.
	//
	// A non-nil cek is used instead of a freshly generated one, which
	// is only useful to reproduce known-answer vectors.
	ManageForEncrypt(key any, desc jwa.CEKDescriptor, cek []byte, params *header.Parameters) (newCEK []byte, encryptedKey []byte, updates *header.Parameters, err error)

	// ManageForDecrypt recovers the content encryption key from the
	// encrypted key part and the header parameters.
	ManageForDecrypt(key any, encryptedKey []byte, desc jwa.CEKDescriptor, params *header.Parameters) ([]byte, error)
}

// ContentEncryption is implemented by JWE content encryption algorithms.
type ContentEncryption interface {
	// ID returns the algorithm identifier, such as "A128CBC-HS256".
	ID() jwa.Algorithm

	// CEK describes the content encryption key this algorithm requires.
	CEK() jwa.CEKDescriptor

	// IVByteLength returns the required initialization vector length.
	IVByteLength() int

	// Encrypt produces the ciphertext and authentication tag for the
	// plaintext under the given CEK, IV, and additional authenticated
	// data (the encoded protected header octets).
	Encrypt(cek, iv, plaintext, aad []byte) (ciphertext, tag []byte, err error)

	// Decrypt authenticates and decrypts the ciphertext. Tag failure
	// and any padding failure are indistinguishable: both surface as
	// joseerrors.ErrDecryptionFailure.
	Decrypt(cek, iv, ciphertext, tag, aad []byte) ([]byte, error)
}

// Registry holds the three algorithm catalogs. Lookups are name-exact.
//
// Registrations are normally performed once at process initialization,
// after which reads are contention-free under the read lock. Runtime
// re-registration is coordinated by the write lock so lookups never
// observe a torn state.
type Registry struct {
	mu                sync.RWMutex
	signature         map[jwa.Algorithm]Signature
	keyManagement     map[jwa.Algorithm]KeyManagement
	contentEncryption map[jwa.Algorithm]ContentEncryption
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		signature:         map[jwa.Algorithm]Signature{},
		keyManagement:     map[jwa.Algorithm]KeyManagement{},
		contentEncryption: map[jwa.Algorithm]ContentEncryption{},
	}
}

// RegisterSignature adds a signature algorithm to the catalog,
// replacing any entry with the same identifier.
func (r *Registry) RegisterSignature(alg Signature) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signature[alg.ID()] = alg
}

// UnregisterSignature removes a signature algorithm from the catalog.
func (r *Registry) UnregisterSignature(id jwa.Algorithm) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.signature, id)
}

// Signature returns the signature algorithm with the given identifier.
func (r *Registry) Signature(id jwa.Algorithm) (Signature, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	alg, ok := r.signature[id]
	if !ok {
		return nil, fmt.Errorf("%w: signature algorithm %q", joseerrors.ErrUnknownAlgorithm, id)
	}
	return alg, nil
}

// RegisterKeyManagement adds a key management algorithm to the
// catalog, replacing any entry with the same identifier.
func (r *Registry) RegisterKeyManagement(alg KeyManagement) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keyManagement[alg.ID()] = alg
}

// UnregisterKeyManagement removes a key management algorithm from the catalog.
func (r *Registry) UnregisterKeyManagement(id jwa.Algorithm) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.keyManagement, id)
}

// KeyManagement returns the key management algorithm with the given identifier.
func (r *Registry) KeyManagement(id jwa.Algorithm) (KeyManagement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	alg, ok := r.keyManagement[id]
	if !ok {
		return nil, fmt.Errorf("%w: key management algorithm %q", joseerrors.ErrUnknownAlgorithm, id)
	}
	return alg, nil
}

// RegisterContentEncryption adds a content encryption algorithm to the
// catalog, replacing any entry with the same identifier.
func (r *Registry) RegisterContentEncryption(alg ContentEncryption) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contentEncryption[alg.ID()] = alg
}

// UnregisterContentEncryption removes a content encryption algorithm
// from the catalog.
func (r *Registry) UnregisterContentEncryption(id jwa.Algorithm) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.contentEncryption, id)
}

// ContentEncryption returns the content encryption algorithm with the
// given identifier.
func (r *Registry) ContentEncryption(id jwa.Algorithm) (ContentEncryption, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	alg, ok := r.contentEncryption[id]
	if !ok {
		return nil, fmt.Errorf("%w: content encryption algorithm %q", joseerrors.ErrUnknownAlgorithm, id)
	}
	return alg, nil
}

// CheckConstraints evaluates consumer allow and deny lists against an
// algorithm identifier, failing with
// joseerrors.ErrAlgorithmConstraintViolation before any key binding or
// cryptographic work takes place. An empty allow list permits any
// registered algorithm.
func CheckConstraints(id jwa.Algorithm, allowed, disallowed []jwa.Algorithm) error {
	for _, alg := range disallowed {
		if alg == id {
			return fmt.Errorf("%w: algorithm %q is disallowed", joseerrors.ErrAlgorithmConstraintViolation, id)
		}
	}
	if len(allowed) > 0 {
		for _, alg := range allowed {
			if alg == id {
				return nil
			}
		}
		return fmt.Errorf("%w: algorithm %q is not allowed", joseerrors.ErrAlgorithmConstraintViolation, id)
	}
	return nil
}

package jwe

import (
	"bytes"
	"compress/flate"
	"crypto/rand"
	"fmt"
	"io"
	"strings"

	"github.com/ronniedz/jose4go/pkg/base64"
	"github.com/ronniedz/jose4go/pkg/header"
	"github.com/ronniedz/jose4go/pkg/joseerrors"
	"github.com/ronniedz/jose4go/pkg/jwa"
	"github.com/ronniedz/jose4go/pkg/jwa/enc"
	"github.com/ronniedz/jose4go/pkg/jwa/keymgmt"
	"github.com/ronniedz/jose4go/pkg/jwa/registry"
	"golang.org/x/exp/slices"
)

// Header is a JSON object containing the parameters describing
// the cryptographic operations and parameters employed.
type Header = header.Parameters

// CompressionDeflate is the only compression algorithm registered for
// the "zip" header parameter.
//
// https://www.rfc-editor.org/rfc/rfc7516.html#section-4.1.3
const CompressionDeflate = "DEF"

// defaultMaxPBES2IterationCount bounds the "p2c" header parameter a
// consumer will honor, defending against decryption requests crafted
// to burn CPU.
const defaultMaxPBES2IterationCount = 1_000_000

// maxDecompressedBytes bounds the plaintext produced by "zip"
// decompression.
const maxDecompressedBytes = 32 << 20

// defaultRegistry holds every key management and content encryption
// algorithm this module implements. It is populated once at init and
// only read after, each lookup under the registry's read lock.
var defaultRegistry = registry.New()

func init() {
	keymgmt.Register(defaultRegistry)
	enc.Register(defaultRegistry)
}

// DefaultRegistry returns the registry used when no other is given,
// pre-populated with every implemented key management and content
// encryption algorithm.
func DefaultRegistry() *registry.Registry {
	return defaultRegistry
}

// Encryption is a JWE: plaintext encrypted and integrity-protected
// under a content encryption key, represented on the wire in the five
// part compact serialization
//
//	BASE64URL(protected) "." BASE64URL(encrypted key) "."
//	BASE64URL(iv) "." BASE64URL(ciphertext) "." BASE64URL(tag)
//
// https://www.rfc-editor.org/rfc/rfc7516.html#section-3
type Encryption struct {
	// Header is the JWE protected header.
	Header *header.Parameters

	// EncryptedKey carries the CEK as determined by the key management
	// algorithm. It is empty for direct encryption and direct key
	// agreement.
	EncryptedKey []byte

	// IV is the initialization vector for the content encryption.
	IV []byte

	// Ciphertext is the encrypted (and possibly compressed) plaintext.
	Ciphertext []byte

	// Tag authenticates the protected header, IV, and ciphertext.
	Tag []byte

	// rawProtected is the received or produced encoding of the
	// protected header. It defines the AAD, so it is never recomputed
	// from the parsed header on the consumer side.
	rawProtected string
}

// EncryptConfig is a configuration type for producing encryptions.
type EncryptConfig struct {
	// Registry resolves the algorithm implementations.
	//
	// If not set, the package default registry is used.
	Registry *registry.Registry

	// CEK overrides the generated content encryption key. This is only
	// useful to reproduce known-answer vectors; leave nil otherwise.
	CEK []byte

	// IV overrides the generated initialization vector. This is only
	// useful to reproduce known-answer vectors; leave nil otherwise.
	// Reusing an IV with the same key is a fatal error.
	IV []byte
}

// EncryptOption is a functional option type used to configure encryption.
type EncryptOption func(*EncryptConfig) error

// WithEncryptionRegistry sets the algorithm registry used for encryption.
func WithEncryptionRegistry(r *registry.Registry) EncryptOption {
	return func(ec *EncryptConfig) error {
		ec.Registry = r
		return nil
	}
}

// WithContentEncryptionKey overrides the generated CEK, to reproduce
// known-answer vectors.
func WithContentEncryptionKey(cek []byte) EncryptOption {
	return func(ec *EncryptConfig) error {
		ec.CEK = cek
		return nil
	}
}

// WithInitializationVector overrides the generated IV, to reproduce
// known-answer vectors.
func WithInitializationVector(iv []byte) EncryptOption {
	return func(ec *EncryptConfig) error {
		ec.IV = iv
		return nil
	}
}

// Encrypt produces a JWE over the given plaintext.
//
// The header parameter set must name the key management algorithm
// with "alg" and the content encryption algorithm with "enc". The
// producer sequence is fixed: the key management step runs first and
// its header updates (such as "epk" or "p2s"/"p2c") are merged into
// the protected header BEFORE the header is encoded, because the
// encoded header is the AAD for the content encryption. Reordering
// these steps would break authenticity.
func Encrypt(params *header.Parameters, plaintext []byte, key any, opts ...EncryptOption) (*Encryption, error) {
	config := &EncryptConfig{
		Registry: defaultRegistry,
	}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, fmt.Errorf("encrypt option error: %w", err)
		}
	}

	alg, err := params.Algorithm()
	if err != nil || alg == "" {
		return nil, fmt.Errorf("missing or invalid algorithm: %w", err)
	}

	encAlg, err := params.Encryption()
	if err != nil || encAlg == "" {
		return nil, fmt.Errorf("missing or invalid encryption algorithm: %w", err)
	}

	contentAlg, err := config.Registry.ContentEncryption(encAlg)
	if err != nil {
		return nil, fmt.Errorf("unsupported algorithm %q: %w", encAlg, err)
	}

	keyMgmtAlg, err := config.Registry.KeyManagement(alg)
	if err != nil {
		return nil, fmt.Errorf("unsupported algorithm %q: %w", alg, err)
	}

	cek, encryptedKey, updates, err := keyMgmtAlg.ManageForEncrypt(key, contentAlg.CEK(), config.CEK, params)
	if err != nil {
		return nil, fmt.Errorf("key management failed: %w", err)
	}

	params.Merge(updates)

	if params.Has(header.Zip) {
		zip, err := params.Compression()
		if err != nil {
			return nil, fmt.Errorf("invalid %q header parameter: %w", header.Zip, err)
		}
		if zip != CompressionDeflate {
			return nil, fmt.Errorf("%w: %q", joseerrors.ErrUnsupportedCompression, zip)
		}
		plaintext, err = deflate(plaintext)
		if err != nil {
			return nil, fmt.Errorf("failed to compress plaintext: %w", err)
		}
	}

	protected, err := params.Base64URLString()
	if err != nil {
		return nil, fmt.Errorf("failed to encode protected header: %w", err)
	}

	iv := config.IV
	if iv == nil {
		iv = make([]byte, contentAlg.IVByteLength())
		if err := readRandom(iv); err != nil {
			return nil, err
		}
	}

	ciphertext, tag, err := contentAlg.Encrypt(cek, iv, plaintext, []byte(protected))
	if err != nil {
		return nil, fmt.Errorf("content encryption failed: %w", err)
	}

	return &Encryption{
		Header:       params,
		EncryptedKey: encryptedKey,
		IV:           iv,
		Ciphertext:   ciphertext,
		Tag:          tag,
		rawProtected: protected,
	}, nil
}

// Compact returns the five part compact serialization.
func (e *Encryption) Compact() (string, error) {
	protected := e.rawProtected
	if protected == "" {
		var err error
		protected, err = e.Header.Base64URLString()
		if err != nil {
			return "", fmt.Errorf("failed to encode protected header: %w", err)
		}
		e.rawProtected = protected
	}

	return strings.Join([]string{
		protected,
		base64.Encode(e.EncryptedKey),
		base64.Encode(e.IV),
		base64.Encode(e.Ciphertext),
		base64.Encode(e.Tag),
	}, "."), nil
}

// String returns the compact serialization, or an empty string if the
// encryption cannot be serialized.
func (e *Encryption) String() string {
	compact, err := e.Compact()
	if err != nil {
		return ""
	}
	return compact
}

// Parse parses a compact JWE serialization, and returns an Encryption
// or an error if it fails to parse.
//
// # Warning
//
// This is a low-level function that does not decrypt or authenticate
// anything. Use the Decrypt method afterwards, and only trust the
// plaintext it returns.
func Parse(input string) (*Encryption, error) {
	if input == "" {
		return nil, fmt.Errorf("%w: empty JWE string", joseerrors.ErrMalformedCompact)
	}

	parts := strings.Split(input, ".")
	if len(parts) != 5 {
		return nil, fmt.Errorf("%w: expected 4 dots, got %d", joseerrors.ErrMalformedCompact, len(parts)-1)
	}

	headerBytes, err := base64.Decode(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode header: %v", joseerrors.ErrMalformedCompact, err)
	}

	params := header.New()
	if err := params.UnmarshalJSON(headerBytes); err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	encryption := &Encryption{
		Header:       params,
		rawProtected: parts[0],
	}

	for _, part := range []struct {
		name  string
		value string
		dst   *[]byte
	}{
		{"encrypted key", parts[1], &encryption.EncryptedKey},
		{"initialization vector", parts[2], &encryption.IV},
		{"ciphertext", parts[3], &encryption.Ciphertext},
		{"authentication tag", parts[4], &encryption.Tag},
	} {
		if part.value == "" {
			continue
		}
		decoded, err := base64.Decode(part.value)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to decode %s: %v", joseerrors.ErrMalformedCompact, part.name, err)
		}
		*part.dst = decoded
	}

	return encryption, nil
}

// DecryptConfig is a configuration type for consuming encryptions,
// applied before any cryptographic work.
type DecryptConfig struct {
	// AllowedAlgorithms is the algorithm allow-list, applied to both
	// the "alg" and "enc" values. Empty allows any registered
	// algorithm.
	AllowedAlgorithms []jwa.Algorithm

	// DisallowedAlgorithms is the algorithm deny-list, checked before
	// the allow-list.
	DisallowedAlgorithms []jwa.Algorithm

	// KnownCriticalHeaders is the set of "crit" extension parameter
	// names this consumer understands.
	KnownCriticalHeaders []string

	// MaxPBES2IterationCount bounds the "p2c" header parameter this
	// consumer will honor.
	//
	// If not set, defaultMaxPBES2IterationCount applies.
	MaxPBES2IterationCount int64

	// KeyResolver resolves a decryption key from the protected header
	// when no explicit key is given.
	KeyResolver func(*header.Parameters) (any, error)

	// Registry resolves the algorithm implementations.
	//
	// If not set, the package default registry is used.
	Registry *registry.Registry
}

// DecryptOption is a functional option type used to configure
// the decryption requirements for encryptions.
type DecryptOption func(*DecryptConfig) error

// WithAllowedAlgorithms sets the allowed algorithms for decryption.
func WithAllowedAlgorithms(algs ...jwa.Algorithm) DecryptOption {
	return func(dc *DecryptConfig) error {
		dc.AllowedAlgorithms = algs
		return nil
	}
}

// WithDisallowedAlgorithms sets the disallowed algorithms for decryption.
func WithDisallowedAlgorithms(algs ...jwa.Algorithm) DecryptOption {
	return func(dc *DecryptConfig) error {
		dc.DisallowedAlgorithms = algs
		return nil
	}
}

// WithKnownCriticalHeaders sets the "crit" extension parameter names
// this consumer understands.
func WithKnownCriticalHeaders(names ...string) DecryptOption {
	return func(dc *DecryptConfig) error {
		dc.KnownCriticalHeaders = names
		return nil
	}
}

// WithMaxPBES2IterationCount bounds the "p2c" header parameter this
// consumer will honor.
func WithMaxPBES2IterationCount(max int64) DecryptOption {
	return func(dc *DecryptConfig) error {
		dc.MaxPBES2IterationCount = max
		return nil
	}
}

// WithKeyResolver sets the key resolution strategy used when no
// explicit key is given.
func WithKeyResolver(resolver func(*header.Parameters) (any, error)) DecryptOption {
	return func(dc *DecryptConfig) error {
		dc.KeyResolver = resolver
		return nil
	}
}

// WithRegistry sets the algorithm registry used for decryption.
func WithRegistry(r *registry.Registry) DecryptOption {
	return func(dc *DecryptConfig) error {
		dc.Registry = r
		return nil
	}
}

// recoverCEK runs the consumer sequence up to and including the key
// management step, returning the CEK and the resolved configuration.
func (e *Encryption) recoverCEK(key any, opts ...DecryptOption) ([]byte, *DecryptConfig, error) {
	config := &DecryptConfig{
		MaxPBES2IterationCount: defaultMaxPBES2IterationCount,
		Registry:               defaultRegistry,
	}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, nil, fmt.Errorf("decrypt option error: %w", err)
		}
	}

	alg, err := e.Header.Algorithm()
	if err != nil || alg == "" {
		return nil, nil, fmt.Errorf("missing or invalid algorithm: %w", err)
	}

	encAlg, err := e.Header.Encryption()
	if err != nil || encAlg == "" {
		return nil, nil, fmt.Errorf("missing or invalid encryption algorithm: %w", err)
	}

	if err := registry.CheckConstraints(alg, config.AllowedAlgorithms, config.DisallowedAlgorithms); err != nil {
		return nil, nil, err
	}
	if err := registry.CheckConstraints(encAlg, config.AllowedAlgorithms, config.DisallowedAlgorithms); err != nil {
		return nil, nil, err
	}

	if err := checkCriticalHeaders(e.Header, config.KnownCriticalHeaders); err != nil {
		return nil, nil, err
	}

	if e.Header.Has(header.PBES2IterationCount) {
		count, err := e.Header.GetInt64(header.PBES2IterationCount)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid %q header parameter: %w", header.PBES2IterationCount, err)
		}
		if count > config.MaxPBES2IterationCount {
			return nil, nil, fmt.Errorf("%w: PBES2 iteration count %d exceeds the configured maximum %d",
				joseerrors.ErrPolicyViolation, count, config.MaxPBES2IterationCount)
		}
	}

	contentAlg, err := config.Registry.ContentEncryption(encAlg)
	if err != nil {
		return nil, nil, fmt.Errorf("unsupported algorithm %q: %w", encAlg, err)
	}

	keyMgmtAlg, err := config.Registry.KeyManagement(alg)
	if err != nil {
		return nil, nil, fmt.Errorf("unsupported algorithm %q: %w", alg, err)
	}

	if key == nil && config.KeyResolver != nil {
		key, err = config.KeyResolver(e.Header)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", joseerrors.ErrKeyResolutionFailure, err)
		}
	}

	if key == nil {
		return nil, nil, fmt.Errorf("no key provided to decrypt using algorithm %q", alg)
	}

	cek, err := keyMgmtAlg.ManageForDecrypt(key, e.EncryptedKey, contentAlg.CEK(), e.Header)
	if err != nil {
		return nil, nil, err
	}

	return cek, config, nil
}

// RecoverCEK runs the key management step alone and returns the
// content encryption key. It exists so the key management and content
// encryption steps stay independently testable; most callers want
// Decrypt.
func (e *Encryption) RecoverCEK(key any, opts ...DecryptOption) ([]byte, error) {
	cek, _, err := e.recoverCEK(key, opts...)
	return cek, err
}

// Decrypt authenticates and decrypts the ciphertext with the given
// key and options, returning the plaintext only if authentication
// succeeds. Tag verification failure and any padding failure are
// indistinguishable to callers.
func (e *Encryption) Decrypt(key any, opts ...DecryptOption) ([]byte, error) {
	cek, config, err := e.recoverCEK(key, opts...)
	if err != nil {
		return nil, err
	}

	encAlg, err := e.Header.Encryption()
	if err != nil {
		return nil, fmt.Errorf("missing or invalid encryption algorithm: %w", err)
	}

	contentAlg, err := config.Registry.ContentEncryption(encAlg)
	if err != nil {
		return nil, fmt.Errorf("unsupported algorithm %q: %w", encAlg, err)
	}

	protected := e.rawProtected
	if protected == "" {
		protected, err = e.Header.Base64URLString()
		if err != nil {
			return nil, fmt.Errorf("failed to encode protected header: %w", err)
		}
	}

	plaintext, err := contentAlg.Decrypt(cek, e.IV, e.Ciphertext, e.Tag, []byte(protected))
	if err != nil {
		return nil, err
	}

	if e.Header.Has(header.Zip) {
		zip, err := e.Header.Compression()
		if err != nil {
			return nil, fmt.Errorf("invalid %q header parameter: %w", header.Zip, err)
		}
		if zip != CompressionDeflate {
			return nil, fmt.Errorf("%w: %q", joseerrors.ErrUnsupportedCompression, zip)
		}
		plaintext, err = inflate(plaintext)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress plaintext: %w", err)
		}
	}

	return plaintext, nil
}

// checkCriticalHeaders enforces RFC 7516 section 4.1.13, which shares
// the RFC 7515 section 4.1.11 rules: the "crit" parameter must not be
// empty, and every name it lists must be understood by this consumer
// and present in the header.
func checkCriticalHeaders(params *header.Parameters, known []string) error {
	if !params.Has(header.Critical) {
		return nil
	}

	crit, err := params.Critical()
	if err != nil {
		return fmt.Errorf("%w: invalid %q value: %v", joseerrors.ErrUnsupportedCriticalParameter, header.Critical, err)
	}

	if len(crit) == 0 {
		return fmt.Errorf("%w: %q must not be empty", joseerrors.ErrUnsupportedCriticalParameter, header.Critical)
	}

	for _, name := range crit {
		if !slices.Contains(known, name) {
			return fmt.Errorf("%w: unsupported critical header parameter: %q", joseerrors.ErrUnsupportedCriticalParameter, name)
		}
		if !params.Has(name) {
			return fmt.Errorf("%w: critical header parameter %q is missing from header", joseerrors.ErrUnsupportedCriticalParameter, name)
		}
	}

	return nil
}

func readRandom(b []byte) error {
	if _, err := rand.Read(b); err != nil {
		return fmt.Errorf("failed to read random bytes: %w", err)
	}
	return nil
}

func deflate(data []byte) ([]byte, error) {
	buff := bytes.NewBuffer(nil)

	w, err := flate.NewWriter(buff, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return buff.Bytes(), nil
}

func inflate(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()

	out, err := io.ReadAll(io.LimitReader(r, maxDecompressedBytes+1))
	if err != nil {
		return nil, err
	}
	if len(out) > maxDecompressedBytes {
		return nil, fmt.Errorf("%w: decompressed content exceeds %d bytes", joseerrors.ErrPolicyViolation, maxDecompressedBytes)
	}

	return out, nil
}

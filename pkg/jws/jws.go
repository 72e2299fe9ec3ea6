package jws

import (
	"fmt"
	"strings"

	"github.com/ronniedz/jose4go/pkg/base64"
	"github.com/ronniedz/jose4go/pkg/header"
	"github.com/ronniedz/jose4go/pkg/joseerrors"
	"github.com/ronniedz/jose4go/pkg/jwa"
	"github.com/ronniedz/jose4go/pkg/jwa/registry"
	"github.com/ronniedz/jose4go/pkg/jwa/sig"
	"golang.org/x/exp/slices"
)

// Header is a JSON object containing the parameters describing
// the cryptographic operations and parameters employed.
//
// The JOSE (JSON Object Signing and Encryption) Header is comprised
// of a set of Header Parameters.
type Header = header.Parameters

// defaultRegistry holds every signature algorithm this module
// implements. It is populated once at init and only read after, each
// lookup under the registry's read lock;
// callers provide their own registry through options when they need
// a different catalog.
var defaultRegistry = registry.New()

func init() {
	sig.Register(defaultRegistry)
}

// DefaultRegistry returns the registry used when no other is given,
// pre-populated with every implemented signature algorithm.
func DefaultRegistry() *registry.Registry {
	return defaultRegistry
}

// Signature is a JWS: a payload protected by a digital signature or
// MAC, represented on the wire in the three part compact serialization
//
//	BASE64URL(protected) "." BASE64URL(payload) "." BASE64URL(signature)
//
// https://datatracker.ietf.org/doc/html/rfc7515#section-3
type Signature struct {
	// Header is the JWS protected header.
	Header *header.Parameters

	// Payload is the secured content. It is nil for a parsed detached
	// serialization until verification supplies the encoded payload.
	Payload []byte

	// Signature is the signature or MAC octets.
	Signature []byte

	// Received or computed encoded parts. Verification always runs
	// over the exact received bytes, never a re-encoding.
	rawProtected string
	rawPayload   string
	rawSignature string
}

// SignConfig is a configuration type for producing signatures.
type SignConfig struct {
	// Registry resolves the signature algorithm implementation.
	//
	// If not set, the package default registry is used.
	Registry *registry.Registry
}

// SignOption is a functional option type used to configure signing.
type SignOption func(*SignConfig) error

// WithSigningRegistry sets the algorithm registry used for signing.
func WithSigningRegistry(r *registry.Registry) SignOption {
	return func(sc *SignConfig) error {
		sc.Registry = r
		return nil
	}
}

// New creates a signed JWS over the given payload. The header
// parameter set must name the algorithm with "alg" before signing.
//
// The given key can be a symmetric or asymmetric (private) key. The
// type for this argument depends on the algorithm "alg" defined in
// the header, and may be a JWK value of the matching key type.
func New(params *header.Parameters, payload []byte, key any, opts ...SignOption) (*Signature, error) {
	signature := &Signature{
		Header:  params,
		Payload: payload,
	}

	_, err := signature.Sign(key, opts...)
	if err != nil {
		return nil, err
	}

	return signature, nil
}

// Sign computes the signature over the signing input, the encoded
// header and payload joined by a dot, and stores it on the Signature.
func (s *Signature) Sign(key any, opts ...SignOption) ([]byte, error) {
	config := &SignConfig{
		Registry: defaultRegistry,
	}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, fmt.Errorf("sign option error: %w", err)
		}
	}

	if s.Header.Len() == 0 {
		return nil, fmt.Errorf("cannot sign without header parameters")
	}

	alg, err := s.Header.Algorithm()
	if err != nil || alg == "" {
		return nil, fmt.Errorf("missing or invalid algorithm: %w", err)
	}

	algImpl, err := config.Registry.Signature(alg)
	if err != nil {
		return nil, fmt.Errorf("unsupported algorithm %q: %w", alg, err)
	}

	encodedHeader, err := s.Header.Base64URLString()
	if err != nil {
		return nil, fmt.Errorf("failed to encode protected header: %w", err)
	}

	s.rawProtected = encodedHeader
	s.rawPayload = base64.Encode(s.Payload)

	signature, err := algImpl.Sign(key, []byte(s.rawProtected+"."+s.rawPayload))
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}

	s.Signature = signature
	s.rawSignature = base64.Encode(signature)

	return signature, nil
}

// Compact returns the three part compact serialization.
func (s *Signature) Compact() (string, error) {
	if s.rawProtected == "" {
		encodedHeader, err := s.Header.Base64URLString()
		if err != nil {
			return "", fmt.Errorf("failed to encode protected header: %w", err)
		}
		s.rawProtected = encodedHeader
		s.rawPayload = base64.Encode(s.Payload)
		s.rawSignature = base64.Encode(s.Signature)
	}

	return s.rawProtected + "." + s.rawPayload + "." + s.rawSignature, nil
}

// CompactDetached returns the detached compact serialization, with an
// empty payload part. The consumer must be given the encoded payload
// out-of-band to verify it.
//
// https://datatracker.ietf.org/doc/html/rfc7515#appendix-F
func (s *Signature) CompactDetached() (string, error) {
	if _, err := s.Compact(); err != nil {
		return "", err
	}

	return s.rawProtected + ".." + s.rawSignature, nil
}

// String returns the compact serialization, or an empty string if the
// signature cannot be serialized.
func (s *Signature) String() string {
	compact, err := s.Compact()
	if err != nil {
		return ""
	}
	return compact
}

// EncodedPayload returns the base64url encoded payload part.
func (s *Signature) EncodedPayload() string {
	if s.rawPayload == "" && len(s.Payload) > 0 {
		s.rawPayload = base64.Encode(s.Payload)
	}
	return s.rawPayload
}

// UnverifiedPayload returns the payload WITHOUT verifying the
// signature. Callers using this acknowledge they are reading content
// before it has been authenticated.
func (s *Signature) UnverifiedPayload() []byte {
	return s.Payload
}

// Parse parses a compact JWS serialization, and returns a Signature
// or an error if it fails to parse.
//
// # Warning
//
// This is a low-level function that does not verify the signature of
// the JWS. Use the Verify method afterwards, and only trust the
// payload once it succeeds.
func Parse(input string) (*Signature, error) {
	if input == "" {
		return nil, fmt.Errorf("%w: empty JWS string", joseerrors.ErrMalformedCompact)
	}

	parts := strings.Split(input, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected 2 dots, got %d", joseerrors.ErrMalformedCompact, len(parts)-1)
	}

	signature := &Signature{
		rawProtected: parts[0],
		rawPayload:   parts[1],
		rawSignature: parts[2],
	}

	headerBytes, err := base64.Decode(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode header: %v", joseerrors.ErrMalformedCompact, err)
	}

	params := header.New()
	if err := params.UnmarshalJSON(headerBytes); err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}
	signature.Header = params

	if parts[1] != "" {
		payload, err := base64.Decode(parts[1])
		if err != nil {
			return nil, fmt.Errorf("%w: failed to decode payload: %v", joseerrors.ErrMalformedCompact, err)
		}
		signature.Payload = payload
	}

	if parts[2] != "" {
		signatureBytes, err := base64.Decode(parts[2])
		if err != nil {
			return nil, fmt.Errorf("%w: failed to decode signature: %v", joseerrors.ErrMalformedCompact, err)
		}
		signature.Signature = signatureBytes
	}

	return signature, nil
}

// VerifyConfig is a configuration type for verifying signatures,
// applied before any cryptographic work.
type VerifyConfig struct {
	// InsecureAllowNone allows the "none" algorithm to be used, which
	// is considered insecure, dangerous, and disabled by default.
	InsecureAllowNone bool

	// AllowedAlgorithms is the algorithm allow-list. Empty allows any
	// registered algorithm other than "none".
	AllowedAlgorithms []jwa.Algorithm

	// DisallowedAlgorithms is the algorithm deny-list, checked before
	// the allow-list.
	DisallowedAlgorithms []jwa.Algorithm

	// KnownCriticalHeaders is the set of "crit" extension parameter
	// names this consumer understands. Any critical parameter outside
	// this set fails verification.
	KnownCriticalHeaders []string

	// EncodedPayload supplies the payload for a detached
	// serialization, exactly as base64url encoded by the producer.
	EncodedPayload string

	// KeyResolver resolves a verification key from the protected
	// header when no explicit key is given.
	KeyResolver func(*header.Parameters) (any, error)

	// Registry resolves the signature algorithm implementation.
	//
	// If not set, the package default registry is used.
	Registry *registry.Registry
}

// VerifyOption is a functional option type used to configure
// the verification requirements for signatures.
type VerifyOption func(*VerifyConfig) error

// WithAllowInsecureNoneAlgorithm allows the "none" algorithm to be used.
// Users must explicitly enable this option, as it is
// considered insecure, dangerous, and disabled by default.
//
// # WARNING
//
// This is not recommended, and should only be used
// for testing purposes.
func WithAllowInsecureNoneAlgorithm(value bool) VerifyOption {
	return func(vc *VerifyConfig) error {
		vc.InsecureAllowNone = value
		return nil
	}
}

// WithAllowedAlgorithms sets the allowed algorithms for verification.
func WithAllowedAlgorithms(algs ...jwa.Algorithm) VerifyOption {
	return func(vc *VerifyConfig) error {
		vc.AllowedAlgorithms = algs
		return nil
	}
}

// WithDisallowedAlgorithms sets the disallowed algorithms for verification.
func WithDisallowedAlgorithms(algs ...jwa.Algorithm) VerifyOption {
	return func(vc *VerifyConfig) error {
		vc.DisallowedAlgorithms = algs
		return nil
	}
}

// WithKnownCriticalHeaders sets the "crit" extension parameter names
// this consumer understands.
func WithKnownCriticalHeaders(names ...string) VerifyOption {
	return func(vc *VerifyConfig) error {
		vc.KnownCriticalHeaders = names
		return nil
	}
}

// WithDetachedPayload supplies the encoded payload for verifying a
// detached serialization.
func WithDetachedPayload(encodedPayload string) VerifyOption {
	return func(vc *VerifyConfig) error {
		vc.EncodedPayload = encodedPayload
		return nil
	}
}

// WithKeyResolver sets the key resolution strategy used when no
// explicit key is given.
func WithKeyResolver(resolver func(*header.Parameters) (any, error)) VerifyOption {
	return func(vc *VerifyConfig) error {
		vc.KeyResolver = resolver
		return nil
	}
}

// WithRegistry sets the algorithm registry used for verification.
func WithRegistry(r *registry.Registry) VerifyOption {
	return func(vc *VerifyConfig) error {
		vc.Registry = r
		return nil
	}
}

// checkCriticalHeaders enforces RFC 7515 section 4.1.11: the "crit"
// parameter must not be empty, and every name it lists must be
// understood by this consumer and present in the header.
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

// Verify checks the signature over the exact received bytes using the
// given key and options. Constraint violations fail before any
// cryptographic work.
//
// For a detached serialization, supply the encoded payload with
// WithDetachedPayload; on success it becomes the Payload.
func (s *Signature) Verify(key any, opts ...VerifyOption) error {
	config := &VerifyConfig{
		Registry: defaultRegistry,
	}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return fmt.Errorf("verify option error: %w", err)
		}
	}

	if s.Header.Len() == 0 {
		return fmt.Errorf("missing or invalid algorithm: no header parameters")
	}

	alg, err := s.Header.Algorithm()
	if err != nil || alg == "" {
		return fmt.Errorf("missing or invalid algorithm: %w", err)
	}

	if err := registry.CheckConstraints(alg, config.AllowedAlgorithms, config.DisallowedAlgorithms); err != nil {
		return err
	}

	if alg == jwa.None && !config.InsecureAllowNone {
		return fmt.Errorf("%w: %q is disabled unless explicitly allowed", joseerrors.ErrAlgorithmConstraintViolation, jwa.None)
	}

	if err := checkCriticalHeaders(s.Header, config.KnownCriticalHeaders); err != nil {
		return err
	}

	algImpl, err := config.Registry.Signature(alg)
	if err != nil {
		return fmt.Errorf("unsupported algorithm %q: %w", alg, err)
	}

	if key == nil && config.KeyResolver != nil {
		key, err = config.KeyResolver(s.Header)
		if err != nil {
			return fmt.Errorf("%w: %v", joseerrors.ErrKeyResolutionFailure, err)
		}
	}

	if key == nil && alg != jwa.None {
		return fmt.Errorf("no key provided to verify signature using algorithm %q", alg)
	}

	protected := s.rawProtected
	if protected == "" {
		protected, err = s.Header.Base64URLString()
		if err != nil {
			return fmt.Errorf("failed to encode protected header: %w", err)
		}
	}

	encodedPayload := s.rawPayload
	if config.EncodedPayload != "" {
		encodedPayload = config.EncodedPayload
	}
	if encodedPayload == "" && len(s.Payload) > 0 {
		encodedPayload = base64.Encode(s.Payload)
	}

	err = algImpl.Verify(key, []byte(protected+"."+encodedPayload), s.Signature)
	if err != nil {
		return err
	}

	// A detached payload is only surfaced once it has verified.
	if config.EncodedPayload != "" {
		payload, err := base64.Decode(config.EncodedPayload)
		if err != nil {
			return fmt.Errorf("%w: failed to decode detached payload: %v", joseerrors.ErrMalformedCompact, err)
		}
		s.Payload = payload
		s.rawPayload = config.EncodedPayload
	}

	return nil
}

// VerifiedPayload verifies the signature and returns the payload only
// if verification succeeds.
func (s *Signature) VerifiedPayload(key any, opts ...VerifyOption) ([]byte, error) {
	if err := s.Verify(key, opts...); err != nil {
		return nil, err
	}
	return s.Payload, nil
}

// Package joseerrors defines the shared error taxonomy used across the
// base64, header, jwa, jwk, jws, and jwe packages. These are sentinel
// values, not concrete error types: callers use errors.Is against them,
// while the error string produced at the call site carries the specific
// context via fmt.Errorf's %w wrapping.
package joseerrors

import "errors"

var (
	// ErrMalformedCompact is returned when a compact serialization does not
	// have the expected number of dot-separated parts, or a part fails to
	// base64url-decode.
	ErrMalformedCompact = errors.New("jose: malformed compact serialization")

	// ErrMalformedJSON is returned when a header or JWK fails to decode as JSON.
	ErrMalformedJSON = errors.New("jose: malformed json")

	// ErrMalformedClaim is returned when a claim value has an unexpected type.
	ErrMalformedClaim = errors.New("jose: malformed claim")

	// ErrMalformedKey is returned when a JWK is missing required members or
	// carries members inconsistent with its kty.
	ErrMalformedKey = errors.New("jose: malformed key")

	// ErrUnknownAlgorithm is returned when an algorithm identifier has no
	// registered entry.
	ErrUnknownAlgorithm = errors.New("jose: unknown algorithm")

	// ErrAlgorithmConstraintViolation is returned when an algorithm is
	// syntactically known but rejected by consumer allow/deny-list policy.
	ErrAlgorithmConstraintViolation = errors.New("jose: algorithm constraint violation")

	// ErrAlgorithmKeyMismatch is returned when the supplied key's type is
	// incompatible with the named algorithm.
	ErrAlgorithmKeyMismatch = errors.New("jose: algorithm key mismatch")

	// ErrUnsupportedCriticalParameter is returned when a "crit" header names
	// a parameter the consumer does not recognize.
	ErrUnsupportedCriticalParameter = errors.New("jose: unsupported critical parameter")

	// ErrUnsupportedCompression is returned when "zip" names an algorithm
	// other than "DEF".
	ErrUnsupportedCompression = errors.New("jose: unsupported compression algorithm")

	// ErrSignatureMismatch is returned on any signature or MAC verification
	// failure. It carries no further detail by design.
	ErrSignatureMismatch = errors.New("jose: signature mismatch")

	// ErrDecryptionFailure is returned on any JWE decryption failure,
	// covering both MAC/tag failure and padding failure indistinguishably.
	ErrDecryptionFailure = errors.New("jose: decryption failure")

	// ErrKeyResolutionFailure is returned when a key resolver cannot produce
	// a key for a given header set.
	ErrKeyResolutionFailure = errors.New("jose: key resolution failure")

	// ErrInvalidInputEncoding is returned when base64url input contains a
	// character outside the URL-safe alphabet.
	ErrInvalidInputEncoding = errors.New("jose: invalid input encoding")

	// ErrIntegerTooLarge is returned when a big integer does not fit within
	// a caller-specified fixed octet width.
	ErrIntegerTooLarge = errors.New("jose: integer too large for target length")

	// ErrNumberOutOfRange is returned when a JSON number cannot be
	// represented without loss by the decoder's target type.
	ErrNumberOutOfRange = errors.New("jose: number out of range")

	// ErrPolicyViolation is returned when an operation is cryptographically
	// valid but forbidden by consumer policy, e.g. a PBKDF2 iteration count
	// above a configured maximum.
	ErrPolicyViolation = errors.New("jose: policy violation")
)

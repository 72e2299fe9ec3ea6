package base64

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/ronniedz/jose4go/pkg/joseerrors"
)

// Encode returns the base64url encoded string from the given input.
// This function implements base64url encoding as defined in RFC 4648 Section 5,
// which is used in the JWS and JWE specifications (RFC 7515, RFC 7516).
//
// It omits padding characters as required by the JOSE specifications.
//
// Empty input encodes to the empty string, which is a valid part in a
// compact serialization (e.g. a detached payload or a direct key
// management encrypted key).
func Encode(input []byte) string {
	return base64.RawURLEncoding.EncodeToString(input)
}

// Decode returns the base64url decoded bytes from the given input.
// This function implements base64url decoding as defined in RFC 4648 Section 5,
// which is used in the JWS and JWE specifications (RFC 7515, RFC 7516).
//
// Both padded and unpadded input are accepted; any character outside
// the URL-safe alphabet fails with joseerrors.ErrInvalidInputEncoding.
// The empty string decodes to zero bytes.
func Decode(input string) ([]byte, error) {
	input = strings.TrimRight(input, "=")

	// encoding/base64 skips CR and LF while decoding; reject them here.
	if strings.ContainsAny(input, "\r\n") {
		return nil, fmt.Errorf("%w: line break in input", joseerrors.ErrInvalidInputEncoding)
	}

	result, err := base64.RawURLEncoding.DecodeString(input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", joseerrors.ErrInvalidInputEncoding, err)
	}
	return result, nil
}

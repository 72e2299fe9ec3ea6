// Package thumbprint computes JWK Thumbprints as defined in RFC 7638,
// the stable identifier of a key derived from its essential members.
package thumbprint

import (
	"bytes"
	"crypto"
	"errors"
	"fmt"
	"strings"

	"github.com/ronniedz/jose4go/pkg/base64"
	"github.com/ronniedz/jose4go/pkg/jwk"
)

var (
	ErrInvalidKey = errors.New("thumbprint: invalid key")
)

// requiredMembers lists, for each key type, the members included in
// the thumbprint hash input, ordered lexicographically by the Unicode
// code points of the member names as RFC 7638 section 3.2 requires.
var requiredMembers = map[string][]string{
	jwk.KeyTypeEC:  {"crv", "kty", "x", "y"},
	jwk.KeyTypeRSA: {"e", "kty", "n"},
	jwk.KeyTypeOct: {"k", "kty"},
	jwk.KeyTypeOKP: {"crv", "kty", "x"},
}

// stripWhitespace normalizes a base64url member value so that the
// thumbprint is invariant under multi-line JWK input.
func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, s)
}

// Generate returns the JWK Thumbprint for the given JWK following
// the steps defined in RFC 7638.
func Generate(value jwk.Value, h crypto.Hash) ([]byte, error) {
	// 1. Construct a JSON object [RFC7159] containing only the required
	// members of a JWK representing the key and with no whitespace or
	// line breaks before or after any syntactic elements and with the
	// required members ordered lexicographically by the Unicode
	// [UNICODE] code points of the member names.
	//
	// (This JSON object is itself a legal JWK representation of the key.)
	kty, ok := value["kty"].(string)
	if !ok {
		return nil, ErrInvalidKey
	}

	members, ok := requiredMembers[kty]
	if !ok {
		return nil, ErrInvalidKey
	}

	b := bytes.NewBuffer(nil)

	b.WriteRune('{')

	for i, member := range members {
		memberValue, ok := value[member]
		if !ok {
			return nil, fmt.Errorf("%w: missing required member %q", ErrInvalidKey, member)
		}

		strValue, ok := memberValue.(string)
		if !ok {
			return nil, fmt.Errorf("%w: member %q is %T, not a string", ErrInvalidKey, member, memberValue)
		}

		if member != "kty" && member != "crv" {
			strValue = stripWhitespace(strValue)
		}

		if i > 0 {
			b.WriteRune(',')
		}

		b.WriteRune('"')
		b.WriteString(member)
		b.WriteRune('"')
		b.WriteRune(':')
		b.WriteRune('"')
		b.WriteString(strValue)
		b.WriteRune('"')
	}

	b.WriteRune('}')

	// 2. Hash the octets of the UTF-8 representation of this JSON object
	// with a cryptographic hash function H.
	//
	// For example, SHA-256 might be used as H. If none is specified,
	// SHA-256 is used; this is indicated in the algorithm header parameter
	// of the resulting JWK Thumbprint by the value "SHA-256".
	if h == 0 {
		h = crypto.SHA256
	}

	hash := h.New()

	_, err := hash.Write(b.Bytes())
	if err != nil {
		return nil, err
	}

	return hash.Sum(nil), nil
}

// GenerateString returns the JWK Thumbprint for the given JWK following
// the steps defined in RFC 7638 as a base64url encoded string.
func GenerateString(value jwk.Value, h crypto.Hash) (string, error) {
	thumbprint, err := Generate(value, h)
	if err != nil {
		return "", err
	}

	return base64.Encode(thumbprint), nil
}

package header

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ronniedz/jose4go/pkg/base64"
	"github.com/ronniedz/jose4go/pkg/joseerrors"
	"github.com/ronniedz/jose4go/pkg/jwa"
)

// There are three classes of Header Parameter names: Registered Header
// Parameter names, Public Header Parameter names, and Private Header
// Parameter names.
//
// https://datatracker.ietf.org/doc/html/rfc7515#section-4
type (
	ParamaterName = string

	Registered = ParamaterName
	Public     = ParamaterName
	Private    = ParamaterName
)

// Registered Header Paramater Names
//
// https://datatracker.ietf.org/doc/html/rfc7515#section-4.1
const (
	Type                            Registered = "typ"
	Algorithm                       Registered = "alg"
	JWKSetURL                       Registered = "jku"
	JSONWebKey                      Registered = "jwk"
	X509URL                         Registered = "x5u"
	X509CertificateChain            Registered = "x5c"
	X509CertificateSHA1Thumbprint   Registered = "x5t"
	X509CertificateSHA256Thumbprint Registered = "x5t#S256"
	ContentType                     Registered = "cty"
	Critical                        Registered = "crit"

	// https://www.rfc-editor.org/rfc/rfc7516.html#section-4.1.2
	Encryption Registered = "enc"

	// https://www.rfc-editor.org/rfc/rfc7516.html#section-4.1.3
	Zip Registered = "zip"

	// https://www.rfc-editor.org/rfc/rfc7516.html#section-4.1.6
	KeyID Registered = "kid"

	// ECDH-ES key agreement parameters.
	//
	// https://datatracker.ietf.org/doc/html/rfc7518#section-4.6.1
	EphemeralPublicKey  Registered = "epk"
	AgreementPartyUInfo Registered = "apu"
	AgreementPartyVInfo Registered = "apv"

	// PBES2 key encryption parameters.
	//
	// https://datatracker.ietf.org/doc/html/rfc7518#section-4.8.1
	PBES2SaltInput      Registered = "p2s"
	PBES2IterationCount Registered = "p2c"

	// AES GCM key encryption parameters.
	//
	// https://datatracker.ietf.org/doc/html/rfc7518#section-4.7.1
	InitializationVector Registered = "iv"
	AuthenticationTag    Registered = "tag"
)

const TypeJWT = "JWT"

var (
	ErrParameterNotFound    = errors.New("header: parameter not found")
	ErrInvalidParameterType = errors.New("header: invalid parameter type")
)

// Parameters is a JSON object containing the parameters describing
// the cryptographic operations and parameters employed.
//
// The set preserves the insertion order used at authoring time so
// that the serialized protected header is reproducible byte-for-byte,
// which matters because the encoded protected header is covered by
// the signature of a JWS and is the AAD of a JWE.
type Parameters struct {
	names  []ParamaterName
	values map[ParamaterName]any
}

// New returns an empty parameter set.
func New() *Parameters {
	return &Parameters{
		values: map[ParamaterName]any{},
	}
}

// Set adds the given parameter, or replaces its value in place if the
// name is already present, keeping its original position.
func (h *Parameters) Set(param ParamaterName, value any) {
	if h.values == nil {
		h.values = map[ParamaterName]any{}
	}
	if _, ok := h.values[param]; !ok {
		h.names = append(h.names, param)
	}
	h.values[param] = value
}

// Get returns the value for the given parameter name.
func (h *Parameters) Get(param ParamaterName) (any, error) {
	if h == nil || h.values == nil {
		return nil, fmt.Errorf("%w: %q", ErrParameterNotFound, param)
	}
	value, ok := h.values[param]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrParameterNotFound, param)
	}
	return value, nil
}

// Has reports whether the given parameter name is present.
func (h *Parameters) Has(param ParamaterName) bool {
	if h == nil || h.values == nil {
		return false
	}
	_, ok := h.values[param]
	return ok
}

// Del removes the given parameter, if present.
func (h *Parameters) Del(param ParamaterName) {
	if h == nil || h.values == nil {
		return
	}
	if _, ok := h.values[param]; !ok {
		return
	}
	delete(h.values, param)
	for i, name := range h.names {
		if name == param {
			h.names = append(h.names[:i], h.names[i+1:]...)
			break
		}
	}
}

// Names returns the parameter names in insertion order.
func (h *Parameters) Names() []ParamaterName {
	if h == nil {
		return nil
	}
	names := make([]ParamaterName, len(h.names))
	copy(names, h.names)
	return names
}

// Len returns the number of parameters in the set.
func (h *Parameters) Len() int {
	if h == nil {
		return 0
	}
	return len(h.names)
}

// Clone returns a shallow copy of the parameter set.
func (h *Parameters) Clone() *Parameters {
	clone := New()
	if h == nil {
		return clone
	}
	for _, name := range h.names {
		clone.Set(name, h.values[name])
	}
	return clone
}

// Merge applies the given updates to the set, in the updates' own
// insertion order. Existing parameters keep their position; new ones
// are appended.
func (h *Parameters) Merge(updates *Parameters) {
	if updates == nil {
		return
	}
	for _, name := range updates.names {
		h.Set(name, updates.values[name])
	}
}

// GetString returns the value for the given parameter name as a string.
func (h *Parameters) GetString(param ParamaterName) (string, error) {
	value, err := h.Get(param)
	if err != nil {
		return "", err
	}
	strValue, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q is %T, not a string", ErrInvalidParameterType, param, value)
	}
	return strValue, nil
}

// GetInt64 returns the value for the given parameter name as an int64,
// accepting any integral JSON number representation.
func (h *Parameters) GetInt64(param ParamaterName) (int64, error) {
	value, err := h.Get(param)
	if err != nil {
		return 0, err
	}
	switch v := value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		if v != float64(int64(v)) {
			return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidParameterType, param)
		}
		return int64(v), nil
	default:
		return 0, fmt.Errorf("%w: %q is %T, not an integer", ErrInvalidParameterType, param, value)
	}
}

// GetStringSlice returns the value for the given parameter name as a
// slice of strings, accepting both authored []string values and
// decoded []any values.
func (h *Parameters) GetStringSlice(param ParamaterName) ([]string, error) {
	value, err := h.Get(param)
	if err != nil {
		return nil, err
	}
	switch v := value.(type) {
	case []string:
		return v, nil
	case []any:
		strs := make([]string, 0, len(v))
		for _, elem := range v {
			str, ok := elem.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %q contains %T, not a string", ErrInvalidParameterType, param, elem)
			}
			strs = append(strs, str)
		}
		return strs, nil
	default:
		return nil, fmt.Errorf("%w: %q is %T, not an array of strings", ErrInvalidParameterType, param, value)
	}
}

// Type returns the "typ" header parameter value.
func (h *Parameters) Type() (string, error) {
	return h.GetString(Type)
}

// Algorithm returns the "alg" header parameter value.
func (h *Parameters) Algorithm() (jwa.Algorithm, error) {
	alg, err := h.GetString(Algorithm)
	if err != nil {
		return "", err
	}
	return jwa.Algorithm(alg), nil
}

// Encryption returns the "enc" header parameter value.
func (h *Parameters) Encryption() (jwa.Algorithm, error) {
	enc, err := h.GetString(Encryption)
	if err != nil {
		return "", err
	}
	return jwa.Algorithm(enc), nil
}

// KeyID returns the "kid" header parameter value.
func (h *Parameters) KeyID() (string, error) {
	return h.GetString(KeyID)
}

// Critical returns the "crit" header parameter value.
func (h *Parameters) Critical() ([]string, error) {
	return h.GetStringSlice(Critical)
}

// Compression returns the "zip" header parameter value.
func (h *Parameters) Compression() (string, error) {
	return h.GetString(Zip)
}

// SymetricAlgorithm reports whether the "alg" header parameter names
// a symmetric signature algorithm.
func (h *Parameters) SymetricAlgorithm() (bool, error) {
	alg, err := h.Algorithm()
	if err != nil {
		return false, err
	}

	switch alg {
	case jwa.HS256, jwa.HS384, jwa.HS512:
		return true, nil
	}

	return false, nil
}

// AsymetricAlgorithm reports whether the "alg" header parameter names
// an asymmetric signature algorithm.
func (h *Parameters) AsymetricAlgorithm() (bool, error) {
	alg, err := h.Algorithm()
	if err != nil {
		return false, err
	}

	switch alg {
	case jwa.RS256, jwa.RS384, jwa.RS512,
		jwa.PS256, jwa.PS384, jwa.PS512,
		jwa.ES256, jwa.ES384, jwa.ES512,
		jwa.EdDSA:
		return true, nil
	}

	return false, nil
}

// MarshalJSON encodes the parameter set as a JSON object with its
// members in insertion order and no added whitespace.
func (h *Parameters) MarshalJSON() ([]byte, error) {
	buff := bytes.NewBuffer(nil)

	buff.WriteByte('{')
	for i, name := range h.names {
		if i > 0 {
			buff.WriteByte(',')
		}

		nameJSON, err := encodeValue(name)
		if err != nil {
			return nil, fmt.Errorf("failed to encode header parameter name %q: %w", name, err)
		}
		buff.Write(nameJSON)
		buff.WriteByte(':')

		valueJSON, err := encodeValue(h.values[name])
		if err != nil {
			return nil, fmt.Errorf("failed to encode header parameter %q: %w", name, err)
		}
		buff.Write(valueJSON)
	}
	buff.WriteByte('}')

	return buff.Bytes(), nil
}

func encodeValue(value any) ([]byte, error) {
	if params, ok := value.(*Parameters); ok {
		return params.MarshalJSON()
	}

	buff := bytes.NewBuffer(nil)
	enc := json.NewEncoder(buff)
	enc.SetEscapeHTML(false)

	err := enc.Encode(value)
	if err != nil {
		return nil, err
	}

	// json.Encoder terminates every value with a newline.
	return bytes.TrimRight(buff.Bytes(), "\n"), nil
}

// UnmarshalJSON decodes a JSON object into the parameter set,
// preserving the document order of its members. Interior whitespace is
// tolerated. Integral numbers decode as int64; numbers that cannot be
// represented without loss fail with joseerrors.ErrNumberOutOfRange.
func (h *Parameters) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", joseerrors.ErrMalformedJSON, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("%w: header is not a JSON object", joseerrors.ErrMalformedJSON)
	}

	h.names = nil
	h.values = map[ParamaterName]any{}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: %v", joseerrors.ErrMalformedJSON, err)
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("%w: header member name is %T", joseerrors.ErrMalformedJSON, tok)
		}

		value, err := decodeValue(dec)
		if err != nil {
			return err
		}

		h.Set(name, value)
	}

	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("%w: %v", joseerrors.ErrMalformedJSON, err)
	}

	return nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", joseerrors.ErrMalformedJSON, err)
	}

	switch tok := tok.(type) {
	case json.Delim:
		switch tok {
		case '{':
			object := map[string]any{}
			for dec.More() {
				nameTok, err := dec.Token()
				if err != nil {
					return nil, fmt.Errorf("%w: %v", joseerrors.ErrMalformedJSON, err)
				}
				name, ok := nameTok.(string)
				if !ok {
					return nil, fmt.Errorf("%w: object member name is %T", joseerrors.ErrMalformedJSON, nameTok)
				}
				value, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				object[name] = value
			}
			if _, err := dec.Token(); err != nil {
				return nil, fmt.Errorf("%w: %v", joseerrors.ErrMalformedJSON, err)
			}
			return object, nil
		case '[':
			array := []any{}
			for dec.More() {
				value, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				array = append(array, value)
			}
			if _, err := dec.Token(); err != nil {
				return nil, fmt.Errorf("%w: %v", joseerrors.ErrMalformedJSON, err)
			}
			return array, nil
		default:
			return nil, fmt.Errorf("%w: unexpected delimiter %q", joseerrors.ErrMalformedJSON, tok.String())
		}
	case json.Number:
		return decodeNumber(tok)
	default:
		// string, bool, or null
		return tok, nil
	}
}

func decodeNumber(number json.Number) (any, error) {
	if i, err := number.Int64(); err == nil {
		return i, nil
	}

	// An integral value that failed Int64 conversion is out of range
	// rather than fractional; representing it as a float would silently
	// lose precision.
	if !strings.ContainsAny(number.String(), ".eE") {
		return nil, fmt.Errorf("%w: %q", joseerrors.ErrNumberOutOfRange, number.String())
	}

	f, err := number.Float64()
	if err != nil {
		return nil, fmt.Errorf("%w: %q", joseerrors.ErrNumberOutOfRange, number.String())
	}

	return f, nil
}

// Base64URLString returns the base64url encoding of the JSON encoded
// parameter set, as used for the protected header of a compact
// serialization.
func (h *Parameters) Base64URLString() (string, error) {
	encoded, err := h.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("failed to encode JOSE header base64 URL string: %w", err)
	}
	return base64.Encode(encoded), nil
}

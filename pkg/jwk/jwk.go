package jwk

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ronniedz/jose4go/pkg/base64"
	"github.com/ronniedz/jose4go/pkg/bigint"
	"github.com/ronniedz/jose4go/pkg/joseerrors"
)

// https://datatracker.ietf.org/doc/html/rfc7517#section-4
type (
	ParamaterName = string

	RSA       = ParamaterName
	ECDSA     = ParamaterName
	OKP       = ParamaterName
	Symmetric = ParamaterName
)

const (
	KeyType              ParamaterName = "kty"      // https://datatracker.ietf.org/doc/html/rfc7517#section-4.1
	PublicKeyUse         ParamaterName = "use"      // https://datatracker.ietf.org/doc/html/rfc7517#section-4.2
	KeyOperations        ParamaterName = "key_ops"  // https://datatracker.ietf.org/doc/html/rfc7517#section-4.3
	Algorithm            ParamaterName = "alg"      // https://datatracker.ietf.org/doc/html/rfc7517#section-4.4
	KeyID                ParamaterName = "kid"      // https://datatracker.ietf.org/doc/html/rfc7517#section-4.5
	X509URL              ParamaterName = "x5u"      // https://datatracker.ietf.org/doc/html/rfc7517#section-4.6
	X509CertificateChain ParamaterName = "x5c"      // https://datatracker.ietf.org/doc/html/rfc7517#section-4.7
	X509SHA1Thumbprint   ParamaterName = "x5t"      // https://datatracker.ietf.org/doc/html/rfc7517#section-4.8
	X509SHA256Thumbprint ParamaterName = "x5t#S256" // https://datatracker.ietf.org/doc/html/rfc7517#section-4.9

	// K is the symmetric key value within a JWK.
	// https://datatracker.ietf.org/doc/html/rfc7518#section-6.4.1
	K Symmetric = "k"

	// Curve is the curve value within an EC or OKP JWK, such as "P-256".
	// https://datatracker.ietf.org/doc/html/rfc7518#section-6.2.1.1
	Curve ECDSA = "crv"
	X     ECDSA = "x" // X is the x-coordinate for the elliptic curve point.
	Y     ECDSA = "y" // Y is the y-coordinate for the elliptic curve point.

	N RSA = "n" // N is the RSA public modulus value.
	E RSA = "e" // E is the RSA public exponent value.

	// D is the private exponent for RSA keys, and the private key
	// value for EC and OKP keys.
	D ParamaterName = "d"

	// RSA CRT parameters.
	// https://datatracker.ietf.org/doc/html/rfc7518#section-6.3.2
	P  RSA = "p"
	Q  RSA = "q"
	DP RSA = "dp"
	DQ RSA = "dq"
	QI RSA = "qi"
)

// Key type values.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-6.1
const (
	KeyTypeEC  = "EC"
	KeyTypeRSA = "RSA"
	KeyTypeOct = "oct"
	KeyTypeOKP = "OKP" // https://datatracker.ietf.org/doc/html/rfc8037#section-2
)

// Public key use values.
//
// https://datatracker.ietf.org/doc/html/rfc7517#section-4.2
const (
	UseSignature  = "sig"
	UseEncryption = "enc"
)

// Curve values.
const (
	CurveP256 = "P-256"
	CurveP384 = "P-384"
	CurveP521 = "P-521"

	// https://datatracker.ietf.org/doc/html/rfc8037#section-3.1
	CurveEd25519 = "Ed25519"
	CurveEd448   = "Ed448"
	CurveX25519  = "X25519"
	CurveX448    = "X448"
)

// minRSAModulusBits is the smallest RSA modulus accepted, per the key
// size requirements of RFC 7518 sections 3.3, 3.5, and 4.2.
const minRSAModulusBits = 2048

// Value is a JSON object containing the parameters describing
// the cryptographic operations and parameters employed.
//
// A value is immutable by convention once constructed; the public
// projection returned by PublicValue is a pure function of it.
//
// https://datatracker.ietf.org/doc/html/rfc7517#section-4
type Value = map[ParamaterName]any

// stripWhitespace removes all whitespace from a base64url member
// value. Multi-line JWK input with embedded newlines inside octet
// members is tolerated on parse even though produced values never
// contain any.
func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, s)
}

// decodeOctets base64url-decodes the named member of the JWK value,
// stripping embedded whitespace first.
func decodeOctets(v Value, param ParamaterName) ([]byte, error) {
	value, ok := v[param]
	if !ok {
		return nil, fmt.Errorf("%w: no %q set", joseerrors.ErrMalformedKey, param)
	}
	strValue, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("%w: invalid type %T for %q", joseerrors.ErrMalformedKey, value, param)
	}
	octets, err := base64.Decode(stripWhitespace(strValue))
	if err != nil {
		return nil, fmt.Errorf("invalid base64 encoding for %q: %w", param, err)
	}
	return octets, nil
}

func checkOctetMember(v Value, param ParamaterName, required bool) error {
	value, ok := v[param]
	if !ok {
		if required {
			return fmt.Errorf("missing required paramater %q", param)
		}
		return nil
	}
	strValue, ok := value.(string)
	if !ok {
		return fmt.Errorf("invalid type for %q", param)
	}
	if _, err := base64.Decode(stripWhitespace(strValue)); err != nil {
		return fmt.Errorf("invalid base64 encoding for %q: %w", param, err)
	}
	return nil
}

// Validate checks that the required parameters are present for
// the given key type, and that the values are valid.
func Validate(v Value) error {
	_, ok := v[KeyType]
	if !ok {
		return fmt.Errorf("missing required paramater %q", KeyType)
	}

	switch v[KeyType] {
	case KeyTypeEC:
		curveValue, ok := v[Curve]
		if !ok {
			return fmt.Errorf("missing required paramater %q", Curve)
		}

		if curve, ok := curveValue.(string); ok {
			switch curve {
			case CurveP256, CurveP384, CurveP521:
				// ok
			default:
				return fmt.Errorf("invalid curve %q", curve)
			}
		} else {
			return fmt.Errorf("invalid curve type %T", curveValue)
		}

		for _, param := range []ParamaterName{X, Y} {
			if err := checkOctetMember(v, param, true); err != nil {
				return err
			}
		}

		return checkOctetMember(v, D, false)
	case KeyTypeRSA:
		for _, param := range []ParamaterName{N, E} {
			if err := checkOctetMember(v, param, true); err != nil {
				return err
			}
		}

		for _, param := range []ParamaterName{D, P, Q, DP, DQ, QI} {
			if err := checkOctetMember(v, param, false); err != nil {
				return err
			}
		}

		return nil
	case KeyTypeOct:
		return checkOctetMember(v, K, true)
	case KeyTypeOKP:
		curveValue, ok := v[Curve]
		if !ok {
			return fmt.Errorf("missing required paramater %q", Curve)
		}

		if curve, ok := curveValue.(string); ok {
			switch curve {
			case CurveEd25519, CurveEd448, CurveX25519, CurveX448:
				// ok
			default:
				return fmt.Errorf("invalid curve %q", curve)
			}
		} else {
			return fmt.Errorf("invalid curve type %T", curveValue)
		}

		if err := checkOctetMember(v, X, true); err != nil {
			return err
		}

		return checkOctetMember(v, D, false)
	default:
		return fmt.Errorf("unknown key type %q", v[KeyType])
	}
}

// sharedParamaters are valid for every key type.
var sharedParamaters = []ParamaterName{
	KeyType, PublicKeyUse, KeyOperations, Algorithm, KeyID,
	X509URL, X509CertificateChain, X509SHA1Thumbprint, X509SHA256Thumbprint,
}

// variantParamaters are the kty-specific members for each key type.
var variantParamaters = map[string][]ParamaterName{
	KeyTypeEC:  {Curve, X, Y, D},
	KeyTypeRSA: {N, E, D, P, Q, DP, DQ, QI},
	KeyTypeOct: {K},
	KeyTypeOKP: {Curve, X, D},
}

// ValidateStrict validates the value like Validate, and additionally
// rejects any member that is neither a shared JWK parameter nor a
// member of the value's key type.
func ValidateStrict(v Value) error {
	if err := Validate(v); err != nil {
		return err
	}

	kty, _ := v[KeyType].(string)

	known := map[ParamaterName]bool{}
	for _, param := range sharedParamaters {
		known[param] = true
	}
	for _, param := range variantParamaters[kty] {
		known[param] = true
	}

	for param := range v {
		if !known[param] {
			return fmt.Errorf("%w: unknown paramater %q for key type %q", joseerrors.ErrMalformedKey, param, kty)
		}
	}

	return nil
}

// ParseValue decodes and validates a single JWK from its JSON encoding.
func ParseValue(data []byte) (Value, error) {
	value := Value{}
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("%w: %v", joseerrors.ErrMalformedJSON, err)
	}
	if err := Validate(value); err != nil {
		return nil, fmt.Errorf("failed to validate JWK: %w", err)
	}
	return value, nil
}

// PublicValue returns the public projection of the given JWK value,
// dropping every variant-private member. The input is not modified.
func PublicValue(v Value) Value {
	public := Value{}
	for param, value := range v {
		switch param {
		case D, P, Q, DP, DQ, QI, K:
			// private
		default:
			public[param] = value
		}
	}
	return public
}

// RSAValues returns the values for the RSA key type.
func RSAValues(v Value) (n, e, d string, err error) {
	if v[KeyType] != KeyTypeRSA {
		err = fmt.Errorf("JWK value is not RSA")
		return
	}

	if nValue, ok := v[N]; ok {
		n = fmt.Sprintf("%v", nValue)
	} else {
		err = fmt.Errorf("no %q set", N)
		return
	}

	if eValue, ok := v[E]; ok {
		e = fmt.Sprintf("%v", eValue)
	} else {
		err = fmt.Errorf("no %q set", E)
		return
	}

	if dValue, ok := v[D]; ok {
		d = fmt.Sprintf("%v", dValue)
	}
	// d can be empty

	return
}

// ECDSAValues returns the values for the EC key type.
func ECDSAValues(v Value) (crv, x, y string, err error) {
	if v[KeyType] != KeyTypeEC {
		err = fmt.Errorf("JWK value is not EC")
		return
	}

	crv = fmt.Sprintf("%v", v[Curve])
	if crv == "" {
		err = fmt.Errorf("no %q set", Curve)
		return
	}

	x = fmt.Sprintf("%v", v[X])
	if x == "" {
		err = fmt.Errorf("no %q set", X)
		return
	}

	y = fmt.Sprintf("%v", v[Y])
	if y == "" {
		err = fmt.Errorf("no %q set", Y)
		return
	}

	return
}

// Ed25519Values returns the values for the Ed25519 key type.
func Ed25519Values(v Value) (x string, err error) {
	if v[KeyType] != KeyTypeOKP {
		err = fmt.Errorf("JWK value is not OKP")
		return
	}

	if v[Curve] != CurveEd25519 {
		err = fmt.Errorf("JWK value is not Ed25519")
		return
	}

	x = fmt.Sprintf("%v", v[X])
	if x == "" {
		err = fmt.Errorf("no %q set", X)
		return
	}

	return
}

// SymmetricKey returns the symmetric key.
func SymmetricKey(v Value) (k string, err error) {
	k = fmt.Sprintf("%v", v[K])

	if k == "" {
		err = fmt.Errorf("no symmetric key value set")
	}

	return
}

// SymmetricKeyBytes returns the decoded symmetric key octets.
func SymmetricKeyBytes(v Value) ([]byte, error) {
	if _, err := SymmetricKey(v); err != nil {
		return nil, err
	}
	return decodeOctets(v, K)
}

// HMACSecretKey returns the HMAC secret key (symmetric key).
func HMACSecretKey(v Value) ([]byte, error) {
	key, err := SymmetricKeyBytes(v)
	if err != nil {
		return nil, fmt.Errorf("failed to get symmetric key: %w", err)
	}
	return key, nil
}

// RSAPublicKey returns the RSA public key and blinding value, or an error
// if the key is not an RSA public key.
func RSAPublicKey(v Value) (pkey *rsa.PublicKey, blindingValue []byte, err error) {
	_, _, dEnc, err := RSAValues(v)
	if err != nil {
		err = fmt.Errorf("failed to get RSA public key: %w", err)
		return
	}

	nBytes, err := decodeOctets(v, N)
	if err != nil {
		err = fmt.Errorf("failed to decode RSA public key N: %w", err)
		return
	}
	n := bigint.FromOctets(nBytes)

	if n.BitLen() < minRSAModulusBits {
		err = fmt.Errorf("%w: RSA public key modulus too small: %d bits", joseerrors.ErrMalformedKey, n.BitLen())
		return
	}

	eBytes, err := decodeOctets(v, E)
	if err != nil {
		err = fmt.Errorf("failed to decode RSA public key E: %w", err)
		return
	}
	e := bigint.FromOctets(eBytes)

	if e.Cmp(big.NewInt(math.MaxInt32)) > 0 {
		err = fmt.Errorf("%w: RSA public key exponent too large", joseerrors.ErrMalformedKey)
		return
	}
	if e.Cmp(big.NewInt(2)) < 0 {
		err = fmt.Errorf("%w: invalid RSA public key exponent %v", joseerrors.ErrMalformedKey, e)
		return
	}

	pkey = &rsa.PublicKey{
		N: n,
		E: int(e.Int64()),
	}

	// d is optional, used for RSA key blinding
	// https://datatracker.ietf.org/doc/html/rfc7517#ref-Kocher
	if len(dEnc) > 0 {
		blindingValue, err = decodeOctets(v, D)
		if err != nil {
			err = fmt.Errorf("failed to decode RSA public key D: %w", err)
			return
		}
	}

	return
}

// RSAPrivateKey returns the RSA private key, or an error if the value
// does not carry a full RSA private key. CRT components, if present,
// must be mutually consistent.
func RSAPrivateKey(v Value) (*rsa.PrivateKey, error) {
	pub, _, err := RSAPublicKey(v)
	if err != nil {
		return nil, fmt.Errorf("failed to get RSA private key: %w", err)
	}

	dBytes, err := decodeOctets(v, D)
	if err != nil {
		return nil, fmt.Errorf("failed to decode RSA private key D: %w", err)
	}

	pkey := &rsa.PrivateKey{
		PublicKey: *pub,
		D:         bigint.FromOctets(dBytes),
	}

	_, hasP := v[P]
	_, hasQ := v[Q]

	if hasP != hasQ {
		return nil, fmt.Errorf("%w: RSA private key has only one prime factor", joseerrors.ErrMalformedKey)
	}

	if hasP {
		pBytes, err := decodeOctets(v, P)
		if err != nil {
			return nil, fmt.Errorf("failed to decode RSA private key P: %w", err)
		}
		qBytes, err := decodeOctets(v, Q)
		if err != nil {
			return nil, fmt.Errorf("failed to decode RSA private key Q: %w", err)
		}

		p := bigint.FromOctets(pBytes)
		q := bigint.FromOctets(qBytes)

		if new(big.Int).Mul(p, q).Cmp(pub.N) != 0 {
			return nil, fmt.Errorf("%w: RSA CRT components are inconsistent with the modulus", joseerrors.ErrMalformedKey)
		}

		pkey.Primes = []*big.Int{p, q}

		if err := pkey.Validate(); err != nil {
			return nil, fmt.Errorf("%w: invalid RSA private key: %v", joseerrors.ErrMalformedKey, err)
		}

		pkey.Precompute()

		for _, check := range []struct {
			param    ParamaterName
			computed *big.Int
		}{
			{DP, pkey.Precomputed.Dp},
			{DQ, pkey.Precomputed.Dq},
			{QI, pkey.Precomputed.Qinv},
		} {
			if _, ok := v[check.param]; !ok {
				continue
			}
			octets, err := decodeOctets(v, check.param)
			if err != nil {
				return nil, fmt.Errorf("failed to decode RSA private key %s: %w", strings.ToUpper(check.param), err)
			}
			if bigint.FromOctets(octets).Cmp(check.computed) != 0 {
				return nil, fmt.Errorf("%w: RSA CRT component %q is inconsistent", joseerrors.ErrMalformedKey, check.param)
			}
		}
	}

	return pkey, nil
}

// curveByName returns the NIST curve for a JWK "crv" value.
func curveByName(crv string) (elliptic.Curve, error) {
	switch crv {
	case CurveP256:
		return elliptic.P256(), nil
	case CurveP384:
		return elliptic.P384(), nil
	case CurveP521:
		return elliptic.P521(), nil
	default:
		return nil, fmt.Errorf("invalid curve %q", crv)
	}
}

// CoordinateByteLength returns the fixed octet width of a coordinate
// on the given curve, ceil(bits(curve)/8).
func CoordinateByteLength(curve elliptic.Curve) int {
	return (curve.Params().BitSize + 7) / 8
}

// ECDSAPublicKey returns the ECDSA public key, or an error if the key
// is not an ECDSA public key. The point is checked to be on the curve.
func ECDSAPublicKey(v Value) (*ecdsa.PublicKey, error) {
	crv, _, _, err := ECDSAValues(v)
	if err != nil {
		return nil, fmt.Errorf("failed to get ECDSA values for public key: %w", err)
	}

	curve, err := curveByName(crv)
	if err != nil {
		return nil, fmt.Errorf("%w while getting ECDSA values for public key", err)
	}

	xBytes, err := decodeOctets(v, X)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ECDSA public key X: %w", err)
	}

	yBytes, err := decodeOctets(v, Y)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ECDSA public key Y: %w", err)
	}

	pkey := &ecdsa.PublicKey{
		Curve: curve,
		X:     bigint.FromOctets(xBytes),
		Y:     bigint.FromOctets(yBytes),
	}

	if !curve.IsOnCurve(pkey.X, pkey.Y) {
		return nil, fmt.Errorf("%w: EC point is not on curve %q", joseerrors.ErrMalformedKey, crv)
	}

	return pkey, nil
}

// ECDSAPrivateKey returns the ECDSA private key, or an error if the
// value does not carry an EC private key.
func ECDSAPrivateKey(v Value) (*ecdsa.PrivateKey, error) {
	pub, err := ECDSAPublicKey(v)
	if err != nil {
		return nil, fmt.Errorf("failed to get ECDSA private key: %w", err)
	}

	dBytes, err := decodeOctets(v, D)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ECDSA private key D: %w", err)
	}

	return &ecdsa.PrivateKey{
		PublicKey: *pub,
		D:         bigint.FromOctets(dBytes),
	}, nil
}

// Ed25519PublicKey returns the Ed25519 public key, or an error if the
// key is not an Ed25519 public key.
func Ed25519PublicKey(v Value) (pkey ed25519.PublicKey, err error) {
	_, err = Ed25519Values(v)
	if err != nil {
		err = fmt.Errorf("failed to get Ed25519 values for public key: %w", err)
		return
	}

	xBytes, err := decodeOctets(v, X)
	if err != nil {
		err = fmt.Errorf("failed to decode Ed25519 public key X: %w", err)
		return
	}

	// check the length of the key to make sure it is 32 bytes
	if len(xBytes) != ed25519.PublicKeySize {
		err = fmt.Errorf("invalid Ed25519 public key X length: %d", len(xBytes))
		return
	}

	pkey = xBytes

	return
}

// Ed25519PrivateKey returns the Ed25519 private key, or an error if
// the value does not carry an Ed25519 private key. The "d" member is
// the private key seed per RFC 8037 section 2.
func Ed25519PrivateKey(v Value) (ed25519.PrivateKey, error) {
	pub, err := Ed25519PublicKey(v)
	if err != nil {
		return nil, fmt.Errorf("failed to get Ed25519 private key: %w", err)
	}

	seed, err := decodeOctets(v, D)
	if err != nil {
		return nil, fmt.Errorf("failed to decode Ed25519 private key D: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("invalid Ed25519 private key D length: %d", len(seed))
	}

	pkey := ed25519.NewKeyFromSeed(seed)

	if !pub.Equal(pkey.Public().(ed25519.PublicKey)) {
		return nil, fmt.Errorf("%w: Ed25519 public key does not match private key", joseerrors.ErrMalformedKey)
	}

	return pkey, nil
}

// X25519PublicKey returns the 32 raw octets of an X25519 public key.
func X25519PublicKey(v Value) ([]byte, error) {
	if v[KeyType] != KeyTypeOKP || v[Curve] != CurveX25519 {
		return nil, fmt.Errorf("JWK value is not X25519")
	}

	xBytes, err := decodeOctets(v, X)
	if err != nil {
		return nil, fmt.Errorf("failed to decode X25519 public key X: %w", err)
	}
	if len(xBytes) != 32 {
		return nil, fmt.Errorf("invalid X25519 public key X length: %d", len(xBytes))
	}

	return xBytes, nil
}

// X25519PrivateKey returns the 32 raw octets of an X25519 private key.
func X25519PrivateKey(v Value) ([]byte, error) {
	if v[KeyType] != KeyTypeOKP || v[Curve] != CurveX25519 {
		return nil, fmt.Errorf("JWK value is not X25519")
	}

	dBytes, err := decodeOctets(v, D)
	if err != nil {
		return nil, fmt.Errorf("failed to decode X25519 private key D: %w", err)
	}
	if len(dBytes) != 32 {
		return nil, fmt.Errorf("invalid X25519 private key D length: %d", len(dBytes))
	}

	return dBytes, nil
}

// PublicKey returns the native public key for the given JWK value,
// dispatching on its key type. For "oct" values the symmetric key
// octets are returned, since a symmetric key has no public form.
func PublicKey(v Value) (any, error) {
	switch v[KeyType] {
	case KeyTypeRSA:
		pkey, _, err := RSAPublicKey(v)
		return pkey, err
	case KeyTypeEC:
		return ECDSAPublicKey(v)
	case KeyTypeOKP:
		switch v[Curve] {
		case CurveEd25519:
			return Ed25519PublicKey(v)
		case CurveX25519:
			return X25519PublicKey(v)
		default:
			return nil, fmt.Errorf("unsupported OKP curve %q", v[Curve])
		}
	case KeyTypeOct:
		return SymmetricKeyBytes(v)
	default:
		return nil, fmt.Errorf("unknown key type %q", v[KeyType])
	}
}

// PrivateKey returns the native private key for the given JWK value,
// dispatching on its key type.
func PrivateKey(v Value) (any, error) {
	switch v[KeyType] {
	case KeyTypeRSA:
		return RSAPrivateKey(v)
	case KeyTypeEC:
		return ECDSAPrivateKey(v)
	case KeyTypeOKP:
		switch v[Curve] {
		case CurveEd25519:
			return Ed25519PrivateKey(v)
		case CurveX25519:
			return X25519PrivateKey(v)
		default:
			return nil, fmt.Errorf("unsupported OKP curve %q", v[Curve])
		}
	case KeyTypeOct:
		return SymmetricKeyBytes(v)
	default:
		return nil, fmt.Errorf("unknown key type %q", v[KeyType])
	}
}

// ValueFromPublicKey returns a JWK value from the given public key.
// EC coordinates use the fixed octet width of the curve; RSA integers
// use the minimal octet representation.
func ValueFromPublicKey(pubKey any) (Value, error) {
	switch pubKey := pubKey.(type) {
	case *rsa.PublicKey:
		return Value{
			KeyType: KeyTypeRSA,
			N:       base64.Encode(bigint.ToOctets(pubKey.N)),
			E:       base64.Encode(bigint.ToOctets(big.NewInt(int64(pubKey.E)))),
		}, nil
	case *ecdsa.PublicKey:
		var crv string
		switch pubKey.Curve {
		case elliptic.P256():
			crv = CurveP256
		case elliptic.P384():
			crv = CurveP384
		case elliptic.P521():
			crv = CurveP521
		default:
			return nil, fmt.Errorf("invalid curve %q used for JWK value", pubKey.Curve.Params().Name)
		}

		byteLen := CoordinateByteLength(pubKey.Curve)

		xOctets, err := bigint.ToFixedOctets(pubKey.X, byteLen)
		if err != nil {
			return nil, fmt.Errorf("failed to encode EC x-coordinate: %w", err)
		}
		yOctets, err := bigint.ToFixedOctets(pubKey.Y, byteLen)
		if err != nil {
			return nil, fmt.Errorf("failed to encode EC y-coordinate: %w", err)
		}

		return Value{
			KeyType: KeyTypeEC,
			Curve:   crv,
			X:       base64.Encode(xOctets),
			Y:       base64.Encode(yOctets),
		}, nil
	case ed25519.PublicKey:
		return Value{
			KeyType: KeyTypeOKP,
			Curve:   CurveEd25519,
			X:       base64.Encode(pubKey),
		}, nil
	default:
		return nil, fmt.Errorf("invalid type %T used for JWK value", pubKey)
	}
}

// ValueFromPrivateKey returns a JWK value from the given private key,
// including the variant-private members.
func ValueFromPrivateKey(key any) (Value, error) {
	switch key := key.(type) {
	case *rsa.PrivateKey:
		value, err := ValueFromPublicKey(&key.PublicKey)
		if err != nil {
			return nil, err
		}
		value[D] = base64.Encode(bigint.ToOctets(key.D))
		if len(key.Primes) == 2 {
			value[P] = base64.Encode(bigint.ToOctets(key.Primes[0]))
			value[Q] = base64.Encode(bigint.ToOctets(key.Primes[1]))

			key.Precompute()
			value[DP] = base64.Encode(bigint.ToOctets(key.Precomputed.Dp))
			value[DQ] = base64.Encode(bigint.ToOctets(key.Precomputed.Dq))
			value[QI] = base64.Encode(bigint.ToOctets(key.Precomputed.Qinv))
		}
		return value, nil
	case *ecdsa.PrivateKey:
		value, err := ValueFromPublicKey(&key.PublicKey)
		if err != nil {
			return nil, err
		}
		dOctets, err := bigint.ToFixedOctets(key.D, CoordinateByteLength(key.Curve))
		if err != nil {
			return nil, fmt.Errorf("failed to encode EC private key: %w", err)
		}
		value[D] = base64.Encode(dOctets)
		return value, nil
	case ed25519.PrivateKey:
		value, err := ValueFromPublicKey(key.Public().(ed25519.PublicKey))
		if err != nil {
			return nil, err
		}
		value[D] = base64.Encode(key.Seed())
		return value, nil
	case []byte:
		return Value{
			KeyType: KeyTypeOct,
			K:       base64.Encode(key),
		}, nil
	default:
		return nil, fmt.Errorf("invalid type %T used for JWK value", key)
	}
}

// Set is a JWK set as defined in RFC 7517.
//
// https://datatracker.ietf.org/doc/html/rfc7517#section-5
type Set struct {
	// Keys is a list of JWK values.
	//
	// https://datatracker.ietf.org/doc/html/rfc7517#section-5.1
	Keys []Value `json:"keys"`
}

// Validate validates the JWK set, returning an error if any
// of the keys are invalid.
func (s *Set) Validate() error {
	if len(s.Keys) == 0 {
		return fmt.Errorf("no key values in JWK set")
	}

	for _, key := range s.Keys {
		err := Validate(key)
		if err != nil {
			return fmt.Errorf("key set validation error: %w", err)
		}
	}

	return nil
}

// Get returns the key that matches the given key id.
func (s *Set) Get(keyID string) (Value, error) {
	for _, key := range s.Keys {
		if key[KeyID] == keyID {
			return key, nil
		}
	}

	return nil, fmt.Errorf("key %q not found in set", keyID)
}

// Find returns the first key in the set satisfying every provided
// filter. Empty filters match any key.
func (s *Set) Find(kid, use, kty, alg string) (Value, error) {
	for _, key := range s.Keys {
		if kid != "" && key[KeyID] != kid {
			continue
		}
		if use != "" && key[PublicKeyUse] != use {
			continue
		}
		if kty != "" && key[KeyType] != kty {
			continue
		}
		if alg != "" && key[Algorithm] != alg {
			continue
		}
		return key, nil
	}

	return nil, fmt.Errorf("no key in set matches the given criteria")
}

// FetchSet fetches a JWK set from the given URL and HTTP client.
func FetchSet(ctx context.Context, url string, client *http.Client) (*Set, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWK set request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWK set: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch JWK set: %s", resp.Status)
	}

	var set Set
	err = json.NewDecoder(resp.Body).Decode(&set)
	if err != nil {
		return nil, fmt.Errorf("failed to decode JWK set: %w", err)
	}

	err = set.Validate()
	if err != nil {
		return nil, fmt.Errorf("failed to validate JWK set: %w", err)
	}

	return &set, nil
}

// URLSetCache is a cache of JWK sets keyed by URL that can be easily used to verify
// JWTs from multiple issuers. It handles refreshing the JWK sets when they expire
// and caching the JWK sets for a configurable amount of time. A failed fetch is
// not retried; its error is returned to the caller.
type URLSetCache struct {
	mutex sync.RWMutex

	// sets is a map of JWK sets keyed by URL.
	sets map[string]*Set

	// cacheTimes is a map of JWK set cache times keyed by URL.
	cacheTimes map[string]time.Time

	// client is the HTTP client used to fetch JWK sets.
	client *http.Client

	// refreshInterval is the amount of time between refreshing JWK sets.
	refreshInterval time.Duration

	// cacheDuration is the amount of time to cache JWK sets.
	cacheDuration time.Duration
}

// NewURLSetCache returns a new JWK set cache.
func NewURLSetCache(client *http.Client, refreshInterval, cacheDuration time.Duration) *URLSetCache {
	return &URLSetCache{
		mutex:           sync.RWMutex{},
		sets:            make(map[string]*Set),
		cacheTimes:      make(map[string]time.Time),
		client:          client,
		refreshInterval: refreshInterval,
		cacheDuration:   cacheDuration,
	}
}

// Get returns the JWK set for the given URL, fetching it if it is not already cached.
func (c *URLSetCache) Get(ctx context.Context, url string) (*Set, error) {
	c.mutex.RLock()
	set, cached := c.sets[url]
	expiry := c.cacheTimes[url]
	c.mutex.RUnlock()

	// If there's no set or the set is expired, fetch a fresh copy.
	if !cached || time.Now().After(expiry) {
		return c.Fetch(ctx, url)
	}
	return set, nil
}

// GetKey returns the first key from the JWK set for the given URL that matches the given key id,
// fetching the JWK set if it is not already cached.
func (c *URLSetCache) GetKey(ctx context.Context, url string, keyID string) (Value, error) {
	c.mutex.RLock()
	set, ok := c.sets[url]
	urlCacheTime := c.cacheTimes[url]
	c.mutex.RUnlock()

	if !ok {
		var err error
		set, err = c.Fetch(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch JWK set: %w", err)
		}
	}

	if time.Now().After(urlCacheTime) {
		var err error
		set, err = c.Refresh(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("failed to refresh JWK set: %w", err)
		}
	}

	key, err := set.Get(keyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get key %q from JWK set: %w", keyID, err)
	}

	return key, nil
}

// Range iterates over the JWK sets in the cache, calling the given function for each
// URL and key. If the function returns false, the iteration will stop.
func (c *URLSetCache) Range(fn func(url string, key Value) bool) {
	if fn == nil || c == nil {
		return
	}

	c.mutex.RLock()
	defer c.mutex.RUnlock()

	for url, set := range c.sets {
		for _, key := range set.Keys {
			if !fn(url, key) {
				return
			}
		}
	}
}

// Fetch fetches the JWK set for the given URL.
func (c *URLSetCache) Fetch(ctx context.Context, url string) (*Set, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	set, err := FetchSet(ctx, url, c.client)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWK set: %w", err)
	}

	c.sets[url] = set
	c.cacheTimes[url] = time.Now().Add(c.cacheDuration)

	return set, nil
}

// Refresh refreshes the JWK set for the given URL.
func (c *URLSetCache) Refresh(ctx context.Context, url string) (*Set, error) {
	return c.Fetch(ctx, url)
}

// RefreshAll refreshes all JWK sets in the cache.
func (c *URLSetCache) RefreshAll(ctx context.Context) error {
	c.mutex.RLock()
	urls := make([]string, 0, len(c.sets))
	for url := range c.sets {
		urls = append(urls, url)
	}
	c.mutex.RUnlock()

	for _, url := range urls {
		if _, err := c.Refresh(ctx, url); err != nil {
			return fmt.Errorf("failed to refresh JWK set for %q: %w", url, err)
		}
	}
	return nil
}

// Start starts the JWK set cache, refreshing the JWK sets at the given interval.
// It will block until the context is canceled, and will only return an error if
// the refresh fails, possibly due to a network error.
//
// Most callers will want to call this in a goroutine after creating the cache.
func (c *URLSetCache) Start(ctx context.Context) error {
	ticker := time.NewTicker(c.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			err := c.RefreshAll(ctx)
			if err != nil {
				return fmt.Errorf("failed to refresh JWK sets: %w", err)
			}
		}
	}
}

package keymgmt

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"

	"github.com/ronniedz/jose4go/pkg/base64"
	"github.com/ronniedz/jose4go/pkg/header"
	"github.com/ronniedz/jose4go/pkg/joseerrors"
	"github.com/ronniedz/jose4go/pkg/jwa"
	"github.com/ronniedz/jose4go/pkg/jwk"
	"golang.org/x/crypto/curve25519"
)

// ECDHES implements the ECDH-ES key management algorithms, in direct
// key agreement mode ("ECDH-ES") and in key agreement with key
// wrapping mode ("ECDH-ES+A128KW", "ECDH-ES+A192KW", "ECDH-ES+A256KW").
//
// A fresh ephemeral key is generated on the recipient key's curve for
// every encryption and published in the "epk" header parameter. The
// shared secret runs through the concat KDF with AlgorithmID equal to
// the "enc" value in direct mode or the "alg" value in wrap mode; the
// output either IS the CEK (direct) or is the KEK for an inner AES
// key wrap.
//
// NIST curves P-256, P-384, and P-521 are supported for EC keys, and
// X25519 for OKP keys.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-4.6
type ECDHES struct {
	id      jwa.Algorithm
	kekBits int // zero in direct agreement mode
}

func (e ECDHES) ID() jwa.Algorithm {
	return e.id
}

func (e ECDHES) directMode() bool {
	return e.kekBits == 0
}

// kdfArguments returns the AlgorithmID and derived key size for the
// concat KDF per RFC 7518 section 4.6.2.
func (e ECDHES) kdfArguments(desc jwa.CEKDescriptor, params *header.Parameters) (string, int, error) {
	if e.directMode() {
		enc, err := params.Encryption()
		if err != nil {
			return "", 0, fmt.Errorf("direct key agreement requires the %q header parameter: %w", header.Encryption, err)
		}
		return enc, desc.BitLength, nil
	}
	return e.id, e.kekBits, nil
}

// partyInfo decodes the optional "apu" and "apv" header parameters.
func partyInfo(params *header.Parameters) (apu, apv []byte, err error) {
	for _, part := range []struct {
		name header.ParamaterName
		dst  *[]byte
	}{
		{header.AgreementPartyUInfo, &apu},
		{header.AgreementPartyVInfo, &apv},
	} {
		if !params.Has(part.name) {
			continue
		}
		encoded, err := params.GetString(part.name)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid %q header parameter: %w", part.name, err)
		}
		*part.dst, err = base64.Decode(encoded)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid %q header parameter: %w", part.name, err)
		}
	}
	return apu, apv, nil
}

func (e ECDHES) ManageForEncrypt(key any, desc jwa.CEKDescriptor, cek []byte, params *header.Parameters) ([]byte, []byte, *header.Parameters, error) {
	z, epk, err := e.agreeEphemeral(key)
	if err != nil {
		return nil, nil, nil, err
	}

	algorithmID, keyBits, err := e.kdfArguments(desc, params)
	if err != nil {
		return nil, nil, nil, err
	}

	apu, apv, err := partyInfo(params)
	if err != nil {
		return nil, nil, nil, err
	}

	derived := concatKDF(z, algorithmID, apu, apv, keyBits)

	updates := header.New()
	updates.Set(header.EphemeralPublicKey, epk)

	if e.directMode() {
		if cek != nil {
			return nil, nil, nil, fmt.Errorf("cannot use an externally supplied CEK with direct key agreement")
		}
		return derived, nil, updates, nil
	}

	kw := AESKW{id: e.id, keyBits: e.kekBits}
	cek, wrapped, _, err := kw.ManageForEncrypt(derived, desc, cek, params)
	if err != nil {
		return nil, nil, nil, err
	}

	return cek, wrapped, updates, nil
}

func (e ECDHES) ManageForDecrypt(key any, encryptedKey []byte, desc jwa.CEKDescriptor, params *header.Parameters) ([]byte, error) {
	epkRaw, err := params.Get(header.EphemeralPublicKey)
	if err != nil {
		return nil, fmt.Errorf("missing %q header parameter: %w", header.EphemeralPublicKey, err)
	}

	var epkValue jwk.Value
	switch epk := epkRaw.(type) {
	case map[string]any:
		epkValue = jwk.Value(epk)
	case *header.Parameters:
		// Authored in-process rather than decoded from the wire.
		epkValue = jwk.Value{}
		for _, name := range epk.Names() {
			value, _ := epk.Get(name)
			epkValue[name] = value
		}
	default:
		return nil, fmt.Errorf("%w: %q header parameter is %T, not a JWK object", joseerrors.ErrMalformedKey, header.EphemeralPublicKey, epkRaw)
	}

	z, err := e.agreeReceived(key, epkValue)
	if err != nil {
		return nil, err
	}

	algorithmID, keyBits, err := e.kdfArguments(desc, params)
	if err != nil {
		return nil, err
	}

	apu, apv, err := partyInfo(params)
	if err != nil {
		return nil, err
	}

	derived := concatKDF(z, algorithmID, apu, apv, keyBits)

	if e.directMode() {
		if len(encryptedKey) != 0 {
			return nil, fmt.Errorf("%w: encrypted key must be empty for direct key agreement", joseerrors.ErrMalformedCompact)
		}
		return derived, nil
	}

	kw := AESKW{id: e.id, keyBits: e.kekBits}
	return kw.ManageForDecrypt(derived, encryptedKey, desc, params)
}

// agreeEphemeral generates an ephemeral key pair on the recipient
// key's curve and returns the shared secret along with the "epk"
// header value.
func (e ECDHES) agreeEphemeral(key any) ([]byte, *header.Parameters, error) {
	switch key := key.(type) {
	case *ecdsa.PublicKey:
		return e.agreeEphemeralNIST(key)
	case *ecdsa.PrivateKey:
		return e.agreeEphemeralNIST(&key.PublicKey)
	case jwk.Value:
		switch key[jwk.KeyType] {
		case jwk.KeyTypeEC:
			pub, err := jwk.ECDSAPublicKey(key)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: %v", joseerrors.ErrAlgorithmKeyMismatch, err)
			}
			return e.agreeEphemeralNIST(pub)
		case jwk.KeyTypeOKP:
			pub, err := jwk.X25519PublicKey(key)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: %v", joseerrors.ErrAlgorithmKeyMismatch, err)
			}
			return e.agreeEphemeralX25519(pub)
		default:
			return nil, nil, fmt.Errorf("%w: key type %q cannot perform ECDH", joseerrors.ErrAlgorithmKeyMismatch, key[jwk.KeyType])
		}
	default:
		return nil, nil, fmt.Errorf("%w: key is %T, not an EC or X25519 key", joseerrors.ErrAlgorithmKeyMismatch, key)
	}
}

func (e ECDHES) agreeEphemeralNIST(pub *ecdsa.PublicKey) ([]byte, *header.Parameters, error) {
	recipient, err := pub.ECDH()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", joseerrors.ErrAlgorithmKeyMismatch, err)
	}

	ephemeral, err := recipient.Curve().GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate ephemeral key: %w", err)
	}

	z, err := ephemeral.ECDH(recipient)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compute ECDH shared secret: %w", err)
	}

	// The ephemeral public key encodes as an uncompressed point:
	// 0x04 || X || Y, each coordinate ceil(bits(curve)/8) octets.
	point := ephemeral.PublicKey().Bytes()
	byteLen := (len(point) - 1) / 2

	epk := header.New()
	epk.Set(jwk.KeyType, jwk.KeyTypeEC)
	epk.Set(jwk.Curve, pub.Curve.Params().Name)
	epk.Set(jwk.X, base64.Encode(point[1:1+byteLen]))
	epk.Set(jwk.Y, base64.Encode(point[1+byteLen:]))

	return z, epk, nil
}

func (e ECDHES) agreeEphemeralX25519(pub []byte) ([]byte, *header.Parameters, error) {
	priv, err := randomBytes(curve25519.ScalarSize)
	if err != nil {
		return nil, nil, err
	}

	ephemeralPub, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate ephemeral X25519 key: %w", err)
	}

	z, err := curve25519.X25519(priv, pub)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compute X25519 shared secret: %w", err)
	}

	epk := header.New()
	epk.Set(jwk.KeyType, jwk.KeyTypeOKP)
	epk.Set(jwk.Curve, jwk.CurveX25519)
	epk.Set(jwk.X, base64.Encode(ephemeralPub))

	return z, epk, nil
}

// agreeReceived computes the shared secret between the recipient's
// private key and the received ephemeral public key.
func (e ECDHES) agreeReceived(key any, epk jwk.Value) ([]byte, error) {
	switch key := key.(type) {
	case *ecdsa.PrivateKey:
		return e.agreeReceivedNIST(key, epk)
	case jwk.Value:
		switch key[jwk.KeyType] {
		case jwk.KeyTypeEC:
			priv, err := jwk.ECDSAPrivateKey(key)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", joseerrors.ErrAlgorithmKeyMismatch, err)
			}
			return e.agreeReceivedNIST(priv, epk)
		case jwk.KeyTypeOKP:
			priv, err := jwk.X25519PrivateKey(key)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", joseerrors.ErrAlgorithmKeyMismatch, err)
			}
			epkPub, err := jwk.X25519PublicKey(epk)
			if err != nil {
				return nil, fmt.Errorf("invalid %q header parameter: %w", header.EphemeralPublicKey, err)
			}
			z, err := curve25519.X25519(priv, epkPub)
			if err != nil {
				return nil, fmt.Errorf("failed to compute X25519 shared secret: %w", err)
			}
			return z, nil
		default:
			return nil, fmt.Errorf("%w: key type %q cannot perform ECDH", joseerrors.ErrAlgorithmKeyMismatch, key[jwk.KeyType])
		}
	default:
		return nil, fmt.Errorf("%w: key is %T, not an EC or X25519 key", joseerrors.ErrAlgorithmKeyMismatch, key)
	}
}

func (e ECDHES) agreeReceivedNIST(priv *ecdsa.PrivateKey, epk jwk.Value) ([]byte, error) {
	epkPub, err := jwk.ECDSAPublicKey(epk)
	if err != nil {
		return nil, fmt.Errorf("invalid %q header parameter: %w", header.EphemeralPublicKey, err)
	}

	if epkPub.Curve != priv.Curve {
		return nil, fmt.Errorf("%w: ephemeral key curve %q does not match recipient key curve %q",
			joseerrors.ErrAlgorithmKeyMismatch, epkPub.Curve.Params().Name, priv.Curve.Params().Name)
	}

	recipient, err := priv.ECDH()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", joseerrors.ErrAlgorithmKeyMismatch, err)
	}

	ephemeral, err := epkPub.ECDH()
	if err != nil {
		return nil, fmt.Errorf("invalid %q header parameter: %v", header.EphemeralPublicKey, err)
	}

	z, err := recipient.ECDH(ephemeral)
	if err != nil {
		return nil, fmt.Errorf("failed to compute ECDH shared secret: %w", err)
	}

	return z, nil
}

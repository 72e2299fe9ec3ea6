package sig

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"fmt"

	"github.com/ronniedz/jose4go/pkg/joseerrors"
	"github.com/ronniedz/jose4go/pkg/jwa"
	"github.com/ronniedz/jose4go/pkg/jwk"
)

// minRSAModulusBits is the smallest RSA modulus accepted by the RS*
// and PS* algorithms, per RFC 7518 sections 3.3 and 3.5.
const minRSAModulusBits = 2048

// rsaSigningKey coerces the supported RSA private key representations
// into a crypto.Signer whose public key is an RSA key. Opaque signers
// backed by hardware keys are accepted as-is.
func rsaSigningKey(key any) (crypto.Signer, *rsa.PublicKey, error) {
	switch key := key.(type) {
	case *rsa.PrivateKey:
		return key, &key.PublicKey, nil
	case jwk.Value:
		pkey, err := jwk.RSAPrivateKey(key)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", joseerrors.ErrAlgorithmKeyMismatch, err)
		}
		return pkey, &pkey.PublicKey, nil
	case crypto.Signer:
		pub, ok := key.Public().(*rsa.PublicKey)
		if !ok {
			return nil, nil, fmt.Errorf("%w: signer public key is %T, not RSA", joseerrors.ErrAlgorithmKeyMismatch, key.Public())
		}
		return key, pub, nil
	default:
		return nil, nil, fmt.Errorf("%w: private key is %T, not RSA", joseerrors.ErrAlgorithmKeyMismatch, key)
	}
}

// rsaVerificationKey coerces the supported RSA public key representations.
func rsaVerificationKey(key any) (*rsa.PublicKey, error) {
	switch key := key.(type) {
	case *rsa.PublicKey:
		return key, nil
	case *rsa.PrivateKey:
		return &key.PublicKey, nil
	case jwk.Value:
		pkey, _, err := jwk.RSAPublicKey(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", joseerrors.ErrAlgorithmKeyMismatch, err)
		}
		return pkey, nil
	default:
		return nil, fmt.Errorf("%w: public key is %T, not RSA", joseerrors.ErrAlgorithmKeyMismatch, key)
	}
}

func checkRSAKeySize(pub *rsa.PublicKey) error {
	if pub.N.BitLen() < minRSAModulusBits {
		return fmt.Errorf("%w: RSA key size %d bytes (%d bits) is below minimum required %d bytes (%d bits)",
			joseerrors.ErrAlgorithmKeyMismatch, pub.Size(), pub.N.BitLen(), minRSAModulusBits/8, minRSAModulusBits)
	}
	return nil
}

// RSAPKCS1 implements the RS256, RS384, and RS512 signature algorithms.
//
// Signing is deterministic, and the signature length equals the key
// modulus length.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-3.3
type RSAPKCS1 struct {
	id   jwa.Algorithm
	hash crypto.Hash
}

func (r RSAPKCS1) ID() jwa.Algorithm {
	return r.id
}

func (r RSAPKCS1) Sign(key any, signingInput []byte) ([]byte, error) {
	signer, pub, err := rsaSigningKey(key)
	if err != nil {
		return nil, err
	}
	if err := checkRSAKeySize(pub); err != nil {
		return nil, err
	}

	newHash, err := hashFunc(r.hash)
	if err != nil {
		return nil, err
	}

	h := newHash()
	h.Write(signingInput)

	signature, err := signer.Sign(rand.Reader, h.Sum(nil), r.hash)
	if err != nil {
		return nil, fmt.Errorf("failed to sign with RSA private key: %w", err)
	}

	return signature, nil
}

func (r RSAPKCS1) Verify(key any, signingInput, signature []byte) error {
	pub, err := rsaVerificationKey(key)
	if err != nil {
		return err
	}
	if err := checkRSAKeySize(pub); err != nil {
		return err
	}

	newHash, err := hashFunc(r.hash)
	if err != nil {
		return err
	}

	h := newHash()
	h.Write(signingInput)

	if err := rsa.VerifyPKCS1v15(pub, r.hash, h.Sum(nil), signature); err != nil {
		return fmt.Errorf("%w: %v", joseerrors.ErrSignatureMismatch, err)
	}

	return nil
}

// RSAPSS implements the PS256, PS384, and PS512 signature algorithms.
//
// The salt length equals the hash output length and a fresh random
// salt is drawn per signature, so signing is probabilistic;
// verification accepts any salt length consistent with the modulus.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-3.5
type RSAPSS struct {
	id   jwa.Algorithm
	hash crypto.Hash
}

func (r RSAPSS) ID() jwa.Algorithm {
	return r.id
}

func (r RSAPSS) Sign(key any, signingInput []byte) ([]byte, error) {
	signer, pub, err := rsaSigningKey(key)
	if err != nil {
		return nil, err
	}
	if err := checkRSAKeySize(pub); err != nil {
		return nil, err
	}

	newHash, err := hashFunc(r.hash)
	if err != nil {
		return nil, err
	}

	h := newHash()
	h.Write(signingInput)

	signature, err := signer.Sign(rand.Reader, h.Sum(nil), &rsa.PSSOptions{
		SaltLength: r.hash.Size(),
		Hash:       r.hash,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign with RSA-PSS private key: %w", err)
	}

	return signature, nil
}

func (r RSAPSS) Verify(key any, signingInput, signature []byte) error {
	pub, err := rsaVerificationKey(key)
	if err != nil {
		return err
	}
	if err := checkRSAKeySize(pub); err != nil {
		return err
	}

	newHash, err := hashFunc(r.hash)
	if err != nil {
		return err
	}

	h := newHash()
	h.Write(signingInput)

	err = rsa.VerifyPSS(pub, r.hash, h.Sum(nil), signature, &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthAuto,
		Hash:       r.hash,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", joseerrors.ErrSignatureMismatch, err)
	}

	return nil
}

// Package keyutil loads and generates the native key material used by
// the jws and jwe engines: PEM encoded RSA, ECDSA, and EdDSA keys,
// random symmetric keys, and bridges from PEM material to the JWK
// wire form.
package keyutil

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/subtle"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"

	"github.com/ronniedz/jose4go/pkg/jwk"
)

// SymmetricKeysEqual checks if the given keys are the same in
// constant time.
func SymmetricKeysEqual(key1 []byte, key2 []byte) bool {
	return subtle.ConstantTimeCompare(key1, key2) == 1
}

// NewSymmetricKey generates a new symmetric key of the given size.
func NewSymmetricKey(size int) ([]byte, error) {
	key := make([]byte, size)

	_, err := rand.Read(key)
	if err != nil {
		return nil, fmt.Errorf("failed to generate new symmetic key: %w", err)
	}

	return key, nil
}

// decodePEMBlock reads all input and decodes the first PEM block.
func decodePEMBlock(r io.Reader) (*pem.Block, error) {
	keyBytes, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read key from reader: %w", err)
	}

	block, _ := pem.Decode(keyBytes)
	if block == nil {
		return nil, fmt.Errorf("failed to decode key PEM block")
	}

	return block, nil
}

// parsePKIXOrCertificate parses a SubjectPublicKeyInfo structure, or
// falls back to the public key of an X.509 certificate.
func parsePKIXOrCertificate(block *pem.Block) (any, error) {
	parsedKey, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err == nil {
		return parsedKey, nil
	}

	cert, certErr := x509.ParseCertificate(block.Bytes)
	if certErr != nil {
		return nil, fmt.Errorf("failed to decode public key: %w", err)
	}

	return cert.PublicKey, nil
}

// ParseRSAPublicKey parses the PEM encoded RSA public key from the given reader.
func ParseRSAPublicKey(r io.Reader) (*rsa.PublicKey, error) {
	block, err := decodePEMBlock(r)
	if err != nil {
		return nil, err
	}

	parsedKey, err := parsePKIXOrCertificate(block)
	if err != nil {
		return nil, err
	}

	publicKey, ok := parsedKey.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("invalid type %T for parsed RSA public key", parsedKey)
	}

	return publicKey, nil
}

// ParseRSAPrivateKey parses the PEM encoded RSA private key from the given reader.
func ParseRSAPrivateKey(r io.Reader) (*rsa.PrivateKey, error) {
	block, err := decodePEMBlock(r)
	if err != nil {
		return nil, err
	}

	parsedKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err == nil {
		return parsedKey, nil
	}

	p8, p8Err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if p8Err != nil {
		return nil, fmt.Errorf("failed to decode RSA private key: %w", err)
	}

	privateKey, ok := p8.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("invalid type %T for parsed RSA private key", p8)
	}

	return privateKey, nil
}

// ParseECDSAPublicKey parses the PEM encoded ECDSA public key from the given reader.
func ParseECDSAPublicKey(r io.Reader) (*ecdsa.PublicKey, error) {
	block, err := decodePEMBlock(r)
	if err != nil {
		return nil, err
	}

	parsedKey, err := parsePKIXOrCertificate(block)
	if err != nil {
		return nil, err
	}

	publicKey, ok := parsedKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("invalid type %T for parsed ECDSA public key", parsedKey)
	}

	return publicKey, nil
}

// ParseECDSAPrivateKey parses the PEM encoded ECDSA private key from the given reader.
func ParseECDSAPrivateKey(r io.Reader) (*ecdsa.PrivateKey, error) {
	block, err := decodePEMBlock(r)
	if err != nil {
		return nil, err
	}

	parsedKey, err := x509.ParseECPrivateKey(block.Bytes)
	if err == nil {
		return parsedKey, nil
	}

	p8, p8Err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if p8Err != nil {
		return nil, fmt.Errorf("failed to decode ECDSA private key: %w", err)
	}

	privateKey, ok := p8.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("invalid type %T for parsed ECDSA private key", p8)
	}

	return privateKey, nil
}

// ParseEdDSAPublicKey parses the PEM encoded Ed25519 public key from the given reader.
func ParseEdDSAPublicKey(r io.Reader) (ed25519.PublicKey, error) {
	block, err := decodePEMBlock(r)
	if err != nil {
		return nil, err
	}

	parsedKey, err := parsePKIXOrCertificate(block)
	if err != nil {
		return nil, err
	}

	publicKey, ok := parsedKey.(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("invalid type %T for parsed EdDSA public key", parsedKey)
	}

	return publicKey, nil
}

// ParseEdDSAPrivateKey parses the PEM encoded Ed25519 private key from the given reader.
func ParseEdDSAPrivateKey(r io.Reader) (ed25519.PrivateKey, error) {
	block, err := decodePEMBlock(r)
	if err != nil {
		return nil, err
	}

	parsedKey, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to decode EdDSA private key: %w", err)
	}

	privateKey, ok := parsedKey.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("invalid type %T for parsed EdDSA private key", parsedKey)
	}

	return privateKey, nil
}

// ParsePrivateKey parses the PEM encoded private key from the given reader.
func ParsePrivateKey(r io.Reader) (any, error) {
	block, err := decodePEMBlock(r)
	if err != nil {
		return nil, err
	}

	parsedKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err == nil {
		return parsedKey, nil
	}

	p8, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err == nil {
		return p8, nil
	}

	ecKey, err := x509.ParseECPrivateKey(block.Bytes)
	if err == nil {
		return ecKey, nil
	}

	return nil, fmt.Errorf("failed to parse private key, unknown type")
}

// ParsePublicKey parses the PEM encoded public key from the given reader.
func ParsePublicKey(r io.Reader) (any, error) {
	block, err := decodePEMBlock(r)
	if err != nil {
		return nil, err
	}

	return parsePKIXOrCertificate(block)
}

// PrivateKeyJWK parses the PEM encoded private key from the given
// reader and returns its JWK wire form, including the
// variant-private members.
func PrivateKeyJWK(r io.Reader) (jwk.Value, error) {
	key, err := ParsePrivateKey(r)
	if err != nil {
		return nil, err
	}

	return jwk.ValueFromPrivateKey(key)
}

// PublicKeyJWK parses the PEM encoded public key from the given
// reader and returns its JWK wire form.
func PublicKeyJWK(r io.Reader) (jwk.Value, error) {
	key, err := ParsePublicKey(r)
	if err != nil {
		return nil, err
	}

	return jwk.ValueFromPublicKey(key)
}

// NewRSAKeyPair returns a new RSA key pair, or an error if one occurs.
func NewRSAKeyPair() (*rsa.PublicKey, *rsa.PrivateKey, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate new RSA key pair: %w", err)
	}

	return &privateKey.PublicKey, privateKey, nil
}

// NewECDSAKeyPair returns a new ECDSA key pair on the P-256 curve, or
// an error if one occurs.
func NewECDSAKeyPair() (*ecdsa.PublicKey, *ecdsa.PrivateKey, error) {
	return NewECDSAKeyPairOnCurve(elliptic.P256())
}

// NewECDSAKeyPairOnCurve returns a new ECDSA key pair on the given
// curve, or an error if one occurs.
func NewECDSAKeyPairOnCurve(curve elliptic.Curve) (*ecdsa.PublicKey, *ecdsa.PrivateKey, error) {
	privateKey, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate new ECDSA key pair: %w", err)
	}

	return &privateKey.PublicKey, privateKey, nil
}

// NewEdDSAKeyPair returns a new EdDSA key pair, or an error if one occurs.
func NewEdDSAKeyPair() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate new EdDSA key pair: %w", err)
	}

	return publicKey, privateKey, nil
}

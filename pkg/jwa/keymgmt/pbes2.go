package keymgmt

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"

	"github.com/ronniedz/jose4go/pkg/base64"
	"github.com/ronniedz/jose4go/pkg/header"
	"github.com/ronniedz/jose4go/pkg/joseerrors"
	"github.com/ronniedz/jose4go/pkg/jwa"
	"golang.org/x/crypto/pbkdf2"
)

// Defaults applied when the producer does not author "p2s" and "p2c"
// itself.
const (
	defaultPBES2SaltBytes      = 16
	defaultPBES2IterationCount = 8192

	// minPBES2SaltBytes is the RFC 7518 section 4.8.1.1 minimum.
	minPBES2SaltBytes = 8
)

// PBES2 implements the PBES2-HS256+A128KW, PBES2-HS384+A192KW, and
// PBES2-HS512+A256KW key management algorithms: the KEK for the inner
// AES key wrap is PBKDF2 over the password with the salt
// alg-id || 0x00 || p2s and the iteration count p2c.
//
// The "p2s" and "p2c" header parameters are authored by the producer
// or generated here; the consumer-side upper bound on "p2c" is
// enforced by the jwe engine before this algorithm runs, defending
// against decryption requests crafted to burn CPU.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-4.8
type PBES2 struct {
	id      jwa.Algorithm
	keyBits int
}

func (p PBES2) ID() jwa.Algorithm {
	return p.id
}

func (p PBES2) hash() func() hash.Hash {
	switch p.id {
	case jwa.PBES2HS384A192KW:
		return sha512.New384
	case jwa.PBES2HS512A256KW:
		return sha512.New
	default:
		return sha256.New
	}
}

// deriveKEK computes PBKDF2(password, alg-id || 0x00 || saltInput, count).
func (p PBES2) deriveKEK(password, saltInput []byte, count int) []byte {
	salt := make([]byte, 0, len(p.id)+1+len(saltInput))
	salt = append(salt, []byte(p.id)...)
	salt = append(salt, 0x00)
	salt = append(salt, saltInput...)

	return pbkdf2.Key(password, salt, count, p.keyBits/8, p.hash())
}

func (p PBES2) innerKW() AESKW {
	return AESKW{id: p.id, keyBits: p.keyBits}
}

func (p PBES2) ManageForEncrypt(key any, desc jwa.CEKDescriptor, cek []byte, params *header.Parameters) ([]byte, []byte, *header.Parameters, error) {
	password, err := symmetricKey(key)
	if err != nil {
		return nil, nil, nil, err
	}

	updates := header.New()

	var saltInput []byte
	if params.Has(header.PBES2SaltInput) {
		encoded, err := params.GetString(header.PBES2SaltInput)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("invalid %q header parameter: %w", header.PBES2SaltInput, err)
		}
		saltInput, err = base64.Decode(encoded)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("invalid %q header parameter: %w", header.PBES2SaltInput, err)
		}
	} else {
		saltInput, err = randomBytes(defaultPBES2SaltBytes)
		if err != nil {
			return nil, nil, nil, err
		}
		updates.Set(header.PBES2SaltInput, base64.Encode(saltInput))
	}

	if len(saltInput) < minPBES2SaltBytes {
		return nil, nil, nil, fmt.Errorf("%w: PBES2 salt input must be at least %d octets", joseerrors.ErrMalformedCompact, minPBES2SaltBytes)
	}

	count := int64(defaultPBES2IterationCount)
	if params.Has(header.PBES2IterationCount) {
		count, err = params.GetInt64(header.PBES2IterationCount)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("invalid %q header parameter: %w", header.PBES2IterationCount, err)
		}
	} else {
		updates.Set(header.PBES2IterationCount, count)
	}

	if count <= 0 {
		return nil, nil, nil, fmt.Errorf("%w: PBES2 iteration count must be positive", joseerrors.ErrMalformedCompact)
	}

	kek := p.deriveKEK(password, saltInput, int(count))

	cek, wrapped, _, err := p.innerKW().ManageForEncrypt(kek, desc, cek, params)
	if err != nil {
		return nil, nil, nil, err
	}

	if updates.Len() == 0 {
		updates = nil
	}

	return cek, wrapped, updates, nil
}

func (p PBES2) ManageForDecrypt(key any, encryptedKey []byte, desc jwa.CEKDescriptor, params *header.Parameters) ([]byte, error) {
	password, err := symmetricKey(key)
	if err != nil {
		return nil, err
	}

	encoded, err := params.GetString(header.PBES2SaltInput)
	if err != nil {
		return nil, fmt.Errorf("invalid %q header parameter: %w", header.PBES2SaltInput, err)
	}
	saltInput, err := base64.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid %q header parameter: %w", header.PBES2SaltInput, err)
	}
	if len(saltInput) < minPBES2SaltBytes {
		return nil, fmt.Errorf("%w: PBES2 salt input must be at least %d octets", joseerrors.ErrMalformedCompact, minPBES2SaltBytes)
	}

	count, err := params.GetInt64(header.PBES2IterationCount)
	if err != nil {
		return nil, fmt.Errorf("invalid %q header parameter: %w", header.PBES2IterationCount, err)
	}
	if count <= 0 {
		return nil, fmt.Errorf("%w: PBES2 iteration count must be positive", joseerrors.ErrMalformedCompact)
	}

	kek := p.deriveKEK(password, saltInput, int(count))

	return p.innerKW().ManageForDecrypt(kek, encryptedKey, desc, params)
}

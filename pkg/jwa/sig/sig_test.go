package sig

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/ronniedz/jose4go/pkg/joseerrors"
	"github.com/ronniedz/jose4go/pkg/jwa"
	"github.com/ronniedz/jose4go/pkg/jwa/registry"
	"github.com/stretchr/testify/require"
)

func algByID(t *testing.T, id jwa.Algorithm) registry.Signature {
	t.Helper()
	for _, alg := range All() {
		if alg.ID() == id {
			return alg
		}
	}
	t.Fatalf("no signature algorithm %q", id)
	return nil
}

func TestSignVerifyRoundTrip(t *testing.T) {
	signingInput := []byte("eyJhbGciOiJub25lIn0.cGF5bG9hZA")

	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tests := []struct {
		id            jwa.Algorithm
		keyGen        func(t *testing.T) (signing any, verification any)
		deterministic bool
	}{
		{
			id: jwa.HS256,
			keyGen: func(t *testing.T) (any, any) {
				key := []byte("test-secret-key-that-is-long-enough-for-hmac-256")
				return key, key
			},
			deterministic: true,
		},
		{
			id: jwa.HS512,
			keyGen: func(t *testing.T) (any, any) {
				key := []byte("another-test-secret-key-that-is-long-enough")
				return key, key
			},
			deterministic: true,
		},
		{
			id: jwa.RS256,
			keyGen: func(t *testing.T) (any, any) {
				return rsaKey, &rsaKey.PublicKey
			},
			deterministic: true,
		},
		{
			id: jwa.PS384,
			keyGen: func(t *testing.T) (any, any) {
				return rsaKey, &rsaKey.PublicKey
			},
		},
		{
			id: jwa.ES256,
			keyGen: func(t *testing.T) (any, any) {
				key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
				require.NoError(t, err)
				return key, &key.PublicKey
			},
		},
		{
			id: jwa.ES512,
			keyGen: func(t *testing.T) (any, any) {
				key, err := ecdsa.GenerateKey(elliptic.P521(), rand.Reader)
				require.NoError(t, err)
				return key, &key.PublicKey
			},
		},
		{
			id: jwa.EdDSA,
			keyGen: func(t *testing.T) (any, any) {
				pub, priv, err := ed25519.GenerateKey(rand.Reader)
				require.NoError(t, err)
				return priv, pub
			},
			deterministic: true,
		},
	}

	for _, test := range tests {
		t.Run(test.id, func(t *testing.T) {
			alg := algByID(t, test.id)
			signingKey, verificationKey := test.keyGen(t)

			signature, err := alg.Sign(signingKey, signingInput)
			require.NoError(t, err)
			require.NotEmpty(t, signature)

			err = alg.Verify(verificationKey, signingInput, signature)
			require.NoError(t, err)

			again, err := alg.Sign(signingKey, signingInput)
			require.NoError(t, err)

			if test.deterministic {
				require.Equal(t, signature, again)
			} else {
				require.False(t, bytes.Equal(signature, again))
				// Both still verify.
				require.NoError(t, alg.Verify(verificationKey, signingInput, again))
			}

			// Flipping any single octet breaks verification.
			tampered := append([]byte{}, signature...)
			tampered[0] ^= 0x01
			err = alg.Verify(verificationKey, signingInput, tampered)
			require.Error(t, err)
			require.ErrorIs(t, err, joseerrors.ErrSignatureMismatch)
		})
	}
}

func TestECDSASignatureLength(t *testing.T) {
	tests := []struct {
		id     jwa.Algorithm
		curve  elliptic.Curve
		length int
	}{
		{jwa.ES256, elliptic.P256(), 64},
		{jwa.ES384, elliptic.P384(), 96},
		{jwa.ES512, elliptic.P521(), 132},
	}

	for _, test := range tests {
		t.Run(test.id, func(t *testing.T) {
			key, err := ecdsa.GenerateKey(test.curve, rand.Reader)
			require.NoError(t, err)

			alg := algByID(t, test.id)
			signature, err := alg.Sign(key, []byte("input"))
			require.NoError(t, err)
			require.Len(t, signature, test.length)
		})
	}
}

func TestECDSARejectsOutOfRangeComponents(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	alg := algByID(t, jwa.ES256)

	// All-zero components are rejected before any curve math.
	err = alg.Verify(&key.PublicKey, []byte("input"), make([]byte, 64))
	require.Error(t, err)
	require.ErrorIs(t, err, joseerrors.ErrSignatureMismatch)

	// Components of all ones exceed the curve order.
	ones := bytes.Repeat([]byte{0xff}, 64)
	err = alg.Verify(&key.PublicKey, []byte("input"), ones)
	require.Error(t, err)
	require.ErrorIs(t, err, joseerrors.ErrSignatureMismatch)
}

func TestKeyMismatch(t *testing.T) {
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	t.Run("RSA algorithm with EC key", func(t *testing.T) {
		alg := algByID(t, jwa.RS256)
		_, err := alg.Sign(ecKey, []byte("input"))
		require.Error(t, err)
		require.ErrorIs(t, err, joseerrors.ErrAlgorithmKeyMismatch)
	})

	t.Run("EC algorithm with RSA key", func(t *testing.T) {
		alg := algByID(t, jwa.ES256)
		err := alg.Verify(&rsaKey.PublicKey, []byte("input"), make([]byte, 64))
		require.Error(t, err)
		require.ErrorIs(t, err, joseerrors.ErrAlgorithmKeyMismatch)
	})

	t.Run("curve does not match algorithm", func(t *testing.T) {
		alg := algByID(t, jwa.ES384)
		_, err := alg.Sign(ecKey, []byte("input"))
		require.Error(t, err)
		require.ErrorIs(t, err, joseerrors.ErrAlgorithmKeyMismatch)
	})
}

func TestRSAKeyTooSmall(t *testing.T) {
	smallKey, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)

	alg := algByID(t, jwa.RS256)
	_, err = alg.Sign(smallKey, []byte("input"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "below minimum")
}

func TestNone(t *testing.T) {
	alg := algByID(t, jwa.None)

	signature, err := alg.Sign(nil, []byte("input"))
	require.NoError(t, err)
	require.Empty(t, signature)

	require.NoError(t, alg.Verify(nil, []byte("input"), nil))

	err = alg.Verify(nil, []byte("input"), []byte("sneaky"))
	require.Error(t, err)
	require.ErrorIs(t, err, joseerrors.ErrSignatureMismatch)
}

func TestRegister(t *testing.T) {
	r := registry.New()
	Register(r)

	alg, err := r.Signature(jwa.RS256)
	require.NoError(t, err)
	require.Equal(t, jwa.RS256, alg.ID())

	r.UnregisterSignature(jwa.RS256)
	_, err = r.Signature(jwa.RS256)
	require.Error(t, err)
	require.ErrorIs(t, err, joseerrors.ErrUnknownAlgorithm)
}

package jose_test

import (
	"crypto/rand"
	"testing"
	"time"

	"github.com/ronniedz/jose4go/pkg/header"
	"github.com/ronniedz/jose4go/pkg/jwa"
	"github.com/ronniedz/jose4go/pkg/jwe"
	"github.com/ronniedz/jose4go/pkg/jws"
	"github.com/ronniedz/jose4go/pkg/jwt"
	"github.com/stretchr/testify/require"
)

// TestSignedToken exercises the whole stack from the jwt convenience
// layer down through the jws engine.
func TestSignedToken(t *testing.T) {
	params := header.New()
	params.Set(header.Type, jwt.Type)
	params.Set(header.Algorithm, jwa.HS256)

	token, err := jwt.New(params,
		jwt.ClaimsSet{
			jwt.Subject:  "1234567890",
			jwt.Issuer:   "test",
			jwt.IssuedAt: time.Now(),
		},
		"supersecret",
	)
	require.NoError(t, err)

	parsed, err := jwt.ParseString(token.String())
	require.NoError(t, err)

	err = parsed.Verify(jwt.WithAllowedAlgorithms(jwa.HS256), jwt.WithKey("supersecret"))
	require.NoError(t, err)

	alg, err := parsed.Header.Algorithm()
	require.NoError(t, err)
	require.Equal(t, jwa.HS256, alg)

	typ, err := parsed.Header.Type()
	require.NoError(t, err)
	require.Equal(t, jwt.Type, typ)

	sub, err := parsed.Claims.Get(jwt.Subject)
	require.NoError(t, err)
	require.Equal(t, "1234567890", sub)
}

// TestSignedThenEncrypted carries a signed JWS inside a JWE, the
// nested pattern used when both authenticity and confidentiality are
// needed.
func TestSignedThenEncrypted(t *testing.T) {
	signingKey := []byte("test-secret-key-that-is-long-enough")

	signParams := header.New()
	signParams.Set(header.Algorithm, jwa.HS256)

	signed, err := jws.New(signParams, []byte("nested payload"), signingKey)
	require.NoError(t, err)

	encryptionKey := make([]byte, 32)
	_, err = rand.Read(encryptionKey)
	require.NoError(t, err)

	encParams := header.New()
	encParams.Set(header.Algorithm, jwa.Direct)
	encParams.Set(header.Encryption, jwa.A256GCM)
	encParams.Set(header.ContentType, "JWT")

	encrypted, err := jwe.Encrypt(encParams, []byte(signed.String()), encryptionKey)
	require.NoError(t, err)

	parsed, err := jwe.Parse(encrypted.String())
	require.NoError(t, err)

	decrypted, err := parsed.Decrypt(encryptionKey)
	require.NoError(t, err)

	innerSignature, err := jws.Parse(string(decrypted))
	require.NoError(t, err)

	err = innerSignature.Verify(signingKey)
	require.NoError(t, err)
	require.Equal(t, []byte("nested payload"), innerSignature.Payload)
}

package jws_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"log"

	"github.com/ronniedz/jose4go/pkg/header"
	"github.com/ronniedz/jose4go/pkg/jwa"
	"github.com/ronniedz/jose4go/pkg/jws"
)

// Example demonstrates basic JWS usage for signing arbitrary payloads
func Example() {
	// Generate a key for signing
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		log.Fatal(err)
	}

	// Create JWS header
	params := header.New()
	params.Set(header.Algorithm, jwa.ES256)
	params.Set(header.Type, "JWS")
	params.Set(header.KeyID, "my-key-1")

	// Any payload can be signed - not just JWT claims
	payload := []byte(`{"message": "Hello, JWS World!", "data": [1, 2, 3]}`)

	// Create and sign JWS token
	token, err := jws.New(params, payload, privateKey)
	if err != nil {
		log.Fatal(err)
	}

	// Get compact serialization
	jwsString := token.String()
	fmt.Printf("JWS Token: %s\n", jwsString[:50]+"...")

	// Parse the JWS back
	parsedToken, err := jws.Parse(jwsString)
	if err != nil {
		log.Fatal(err)
	}

	// Verify signature
	err = parsedToken.Verify(&privateKey.PublicKey, jws.WithAllowedAlgorithms(jwa.ES256))
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Payload: %s\n", string(parsedToken.Payload))
	alg, _ := parsedToken.Header.Algorithm()
	fmt.Printf("Algorithm: %v\n", alg)
	fmt.Println("Signature verified successfully!")
}

// ExampleNew_textPayload demonstrates JWS with simple text payload
func ExampleNew_textPayload() {
	// HMAC key for symmetric signing
	key := []byte("my-secret-key-that-is-32-bytes!!")

	// Create JWS for plain text
	params := header.New()
	params.Set(header.Algorithm, jwa.HS256)

	payload := []byte("This is a simple text message that will be signed.")

	token, err := jws.New(params, payload, key)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Original: %s\n", string(payload))
	fmt.Printf("JWS: %s\n", token.String())

	// Verify
	err = token.Verify(key)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Text message signature verified!")
}

// ExampleNew_unsecured demonstrates unsecured JWS (algorithm "none")
func ExampleNew_unsecured() {
	params := header.New()
	params.Set(header.Algorithm, jwa.None)

	payload := []byte("This message has no signature")

	token, err := jws.New(params, payload, nil)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Unsecured JWS: %s\n", token.String())

	// Verifying "none" requires an explicit opt-in
	err = token.Verify(nil, jws.WithAllowInsecureNoneAlgorithm(true))
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Unsecured JWS verified!")

	// Output:
	// Unsecured JWS: eyJhbGciOiJub25lIn0.VGhpcyBtZXNzYWdlIGhhcyBubyBzaWduYXR1cmU.
	// Unsecured JWS verified!
}

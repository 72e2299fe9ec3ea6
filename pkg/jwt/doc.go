// Package jwt provides a simple and easy-to-use interface
// for working with JSON Web Tokens (JWTs).
//
// It supports creating, parsing, and verifying JWTs, as
// well as setting custom claims and expiration times.
// This package is designed to be lightweight and flexible,
// making it ideal for use in a wide range of applications.
package jwt

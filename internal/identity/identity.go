// Package identity verifies the signed credential cookies issued by the
// external sign-in provider. Verification is stateless and re-run on every
// request, so a rotated secret or tampered cookie is caught immediately.
package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
)

// Identity is the authenticated principal carried by a verified credential.
// Email is the storage key; Claims holds whatever else the provider sent.
type Identity struct {
	Email  string
	Name   string
	Claims map[string]any
}

var (
	ErrMissingCredential  = errors.New("missing credential")
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrMalformedPayload   = errors.New("malformed payload")
	ErrIncompleteIdentity = errors.New("incomplete identity")
)

// Verify validates the payload/signature cookie pair against the signing
// secret and returns the identity encoded in the payload.
//
// Callers must collapse every failure into one opaque 401: distinguishing
// error responses would give a signature-guessing oracle.
func Verify(payloadCookie, signatureCookie string, secret []byte) (Identity, error) {
	if payloadCookie == "" || signatureCookie == "" {
		return Identity{}, ErrMissingCredential
	}

	expected := Sign(payloadCookie, secret)
	// hmac.Equal checks length first, then compares every byte regardless
	// of where the first mismatch is.
	if !hmac.Equal([]byte(signatureCookie), []byte(expected)) {
		return Identity{}, ErrInvalidSignature
	}

	decoded, err := base64.RawURLEncoding.DecodeString(payloadCookie)
	if err != nil {
		return Identity{}, ErrMalformedPayload
	}

	var claims map[string]any
	if err := json.Unmarshal(decoded, &claims); err != nil {
		return Identity{}, ErrMalformedPayload
	}

	email, _ := claims["email"].(string)
	if email == "" {
		return Identity{}, ErrIncompleteIdentity
	}
	name, _ := claims["name"].(string)

	return Identity{Email: email, Name: name, Claims: claims}, nil
}

// Sign computes the base64url-encoded HMAC-SHA256 of the payload cookie.
// The sign-in provider uses the same construction when minting credentials.
func Sign(payload string, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// EncodePayload builds the payload cookie for a set of claims. Used by the
// provider and by tests; the API server itself only ever verifies.
func EncodePayload(claims map[string]any) (string, error) {
	raw, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

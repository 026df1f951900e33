package identity

import (
	"errors"
	"testing"
)

func signedCredential(t *testing.T, claims map[string]any, secret []byte) (string, string) {
	t.Helper()
	payload, err := EncodePayload(claims)
	if err != nil {
		t.Fatalf("EncodePayload() error = %v", err)
	}
	return payload, Sign(payload, secret)
}

func TestVerifyAcceptsValidCredential(t *testing.T) {
	secret := []byte("secret")
	payload, signature := signedCredential(t, map[string]any{"email": "a@x.com", "name": "Avery"}, secret)

	id, err := Verify(payload, signature, secret)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if id.Email != "a@x.com" || id.Name != "Avery" {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestVerifyRejectsMissingCookies(t *testing.T) {
	secret := []byte("secret")
	payload, signature := signedCredential(t, map[string]any{"email": "a@x.com"}, secret)

	if _, err := Verify("", signature, secret); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("missing payload: error = %v, want ErrMissingCredential", err)
	}
	if _, err := Verify(payload, "", secret); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("missing signature: error = %v, want ErrMissingCredential", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	payload, signature := signedCredential(t, map[string]any{"email": "a@x.com"}, []byte("secret"))

	if _, err := Verify(payload, signature, []byte("rotated")); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("Verify() error = %v, want ErrInvalidSignature", err)
	}
}

func TestVerifyRejectsAnySingleBitFlip(t *testing.T) {
	secret := []byte("secret")
	payload, signature := signedCredential(t, map[string]any{"email": "a@x.com"}, secret)

	flip := func(s string, i int) string {
		b := []byte(s)
		// Stay inside the base64url alphabet so the flip survives cookie
		// transport rather than being rejected as encoding noise.
		if b[i] == 'A' {
			b[i] = 'B'
		} else {
			b[i] = 'A'
		}
		return string(b)
	}

	for i := range payload {
		if _, err := Verify(flip(payload, i), signature, secret); err == nil {
			t.Fatalf("payload flipped at byte %d still verified", i)
		}
	}
	for i := range signature {
		if _, err := Verify(payload, flip(signature, i), secret); err == nil {
			t.Fatalf("signature flipped at byte %d still verified", i)
		}
	}
}

func TestVerifyRejectsMalformedPayload(t *testing.T) {
	secret := []byte("secret")

	// Correctly signed but not base64url JSON.
	payload := "not%%%base64"
	if _, err := Verify(payload, Sign(payload, secret), secret); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("Verify() error = %v, want ErrMalformedPayload", err)
	}

	payload, err := EncodePayload(map[string]any{"name": "No Email"})
	if err != nil {
		t.Fatalf("EncodePayload() error = %v", err)
	}
	if _, err := Verify(payload, Sign(payload, secret), secret); !errors.Is(err, ErrIncompleteIdentity) {
		t.Fatalf("Verify() error = %v, want ErrIncompleteIdentity", err)
	}
}

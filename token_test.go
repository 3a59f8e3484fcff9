package passbridge

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

func newRSAKeyPEM(t *testing.T) []byte {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
}

func freezeTokenClock(t *testing.T, now time.Time) {
	t.Helper()
	original := tokenClock
	tokenClock = func() time.Time { return now }
	t.Cleanup(func() { tokenClock = original })
}

func samplePayload() Payload {
	return Payload{
		Prefix: "generic",
		Class:  json.RawMessage(`{"id":"3388.pass.generic"}`),
		Object: json.RawMessage(`{"id":"3388.card-1","classId":"3388.pass.generic"}`),
	}
}

func TestTokenSignAndVerify(t *testing.T) {
	freezeTokenClock(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	signer, err := NewTokenSigner("issuer@example.iam.gserviceaccount.com", newRSAKeyPEM(t), "kid-1", []string{"https://example.com"})
	if err != nil {
		t.Fatalf("NewTokenSigner error: %v", err)
	}

	token, err := signer.Sign(samplePayload())
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Fatalf("token is not a compact JWS: %s", token)
	}

	pub, err := signer.PublicKey()
	if err != nil {
		t.Fatalf("PublicKey error: %v", err)
	}
	claims, err := VerifyToken(token, pub)
	if err != nil {
		t.Fatalf("VerifyToken error: %v", err)
	}
	if claims.Issuer != "issuer@example.iam.gserviceaccount.com" {
		t.Fatalf("unexpected issuer: %s", claims.Issuer)
	}
	if len(claims.Audience) != 1 || claims.Audience[0] != "google" {
		t.Fatalf("unexpected audience: %v", claims.Audience)
	}
	if claims.Type != "savetowallet" {
		t.Fatalf("unexpected typ: %s", claims.Type)
	}
	if len(claims.Origins) != 1 || claims.Origins[0] != "https://example.com" {
		t.Fatalf("unexpected origins: %v", claims.Origins)
	}
	if claims.Payload.Prefix != "generic" {
		t.Fatalf("unexpected payload prefix: %s", claims.Payload.Prefix)
	}
	id, err := claims.Payload.objectID()
	if err != nil || id != "3388.card-1" {
		t.Fatalf("unexpected object id %q: %v", id, err)
	}
}

func TestVerifyTokenWrongKey(t *testing.T) {
	signer, err := NewTokenSigner("a@example.com", newRSAKeyPEM(t), "", nil)
	if err != nil {
		t.Fatalf("NewTokenSigner error: %v", err)
	}
	other, err := NewTokenSigner("b@example.com", newRSAKeyPEM(t), "", nil)
	if err != nil {
		t.Fatalf("NewTokenSigner error: %v", err)
	}
	token, err := signer.Sign(samplePayload())
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}
	otherPub, err := other.PublicKey()
	if err != nil {
		t.Fatalf("PublicKey error: %v", err)
	}
	_, err = VerifyToken(token, otherPub)
	var perr *Error
	if !errors.As(err, &perr) || perr.Code != ErrCodeInvalidToken {
		t.Fatalf("expected invalid token error, got %v", err)
	}
}

func signRaw(t *testing.T, pemKey []byte, build func(*jwt.Builder) *jwt.Builder) string {
	t.Helper()
	key, err := jwk.ParseKey(pemKey, jwk.WithPEM(true))
	if err != nil {
		t.Fatalf("parse key: %v", err)
	}
	tok, err := build(jwt.NewBuilder().IssuedAt(time.Now())).Build()
	if err != nil {
		t.Fatalf("build token: %v", err)
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, key))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return string(signed)
}

func TestVerifyTokenRejectsClaims(t *testing.T) {
	pemKey := newRSAKeyPEM(t)
	payload := map[string]any{"genericObjects": []any{map[string]any{"id": "1.o"}}}
	tests := map[string]func(*jwt.Builder) *jwt.Builder{
		"audience": func(b *jwt.Builder) *jwt.Builder {
			return b.Audience([]string{"someone-else"}).Claim("typ", "savetowallet").Claim("payload", payload)
		},
		"type": func(b *jwt.Builder) *jwt.Builder {
			return b.Audience([]string{"google"}).Claim("typ", "other").Claim("payload", payload)
		},
		"payload": func(b *jwt.Builder) *jwt.Builder {
			return b.Audience([]string{"google"}).Claim("typ", "savetowallet")
		},
	}
	for name, build := range tests {
		t.Run(name, func(t *testing.T) {
			token := signRaw(t, pemKey, build)
			if _, err := VerifyToken(token, nil); err == nil {
				t.Fatalf("expected %s to be rejected", name)
			}
		})
	}
}

func TestPayloadFromToken(t *testing.T) {
	signer, err := NewTokenSigner("a@example.com", newRSAKeyPEM(t), "", nil)
	if err != nil {
		t.Fatalf("NewTokenSigner error: %v", err)
	}
	token, err := signer.Sign(samplePayload())
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}
	payload, err := PayloadFromToken(token)
	if err != nil {
		t.Fatalf("PayloadFromToken error: %v", err)
	}
	if len(payload.Class) == 0 || len(payload.Object) == 0 {
		t.Fatalf("payload lost class or object: %+v", payload)
	}

	if _, err := PayloadFromToken("  "); err == nil {
		t.Fatalf("expected error for empty token")
	}
}

func TestNewTokenSignerErrors(t *testing.T) {
	if _, err := NewTokenSigner("", newRSAKeyPEM(t), "", nil); err == nil {
		t.Fatalf("expected error for missing email")
	}
	if _, err := NewTokenSigner("a@example.com", []byte("not a key"), "", nil); err == nil {
		t.Fatalf("expected error for bad key")
	}
	if _, err := NewTokenSignerFromAccount(nil, nil); err == nil {
		t.Fatalf("expected error for nil account")
	}
}

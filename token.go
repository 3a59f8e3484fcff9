package passbridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

var tokenClock = time.Now

// TokenSigner mints RS256 save tokens for one service account.
type TokenSigner struct {
	email   string
	key     jwk.Key
	origins []string
}

// NewTokenSigner parses a PEM private key for the given service account.
func NewTokenSigner(email string, pemKey []byte, keyID string, origins []string) (*TokenSigner, error) {
	if strings.TrimSpace(email) == "" {
		return nil, newError(ErrCodeInvalidConfig, errors.New("service account email is required"))
	}
	key, err := jwk.ParseKey(pemKey, jwk.WithPEM(true))
	if err != nil {
		return nil, newError(ErrCodeInvalidConfig, fmt.Errorf("parse private key: %w", err))
	}
	if keyID != "" {
		if err := key.Set(jwk.KeyIDKey, keyID); err != nil {
			return nil, newError(ErrCodeInvalidConfig, err)
		}
	}
	return &TokenSigner{email: email, key: key, origins: append([]string(nil), origins...)}, nil
}

// NewTokenSignerFromAccount builds a signer from parsed service-account
// credentials.
func NewTokenSignerFromAccount(sa *ServiceAccount, origins []string) (*TokenSigner, error) {
	if sa == nil {
		return nil, newError(ErrCodeInvalidConfig, errors.New("service account is required"))
	}
	return NewTokenSigner(sa.Email, sa.PrivateKey, sa.PrivateKeyID, origins)
}

// PublicKey returns the verification key matching the signing key.
func (s *TokenSigner) PublicKey() (jwk.Key, error) {
	return jwk.PublicKeyOf(s.key)
}

// Sign embeds the payload in a signed save token.
func (s *TokenSigner) Sign(payload Payload) (string, error) {
	builder := jwt.NewBuilder().
		Issuer(s.email).
		Audience([]string{saveAudience}).
		IssuedAt(tokenClock()).
		Claim("typ", saveTokenType).
		Claim("payload", payload)
	if len(s.origins) > 0 {
		builder = builder.Claim("origins", s.origins)
	}
	tok, err := builder.Build()
	if err != nil {
		return "", newError(ErrCodeSigning, fmt.Errorf("build token: %w", err))
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, s.key))
	if err != nil {
		return "", newError(ErrCodeSigning, fmt.Errorf("sign token: %w", err))
	}
	return string(signed), nil
}

// VerifyToken parses a save token and checks its signature when key is
// non-nil. Audience and type are always checked.
func VerifyToken(token string, key jwk.Key) (*SaveClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, newError(ErrCodeInvalidToken, errors.New("token is empty"))
	}
	opts := []jwt.ParseOption{
		jwt.WithValidate(true),
		jwt.WithAudience(saveAudience),
		jwt.WithAcceptableSkew(time.Minute),
		jwt.WithClock(jwt.ClockFunc(tokenClock)),
	}
	if key != nil {
		opts = append(opts, jwt.WithKey(jwa.RS256, key))
	} else {
		opts = append(opts, jwt.WithVerify(false))
	}
	parsed, err := jwt.Parse([]byte(token), opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrInvalidAudience()) {
			return nil, newError(ErrCodeInvalidToken, fmt.Errorf("audience: %w", err))
		}
		return nil, newError(ErrCodeInvalidToken, err)
	}
	return claimsFromToken(parsed)
}

// PayloadFromToken extracts the embedded payload of a save token without
// checking its signature.
func PayloadFromToken(token string) (Payload, error) {
	claims, err := VerifyToken(token, nil)
	if err != nil {
		return Payload{}, err
	}
	return claims.Payload, nil
}

func claimsFromToken(tok jwt.Token) (*SaveClaims, error) {
	private := tok.PrivateClaims()
	claims := &SaveClaims{
		Issuer:   tok.Issuer(),
		Audience: append([]string(nil), tok.Audience()...),
		IssuedAt: tok.IssuedAt(),
	}
	if typ, ok := private["typ"].(string); ok {
		claims.Type = typ
	}
	if claims.Type != saveTokenType {
		return nil, newError(ErrCodeInvalidToken, fmt.Errorf("token type %q, want %q", claims.Type, saveTokenType))
	}
	if origins, ok := private["origins"].([]any); ok {
		for _, o := range origins {
			if s, ok := o.(string); ok {
				claims.Origins = append(claims.Origins, s)
			}
		}
	}

	raw, ok := private["payload"]
	if !ok {
		return nil, newError(ErrCodeInvalidToken, errors.New("token carries no payload"))
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, newError(ErrCodeInvalidToken, err)
	}
	payload, err := ParsePayload(data)
	if err != nil {
		return nil, err
	}
	claims.Payload = payload
	return claims, nil
}

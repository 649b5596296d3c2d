package http

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gopkg.in/square/go-jose.v2"
	"gopkg.in/square/go-jose.v2/jwt"
)

const adminIssuer = "payments-admin"

// ErrUnauthorized indicates a missing, malformed, or expired admin token.
var ErrUnauthorized = errors.New("http: unauthorized")

// AdminAuth issues and verifies the ES256 bearer tokens that guard the
// administrative endpoints (pause, unpause, sweep). The token subject is the
// caller identity handed to the engine, so sweep authorization still ends at
// the engine's owner check.
type AdminAuth struct {
	privateKey *ecdsa.PrivateKey
	tokenTTL   time.Duration
}

// NewAdminAuth creates an AdminAuth from a PEM-encoded ECDSA private key.
func NewAdminAuth(pemKey string) (*AdminAuth, error) {
	block, _ := pem.Decode([]byte(pemKey))
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block: invalid PEM format")
	}

	privateKey, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		// PKCS8 fallback
		parsed, pkcs8Err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if pkcs8Err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		ec, ok := parsed.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("unsupported private key type: must be ECDSA")
		}
		privateKey = ec
	}

	return &AdminAuth{
		privateKey: privateKey,
		tokenTTL:   2 * time.Minute,
	}, nil
}

// NewAdminAuthFromKey creates an AdminAuth from an in-memory ECDSA key.
func NewAdminAuthFromKey(key *ecdsa.PrivateKey) (*AdminAuth, error) {
	if key == nil {
		return nil, fmt.Errorf("nil admin key")
	}
	return &AdminAuth{privateKey: key, tokenTTL: 2 * time.Minute}, nil
}

// IssueToken generates a short-lived bearer token for the given caller
// identity (the admin's address in hex).
func (a *AdminAuth) IssueToken(subject string) (string, error) {
	sig, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.ES256, Key: a.privateKey},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create JWT signer: %w", err)
	}

	now := time.Now()
	claims := jwt.Claims{
		Subject:   subject,
		Issuer:    adminIssuer,
		NotBefore: jwt.NewNumericDate(now),
		Expiry:    jwt.NewNumericDate(now.Add(a.tokenTTL)),
	}

	token, err := jwt.Signed(sig).Claims(claims).CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// VerifyRequest checks the Authorization header and returns the token
// subject.
func (a *AdminAuth) VerifyRequest(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return "", ErrUnauthorized
	}
	raw := strings.TrimPrefix(header, "Bearer ")

	token, err := jwt.ParseSigned(raw)
	if err != nil {
		return "", ErrUnauthorized
	}

	var claims jwt.Claims
	if err := token.Claims(&a.privateKey.PublicKey, &claims); err != nil {
		return "", ErrUnauthorized
	}
	if err := claims.Validate(jwt.Expected{Issuer: adminIssuer, Time: time.Now()}); err != nil {
		return "", ErrUnauthorized
	}
	return claims.Subject, nil
}

// adminSubjectKey carries the verified admin identity through the request
// context.
type adminSubjectKey struct{}

// Middleware rejects requests without a valid admin token and stores the
// verified subject in the request context.
func (a *AdminAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, err := a.VerifyRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withAdminSubject(r.Context(), subject)))
	})
}

package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"lexcorpus/internal/domain"
	"lexcorpus/internal/domain/models"
)

const testKID = "test-key"

func newTestVerifier(t *testing.T) (*JWKSVerifier, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	jwks, err := json.Marshal(map[string]interface{}{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": testKID,
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	kf, err := keyfunc.NewJWKSetJSON(jwks)
	if err != nil {
		t.Fatalf("NewJWKSetJSON: %v", err)
	}
	return NewJWTVerifierWithKeyfunc(kf, slog.New(slog.NewTextHandler(io.Discard, nil))), key
}

func sign(t *testing.T, key interface{}, method jwt.SigningMethod, claims *models.Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	token.Header["kid"] = testKID
	s, err := token.SignedString(key)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func validClaims() *models.Claims {
	return &models.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role:           "admin",
		OrganizationID: "org-1",
		GroupIDs:       []string{"g1"},
	}
}

func TestVerifyToken(t *testing.T) {
	v, key := newTestVerifier(t)

	claims, err := v.VerifyToken(sign(t, key, jwt.SigningMethodRS256, validClaims()))
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	p := models.PrincipalFromClaims(claims)
	if p.UserID != "user-1" || !p.IsAdmin() || p.OrganizationID != "org-1" || !p.InGroup("g1") {
		t.Errorf("principal = %+v", p)
	}
}

func TestVerifyToken_Rejects(t *testing.T) {
	v, key := newTestVerifier(t)
	other, _ := rsa.GenerateKey(rand.Reader, 2048)

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	noExpiry := validClaims()
	noExpiry.ExpiresAt = nil
	noSubject := validClaims()
	noSubject.Subject = ""

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"expired", sign(t, key, jwt.SigningMethodRS256, expired)},
		{"no expiry", sign(t, key, jwt.SigningMethodRS256, noExpiry)},
		{"no subject", sign(t, key, jwt.SigningMethodRS256, noSubject)},
		{"wrong key", sign(t, other, jwt.SigningMethodRS256, validClaims())},
		{"hmac", sign(t, []byte("secret"), jwt.SigningMethodHS256, validClaims())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.VerifyToken(tt.token); !errors.Is(err, domain.ErrUnauthorized) {
				t.Errorf("error = %v, want unauthorized", err)
			}
		})
	}
}

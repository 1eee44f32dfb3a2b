package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/erazemk/znamke/internal/model"
)

func TestIssueAndParseToken(t *testing.T) {
	secret := "test-secret-key"
	id := Identity{UserID: 7, Username: "mojca", Role: model.RoleManager, DeskID: 19, Version: 3}
	now := time.Now()

	token, err := IssueToken(secret, id, now)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	claims, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}

	if got := claims.Identity(); got != id {
		t.Errorf("expected identity %+v, got %+v", id, got)
	}
	if claims.Issuer != Issuer || claims.Subject != "7" {
		t.Errorf("unexpected issuer %q or subject %q", claims.Issuer, claims.Subject)
	}
	if claims.ID == "" {
		t.Error("expected a token ID")
	}

	// NumericDate has second precision.
	if diff := claims.Expiry().Sub(now.Add(TokenLifetime)); diff < -time.Second || diff > time.Second {
		t.Errorf("token expiry too far from expected: diff=%v", diff)
	}
}

func TestTokensHaveDistinctIDs(t *testing.T) {
	id := Identity{UserID: 1, Username: "admin", Role: model.RoleAdmin}
	a, _ := IssueToken("s", id, time.Now())
	b, _ := IssueToken("s", id, time.Now())

	ca, _ := ParseToken("s", a)
	cb, _ := ParseToken("s", b)
	if ca == nil || cb == nil || ca.ID == cb.ID {
		t.Error("expected two tokens to carry different IDs")
	}
}

func TestParseTokenRejects(t *testing.T) {
	id := Identity{UserID: 1, Username: "admin", Role: model.RoleAdmin, DeskID: 1}
	good, _ := IssueToken("secret1", id, time.Now())
	expired, _ := IssueToken("secret1", id, time.Now().Add(-TokenLifetime-time.Minute))
	noUser, _ := IssueToken("secret1", Identity{Username: "ghost"}, time.Now())

	foreign, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "x",
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("secret1"))

	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:           1,
		RegisteredClaims: jwt.RegisteredClaims{ID: "x", Issuer: Issuer},
	}).SignedString([]byte("secret1"))

	otherAlg, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "x",
			Issuer:    Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("secret1"))

	tests := []struct {
		name   string
		secret string
		token  string
	}{
		{"wrong secret", "secret2", good},
		{"garbage", "secret1", "not-a-token"},
		{"expired", "secret1", expired},
		{"foreign issuer", "secret1", foreign},
		{"no expiry", "secret1", noExpiry},
		{"other algorithm", "secret1", otherAlg},
		{"no user", "secret1", noUser},
	}
	for _, tt := range tests {
		if _, err := ParseToken(tt.secret, tt.token); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}

	if _, err := ParseToken("secret1", expired); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestClaimsExpiryWithoutExpiresAt(t *testing.T) {
	issued := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := &Claims{RegisteredClaims: jwt.RegisteredClaims{IssuedAt: jwt.NewNumericDate(issued)}}
	if got := c.Expiry(); !got.Equal(issued.Add(TokenLifetime)) {
		t.Errorf("expected expiry %v, got %v", issued.Add(TokenLifetime), got)
	}
}

// Package auth issues and parses the session tokens of the API.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is the iss claim of every token.
const Issuer = "znamke"

// TokenLifetime is how long a session token stays valid.
const TokenLifetime = 7 * 24 * time.Hour

// Identity is what a token says about its holder.
type Identity struct {
	UserID   int64
	Username string
	Role     string
	// DeskID is the user's available desk. It names the partition their
	// combination searches are cached under.
	DeskID int64
	// Version is the user's token version when the token was issued. Bumping
	// it in the database invalidates every older token.
	Version int64
}

// Claims are the JWT claims of a session token.
type Claims struct {
	UserID   int64  `json:"uid"`
	Username string `json:"name"`
	Role     string `json:"role"`
	DeskID   int64  `json:"desk,omitempty"`
	Version  int64  `json:"ver"`
	jwt.RegisteredClaims
}

// Identity returns the holder described by the claims.
func (c *Claims) Identity() Identity {
	return Identity{
		UserID:   c.UserID,
		Username: c.Username,
		Role:     c.Role,
		DeskID:   c.DeskID,
		Version:  c.Version,
	}
}

// Expiry returns when the token stops being valid.
func (c *Claims) Expiry() time.Time {
	switch {
	case c.ExpiresAt != nil:
		return c.ExpiresAt.Time
	case c.IssuedAt != nil:
		return c.IssuedAt.Add(TokenLifetime)
	default:
		return time.Now().Add(TokenLifetime)
	}
}

// IssueToken signs a token for id, valid for TokenLifetime from now.
func IssueToken(secret string, id Identity, now time.Time) (string, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", fmt.Errorf("generating JTI: %w", err)
	}

	claims := Claims{
		UserID:   id.UserID,
		Username: id.Username,
		Role:     id.Role,
		DeskID:   id.DeskID,
		Version:  id.Version,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    Issuer,
			Subject:   strconv.FormatInt(id.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenLifetime)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ParseToken checks the signature, issuer and expiry of a token and returns
// its claims. Revocation is checked by the caller against the database.
func ParseToken(secret, tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)

	claims := &Claims{}
	if _, err := parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}); err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	if claims.ID == "" || claims.UserID <= 0 {
		return nil, errors.New("token has no id or user")
	}
	return claims, nil
}

// generateJTI creates a random token ID.
func generateJTI() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

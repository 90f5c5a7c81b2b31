package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry reads the exp claim from a JWT without verifying its
// signature. The client never holds the signing secret; expiry is only a
// hint for logging and UI, the server stays authoritative.
func TokenExpiry(token string) (time.Time, error) {
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return time.Time{}, fmt.Errorf("parsing token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("token has no expiry claim")
	}
	return claims.ExpiresAt.Time, nil
}

// TokenExpired reports whether the token's exp claim is in the past.
// Unparseable tokens count as expired.
func TokenExpired(token string, now time.Time) bool {
	expiry, err := TokenExpiry(token)
	if err != nil {
		return true
	}
	return expiry.Before(now)
}

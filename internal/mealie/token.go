package mealie

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenExpired is returned when the API token is past its expiry.
var ErrTokenExpired = errors.New("mealie token expired")

// TokenExpiry reads the exp claim of a Mealie API token without verifying its
// signature. ok is false for tokens without an expiry.
func TokenExpiry(token string) (exp time.Time, ok bool, err error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false, fmt.Errorf("failed to parse mealie token: %w", err)
	}
	date, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid exp claim: %w", err)
	}
	if date == nil {
		return time.Time{}, false, nil
	}
	return date.Time, true, nil
}

// CheckToken fails with ErrTokenExpired when the token expired before now.
// Tokens that are not JWTs are let through; the server will judge them.
func CheckToken(token string, now time.Time) error {
	exp, ok, err := TokenExpiry(token)
	if err != nil || !ok {
		return nil
	}
	if now.After(exp) {
		return fmt.Errorf("%w at %s", ErrTokenExpired, exp.Format(time.RFC3339))
	}
	return nil
}

// Package auth resolves the bearer token tcide sends to the challenge
// platform and the member identity embedded in it.
//
// Tokens are issued by the platform's login flow. Their signature is not
// verified here; only the handle, user id and expiry claims are read.
package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"git.home.luguber.info/inful/tcide/internal/foundation/errors"
)

// Identity is the member a token was issued to.
type Identity struct {
	Handle    string
	UserID    string
	ExpiresAt time.Time // zero when the token carries no exp claim
}

// Expired reports whether the token is past its expiry at now.
func (id Identity) Expired(now time.Time) bool {
	return !id.ExpiresAt.IsZero() && !now.Before(id.ExpiresAt)
}

var (
	// ErrNotLoggedIn is returned when no token is configured.
	ErrNotLoggedIn = errors.AuthError("not logged in").Build()
	// ErrTokenExpired is returned for a token past its exp claim.
	ErrTokenExpired = errors.AuthError("token expired, log in again").Build()
	// ErrTokenInvalid is returned for tokens that are not decodable JWTs or lack the member claims.
	ErrTokenInvalid = errors.AuthError("token is not a valid platform token").Build()
)

// Decode reads the identity claims of token without verifying its signature.
// Both plain claim names (handle, userId) and namespaced ones
// (https://example.com/handle) are recognized.
func Decode(token string) (Identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(strings.TrimSpace(token), claims); err != nil {
		return Identity{}, ErrTokenInvalid.Wrap(err)
	}

	id := Identity{
		Handle: claimString(claims, "handle"),
		UserID: claimString(claims, "userId"),
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}
	if id.Handle == "" || id.UserID == "" {
		return Identity{}, ErrTokenInvalid.WithContext("reason", "missing handle or userId claim")
	}
	return id, nil
}

func claimString(claims jwt.MapClaims, name string) string {
	if v, ok := claims[name]; ok {
		return stringify(v)
	}
	for k, v := range claims {
		if strings.HasSuffix(k, "/"+name) {
			return stringify(v)
		}
	}
	return ""
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return fmt.Sprintf("%.0f", t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

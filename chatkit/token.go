package chatkit

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token is an auth token bound to a user. Immutable once created.
type Token struct {
	RawValue  string
	UserID    string
	ExpiresAt time.Time
}

// TokenProvider resolves a fresh token, typically by calling the app's own
// backend. It may block; the SDK always invokes it off the caller's goroutine.
type TokenProvider func(ctx context.Context) (Token, error)

// NewToken parses a JWT and extracts the user it is bound to. The signature
// is not verified here; only the server holds the secret. The token must
// carry a user_id claim.
func NewToken(raw string) (Token, error) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return Token{}, WrapError(ErrorInvalidToken, "failed to parse token", err)
	}

	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return Token{}, NewError(ErrorInvalidToken, "token carries no user_id claim")
	}

	token := Token{RawValue: raw, UserID: userID}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		token.ExpiresAt = exp.Time
	}
	return token, nil
}

// DevToken builds an unsigned token for local development against servers
// with auth checks disabled.
func DevToken(userID string) Token {
	t := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": userID})
	raw, err := t.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		// SigningMethodNone cannot fail on a marshalable claims map.
		panic(err)
	}
	return Token{RawValue: raw, UserID: userID}
}

// IsExpired reports whether the token carries an exp claim in the past.
func (t Token) IsExpired() bool {
	return !t.ExpiresAt.IsZero() && t.ExpiresAt.Before(time.Now())
}

// StaticTokenProvider returns a provider that always yields the given token.
// Useful for tests and long-lived server-issued tokens.
func StaticTokenProvider(token Token) TokenProvider {
	return func(context.Context) (Token, error) {
		return token, nil
	}
}

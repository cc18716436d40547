// Package identity verifies bearer credentials issued by the external
// identity provider and yields the verified subject.
package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Arman3747/BloodConnect-Server/apperr"
)

// Identity is a verified subject.
type Identity struct {
	Subject string
	Email   string
}

// Verifier validates a bearer token.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// Claims are the token claims the service relies on.
type Claims struct {
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified,omitempty"`
	jwt.RegisteredClaims
}

// KeySource resolves the verification key for a token.
type KeySource interface {
	Methods() []string
	Key(ctx context.Context, kid string) (any, error)
}

type Options struct {
	Issuer   string
	Audience string
}

// JWTVerifier verifies signed JWTs against a KeySource.
type JWTVerifier struct {
	keys   KeySource
	parser *jwt.Parser
}

func NewJWTVerifier(keys KeySource, opts Options) *JWTVerifier {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods(keys.Methods()),
		jwt.WithExpirationRequired(),
	}
	if opts.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(opts.Issuer))
	}
	if opts.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(opts.Audience))
	}
	return &JWTVerifier{keys: keys, parser: jwt.NewParser(parserOpts...)}
}

func unauthenticated(cause error) error {
	return apperr.Wrap(apperr.CodeUnauthenticated, "unauthorized access", cause)
}

// Verify returns the identity carried by token. Every failure, including a
// cancelled or expired ctx, is reported as UNAUTHENTICATED.
func (v *JWTVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, unauthenticated(errors.New("empty token"))
	}
	if err := ctx.Err(); err != nil {
		return Identity{}, unauthenticated(err)
	}

	claims := &Claims{}
	t, err := v.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		return v.keys.Key(ctx, kid)
	})
	if err != nil {
		return Identity{}, unauthenticated(err)
	}
	if !t.Valid {
		return Identity{}, unauthenticated(errors.New("invalid token"))
	}
	if claims.Email == "" {
		return Identity{}, unauthenticated(errors.New("token carries no email"))
	}
	if claims.EmailVerified != nil && !*claims.EmailVerified {
		return Identity{}, unauthenticated(errors.New("email not verified"))
	}
	return Identity{Subject: claims.Subject, Email: NormalizeEmail(claims.Email)}, nil
}

// NormalizeEmail is the canonical form used for identity comparison and
// directory lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ctxKey scopes the identity stored in a request context.
type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the verified identity, or nil when the request is
// anonymous.
func FromContext(ctx context.Context) *Identity {
	if ctx == nil {
		return nil
	}
	id, ok := ctx.Value(ctxKey{}).(Identity)
	if !ok {
		return nil
	}
	return &id
}

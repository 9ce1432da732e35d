package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
)

type ctxKey string

const (
	ctxUserCredentials ctxKey = "PALMYRA_USER_CREDENTIALS"
)

// Principal types. The type is set at provisioning time and is read-only here.
const (
	PrincipalTypeUser       = "user"
	PrincipalTypeSuperadmin = "superadmin"
)

// UserCredentials is the authenticated principal attached to the request context.
type UserCredentials struct {
	ID            string
	Email         string
	EmailVerified bool
	Name          *string
	PictureURL    *string
	// Type is the coarse principal discriminator ("user" or "superadmin").
	Type string
}

// IsSuperadminType reports whether the principal carries the superadmin type flag.
func (c *UserCredentials) IsSuperadminType() bool {
	return c != nil && c.Type == PrincipalTypeSuperadmin
}

// WithUser attaches credentials to ctx. Used by the JWT middleware, tests and CLI tooling.
func WithUser(ctx context.Context, creds *UserCredentials) context.Context {
	return context.WithValue(ctx, ctxUserCredentials, creds)
}

func UserFromContext(ctx context.Context) (*UserCredentials, bool) {
	v := ctx.Value(ctxUserCredentials)
	if v == nil {
		return nil, false
	}
	u, ok := v.(*UserCredentials)
	return u, ok
}

// VerifyFunc validates the incoming JWT and returns its claims map.
type VerifyFunc func(ctx context.Context, token string) (map[string]interface{}, error)

// ExtractFunc converts a claims map into UserCredentials.
type ExtractFunc func(claims map[string]interface{}) (*UserCredentials, error)

// JWT parses the request and sets the context credentials using the provided verify/extract functions.
// Requests without a bearer token pass through unauthenticated; the guards decide what to do with them.
func JWT(verify VerifyFunc, extract ExtractFunc) func(http.Handler) http.Handler {
	if verify == nil {
		panic("auth.JWT: verify func must not be nil")
	}
	if extract == nil {
		extract = DefaultCredentialExtractor
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token, found := BearerToken(r)
			if !found {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := verify(r.Context(), token)
			if err != nil {
				unauthorized(w, err.Error())
				return
			}

			creds, err := extract(claims)
			if err != nil {
				unauthorized(w, "invalid claims")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), creds)))
		})
	}
}

// DefaultCredentialExtractor converts Firebase-shaped claims into UserCredentials. The
// subject is the first of uid, user_id and sub; the type comes from the userType claim.
func DefaultCredentialExtractor(raw map[string]interface{}) (*UserCredentials, error) {
	if raw == nil {
		return nil, errors.New("missing claims")
	}
	c := claims(raw)

	id := c.first("uid", "user_id", "sub")
	if id == "" {
		return nil, errors.New("missing subject claim")
	}

	return &UserCredentials{
		ID:            id,
		Email:         c.str("email"),
		EmailVerified: c.boolean("email_verified"),
		Name:          c.optional("name"),
		PictureURL:    c.optional("picture"),
		Type:          extractPrincipalType(raw),
	}, nil
}

func extractPrincipalType(raw map[string]interface{}) string {
	if strings.EqualFold(strings.TrimSpace(claims(raw).str("userType")), PrincipalTypeSuperadmin) {
		return PrincipalTypeSuperadmin
	}
	return PrincipalTypeUser
}

// claims reads typed values from a decoded token payload; wrong types read as zero.
type claims map[string]interface{}

func (c claims) str(key string) string {
	v, _ := c[key].(string)
	return v
}

func (c claims) boolean(key string) bool {
	v, _ := c[key].(bool)
	return v
}

func (c claims) optional(key string) *string {
	if v := c.str(key); v != "" {
		return &v
	}
	return nil
}

func (c claims) first(keys ...string) string {
	for _, key := range keys {
		if v := c.str(key); v != "" {
			return v
		}
	}
	return ""
}

func parseUnsignedJWTClaims(token string) (map[string]interface{}, error) {
	parts := strings.Split(token, ".")
	if len(parts) < 2 || len(parts) > 3 {
		return nil, errors.New("invalid token format")
	}

	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	out := make(map[string]interface{})
	if err := json.Unmarshal(decoded, &out); err != nil {
		return nil, fmt.Errorf("unmarshal claims: %w", err)
	}
	return out, nil
}

// FirebaseTokenVerifier returns a VerifyFunc that validates tokens via Firebase Auth.
func FirebaseTokenVerifier(fbAuth *auth.Client) VerifyFunc {
	return func(ctx context.Context, token string) (map[string]interface{}, error) {
		t, err := fbAuth.VerifyIDToken(ctx, token)
		if err != nil {
			return nil, err
		}

		claims := make(map[string]interface{}, len(t.Claims)+2)
		for k, v := range t.Claims {
			claims[k] = v
		}
		claims["uid"] = t.UID
		claims["sub"] = t.Subject

		return claims, nil
	}
}

// UnsignedTokenVerifier returns a VerifyFunc that decodes unsigned JWT payloads without
// signature validation. Only the exp claim is enforced. For AUTH_PROVIDER=dev only.
func UnsignedTokenVerifier() VerifyFunc {
	return func(ctx context.Context, token string) (map[string]interface{}, error) {
		claims, err := parseUnsignedJWTClaims(token)
		if err != nil {
			return nil, err
		}
		if err := checkExpiry(claims, time.Now()); err != nil {
			return nil, err
		}
		return claims, nil
	}
}

package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/zenGate-Global/palmyra-tenancy/platform/go/problems"
)

// ErrTokenExpired is returned by verifiers for tokens past their exp claim.
var ErrTokenExpired = errors.New("token expired")

const bearerScheme = "bearer"

// BearerToken returns the token of an "Authorization: Bearer <token>" header. The scheme
// is matched case-insensitively; an empty token counts as absent.
func BearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, bearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// checkExpiry rejects claims whose numeric exp lies before now. Tokens without exp pass.
func checkExpiry(claims map[string]interface{}, now time.Time) error {
	raw, ok := claims["exp"]
	if !ok {
		return nil
	}
	exp, ok := raw.(float64)
	if !ok {
		return fmt.Errorf("exp claim has type %T", raw)
	}
	if now.After(time.Unix(int64(exp), 0)) {
		return ErrTokenExpired
	}
	return nil
}

// unauthorized writes the 401 problem for a presented but unusable token.
func unauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Bearer realm="api", error="invalid_token", error_description=%q`, description))
	problems.Write(w, problems.New("Unauthorized", "invalid bearer token", problems.TypeUnauthorized, http.StatusUnauthorized, nil))
}

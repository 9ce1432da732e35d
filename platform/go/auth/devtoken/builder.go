// Package devtoken mints unsigned, Firebase-shaped ID tokens for AUTH_PROVIDER=dev.
package devtoken

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	platformauth "github.com/zenGate-Global/palmyra-tenancy/platform/go/auth"
)

const defaultLifetime = time.Hour

// Params are the claims of a dev token. Tenancy is not a claim: the tenant comes from
// the request host.
type Params struct {
	ProjectID              string        // used for aud and iss
	UserID                 string        // user_id, sub
	Email                  string
	Name                   string
	EmailVerified          bool
	UserType               string        // "user" (default) or "superadmin"
	FirebaseSignInProvider string        // default "password"
	ExpiresIn              time.Duration // default 1h
	Audience               string        // default ProjectID
	Issuer                 string        // default https://securetoken.google.com/<ProjectID>
}

// Claims validates p and returns the token payload issued at now.
func Claims(p Params, now time.Time) (map[string]interface{}, error) {
	var missing []string
	if strings.TrimSpace(p.ProjectID) == "" {
		missing = append(missing, "projectID")
	}
	if strings.TrimSpace(p.UserID) == "" {
		missing = append(missing, "userID")
	}
	if strings.TrimSpace(p.Email) == "" {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required params: %s", strings.Join(missing, ", "))
	}
	if p.ExpiresIn < 0 {
		return nil, errors.New("expiresIn must not be negative")
	}

	userType, err := principalType(p.UserType)
	if err != nil {
		return nil, err
	}

	if now.IsZero() {
		now = time.Now().UTC()
	}

	return map[string]interface{}{
		"iss":            orDefault(p.Issuer, "https://securetoken.google.com/"+p.ProjectID),
		"aud":            orDefault(p.Audience, p.ProjectID),
		"auth_time":      now.Unix(),
		"user_id":        p.UserID,
		"sub":            p.UserID,
		"iat":            now.Unix(),
		"exp":            now.Add(lifetime(p.ExpiresIn)).Unix(),
		"email":          p.Email,
		"email_verified": p.EmailVerified,
		"name":           p.Name,
		"userType":       userType,
		"firebase": map[string]interface{}{
			"identities":       map[string]interface{}{"email": []string{p.Email}},
			"sign_in_provider": orDefault(p.FirebaseSignInProvider, "password"),
		},
	}, nil
}

// BuildUnsignedFirebaseToken returns "<header>.<payload>" with alg "none". The payload
// follows the Firebase ID token shape so it flows through auth.UnsignedTokenVerifier.
func BuildUnsignedFirebaseToken(p Params, now time.Time) (string, error) {
	claims, err := Claims(p, now)
	if err != nil {
		return "", err
	}

	header, err := encodeSegment(map[string]interface{}{"alg": "none", "typ": "JWT"})
	if err != nil {
		return "", err
	}
	payload, err := encodeSegment(claims)
	if err != nil {
		return "", err
	}
	return header + "." + payload, nil
}

func principalType(raw string) (string, error) {
	switch t := strings.ToLower(strings.TrimSpace(raw)); t {
	case "":
		return platformauth.PrincipalTypeUser, nil
	case platformauth.PrincipalTypeUser, platformauth.PrincipalTypeSuperadmin:
		return t, nil
	default:
		return "", fmt.Errorf("unsupported user type %q", raw)
	}
}

func lifetime(d time.Duration) time.Duration {
	if d == 0 {
		return defaultLifetime
	}
	return d
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func encodeSegment(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	platformauth "github.com/zenGate-Global/palmyra-tenancy/platform/go/auth"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/gcp"
)

// AUTH_PROVIDER values.
const (
	authProviderFirebase = "firebase"
	authProviderDev      = "dev"
)

// buildAuthMiddleware returns the bearer token middleware for provider. Tokens carry the
// principal and its type only; the tenant comes from the request host.
func buildAuthMiddleware(ctx context.Context, provider string, logger *zap.Logger) (func(http.Handler) http.Handler, error) {
	verify, err := tokenVerifier(ctx, provider, logger)
	if err != nil {
		return nil, err
	}
	return platformauth.JWT(verify, platformauth.DefaultCredentialExtractor), nil
}

func tokenVerifier(ctx context.Context, provider string, logger *zap.Logger) (platformauth.VerifyFunc, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case authProviderFirebase:
		_, fbAuth, err := gcp.InitFirebaseAuth(ctx)
		if err != nil {
			return nil, fmt.Errorf("init firebase auth: %w", err)
		}
		return platformauth.FirebaseTokenVerifier(fbAuth), nil
	case authProviderDev:
		logger.Warn("AUTH_PROVIDER=dev accepts unsigned tokens; never enable it in production")
		return platformauth.UnsignedTokenVerifier(), nil
	default:
		return nil, fmt.Errorf("unsupported auth provider %q (use %s or %s)", provider, authProviderFirebase, authProviderDev)
	}
}

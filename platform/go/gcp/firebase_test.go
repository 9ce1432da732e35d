package gcp

import (
	"testing"

	"github.com/stretchr/testify/require"

	platformauth "github.com/zenGate-Global/palmyra-tenancy/platform/go/auth"
)

func TestWithPrincipalType(t *testing.T) {
	existing := map[string]interface{}{"plan": "pro"}

	claims, err := withPrincipalType(existing, platformauth.PrincipalTypeSuperadmin)
	require.NoError(t, err)
	require.Equal(t, map[string]interface{}{"plan": "pro", "userType": "superadmin"}, claims)
	require.NotContains(t, existing, "userType")

	claims, err = withPrincipalType(claims, platformauth.PrincipalTypeUser)
	require.NoError(t, err)
	require.Equal(t, map[string]interface{}{"plan": "pro"}, claims)

	_, err = withPrincipalType(nil, "admin")
	require.Error(t, err)
}

func TestExtractorReadsStoredClaim(t *testing.T) {
	claims, err := withPrincipalType(nil, platformauth.PrincipalTypeSuperadmin)
	require.NoError(t, err)
	claims["uid"] = "u1"

	creds, err := platformauth.DefaultCredentialExtractor(claims)
	require.NoError(t, err)
	require.True(t, creds.IsSuperadminType())
}

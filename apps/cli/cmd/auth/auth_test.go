package auth

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDevTokenCommandEmitsUnsignedToken(t *testing.T) {
	cmd := Command()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{
		"devtoken",
		"--project-id", "palmyra-dev",
		"--user-id", "user-1",
		"--email", "user@example.com",
		"--user-type", "superadmin",
	})

	require.NoError(t, cmd.Execute())

	parts := strings.Split(strings.TrimSpace(out.String()), ".")
	require.Len(t, parts, 2)

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	var claims map[string]any
	require.NoError(t, json.Unmarshal(payload, &claims))
	require.Equal(t, "user-1", claims["user_id"])
	require.Equal(t, "superadmin", claims["userType"])
	require.Equal(t, "palmyra-dev", claims["aud"])
}

func TestDevTokenCommandRequiresFlags(t *testing.T) {
	cmd := Command()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"devtoken", "--project-id", "palmyra-dev"})

	require.Error(t, cmd.Execute())
}

func TestValidatePrincipalType(t *testing.T) {
	require.NoError(t, validatePrincipalType("user"))
	require.NoError(t, validatePrincipalType("superadmin"))
	require.Error(t, validatePrincipalType("admin"))
}

func TestDevTokenCommandHeaderOutput(t *testing.T) {
	cmd := Command()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"devtoken", "--project-id", "p", "--user-id", "u", "--email", "u@example.com", "--header"})

	require.NoError(t, cmd.Execute())
	require.True(t, strings.HasPrefix(out.String(), "Authorization: Bearer "))
}

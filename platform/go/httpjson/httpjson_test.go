package httpjson

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type payload struct {
	Slug string `json:"slug"`
}

func TestDecode(t *testing.T) {
	var p payload
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"slug":"acme"}`))
	require.NoError(t, Decode(req, &p))
	require.Equal(t, "acme", p.Slug)

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	require.ErrorIs(t, Decode(req, &p), ErrEmptyBody)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"slug":"acme","extra":1}`))
	require.Error(t, Decode(req, &p))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"slug":"a"} {"slug":"b"}`))
	require.Error(t, Decode(req, &p))
}

func TestWrite(t *testing.T) {
	resp := httptest.NewRecorder()
	Write(resp, http.StatusCreated, payload{Slug: "acme"})
	require.Equal(t, http.StatusCreated, resp.Code)
	require.Equal(t, "application/json", resp.Header().Get("Content-Type"))
	require.JSONEq(t, `{"slug":"acme"}`, resp.Body.String())
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    string
	}{
		{name: "default allows any", allowed: nil, origin: "https://x.test", want: "*"},
		{name: "exact match", allowed: []string{"https://admin.palmyra.pro"}, origin: "https://admin.palmyra.pro", want: "https://admin.palmyra.pro"},
		{name: "suffix match", allowed: []string{".palmyra.pro"}, origin: "https://acme.palmyra.pro", want: "https://acme.palmyra.pro"},
		{name: "rejected origin", allowed: []string{".palmyra.pro"}, origin: "https://evil.test", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Origin", tt.origin)
			resp := httptest.NewRecorder()
			CORS(tt.allowed)(next).ServeHTTP(resp, req)
			require.Equal(t, http.StatusOK, resp.Code)
			require.Equal(t, tt.want, resp.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	resp := httptest.NewRecorder()
	DefaultCORS()(next).ServeHTTP(resp, httptest.NewRequest(http.MethodOptions, "/api/v1/tenant/media", nil))
	require.Equal(t, http.StatusNoContent, resp.Code)
	require.False(t, called)
}

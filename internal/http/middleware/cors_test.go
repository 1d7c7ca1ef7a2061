package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		allowed     []string
		origin      string
		method      string
		preflight   bool
		wantOrigin  string
		wantStatus  int
		wantHandler bool
	}{
		{name: "listed origin", allowed: []string{"https://clinica.es"}, origin: "https://clinica.es", method: http.MethodPost, wantOrigin: "https://clinica.es", wantStatus: http.StatusOK, wantHandler: true},
		{name: "trailing slash in config", allowed: []string{"https://clinica.es/"}, origin: "https://clinica.es", method: http.MethodGet, wantOrigin: "https://clinica.es", wantStatus: http.StatusOK, wantHandler: true},
		{name: "unknown origin", allowed: []string{"https://clinica.es"}, origin: "https://otra.example", method: http.MethodGet, wantStatus: http.StatusOK, wantHandler: true},
		{name: "wildcard", allowed: []string{"*"}, origin: "https://random.example", method: http.MethodGet, wantOrigin: "https://random.example", wantStatus: http.StatusOK, wantHandler: true},
		{name: "preflight", allowed: []string{"https://clinica.es"}, origin: "https://clinica.es", method: http.MethodOptions, preflight: true, wantOrigin: "https://clinica.es", wantStatus: http.StatusNoContent},
		{name: "options without preflight header", allowed: []string{"*"}, origin: "https://clinica.es", method: http.MethodOptions, wantOrigin: "https://clinica.es", wantStatus: http.StatusOK, wantHandler: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(tt.method, "/chat", nil)
			req.Header.Set("Origin", tt.origin)
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", "POST")
			}
			rec := httptest.NewRecorder()
			CORS(tt.allowed)(handler).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantHandler, called)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			if tt.wantOrigin != "" {
				assert.Equal(t, corsAllowedMethods, rec.Header().Get("Access-Control-Allow-Methods"))
			}
		})
	}
}

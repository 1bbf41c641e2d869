package monitor

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name   string
		origin string
		host   string
		want   bool
	}{
		{"no origin header", "", "example.com", true},
		{"localhost", "http://localhost:3000", "example.com", true},
		{"loopback v4", "http://127.0.0.1", "example.com", true},
		{"loopback v6", "http://[::1]:8080", "example.com", true},
		{"same origin", "http://example.com", "example.com:8090", true},
		{"private network", "http://192.168.1.50:8090", "example.com", true},
		{"public origin rejected", "http://evil.example.net", "example.com", false},
		{"malformed origin rejected", "http://%zz", "example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws/levels", nil)
			r.Host = tt.host
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, checkOrigin(r))
		})
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := NewServer(0, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	srv.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

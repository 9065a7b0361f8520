// If you are AI: This file tests the health endpoints.

package health

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestHealthEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ready := false
	r := gin.New()
	New(func() bool { return ready }).RegisterRoutes(r)

	tests := []struct {
		name  string
		path  string
		ready bool
		code  int
	}{
		{"liveness", "/healthz", false, http.StatusOK},
		{"not ready", "/readyz", false, http.StatusServiceUnavailable},
		{"ready", "/readyz", true, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ready = tt.ready
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if w.Code != tt.code {
				t.Errorf("status %d, want %d", w.Code, tt.code)
			}
		})
	}
}

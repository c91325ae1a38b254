package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestCORSOrigins(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		configured []string
		origin     string
		allowed    bool
	}{
		{name: "default dev origin", origin: "http://localhost:5173", allowed: true},
		{name: "configured origin", configured: []string{"https://curation.example.org"}, origin: "https://curation.example.org", allowed: true},
		{name: "unlisted origin", configured: []string{"https://curation.example.org"}, origin: "http://localhost:5173"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := gin.New()
			r.Use(CORS(tt.configured))
			r.OPTIONS("/api/concepts", func(c *gin.Context) {
				c.Status(http.StatusNoContent)
			})

			req := httptest.NewRequest(http.MethodOptions, "/api/concepts", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			got := rec.Header().Get("Access-Control-Allow-Origin")
			if tt.allowed && got != tt.origin {
				t.Fatalf("unexpected allow-origin header: got=%q want=%q", got, tt.origin)
			}
			if !tt.allowed && got != "" {
				t.Fatalf("origin %q should be rejected, got allow-origin %q", tt.origin, got)
			}
		})
	}
}

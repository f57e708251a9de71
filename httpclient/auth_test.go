package httpclient

import (
	"net/http"
	"testing"
)

func TestAuthApply(t *testing.T) {
	tests := []struct {
		name   string
		auth   *AuthConfig
		header string
		want   string
	}{
		{"bearer", BearerAuth("my-token"), "Authorization", "Bearer my-token"},
		{"basic", BasicAuth("user", "pass"), "Authorization", "Basic dXNlcjpwYXNz"},
		{"api key default header", APIKeyAuth("secret", ""), "X-API-Key", "secret"},
		{"api key custom header", APIKeyAuth("secret", "X-Stream-Key"), "X-Stream-Key", "secret"},
		{"custom", CustomAuth(func(r *http.Request) { r.Header.Set("X-Custom", "value") }), "X-Custom", "value"},
		{"none", &AuthConfig{Type: AuthNone}, "Authorization", ""},
		{"nil", nil, "Authorization", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
			tc.auth.apply(req)
			if got := req.Header.Get(tc.header); got != tc.want {
				t.Errorf("%s = %q, want %q", tc.header, got, tc.want)
			}
		})
	}
}

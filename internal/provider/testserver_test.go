package provider

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// newTestServer fronts handler with the checks every provider request must
// pass: a JSON POST. Replies are labelled as JSON.
func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
			t.Errorf("content type = %q, want application/json", ct)
		}
		w.Header().Set("Content-Type", "application/json")
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)
	return server
}

package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	mw "github.com/edvin/vpn/internal/api/middleware"
)

func authedRequest(t *testing.T, method, path, body string) *http.Request {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	identity := &mw.Identity{IdentityID: 5, AccountID: 42, DeviceID: 9}
	return req.WithContext(mw.WithIdentity(req.Context(), identity))
}

package exchange

import (
	"net/http"
	"time"
)

// BasicAuthTransport adds HTTP Basic credentials to every request.
// Requests go out unauthenticated when either credential is empty.
type BasicAuthTransport struct {
	Username string
	Password string
	Base     http.RoundTripper // nil uses http.DefaultTransport
}

// RoundTrip implements http.RoundTripper
func (t *BasicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	if t.Username == "" || t.Password == "" {
		return base.RoundTrip(req)
	}

	// RoundTrippers must not modify the caller's request
	authed := req.Clone(req.Context())
	authed.SetBasicAuth(t.Username, t.Password)
	return base.RoundTrip(authed)
}

// NewAuthClient returns an HTTP client that authenticates with the given credentials
func NewAuthClient(username, password string, timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: &BasicAuthTransport{Username: username, Password: password},
	}
}

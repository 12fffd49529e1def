package httpapi

import (
	"net/http"
	"strings"

	"github.com/evidencevault/vault/internal/apperr"
	"github.com/evidencevault/vault/internal/server/auth"
)

// Authenticator adapts the auth package's verifiers to HTTP requests,
// per spec.md §4.4's two server-facing credential schemes.
type Authenticator struct {
	hmac   *auth.HMACVerifier
	bearer *auth.BearerVerifier
}

func NewAuthenticator(hmac *auth.HMACVerifier, bearer *auth.BearerVerifier) *Authenticator {
	return &Authenticator{hmac: hmac, bearer: bearer}
}

// RequireHMAC verifies the x-app-key/x-app-sig header pair against body,
// the exact bytes of the request as received.
func (a *Authenticator) RequireHMAC(r *http.Request, body []byte) (auth.AuthContext, error) {
	appKey := r.Header.Get("x-app-key")
	sig := r.Header.Get("x-app-sig")
	if appKey == "" || sig == "" {
		return auth.AuthContext{}, apperr.New(apperr.KindAuthentication, "missing x-app-key/x-app-sig headers")
	}
	return a.hmac.Verify(appKey, sig, body)
}

// RequireAny accepts either HMAC headers or a Bearer token, trying HMAC
// first when both are plausible (spec.md §4.4 evaluates modes in order
// per endpoint policy).
func (a *Authenticator) RequireAny(r *http.Request, body []byte) (auth.AuthContext, error) {
	if r.Header.Get("x-app-key") != "" {
		return a.RequireHMAC(r, body)
	}
	if bearer := bearerToken(r); bearer != "" {
		return a.bearer.Verify(bearer)
	}
	return auth.AuthContext{}, apperr.New(apperr.KindAuthentication, "no credentials presented")
}

// RequireAdmin additionally enforces appKey == "registry" on top of
// RequireHMAC, as every admin endpoint requires (spec.md §4.10).
func (a *Authenticator) RequireAdmin(r *http.Request, body []byte) (auth.AuthContext, error) {
	ctx, err := a.RequireHMAC(r, body)
	if err != nil {
		return auth.AuthContext{}, err
	}
	if !ctx.IsAdmin() {
		return auth.AuthContext{}, apperr.New(apperr.KindAuthorization, "admin endpoints require the registry application")
	}
	return ctx, nil
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if strings.HasPrefix(h, prefix) {
		return strings.TrimPrefix(h, prefix)
	}
	return ""
}

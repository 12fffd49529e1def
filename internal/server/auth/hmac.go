package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/evidencevault/vault/internal/apperr"
)

// HMACVerifier holds the out-of-band configured key→secret map and
// verifies the x-app-key / x-app-sig header pair.
type HMACVerifier struct {
	secrets map[string]string
}

func NewHMACVerifier(secrets map[string]string) *HMACVerifier {
	return &HMACVerifier{secrets: secrets}
}

// Verify checks that sigHex equals hex(HMAC-SHA256(secret, body)) for the
// secret registered under appKey. Unknown appKey and a bad signature both
// fail identically with apperr.KindAuthentication — no observable
// difference in behavior should let a caller distinguish "unknown app"
// from "wrong signature" (spec.md §4.4, §7).
func (v *HMACVerifier) Verify(appKey, sigHex string, body []byte) (AuthContext, error) {
	secret, known := v.secrets[appKey]
	if !known {
		// Use a fixed placeholder secret so the HMAC computation below
		// still runs — constant-time behavior regardless of appKey.
		secret = "unknown-app-placeholder-secret"
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	match := len(expected) == len(sigHex) &&
		subtle.ConstantTimeCompare([]byte(expected), []byte(sigHex)) == 1

	if !known || !match {
		return AuthContext{}, apperr.New(apperr.KindAuthentication, "invalid application credentials")
	}

	return AuthContext{AppKey: appKey}, nil
}

// Package auth implements the three credential schemes the vault server
// accepts: server-to-server HMAC, user bearer JWTs, and the short-lived
// upload token minted at init and redeemed at complete.
package auth

// AuthContext is the coarse identity the authenticator hands back to a
// controller. Authorization beyond "is this registry" stays outside the
// authenticator's concern — it is per calling application.
type AuthContext struct {
	AppKey string
	OrgID  string
	UserID string
}

// registryAppKey is the only app key permitted to call admin endpoints.
const registryAppKey = "registry"

// IsAdmin reports whether the authenticated caller may use admin routes.
func (a AuthContext) IsAdmin() bool {
	return a.AppKey == registryAppKey
}

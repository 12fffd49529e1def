package auth

import (
	"time"

	"github.com/evidencevault/vault/internal/apperr"
	"github.com/golang-jwt/jwt/v5"
)

// BearerClaims are the claims carried by a user-facing bearer token. The
// audience claim is checked against the configured value so tokens minted
// for another service cannot be replayed here.
type BearerClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
	OrgID  string `json:"orgId"`
}

// BearerVerifier verifies Authorization: Bearer <jwt> against a
// process-wide secret and audience.
type BearerVerifier struct {
	secret   []byte
	audience string
}

func NewBearerVerifier(secret, audience string) *BearerVerifier {
	return &BearerVerifier{secret: []byte(secret), audience: audience}
}

func (v *BearerVerifier) Verify(tokenString string) (AuthContext, error) {
	claims := &BearerClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithAudience(v.audience), jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return AuthContext{}, apperr.Wrap(apperr.KindAuthentication, err, "invalid bearer token")
	}

	return AuthContext{UserID: claims.UserID, OrgID: claims.OrgID}, nil
}

// uploadTokenClaims backs the ephemeral upload token handed to a caller
// at init and redeemed at complete. Per spec.md §9's design note, this
// MUST be signed with a stable process-wide secret — the source this
// service is modeled on generated a fresh random secret per token and
// never stored it, which makes the token only introspectable, never
// actually verifiable. That bug is not replicated here.
type uploadTokenClaims struct {
	jwt.RegisteredClaims
	UploadID string `json:"uploadId"`
	Type     string `json:"type"`
}

// UploadTokenIssuer mints and verifies the upload token bound to a
// session's uploadId.
type UploadTokenIssuer struct {
	secret []byte
}

func NewUploadTokenIssuer(secret string) *UploadTokenIssuer {
	return &UploadTokenIssuer{secret: []byte(secret)}
}

func (i *UploadTokenIssuer) Issue(uploadID string, ttl time.Duration) (string, error) {
	claims := uploadTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
		UploadID: uploadID,
		Type:     "upload",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Verify checks tokenString was issued for uploadID and has not expired.
func (i *UploadTokenIssuer) Verify(tokenString, uploadID string) error {
	claims := &uploadTokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return apperr.Wrap(apperr.KindAuthentication, err, "invalid upload token")
	}
	if claims.Type != "upload" || claims.UploadID != uploadID {
		return apperr.New(apperr.KindAuthentication, "upload token does not match session")
	}
	return nil
}

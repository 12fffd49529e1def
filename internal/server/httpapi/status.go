package httpapi

import (
	"net/http"

	"github.com/evidencevault/vault/internal/apperr"
)

// StatusFor maps an apperr.Kind to its HTTP status code, per spec.md §6.
// This is the only place in the codebase that mapping exists.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindAuthentication:
		return http.StatusUnauthorized
	case apperr.KindAuthorization:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict, apperr.KindHashMismatch:
		return http.StatusConflict
	case apperr.KindSessionExpired:
		return http.StatusGone
	case apperr.KindFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case apperr.KindUnsupportedMime:
		return http.StatusUnsupportedMediaType
	case apperr.KindStorage, apperr.KindIPFS, apperr.KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

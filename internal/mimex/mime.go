// Package mimex enforces the fixed MIME allow-list accepted by the vault
// and offers a best-effort extension-to-MIME guess for callers that omit
// a declared content type.
package mimex

import (
	"path/filepath"
	"strings"

	"github.com/evidencevault/vault/internal/apperr"
)

var allowed = map[string]bool{
	"application/pdf":              true,
	"image/png":                    true,
	"image/jpeg":                   true,
	"text/csv":                     true,
	"application/json":             true,
	"application/zip":              true,
	"application/x-zip-compressed": true,
	"text/plain":                   true,
	"application/octet-stream":     true,
}

var byExtension = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".csv":  "text/csv",
	".json": "application/json",
	".zip":  "application/zip",
	".txt":  "text/plain",
}

// Validate fails with apperr.KindUnsupportedMime when mime is not on the
// allow-list. Comparison is case-insensitive.
func Validate(mime string) error {
	if !allowed[strings.ToLower(mime)] {
		return apperr.Newf(apperr.KindUnsupportedMime, "mime type %q is not allowed", mime).
			WithDetails(map[string]any{"mime": mime})
	}
	return nil
}

// GuessFromFilename returns a best-effort MIME type from name's trailing
// extension, or "" when no mapping is known.
func GuessFromFilename(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	return byExtension[ext]
}

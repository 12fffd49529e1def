// Package keyx derives deterministic object-store keys from a content
// digest and sanitizes caller-supplied filenames before they are ever
// persisted or used as part of a storage path.
package keyx

import "strings"

var forbidden = map[rune]bool{
	'<': true, '>': true, ':': true, '"': true,
	'/': true, '\\': true, '|': true, '?': true, '*': true,
}

// Sanitize produces a deterministic, idempotent display name: forbidden
// path/shell-hostile characters become "_", ".." sequences become "_",
// leading dots are stripped, and surrounding whitespace is trimmed.
func Sanitize(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimLeft(name, ".")
	name = strings.ReplaceAll(name, "..", "_")

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if forbidden[r] {
			b.WriteRune('_')
		} else {
			b.WriteRune(r)
		}
	}
	sanitized := strings.TrimSpace(b.String())
	if sanitized == "" {
		sanitized = "file"
	}
	return sanitized
}

// BucketKey derives the canonical object-store path for a digest and
// filename: sha256/<d[0:2]>/<d[2:4]>/<d>/<sanitized-filename>. Digest is
// assumed already normalized and validated by the caller.
func BucketKey(digest, filename string) string {
	return "sha256/" + digest[0:2] + "/" + digest[2:4] + "/" + digest + "/" + Sanitize(filename)
}

package errors

import (
	"strings"
	"unicode"
)

// maxIdentityLen matches the npm username limit, which is the looser of the
// two providers (GitHub logins stop at 39 characters).
const maxIdentityLen = 214

// ValidateIdentity validates a provider identity (GitHub login or npm
// maintainer) before it is interpolated into a request path or query.
//
// The rules are conservative:
//   - No empty names
//   - Maximum length of 214 characters
//   - No whitespace or control characters
//   - No URL structure characters (/ ? # % &) or path traversal (..)
func ValidateIdentity(kind, name string) error {
	if name == "" {
		return New(ErrCodeInvalidIdentity, "%s cannot be empty", kind)
	}
	if len(name) > maxIdentityLen {
		return New(ErrCodeInvalidIdentity, "%s too long (max %d characters)", kind, maxIdentityLen)
	}
	for _, r := range name {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidIdentity, "%s contains whitespace or control characters", kind)
		}
	}
	if strings.ContainsAny(name, "/?#%&\\") {
		return New(ErrCodeInvalidIdentity, "%s contains invalid characters: %q", kind, name)
	}
	if strings.Contains(name, "..") {
		return New(ErrCodeInvalidIdentity, "%s contains invalid sequence %q", kind, "..")
	}
	return nil
}

// ValidateLimit checks a page-size limit against an inclusive upper bound.
func ValidateLimit(limit, maxLimit int) error {
	if limit < 1 || limit > maxLimit {
		return New(ErrCodeInvalidInput, "limit must be between 1 and %d, got %d", maxLimit, limit)
	}
	return nil
}

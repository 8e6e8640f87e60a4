// Package validate holds the input validation and sanitization policies
// applied to everything that crosses a trust boundary: scraped URLs,
// recipient addresses, filenames, config payloads, and outbound HTML.
package validate

import (
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
)

const (
	maxURLLength      = 2048
	maxEmailLength    = 254
	maxFilenameLength = 255
)

// Error marks a value that failed validation. Per-item failures carrying
// this type are always recoverable: reject the item, keep the run going.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func errf(field, format string, args ...any) error {
	return &Error{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// URL checks that candidate is a well-formed absolute HTTPS URL without
// embedded credentials and not pointing at loopback or link-local space.
// Pure: no DNS resolution is attempted, only literal hosts are checked.
func URL(candidate string) (string, error) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return "", errf("url", "empty")
	}
	if len(candidate) > maxURLLength {
		return "", errf("url", "exceeds %d characters", maxURLLength)
	}

	u, err := url.Parse(candidate)
	if err != nil {
		return "", errf("url", "unparseable: %v", err)
	}
	if u.Scheme != "https" {
		return "", errf("url", "scheme %q not allowed, only https", u.Scheme)
	}
	if u.User != nil {
		return "", errf("url", "credentials in host are not allowed")
	}

	host := u.Hostname()
	if host == "" {
		return "", errf("url", "missing host")
	}
	if isPrivateHost(host) {
		return "", errf("url", "host %q is loopback or link-local", host)
	}

	return candidate, nil
}

func isPrivateHost(host string) bool {
	lower := strings.ToLower(host)
	if lower == "localhost" || strings.HasSuffix(lower, ".localhost") {
		return true
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified()
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Email validates candidate against an RFC-5322-lite pattern. The result
// is trimmed and lowercased.
func Email(candidate string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(candidate))
	if email == "" {
		return "", errf("email", "empty")
	}
	if len(email) > maxEmailLength {
		return "", errf("email", "exceeds %d characters", maxEmailLength)
	}
	for _, r := range email {
		if r < 0x20 || r == 0x7f {
			return "", errf("email", "contains control characters")
		}
	}
	if !emailPattern.MatchString(email) {
		return "", errf("email", "does not match address pattern")
	}
	return email, nil
}

var filenamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// Filename validates candidate for safe file operations: no traversal, no
// absolute paths, safe character set, extension in the allowed set.
func Filename(candidate string, allowedExts []string) (string, error) {
	name := strings.TrimSpace(candidate)
	if name == "" {
		return "", errf("filename", "empty")
	}
	if len(name) > maxFilenameLength {
		return "", errf("filename", "exceeds %d characters", maxFilenameLength)
	}
	if strings.Contains(name, "..") {
		return "", errf("filename", "path traversal detected")
	}
	if strings.HasPrefix(name, "/") || strings.HasPrefix(name, "\\") || strings.Contains(name, ":") {
		return "", errf("filename", "absolute path prefix not allowed")
	}
	if strings.ContainsAny(name, "/\\") {
		return "", errf("filename", "path separators not allowed")
	}
	if !filenamePattern.MatchString(name) {
		return "", errf("filename", "characters outside [A-Za-z0-9_.-]")
	}

	dot := strings.LastIndex(name, ".")
	if dot <= 0 {
		return "", errf("filename", "missing extension")
	}
	ext := strings.ToLower(name[dot:])
	for _, allowed := range allowedExts {
		if ext == strings.ToLower(allowed) {
			return name, nil
		}
	}
	return "", errf("filename", "extension %s not in allowed set", ext)
}

var (
	scriptBlockPattern = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	styleBlockPattern  = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style\s*>`)
)

// SanitizeHTML escapes markup-significant characters and removes
// script/style element content entirely. Idempotent: entities produced by
// a previous pass are left alone, so applying twice equals applying once.
func SanitizeHTML(raw string) string {
	cleaned := scriptBlockPattern.ReplaceAllString(raw, "")
	cleaned = styleBlockPattern.ReplaceAllString(cleaned, "")

	var b strings.Builder
	b.Grow(len(cleaned))
	for i := 0; i < len(cleaned); i++ {
		switch c := cleaned[i]; c {
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&#34;")
		case '\'':
			b.WriteString("&#39;")
		case '&':
			if entityAt(cleaned[i:]) {
				b.WriteByte(c)
			} else {
				b.WriteString("&amp;")
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// entityAt reports whether s starts with an entity this sanitizer emits.
func entityAt(s string) bool {
	for _, entity := range []string{"&amp;", "&lt;", "&gt;", "&#34;", "&#39;"} {
		if strings.HasPrefix(s, entity) {
			return true
		}
	}
	return false
}

// JSON parses raw into a generic object after enforcing a size ceiling.
// The size check runs before parsing so oversized payloads are rejected
// without being decoded.
func JSON(raw []byte, maxBytes int) (map[string]any, error) {
	if len(raw) > maxBytes {
		return nil, errf("json", "payload %d bytes exceeds limit %d", len(raw), maxBytes)
	}
	var parsed map[string]any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, errf("json", "parse error: %v", err)
	}
	return parsed, nil
}

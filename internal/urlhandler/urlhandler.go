package urlhandler

import (
	"net/url"
	"regexp"
	"strings"
)

const maxPathComponentLength = 100

// Regex for cleaning filenames
var (
	unsafeFilenameCharsRegex = regexp.MustCompile(`[^a-zA-Z0-9_.-]+`)
	multipleUnderscoresRegex = regexp.MustCompile(`_+`)
)

// SanitizeFilename creates a safe filename string from a URL or any input string.
// It removes the protocol, replaces unsafe characters with underscores, and cleans up underscores.
func SanitizeFilename(input string) string {
	name := input
	if i := strings.Index(name, "://"); i != -1 {
		name = name[i+3:]
	}

	name = unsafeFilenameCharsRegex.ReplaceAllString(name, "_")
	name = multipleUnderscoresRegex.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")

	if name == "" {
		return "sanitized_empty_input"
	}

	return name
}

// SanitizeHostnamePort creates a directory-safe name from hostname:port.
// IPv6 brackets are dropped and every colon becomes an underscore.
func SanitizeHostnamePort(hostnamePort string) string {
	hostnamePort = strings.NewReplacer("[", "", "]", "").Replace(hostnamePort)
	return strings.ReplaceAll(hostnamePort, ":", "_")
}

// SanitizePathComponent turns a URL path (optionally with query) into a filename stem.
// The root path becomes "index"; the result is capped at 100 characters.
func SanitizePathComponent(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if unescaped, err := url.PathUnescape(path); err == nil {
		path = unescaped
	}

	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return "index"
	}

	name := SanitizeFilename(strings.ReplaceAll(trimmed, "/", "_"))
	if len(name) > maxPathComponentLength {
		name = name[:maxPathComponentLength]
	}
	return name
}

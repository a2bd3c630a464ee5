package commandmeta

import "strings"

// EmitsExecutionStatusPath reports whether the command at path prints an
// OK/ERROR status line on stderr.
func EmitsExecutionStatusPath(path string) bool {
	switch strings.TrimSpace(path) {
	case "hypersync sync":
		return true
	default:
		return false
	}
}

// RequiresSessionPath reports whether the command at path talks to the API.
func RequiresSessionPath(path string) bool {
	normalized := strings.TrimSpace(path)
	switch {
	case normalized == "hypersync sync":
		return true
	case strings.HasPrefix(normalized, "hypersync resource "):
		return true
	}
	return false
}

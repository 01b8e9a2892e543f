package adapter

import (
	"fmt"
	"strings"
)

// normalizeHost applies the configured scheme rules: "//host" gets the
// given scheme prepended, a bare host gets "scheme://", a trailing
// slash is trimmed. Hosts carrying a scheme other than the wanted one
// are rejected (notably https for the HTTP-poll transport).
func normalizeHost(host, scheme string) (string, error) {
	switch {
	case strings.HasPrefix(host, "//"):
		host = scheme + ":" + host
	case strings.HasPrefix(host, scheme+"://"):
		// Already in the wanted form.
	case strings.Contains(host, "://"):
		return "", &NetworkError{Op: fmt.Sprintf("host %q: only %s:// is supported", host, scheme)}
	default:
		host = scheme + "://" + host
	}
	return strings.TrimSuffix(host, "/"), nil
}

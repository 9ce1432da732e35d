package tenant

import (
	"net"
	"strings"
)

// NormalizeHost turns a Host header value into the domain key used by the domain mapping:
// lower-cased, without port and without the trailing root dot.
func NormalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return ""
	}

	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	} else if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		host = host[1 : len(host)-1]
	}

	host = strings.TrimSuffix(host, ".")
	return strings.ToLower(host)
}


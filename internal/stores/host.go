package stores

import (
	"net"
	"strings"
)

// SlugFromHost derives the store subdomain from a request host.
// Hosts without a usable subdomain (apex, www, localhost, IPs) resolve to fallback.
func SlugFromHost(host, rootDomain, fallback string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	host = strings.TrimSuffix(host, ".")
	if host == "" || host == "localhost" || net.ParseIP(host) != nil {
		return fallback
	}

	rootDomain = strings.ToLower(strings.Trim(strings.TrimSpace(rootDomain), "."))
	var prefix string
	switch {
	case rootDomain != "":
		if host == rootDomain || !strings.HasSuffix(host, "."+rootDomain) {
			return fallback
		}
		prefix = strings.TrimSuffix(host, "."+rootDomain)
	default:
		labels := strings.Split(host, ".")
		if len(labels) < 3 {
			return fallback
		}
		prefix = strings.Join(labels[:len(labels)-2], ".")
	}

	labels := strings.Split(prefix, ".")
	slug := labels[len(labels)-1]
	if slug == "" || slug == "www" {
		return fallback
	}
	return slug
}

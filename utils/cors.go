package utils

import (
	"net"
	"net/url"
	"strings"
)

// OriginPolicy decides which browser origins may call the API. Entries are
// exact origins ("https://app.example"), "*" for any origin, or "local" for
// localhost, private addresses, .local names and single-label LAN hosts.
type OriginPolicy struct {
	any   bool
	local bool
	exact map[string]struct{}
}

func NewOriginPolicy(entries []string) OriginPolicy {
	p := OriginPolicy{exact: make(map[string]struct{})}
	for _, e := range entries {
		e = strings.TrimRight(strings.TrimSpace(e), "/")
		switch strings.ToLower(e) {
		case "":
		case "*":
			p.any = true
		case "local":
			p.local = true
		default:
			p.exact[strings.ToLower(e)] = struct{}{}
		}
	}
	return p
}

// AllowsAny reports whether the wildcard origin is configured.
func (p OriginPolicy) AllowsAny() bool {
	return p.any
}

// Allowed checks whether an Origin header value should be trusted.
func (p OriginPolicy) Allowed(origin string) bool {
	if origin == "" {
		return false
	}
	if p.any {
		return true
	}
	if _, ok := p.exact[strings.ToLower(strings.TrimRight(origin, "/"))]; ok {
		return true
	}
	return p.local && IsLocalOrigin(origin)
}

// IsLocalOrigin allows localhost, private/RFC1918 IPs, link-local IPs, .local
// hostnames and single-label hostnames. Public internet origins are rejected.
func IsLocalOrigin(origin string) bool {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}

	hostname := parsed.Hostname()
	switch {
	case hostname == "localhost":
		return true
	case strings.HasSuffix(hostname, ".local"):
		return true
	case !strings.Contains(hostname, ".") && !strings.Contains(hostname, ":"):
		return true
	}

	if ip := net.ParseIP(hostname); ip != nil {
		return isPrivateIP(ip)
	}
	return false
}

var privateRanges = []*net.IPNet{
	mustParseCIDR("10.0.0.0/8"),
	mustParseCIDR("172.16.0.0/12"),
	mustParseCIDR("192.168.0.0/16"),
	mustParseCIDR("127.0.0.0/8"),
	mustParseCIDR("169.254.0.0/16"), // link-local IPv4
	mustParseCIDR("::1/128"),
	mustParseCIDR("fe80::/10"),
	mustParseCIDR("fc00::/7"),
}

func isPrivateIP(ip net.IP) bool {
	for _, network := range privateRanges {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

func mustParseCIDR(s string) *net.IPNet {
	_, network, err := net.ParseCIDR(s)
	if err != nil {
		panic(err)
	}
	return network
}

// Package clientip resolves the originating client address of an HTTP
// request behind proxies. The resolved address feeds device trust
// scoring and session records, so invalid header values are discarded
// rather than passed through.
package clientip

import (
	"net"
	"net/http"
	"strings"
)

// GetIP returns the client's IP address. Proxy headers are consulted in
// priority order before falling back to the socket address:
//
//  1. CF-Connecting-IP
//  2. X-Forwarded-For (first valid entry)
//  3. X-Real-IP
//  4. RemoteAddr
//
// Every candidate is parsed and normalized; a spoofed or malformed
// header value never reaches the caller.
func GetIP(r *http.Request) string {
	if ip := parseIP(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		for candidate := range strings.SplitSeq(forwarded, ",") {
			if ip := parseIP(candidate); ip != "" {
				return ip
			}
		}
	}

	if ip := parseIP(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr without a port, assume it is already a bare IP.
		return parseIP(r.RemoteAddr)
	}
	return parseIP(host)
}

// parseIP validates and normalizes one candidate, returning "" when it
// is not a valid address.
func parseIP(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return ""
	}
	return ip.String()
}

// Package privacy implements the gate every beacon event passes through
// before it is persisted: Do Not Track / Global Privacy Control honoring,
// client IP extraction (respecting proxy headers), and operator-configured
// IP/CIDR ignore-lists.
package privacy

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

// IsDNTEnabled reports whether the client has requested not to be tracked,
// via either the legacy DNT header or the newer Sec-GPC (Global Privacy
// Control) header. Both are honored identically: if present, tracking must
// not occur.
func IsDNTEnabled(h http.Header) bool {
	if v := strings.TrimSpace(h.Get("DNT")); v == "1" {
		return true
	}
	if v := strings.TrimSpace(h.Get("Sec-GPC")); v == "1" {
		return true
	}
	return false
}

// ClientIP extracts the originating client IP, preferring the leftmost
// address in X-Forwarded-For (the original client, assuming a trusted
// reverse proxy chain), then X-Real-IP, then the two CDN-specific headers
// CF-Connecting-IP and True-Client-IP. There is no socket-level fallback —
// a request with none of these headers resolves to "0.0.0.0".
func ClientIP(h http.Header) string {
	if fwd := h.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	if v := strings.TrimSpace(h.Get("X-Real-IP")); v != "" {
		return v
	}
	if v := strings.TrimSpace(h.Get("CF-Connecting-IP")); v != "" {
		return v
	}
	if v := strings.TrimSpace(h.Get("True-Client-IP")); v != "" {
		return v
	}
	return "0.0.0.0"
}

// DeriveOrigin returns the caller's origin for the allow-list check: the
// Origin header if present, else the lower-cased scheme+host+port derived
// from the Referer header, else "".
func DeriveOrigin(h http.Header) string {
	if origin := strings.TrimSpace(h.Get("Origin")); origin != "" {
		return strings.ToLower(origin)
	}
	referer := strings.TrimSpace(h.Get("Referer"))
	if referer == "" {
		return ""
	}
	u, err := url.Parse(referer)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}

// Referrer returns the request's Referer header.
func Referrer(h http.Header) string {
	return h.Get("Referer")
}

// UserAgent returns the request's User-Agent header.
func UserAgent(h http.Header) string {
	return h.Get("User-Agent")
}

// ParseIgnoredNetworks parses a comma-separated list of CIDR blocks
// (individual IPs are accepted too, treated as /32 or /128) into parsed
// networks. Malformed entries are skipped rather than failing the whole
// list, since operator-supplied config should degrade gracefully rather
// than take the ingestion path down.
func ParseIgnoredNetworks(csv string) []*net.IPNet {
	if strings.TrimSpace(csv) == "" {
		return nil
	}

	var nets []*net.IPNet
	for _, raw := range strings.Split(csv, ",") {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				continue
			}
			bits := 32
			if ip.To4() == nil {
				bits = 128
			}
			entry = entry + "/" + itoa(bits)
		}
		_, ipnet, err := net.ParseCIDR(entry)
		if err != nil {
			continue
		}
		nets = append(nets, ipnet)
	}
	return nets
}

func itoa(n int) string {
	if n == 32 {
		return "32"
	}
	return "128"
}

// IsIPIgnored reports whether ip falls within any of the configured
// networks.
func IsIPIgnored(ip string, nets []*net.IPNet) bool {
	if len(nets) == 0 {
		return false
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, n := range nets {
		if n.Contains(parsed) {
			return true
		}
	}
	return false
}

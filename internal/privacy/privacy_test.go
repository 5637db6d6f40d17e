package privacy

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsDNTEnabled(t *testing.T) {
	h := http.Header{}
	assert.False(t, IsDNTEnabled(h))

	h.Set("DNT", "1")
	assert.True(t, IsDNTEnabled(h))

	h = http.Header{}
	h.Set("Sec-GPC", "1")
	assert.True(t, IsDNTEnabled(h))

	h = http.Header{}
	h.Set("DNT", "0")
	assert.False(t, IsDNTEnabled(h))
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	h := http.Header{}
	h.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	assert.Equal(t, "203.0.113.5", ClientIP(h))
}

func TestClientIPFallsBackToRealIP(t *testing.T) {
	h := http.Header{}
	h.Set("X-Real-IP", "203.0.113.7")
	assert.Equal(t, "203.0.113.7", ClientIP(h))
}

func TestClientIPFallsBackToCFConnectingIP(t *testing.T) {
	h := http.Header{}
	h.Set("CF-Connecting-IP", "203.0.113.8")
	assert.Equal(t, "203.0.113.8", ClientIP(h))
}

func TestClientIPFallsBackToTrueClientIP(t *testing.T) {
	h := http.Header{}
	h.Set("True-Client-IP", "203.0.113.9")
	assert.Equal(t, "203.0.113.9", ClientIP(h))
}

func TestClientIPDefaultsWhenNoHeaderPresent(t *testing.T) {
	h := http.Header{}
	assert.Equal(t, "0.0.0.0", ClientIP(h))
}

func TestDeriveOriginPrefersOriginHeader(t *testing.T) {
	h := http.Header{}
	h.Set("Origin", "HTTPS://Example.COM")
	assert.Equal(t, "https://example.com", DeriveOrigin(h))
}

func TestDeriveOriginFallsBackToReferer(t *testing.T) {
	h := http.Header{}
	h.Set("Referer", "https://example.com:8443/path?q=1")
	assert.Equal(t, "https://example.com:8443", DeriveOrigin(h))
}

func TestDeriveOriginEmptyWhenNeitherPresent(t *testing.T) {
	h := http.Header{}
	assert.Equal(t, "", DeriveOrigin(h))
}

func TestParseIgnoredNetworksAcceptsBareIPsAndCIDRs(t *testing.T) {
	nets := ParseIgnoredNetworks("10.0.0.0/8, 203.0.113.9, not-an-ip")
	assert.Len(t, nets, 2)
}

func TestIsIPIgnored(t *testing.T) {
	nets := ParseIgnoredNetworks("10.0.0.0/8")
	assert.True(t, IsIPIgnored("10.1.2.3", nets))
	assert.False(t, IsIPIgnored("203.0.113.1", nets))
	assert.False(t, IsIPIgnored("not-an-ip", nets))
}

func TestIsIPIgnoredEmptyNetworksAlwaysFalse(t *testing.T) {
	assert.False(t, IsIPIgnored("10.1.2.3", nil))
}

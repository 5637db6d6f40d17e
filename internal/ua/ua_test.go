package ua

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEmptyUserAgentYieldsOther(t *testing.T) {
	p, err := NewDefaultParser()
	require.NoError(t, err)

	parsed := p.Parse("")
	require.Equal(t, DeviceOther, parsed.DeviceType)
	require.False(t, parsed.IsBot)
}

func TestParseDesktopChrome(t *testing.T) {
	p, err := NewDefaultParser()
	require.NoError(t, err)

	parsed := p.Parse("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0.0.0 Safari/537.36")
	require.Equal(t, "Chrome", parsed.Browser)
	require.Equal(t, "Windows", parsed.OS)
	require.Equal(t, DeviceDesktop, parsed.DeviceType)
	require.False(t, parsed.IsBot)
}

func TestParseMobileSafari(t *testing.T) {
	p, err := NewDefaultParser()
	require.NoError(t, err)

	parsed := p.Parse("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Version/17.0 Safari/604.1")
	require.Equal(t, DevicePhone, parsed.DeviceType)
}

func TestParseKnownBot(t *testing.T) {
	p, err := NewDefaultParser()
	require.NoError(t, err)

	parsed := p.Parse("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)")
	require.True(t, parsed.IsBot)
	require.Equal(t, DeviceRobot, parsed.DeviceType)
}

func TestClassifyDeviceTablet(t *testing.T) {
	require.Equal(t, DeviceTablet, classifyDevice("iPad"))
	require.Equal(t, DeviceTablet, classifyDevice("Android Tablet"))
}

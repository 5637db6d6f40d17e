package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServiceIsOriginAllowedWildcard(t *testing.T) {
	svc := Service{Origins: "*"}
	assert.True(t, svc.IsOriginAllowed("https://anything.example.com"))
	assert.True(t, svc.IsOriginAllowed(""))
}

func TestServiceIsOriginAllowedExactMatch(t *testing.T) {
	svc := Service{Origins: "https://a.example.com, https://b.example.com"}
	assert.True(t, svc.IsOriginAllowed("https://a.example.com"))
	assert.True(t, svc.IsOriginAllowed("https://b.example.com"))
	assert.False(t, svc.IsOriginAllowed("https://c.example.com"))
	assert.False(t, svc.IsOriginAllowed(""))
}

func TestNewTrackingIDShape(t *testing.T) {
	id := NewTrackingID()
	assert.Len(t, id, 8)
	for _, r := range id {
		assert.NotContains(t, "01ilo", string(r), "tracking id must avoid visually ambiguous characters")
	}
}

func TestNewTrackingIDIsUnique(t *testing.T) {
	a := NewTrackingID()
	b := NewTrackingID()
	assert.NotEqual(t, a, b)
}

func TestParseDeviceTypeDefaultsToOther(t *testing.T) {
	assert.Equal(t, DeviceDesktop, ParseDeviceType("desktop"))
	assert.Equal(t, DevicePhone, ParseDeviceType("PHONE"))
	assert.Equal(t, DeviceOther, ParseDeviceType("unknown-thing"))
	assert.Equal(t, DeviceOther, ParseDeviceType(""))
}

func TestParseServiceStatus(t *testing.T) {
	assert.Equal(t, ServiceActive, ParseServiceStatus("AC"))
	assert.Equal(t, ServiceArchived, ParseServiceStatus("AR"))
	assert.Equal(t, ServiceActive, ParseServiceStatus("garbage"))
	assert.True(t, ServiceActive.IsActive())
	assert.False(t, ServiceArchived.IsActive())
}

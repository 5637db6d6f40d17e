// Package ua parses User-Agent strings into browser/OS/device metadata and
// flags known crawlers, wrapping the ua-parser project's Go port of the
// shared uap-core regex database.
package ua

import (
	_ "embed"
	"strings"

	"github.com/ua-parser/uap-go/uaparser"
)

//go:embed default_regexes.yaml
var defaultRegexes []byte

// Parsed is the enrichment derived from a single User-Agent string.
type Parsed struct {
	Browser    string
	OS         string
	Device     string // raw parsed device family, e.g. "iPhone"; "" when the UA has none
	DeviceType DeviceType
	IsBot      bool
}

// DeviceType mirrors domain.DeviceType's string values without importing the
// domain package, keeping this package usable in isolation.
type DeviceType string

const (
	DeviceDesktop DeviceType = "Desktop"
	DevicePhone   DeviceType = "Phone"
	DeviceTablet  DeviceType = "Tablet"
	DeviceRobot   DeviceType = "Robot"
	DeviceOther   DeviceType = "Other"
)

// Parser parses User-Agent strings using a loaded uap-core regex database.
type Parser struct {
	inner *uaparser.Parser
}

// NewParser loads the regex database from regexesPath (a uap-core
// regexes.yaml, deployed alongside the binary). NewParserFromBytes can be used
// instead when the definitions are embedded via go:embed in the caller.
func NewParser(regexesPath string) (*Parser, error) {
	inner, err := uaparser.New(regexesPath)
	if err != nil {
		return nil, err
	}
	return &Parser{inner: inner}, nil
}

// NewDefaultParser loads the small built-in regex set bundled with this
// package, covering the major desktop/mobile browsers, operating systems,
// and known crawlers. Deployments wanting the full upstream uap-core
// database should call NewParser with its path instead.
func NewDefaultParser() (*Parser, error) {
	return NewParserFromBytes(defaultRegexes)
}

// NewParserFromBytes loads the regex database from an in-memory YAML blob.
func NewParserFromBytes(data []byte) (*Parser, error) {
	inner, err := uaparser.NewFromBytes(data)
	if err != nil {
		return nil, err
	}
	return &Parser{inner: inner}, nil
}

// Parse classifies a User-Agent string. An empty string, or one that no
// browser, OS or device rule matches, is classified DeviceOther with IsBot
// false, matching the original implementation's fallback behavior rather
// than erroring.
func (p *Parser) Parse(userAgent string) Parsed {
	if strings.TrimSpace(userAgent) == "" {
		return Parsed{DeviceType: DeviceOther}
	}

	client := p.inner.Parse(userAgent)

	browser := ""
	if client.UserAgent != nil {
		browser = client.UserAgent.Family
	}
	os := ""
	if client.Os != nil {
		os = client.Os.Family
	}
	deviceFamily := ""
	if client.Device != nil {
		deviceFamily = client.Device.Family
	}

	deviceType := classifyDevice(deviceFamily)
	if browser == "Other" && os == "Other" && deviceFamily == "Other" {
		// uap-go reports "Other" for every family when no rule matched.
		deviceType = DeviceOther
	}

	return Parsed{
		Browser:    browser,
		OS:         os,
		Device:     deviceFamily,
		DeviceType: deviceType,
		IsBot:      isBot(browser, deviceFamily),
	}
}

func isBot(browserFamily, deviceFamily string) bool {
	df := strings.ToLower(deviceFamily)
	if df == "spider" {
		return true
	}
	bf := strings.ToLower(browserFamily)
	if strings.Contains(bf, "bot") || strings.Contains(bf, "spider") || strings.Contains(bf, "crawler") {
		return true
	}
	return bf == "googlebot" || bf == "bingbot"
}

func classifyDevice(deviceFamily string) DeviceType {
	df := strings.ToLower(deviceFamily)
	switch {
	case df == "spider":
		return DeviceRobot
	case strings.Contains(df, "ipad") || strings.Contains(df, "tablet"):
		return DeviceTablet
	case strings.Contains(df, "iphone") || strings.Contains(df, "smartphone") || strings.Contains(df, "phone"):
		return DevicePhone
	case df == "" || df == "other" || strings.Contains(df, "desktop") || strings.Contains(df, "mac") || strings.Contains(df, "windows"):
		return DeviceDesktop
	default:
		return DeviceOther
	}
}

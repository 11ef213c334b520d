// Package useragent derives coarse display metadata (browser, OS,
// device type) from a raw User-Agent string. The output is
// informational only: the device registry stores it so a user can
// recognize their own devices in a device list, never as a trust or
// identity signal.
package useragent

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Device types represent the category of device that made the request.
const (
	DeviceTypeBot     = "bot"
	DeviceTypeMobile  = "mobile"
	DeviceTypeTablet  = "tablet"
	DeviceTypeDesktop = "desktop"
	DeviceTypeUnknown = "unknown"
)

// UserAgent holds the parsed information from a User-Agent string.
type UserAgent struct {
	Raw            string
	BrowserName    string
	BrowserVersion string
	OS             string
	DeviceType     string
}

// IsBot reports whether the user agent belongs to an automated client.
func (ua UserAgent) IsBot() bool { return ua.DeviceType == DeviceTypeBot }

var titleCaser = cases.Title(language.English)

// browserPattern matches in declaration order; more specific browsers
// (those that embed another browser's token) come first.
type browserPattern struct {
	name    string
	keyword string
	exclude string
	version *regexp.Regexp
}

var browserPatterns = []browserPattern{
	{name: "edge", keyword: "edg", version: regexp.MustCompile(`edga?i?o?s?/([\d.]+)`)},
	{name: "opera", keyword: "opr/", version: regexp.MustCompile(`opr/([\d.]+)`)},
	{name: "samsung internet", keyword: "samsungbrowser", version: regexp.MustCompile(`samsungbrowser/([\d.]+)`)},
	{name: "chrome", keyword: "chrome/", exclude: "edg", version: regexp.MustCompile(`chrome/([\d.]+)`)},
	{name: "firefox", keyword: "firefox/", version: regexp.MustCompile(`firefox/([\d.]+)`)},
	{name: "safari", keyword: "safari/", exclude: "chrome", version: regexp.MustCompile(`version/([\d.]+)`)},
}

var botKeywords = []string{"bot", "crawler", "spider", "curl/", "wget/", "python-requests", "headlesschrome", "phantomjs"}

// Parse extracts browser, OS, and device type from a User-Agent string.
// Unknown or empty input yields "unknown" fields rather than an error.
func Parse(raw string) UserAgent {
	ua := UserAgent{
		Raw:            raw,
		BrowserName:    DeviceTypeUnknown,
		BrowserVersion: "",
		OS:             DeviceTypeUnknown,
		DeviceType:     DeviceTypeUnknown,
	}
	if raw == "" {
		return ua
	}

	lower := strings.ToLower(raw)

	for _, kw := range botKeywords {
		if strings.Contains(lower, kw) {
			ua.DeviceType = DeviceTypeBot
			ua.BrowserName = "bot"
			ua.OS = detectOS(lower)
			return ua
		}
	}

	for _, p := range browserPatterns {
		if !strings.Contains(lower, p.keyword) {
			continue
		}
		if p.exclude != "" && strings.Contains(lower, p.exclude) {
			continue
		}
		ua.BrowserName = titleCaser.String(p.name)
		if m := p.version.FindStringSubmatch(lower); len(m) > 1 {
			ua.BrowserVersion = m[1]
		}
		break
	}

	ua.OS = detectOS(lower)
	ua.DeviceType = detectDeviceType(lower)
	return ua
}

func detectOS(lower string) string {
	switch {
	case strings.Contains(lower, "windows"):
		return "Windows"
	case strings.Contains(lower, "iphone"), strings.Contains(lower, "ipad"):
		return "iOS"
	case strings.Contains(lower, "mac os"), strings.Contains(lower, "macintosh"):
		return "macOS"
	case strings.Contains(lower, "android"):
		return "Android"
	case strings.Contains(lower, "linux"):
		return "Linux"
	default:
		return DeviceTypeUnknown
	}
}

func detectDeviceType(lower string) string {
	switch {
	case strings.Contains(lower, "ipad"),
		strings.Contains(lower, "tablet"),
		strings.Contains(lower, "android") && !strings.Contains(lower, "mobile"):
		return DeviceTypeTablet
	case strings.Contains(lower, "mobile"), strings.Contains(lower, "iphone"):
		return DeviceTypeMobile
	case strings.Contains(lower, "windows"),
		strings.Contains(lower, "macintosh"),
		strings.Contains(lower, "linux"),
		strings.Contains(lower, "cros"):
		return DeviceTypeDesktop
	default:
		return DeviceTypeUnknown
	}
}

package utils

import (
	ua "github.com/mssola/user_agent"
)

// DeviceInfo holds parsed information from a User-Agent string
type DeviceInfo struct {
	Browser string `json:"browser"` // Chrome 120, Safari 17, etc.
	OS      string `json:"os"`      // Android 12, Windows 10, etc.
	Mobile  bool   `json:"mobile"`
	Raw     string `json:"raw"`
}

// ParseUserAgent extracts browser and OS from a User-Agent string for the
// login audit trail
func ParseUserAgent(userAgent string) DeviceInfo {
	if userAgent == "" {
		return DeviceInfo{
			Browser: "Unknown",
			OS:      "Unknown",
			Raw:     userAgent,
		}
	}

	parser := ua.New(userAgent)
	name, version := parser.Browser()
	browser := name
	if version != "" {
		browser = name + " " + version
	}

	os := parser.OS()
	if os == "" {
		os = "Unknown"
	}

	return DeviceInfo{
		Browser: browser,
		OS:      os,
		Mobile:  parser.Mobile(),
		Raw:     userAgent,
	}
}

package entity

import (
	"strings"

	"github.com/mssola/useragent"
)

const UnknownDevice = "Unknown Device"

// DeviceFromUserAgent describes a user agent as "Browser on OS". Mobile
// agents report their platform (iPhone, iPad, ...) instead of the OS.
func DeviceFromUserAgent(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return UnknownDevice
	}

	ua := useragent.New(raw)
	browser, _ := ua.Browser()
	os := ua.OS()

	if ua.Mobile() {
		if platform := ua.Platform(); platform != "" {
			return strings.TrimSpace(browser + " on " + platform)
		}
	}

	if browser == "" {
		browser = "Unknown Browser"
	}
	if os == "" {
		os = "Unknown OS"
	}

	return strings.TrimSpace(browser + " on " + os)
}

// Package device derives coarse client metadata from a User-Agent string.
// The result is display-oriented (session listings) and never used for
// security decisions.
package device

import "strings"

// Info is the derived device metadata stored on a session.
type Info struct {
	Browser string `json:"browser"`
	OS      string `json:"os"`
	Type    string `json:"type"`
}

// Derive classifies userAgent by substring probes. Unknown agents come
// back as "unknown"/"desktop" rather than empty so session listings stay
// readable.
func Derive(userAgent string) Info {
	ua := strings.ToLower(userAgent)

	info := Info{
		Browser: "unknown",
		OS:      "unknown",
		Type:    "desktop",
	}
	if ua == "" {
		return info
	}

	switch {
	case strings.Contains(ua, "edg/"):
		info.Browser = "edge"
	case strings.Contains(ua, "opr/"), strings.Contains(ua, "opera"):
		info.Browser = "opera"
	case strings.Contains(ua, "chrome/"), strings.Contains(ua, "crios/"):
		info.Browser = "chrome"
	case strings.Contains(ua, "firefox/"), strings.Contains(ua, "fxios/"):
		info.Browser = "firefox"
	case strings.Contains(ua, "safari/"):
		info.Browser = "safari"
	case strings.Contains(ua, "curl/"):
		info.Browser = "curl"
	}

	switch {
	case strings.Contains(ua, "android"):
		info.OS = "android"
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"), strings.Contains(ua, "ios"):
		info.OS = "ios"
	case strings.Contains(ua, "windows"):
		info.OS = "windows"
	case strings.Contains(ua, "mac os"), strings.Contains(ua, "macintosh"):
		info.OS = "macos"
	case strings.Contains(ua, "linux"):
		info.OS = "linux"
	}

	switch {
	case strings.Contains(ua, "ipad"), strings.Contains(ua, "tablet"):
		info.Type = "tablet"
	case strings.Contains(ua, "mobile"), strings.Contains(ua, "iphone"), strings.Contains(ua, "android"):
		info.Type = "mobile"
	case strings.Contains(ua, "bot"), strings.Contains(ua, "curl"), strings.Contains(ua, "wget"):
		info.Type = "bot"
	}

	return info
}

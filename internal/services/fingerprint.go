package services

import (
	"net"
	"net/http"
	"strings"
	"unicode/utf8"

	"qrverify/internal/models"

	"github.com/mssola/user_agent"
)

// ClientInfo is what we know about the caller from the request alone.
type ClientInfo struct {
	IPAddress      string
	UserAgent      string
	Browser        string
	BrowserVersion string
	Platform       string
	DeviceType     string
}

// ExtractClientInfo fingerprints a request from its headers and peer
// address. It never fails; missing data degrades to empty or default
// categories.
func ExtractClientInfo(header http.Header, remoteAddr string) ClientInfo {
	ua := header.Get("User-Agent")
	browser, platform, device := ClassifyUserAgent(ua)

	info := ClientInfo{
		IPAddress:  ClientIP(header, remoteAddr),
		UserAgent:  ua,
		Browser:    browser,
		Platform:   platform,
		DeviceType: device,
	}
	if ua != "" {
		_, version := user_agent.New(ua).Browser()
		info.BrowserVersion = truncate(version, 50)
	}
	return info
}

// ClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// transport peer.
func ClientIP(header http.Header, remoteAddr string) string {
	if fwd := header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

// ClassifyUserAgent maps a user agent onto the fixed browser, platform and
// device categories. Checks run in a fixed order and the first match wins,
// so "Edg/" strings that also carry "Chrome" land on Edge and Chrome
// strings that also carry "Safari" land on Chrome.
func ClassifyUserAgent(ua string) (browser, platform, deviceType string) {
	s := strings.ToLower(ua)

	switch {
	case strings.Contains(s, "chrome") && !strings.Contains(s, "edg"):
		browser = models.BrowserChrome
	case strings.Contains(s, "firefox"):
		browser = models.BrowserFirefox
	case strings.Contains(s, "safari") && !strings.Contains(s, "chrome"):
		browser = models.BrowserSafari
	case strings.Contains(s, "edg"):
		browser = models.BrowserEdge
	default:
		browser = models.BrowserOther
	}

	switch {
	case strings.Contains(s, "windows"):
		platform = models.PlatformWindows
	case strings.Contains(s, "mac"):
		platform = models.PlatformMac
	case strings.Contains(s, "linux"):
		platform = models.PlatformLinux
	case strings.Contains(s, "android"):
		platform = models.PlatformAndroid
	case strings.Contains(s, "iphone"), strings.Contains(s, "ipad"):
		platform = models.PlatformIOS
	default:
		platform = models.PlatformUnknown
	}

	switch {
	case strings.Contains(s, "mobile"):
		deviceType = models.DeviceMobile
	case strings.Contains(s, "tablet"):
		deviceType = models.DeviceTablet
	default:
		deviceType = models.DeviceDesktop
	}

	return browser, platform, deviceType
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

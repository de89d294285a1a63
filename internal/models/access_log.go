package models

import (
	"time"
)

const (
	BrowserChrome  = "Chrome"
	BrowserFirefox = "Firefox"
	BrowserSafari  = "Safari"
	BrowserEdge    = "Edge"
	BrowserOther   = "Other"
)

const (
	PlatformWindows = "Windows"
	PlatformMac     = "Mac"
	PlatformLinux   = "Linux"
	PlatformAndroid = "Android"
	PlatformIOS     = "iOS"
	PlatformUnknown = "Unknown"
)

const (
	DeviceMobile  = "Mobile"
	DeviceTablet  = "Tablet"
	DeviceDesktop = "Desktop"
)

// UnknownLocation is used for country and city when geo enrichment has
// nothing better.
const UnknownLocation = "Unknown"

// AccessLog records one verification attempt. QRID is whatever identifier
// the caller asked for, whether or not it exists in qr_codes.
type AccessLog struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	QRID           string    `gorm:"column:qr_id;size:255;index" json:"qr_id"`
	IPAddress      string    `gorm:"size:45" json:"ip_address"`
	UserAgent      string    `gorm:"type:text" json:"user_agent"`
	Endpoint       string    `gorm:"size:255" json:"endpoint"`
	HTTPMethod     string    `gorm:"column:http_method;size:10" json:"http_method"`
	StatusCode     int       `gorm:"not null" json:"status_code"`
	Country        string    `gorm:"size:100;default:'Unknown'" json:"country"`
	City           string    `gorm:"size:100;default:'Unknown'" json:"city"`
	Browser        string    `gorm:"size:50;index" json:"browser"`
	BrowserVersion string    `gorm:"size:50" json:"browser_version,omitempty"`
	Platform       string    `gorm:"size:50" json:"platform"`
	DeviceType     string    `gorm:"size:50;index" json:"device_type"`
	AccessTime     time.Time `gorm:"default:CURRENT_TIMESTAMP;index" json:"access_time"`
}

func (AccessLog) TableName() string {
	return "api_access_logs"
}

package models

// QRScanCount is one row of the most-scanned ranking.
type QRScanCount struct {
	QRID      string `gorm:"column:qr_id" json:"qr_id"`
	ScanCount int64  `gorm:"column:scan_count" json:"scan_count"`
}

type DeviceTypeCount struct {
	DeviceType string `gorm:"column:device_type" json:"device_type"`
	Count      int64  `gorm:"column:count" json:"count"`
}

type BrowserCount struct {
	Browser string `gorm:"column:browser" json:"browser"`
	Count   int64  `gorm:"column:count" json:"count"`
}

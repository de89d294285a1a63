package models

import (
	"time"
)

// QRCode is a registered identifier. Rows are written once by provisioning
// and never updated.
type QRCode struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	QRID        string    `gorm:"column:qr_id;uniqueIndex;not null;size:64" json:"qr_id"`
	Description string    `gorm:"type:text;not null" json:"description"`
	CreatedAt   time.Time `gorm:"default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

func (QRCode) TableName() string {
	return "qr_codes"
}

// QRCodeWithScans is a registry row joined with its access log count.
type QRCodeWithScans struct {
	QRID        string    `gorm:"column:qr_id" json:"qr_id"`
	Description string    `gorm:"column:description" json:"description"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
	ScanCount   int64     `gorm:"column:scan_count" json:"scan_count"`
}

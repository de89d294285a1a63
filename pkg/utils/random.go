package utils

import (
	"github.com/google/uuid"
)

// QRIDLength is the length of a minted QR identifier.
const QRIDLength = 8

// GenerateQRID returns a new opaque identifier: the leading hex block of a
// random UUID.
func GenerateQRID() string {
	return uuid.NewString()[:QRIDLength]
}

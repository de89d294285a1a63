package services

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/color"
	"image/png"
	"net/url"
	"strings"

	"github.com/skip2/go-qrcode"
)

const (
	DefaultQRSize = 256
	MaxQRSize     = 2048
)

type QROptions struct {
	Content string
	Size    int
	FgColor string // Hex code e.g. "#000000"
	BgColor string // Hex code e.g. "#FFFFFF"
}

// QRService renders verification URLs as QR images.
type QRService struct {
	baseURL string
}

func NewQRService(baseURL string) *QRService {
	return &QRService{baseURL: strings.TrimRight(baseURL, "/")}
}

// VerificationURL is the link printed into the code for qrID.
func (s *QRService) VerificationURL(qrID string) string {
	return s.baseURL + "/verify/" + url.PathEscape(qrID)
}

func (s *QRService) GenerateQRCode(opts QROptions) (string, []byte, error) {
	qr, err := qrcode.New(opts.Content, qrcode.Medium)
	if err != nil {
		return "", nil, err
	}

	qr.ForegroundColor = s.parseHexColor(opts.FgColor, color.Black)
	qr.BackgroundColor = s.parseHexColor(opts.BgColor, color.White)

	img := qr.Image(clampQRSize(opts.Size))

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", nil, err
	}

	pngBytes := buf.Bytes()
	return base64.StdEncoding.EncodeToString(pngBytes), pngBytes, nil
}

// GenerateQRCodeSVG renders one path per dark module. Colours that are not
// #RRGGBB fall back to black on white.
func (s *QRService) GenerateQRCodeSVG(opts QROptions) (string, error) {
	qr, err := qrcode.New(opts.Content, qrcode.Medium)
	if err != nil {
		return "", err
	}

	qr.DisableBorder = true
	bitmap := qr.Bitmap()
	size := len(bitmap)

	fg := hexOrDefault(opts.FgColor, "#000000")
	bg := hexOrDefault(opts.BgColor, "#FFFFFF")

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" shape-rendering="crispEdges">`, size, size))
	sb.WriteString(fmt.Sprintf(`<rect width="100%%" height="100%%" fill="%s"/>`, bg))
	sb.WriteString(fmt.Sprintf(`<path fill="%s" d="`, fg))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if bitmap[y][x] {
				sb.WriteString(fmt.Sprintf("M%d %dh1v1h-1z ", x, y))
			}
		}
	}
	sb.WriteString(`"/>`)
	sb.WriteString("</svg>")
	return sb.String(), nil
}

func (s *QRService) parseHexColor(hex string, defaultColor color.Color) color.Color {
	hex = strings.TrimPrefix(hex, "#")
	if !isHex6(hex) {
		return defaultColor
	}

	r := (hexNibble(hex[0]) << 4) + hexNibble(hex[1])
	g := (hexNibble(hex[2]) << 4) + hexNibble(hex[3])
	b := (hexNibble(hex[4]) << 4) + hexNibble(hex[5])

	return color.RGBA{R: r, G: g, B: b, A: 255}
}

func clampQRSize(size int) int {
	if size <= 0 {
		return DefaultQRSize
	}
	if size > MaxQRSize {
		return MaxQRSize
	}
	return size
}

func hexOrDefault(hex, def string) string {
	if !isHex6(strings.TrimPrefix(hex, "#")) {
		return def
	}
	return "#" + strings.TrimPrefix(hex, "#")
}

func isHex6(s string) bool {
	if len(s) != 6 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}

func hexNibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}

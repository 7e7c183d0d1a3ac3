package qrcode

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Varun5711/placeshare/internal/models"
	"github.com/skip2/go-qrcode"
)

const (
	DefaultSize = 256
	MinSize     = 64
	MaxSize     = 1024
)

// GeoURI renders a location as an RFC 5870 geo: URI, which phone map apps
// open directly when the code is scanned.
func GeoURI(loc models.Location) string {
	return "geo:" + strconv.FormatFloat(loc.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(loc.Lng, 'f', -1, 64)
}

// PNG encodes content as a QR code image. Sizes outside [MinSize, MaxSize]
// fall back to DefaultSize.
func PNG(content string, size int) ([]byte, error) {
	if size < MinSize || size > MaxSize {
		size = DefaultSize
	}

	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}
	return png, nil
}

// ASCII renders content as a terminal-friendly block drawing.
func ASCII(content string) (string, error) {
	qr, err := qrcode.New(content, qrcode.Low)
	if err != nil {
		return "", fmt.Errorf("failed to generate QR code: %w", err)
	}

	var sb strings.Builder
	for _, row := range qr.Bitmap() {
		for _, dark := range row {
			if dark {
				sb.WriteString("██")
			} else {
				sb.WriteString("  ")
			}
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

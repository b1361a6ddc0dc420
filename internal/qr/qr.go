package qr

import (
	"fmt"
	"os"
	"path/filepath"

	qrcode "github.com/skip2/go-qrcode"
)

// Generator renders a check-in payload into an image artifact and returns
// a path suitable for serving statically. The path is stored on the ticket
// and must only exist for paid tickets, so rendering happens before the
// confirming transaction commits.
type Generator interface {
	Generate(payload, bookingReference string) (string, error)
}

type fileGenerator struct {
	basePath string
	size     int
}

func NewFileGenerator(basePath string) Generator {
	return &fileGenerator{basePath: basePath, size: 256}
}

// Payload builds the pipe-delimited string encoded into the QR image.
func Payload(appID, bookingReference string, eventID, attendeeID int64, quantity int) string {
	return fmt.Sprintf("%s|%s|%d|%d|%d", appID, bookingReference, eventID, attendeeID, quantity)
}

func (g *fileGenerator) Generate(payload, bookingReference string) (string, error) {
	relPath := filepath.Join("static", "qrcodes", bookingReference+".png")
	fullPath := filepath.Join(g.basePath, relPath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("create qrcode dir: %w", err)
	}
	if err := qrcode.WriteFile(payload, qrcode.Medium, g.size, fullPath); err != nil {
		return "", fmt.Errorf("render qrcode: %w", err)
	}
	return filepath.ToSlash(relPath), nil
}

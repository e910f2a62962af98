package label

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"image"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/skip2/go-qrcode"
)

// Barcode encodes content as a Code128 barcode and returns it as a PNG
// data URI. moduleWidth is the width in pixels of one bar module.
func Barcode(content string, moduleWidth, height int) (template.URL, error) {
	if content == "" {
		return "", fmt.Errorf("barcode: empty content")
	}
	if moduleWidth < 1 || height < 1 {
		return "", fmt.Errorf("barcode: invalid size %dx%d", moduleWidth, height)
	}

	bc, err := code128.Encode(content)
	if err != nil {
		return "", fmt.Errorf("failed to encode barcode %q: %w", content, err)
	}
	scaled, err := barcode.Scale(bc, bc.Bounds().Dx()*moduleWidth, height)
	if err != nil {
		return "", fmt.Errorf("failed to scale barcode %q: %w", content, err)
	}
	return pngDataURI(scaled)
}

// QR encodes content as a square QR code of size pixels and returns it as a
// PNG data URI.
func QR(content string, size int, level qrcode.RecoveryLevel) (template.URL, error) {
	if content == "" {
		return "", fmt.Errorf("qr: empty content")
	}
	data, err := qrcode.Encode(content, level, size)
	if err != nil {
		return "", fmt.Errorf("failed to create QR code: %w", err)
	}
	return dataURI(data), nil
}

func pngDataURI(img image.Image) (template.URL, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode PNG: %w", err)
	}
	return dataURI(buf.Bytes()), nil
}

// dataURI marks the result as a trusted URL; html/template would otherwise
// replace a data: URL with "#ZgotmplZ".
func dataURI(data []byte) template.URL {
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(data))
}

package testsupport

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
)

// WriteScript writes an executable /bin/sh script with the given body.
func WriteScript(t testing.TB, path, body string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script %s: %v", path, err)
	}
}

// BarcodeImage renders contents as a one-dimensional barcode of the given
// format (EAN-13, EAN-8, UPC-A, or UPC-E) with a quiet zone.
func BarcodeImage(t testing.TB, format gozxing.BarcodeFormat, contents string) image.Image {
	t.Helper()

	var writer gozxing.Writer
	switch format {
	case gozxing.BarcodeFormat_EAN_13:
		writer = oned.NewEAN13Writer()
	case gozxing.BarcodeFormat_EAN_8:
		writer = oned.NewEAN8Writer()
	case gozxing.BarcodeFormat_UPC_A:
		writer = oned.NewUPCAWriter()
	case gozxing.BarcodeFormat_UPC_E:
		writer = oned.NewUPCEWriter()
	default:
		t.Fatalf("unsupported barcode format %v", format)
	}
	matrix, err := writer.Encode(contents, format, 480, 160, nil)
	if err != nil {
		t.Fatalf("encode %s: %v", contents, err)
	}
	return matrix
}

// BlankImage returns a white image without any barcode.
func BlankImage(width, height int) image.Image {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = 0xFF
	}
	return img
}

// WritePNG encodes img to path and returns the encoded bytes.
func WritePNG(t testing.TB, path string, img image.Image) []byte {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		t.Fatalf("encode png %s: %v", path, err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close %s: %v", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back %s: %v", path, err)
	}
	return data
}

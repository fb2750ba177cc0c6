package recognize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"

	"barscan/internal/frame"
	"barscan/internal/services"
)

// Result is the outcome of a recognition that did not fail.
type Result struct {
	Found     bool   `json:"found"`
	Value     string `json:"value,omitempty"`
	Symbology string `json:"symbology,omitempty"`
}

// Recognizer extracts a barcode value from a frame.
type Recognizer interface {
	Recognize(ctx context.Context, f frame.Frame) (Result, error)
}

// Symbology names accepted in configuration.
const (
	EAN13 = "ean13"
	EAN8  = "ean8"
	UPCA  = "upca"
	UPCE  = "upce"
)

var symbologyFormats = map[string]gozxing.BarcodeFormat{
	EAN13: gozxing.BarcodeFormat_EAN_13,
	EAN8:  gozxing.BarcodeFormat_EAN_8,
	UPCA:  gozxing.BarcodeFormat_UPC_A,
	UPCE:  gozxing.BarcodeFormat_UPC_E,
}

// ParseSymbologies maps configuration names to gozxing formats.
func ParseSymbologies(names []string) ([]gozxing.BarcodeFormat, error) {
	if len(names) == 0 {
		names = []string{EAN13, EAN8, UPCA, UPCE}
	}
	formats := make([]gozxing.BarcodeFormat, 0, len(names))
	for _, name := range names {
		format, ok := symbologyFormats[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, services.Wrap(services.ErrConfiguration, "recognizer", "symbologies", fmt.Sprintf("unsupported symbology %q", name), nil)
		}
		formats = append(formats, format)
	}
	return formats, nil
}

// SymbologyName returns the configuration name for a gozxing format.
func SymbologyName(format gozxing.BarcodeFormat) string {
	for name, candidate := range symbologyFormats {
		if candidate == format {
			return name
		}
	}
	return strings.ToLower(format.String())
}

// ZXing recognizes UPC/EAN barcodes with gozxing.
type ZXing struct {
	hints map[gozxing.DecodeHintType]interface{}
}

// NewZXing builds a recognizer limited to the given symbology names.
func NewZXing(symbologies []string, tryHarder bool) (*ZXing, error) {
	formats, err := ParseSymbologies(symbologies)
	if err != nil {
		return nil, err
	}
	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_POSSIBLE_FORMATS: formats,
	}
	if tryHarder {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}
	return &ZXing{hints: hints}, nil
}

// Recognize decodes the frame image and searches it for a barcode.
func (z *ZXing) Recognize(ctx context.Context, f frame.Frame) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	img, _, err := image.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return Result{}, services.Wrap(services.ErrRecognizer, "recognizer", "decode image", fmt.Sprintf("frame %d", f.Seq), err)
	}
	return z.RecognizeImage(ctx, img)
}

// RecognizeImage searches an already decoded image.
func (z *ZXing) RecognizeImage(ctx context.Context, img image.Image) (Result, error) {
	bitmap, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return Result{}, services.Wrap(services.ErrRecognizer, "recognizer", "binarize", "", err)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	// gozxing readers carry per-call state, so each attempt gets its own.
	reader := oned.NewMultiFormatUPCEANReader(z.hints)
	decoded, err := reader.Decode(bitmap, z.hints)
	if err != nil {
		var readerErr gozxing.ReaderException
		if errors.As(err, &readerErr) {
			return Result{Found: false}, nil
		}
		return Result{}, services.Wrap(services.ErrRecognizer, "recognizer", "decode barcode", "", err)
	}
	return Result{
		Found:     true,
		Value:     decoded.GetText(),
		Symbology: SymbologyName(decoded.GetBarcodeFormat()),
	}, nil
}

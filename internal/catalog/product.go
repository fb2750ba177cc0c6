package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// ErrDuplicateBarcode is returned when a product with the same barcode exists.
	ErrDuplicateBarcode = errors.New("barcode already in catalog")
	// ErrInvalidProduct is returned when product fields fail validation.
	ErrInvalidProduct = errors.New("invalid product")
)

// Product is one catalog row.
type Product struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Barcode   string    `json:"barcode"`
	Price     float64   `json:"price"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NormalizeName collapses whitespace and title-cases a product name.
func NormalizeName(name string) string {
	fields := strings.FieldsFunc(name, unicode.IsSpace)
	if len(fields) == 0 {
		return ""
	}
	return cases.Title(language.Und, cases.NoLower).String(strings.Join(fields, " "))
}

// NormalizeBarcode strips surrounding whitespace.
func NormalizeBarcode(barcode string) string {
	return strings.TrimSpace(barcode)
}

// ValidateBarcode accepts the digit strings produced by the supported
// symbologies: 8 digits (EAN-8, UPC-E), 12 (UPC-A), or 13 (EAN-13).
func ValidateBarcode(barcode string) error {
	switch len(barcode) {
	case 8, 12, 13:
	default:
		return fmt.Errorf("%w: barcode %q must have 8, 12, or 13 digits", ErrInvalidProduct, barcode)
	}
	for _, r := range barcode {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: barcode %q must be digits only", ErrInvalidProduct, barcode)
		}
	}
	return nil
}

func (p *Product) normalize() error {
	p.Name = NormalizeName(p.Name)
	p.Barcode = NormalizeBarcode(p.Barcode)
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if err := ValidateBarcode(p.Barcode); err != nil {
		return err
	}
	if p.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	}
	if p.Quantity < 0 {
		return fmt.Errorf("%w: quantity must not be negative", ErrInvalidProduct)
	}
	return nil
}

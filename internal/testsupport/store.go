package testsupport

import (
	"context"
	"testing"

	"barscan/internal/catalog"
	"barscan/internal/config"
)

// MustOpenCatalog opens a catalog.Store for tests and registers cleanup.
func MustOpenCatalog(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg.Paths.CatalogDB)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// AddProduct inserts a product for tests using the provided store.
func AddProduct(t testing.TB, store *catalog.Store, name, barcode string) *catalog.Product {
	t.Helper()

	product, err := store.Add(context.Background(), catalog.Product{Name: name, Barcode: barcode, Price: 1.5, Quantity: 10})
	if err != nil {
		t.Fatalf("store.Add: %v", err)
	}
	return product
}

package main

import (
	"encoding/json"
	"strings"
	"testing"

	"barscan/internal/api"
)

func TestProductsJSONKeepsAmpersand(t *testing.T) {
	_, configPath := setupOfflineEnv(t)

	if _, _, err := runCLI(t, []string{"products", "add", "96385074", "Salt & Pepper"}, configPath); err != nil {
		t.Fatalf("products add: %v", err)
	}
	out, _, err := runCLI(t, []string{"products", "show", "96385074", "--json"}, configPath)
	if err != nil {
		t.Fatalf("products show: %v", err)
	}
	requireContains(t, out, `"name": "Salt & Pepper"`)
	if strings.Contains(out, `\u0026`) {
		t.Fatalf("expected unescaped ampersand, got %q", out)
	}
}

func TestProductsLifecycle(t *testing.T) {
	_, configPath := setupOfflineEnv(t)

	out, _, err := runCLI(t, []string{"products", "add", "4006381333931", "sparkling  water", "--price", "1.25", "--quantity", "3"}, configPath)
	if err != nil {
		t.Fatalf("products add: %v", err)
	}
	requireContains(t, out, "Added 4006381333931: Sparkling Water")

	if _, _, err := runCLI(t, []string{"products", "add", "4006381333931", "Other"}, configPath); err == nil {
		t.Fatal("expected duplicate barcode to be rejected")
	}

	out, _, err = runCLI(t, []string{"products", "add", "4006381333931", "Still Water", "--update", "--quantity", "5"}, configPath)
	if err != nil {
		t.Fatalf("products add --update: %v", err)
	}
	requireContains(t, out, "Updated 4006381333931: Still Water")

	out, _, err = runCLI(t, []string{"products", "list"}, configPath)
	if err != nil {
		t.Fatalf("products list: %v", err)
	}
	requireContains(t, out, "Still Water")
	requireContains(t, out, "1.25")
	requireContains(t, out, "1 PRODUCTS")
	requireContains(t, out, "6.25")

	out, _, err = runCLI(t, []string{"products", "show", "4006381333931", "--json"}, configPath)
	if err != nil {
		t.Fatalf("products show: %v", err)
	}
	var product api.Product
	if err := json.Unmarshal([]byte(out), &product); err != nil {
		t.Fatalf("decode show output %q: %v", out, err)
	}
	if product.Name != "Still Water" || product.Quantity != 5 || product.Price != 1.25 {
		t.Fatalf("unexpected product %+v", product)
	}

	out, _, err = runCLI(t, []string{"products", "rm", "4006381333931"}, configPath)
	if err != nil {
		t.Fatalf("products remove: %v", err)
	}
	requireContains(t, out, "Removed 4006381333931")

	_, _, err = runCLI(t, []string{"products", "remove", "4006381333931"}, configPath)
	if err == nil || !strings.Contains(err.Error(), "no product") {
		t.Fatalf("expected not-found error, got %v", err)
	}

	out, _, err = runCLI(t, []string{"products", "list"}, configPath)
	if err != nil {
		t.Fatalf("products list: %v", err)
	}
	requireContains(t, out, "Catalog is empty")
}

func TestProductsAddValidatesBarcode(t *testing.T) {
	_, configPath := setupOfflineEnv(t)
	_, _, err := runCLI(t, []string{"products", "add", "12ab", "Widget"}, configPath)
	if err == nil || !strings.Contains(err.Error(), "invalid product") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

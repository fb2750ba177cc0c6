package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"barscan/internal/services"
)

const productColumns = "id, name, barcode, price, quantity, created_at, updated_at"

// Store manages catalog persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the catalog database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, services.Wrap(services.ErrConfiguration, "catalog", "open", "paths.catalog_db is empty", nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure catalog directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Add inserts a product after normalizing its fields.
func (s *Store) Add(ctx context.Context, product Product) (*Product, error) {
	if err := product.normalize(); err != nil {
		return nil, err
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO products (name, barcode, price, quantity, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		product.Name,
		product.Barcode,
		product.Price,
		product.Quantity,
		timestamp,
		timestamp,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateBarcode, product.Barcode)
		}
		return nil, fmt.Errorf("insert product: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Update persists changes to an existing product.
func (s *Store) Update(ctx context.Context, product *Product) error {
	if product == nil {
		return errors.New("product is nil")
	}
	if err := product.normalize(); err != nil {
		return err
	}
	product.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE products SET name = ?, barcode = ?, price = ?, quantity = ?, updated_at = ? WHERE id = ?`,
		product.Name,
		product.Barcode,
		product.Price,
		product.Quantity,
		product.UpdatedAt.Format(time.RFC3339Nano),
		product.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateBarcode, product.Barcode)
		}
		return fmt.Errorf("update product: %w", err)
	}
	return requireAffected(res, fmt.Sprintf("product %d", product.ID))
}

// GetByID fetches a product by identifier. A missing product returns nil, nil.
func (s *Store) GetByID(ctx context.Context, id int64) (*Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	product, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return product, nil
}

// GetByBarcode fetches a product by barcode. A missing product returns nil, nil.
func (s *Store) GetByBarcode(ctx context.Context, barcode string) (*Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE barcode = ?`, NormalizeBarcode(barcode))
	product, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product by barcode: %w", err)
	}
	return product, nil
}

// ProductName returns the name for barcode and whether it is catalogued.
func (s *Store) ProductName(ctx context.Context, barcode string) (string, bool, error) {
	product, err := s.GetByBarcode(ctx, barcode)
	if err != nil || product == nil {
		return "", false, err
	}
	return product.Name, true, nil
}

// Names maps each catalogued barcode among barcodes to its product name.
func (s *Store) Names(ctx context.Context, barcodes []string) (map[string]string, error) {
	names := make(map[string]string, len(barcodes))
	if len(barcodes) == 0 {
		return names, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(barcodes)), ",")
	args := make([]any, len(barcodes))
	for i, barcode := range barcodes {
		args[i] = NormalizeBarcode(barcode)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT barcode, name FROM products WHERE barcode IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query product names: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var barcode, name string
		if err := rows.Scan(&barcode, &name); err != nil {
			return nil, fmt.Errorf("scan product name: %w", err)
		}
		names[barcode] = name
	}
	return names, rows.Err()
}

// List returns every product ordered by name.
func (s *Store) List(ctx context.Context) ([]*Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY name COLLATE NOCASE, id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

// RemoveByBarcode deletes the product with barcode.
func (s *Store) RemoveByBarcode(ctx context.Context, barcode string) error {
	barcode = NormalizeBarcode(barcode)
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE barcode = ?`, barcode)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return requireAffected(res, "barcode "+barcode)
}

func scanProduct(scanner interface{ Scan(dest ...any) error }) (*Product, error) {
	var (
		product    Product
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&product.ID,
		&product.Name,
		&product.Barcode,
		&product.Price,
		&product.Quantity,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	product.CreatedAt = parseTime(createdRaw)
	product.UpdatedAt = parseTime(updatedRaw)
	return &product, nil
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func requireAffected(res sql.Result, what string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "catalog", "lookup", what, nil)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

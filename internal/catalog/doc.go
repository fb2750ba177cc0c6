// Package catalog stores the product list that scans are matched against.
//
// Products live in a SQLite database (paths.catalog_db) with one row per
// barcode. The scan session looks accepted values up here so logs, events,
// and the history view can show a product name next to the raw code. A scan
// never depends on the catalog: a missing database or unknown barcode simply
// leaves the name empty.
//
// Schema changes bump schemaVersion in schema.go; users delete the database
// to adopt the new schema.
package catalog

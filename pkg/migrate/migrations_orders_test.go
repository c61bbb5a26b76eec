package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/angelmondragon/orderflow-backend/pkg/migrate"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration file matching %s", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestProductsMigrationGuardsStock(t *testing.T) {
	content := readMigration(t, "*_create_products.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS products",
		"CHECK (quantity >= 0)",
		"FOREIGN KEY (seller_id) REFERENCES users(id)",
		"DROP TABLE IF EXISTS products",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOrdersMigrationContainsLines(t *testing.T) {
	content := readMigration(t, "*_create_orders.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"CREATE TABLE IF NOT EXISTS order_lines",
		"'CANCELLED_AUTOMATICALLY'",
		"FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE",
		"CHECK (quantity > 0)",
		"DROP TABLE IF EXISTS order_lines",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestLedgerAndRefundUniqueness(t *testing.T) {
	ledger := readMigration(t, "*_create_financial_lines.sql")
	if !strings.Contains(ledger, "CONSTRAINT financial_lines_order_product_key UNIQUE (order_id, product_id)") {
		t.Error("financial lines must be unique per order line")
	}

	refunds := readMigration(t, "*_create_refunds.sql")
	for _, sub := range []string{
		"CONSTRAINT refunds_order_id_key UNIQUE (order_id)",
		"CONSTRAINT refunds_refund_id_key UNIQUE (refund_id)",
		"CHECK (refunded_amount_cents <= original_amount_cents)",
	} {
		if !strings.Contains(refunds, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	if err := migrate.Validate(migrate.Files()); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	names, err := fs.Glob(migrate.Files(), "*.sql")
	if err != nil {
		t.Fatalf("glob embedded: %v", err)
	}
	if len(names) != 5 {
		t.Fatalf("expected 5 embedded migrations, got %d", len(names))
	}
}

func TestValidateRejectsBrokenFiles(t *testing.T) {
	cases := map[string]string{
		"20260301090000_no_down.sql":    "-- +goose Up\nSELECT 1;\n",
		"20260301090000_reversed.sql":   "-- +goose Down\nSELECT 1;\n-- +goose Up\nSELECT 1;\n",
		"20260301090000_unbalanced.sql": "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\nSELECT 1;\n",
		"bad_name.sql":                  "-- +goose Up\n-- +goose Down\n",
	}
	for name, body := range cases {
		fsys := fstest.MapFS{name: &fstest.MapFile{Data: []byte(body)}}
		if err := migrate.Validate(fsys); err == nil {
			t.Errorf("expected %s to be rejected", name)
		}
	}

	dup := fstest.MapFS{
		"20260301090000_a.sql": &fstest.MapFile{Data: []byte("-- +goose Up\n-- +goose Down\n")},
		"20260301090000_b.sql": &fstest.MapFile{Data: []byte("-- +goose Up\n-- +goose Down\n")},
	}
	if err := migrate.Validate(dup); err == nil {
		t.Error("expected duplicate versions to be rejected")
	}
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Refund Notes!")
	if err != nil {
		t.Fatalf("CreateSQLMigration returned error: %v", err)
	}
	if !strings.HasSuffix(path, "_add_refund_notes.sql") {
		t.Fatalf("unexpected migration path %q", path)
	}
	if err := migrate.Validate(os.DirFS(dir)); err != nil {
		t.Fatalf("generated migration failed validation: %v", err)
	}
}

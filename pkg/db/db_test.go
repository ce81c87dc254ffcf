package db_test

import (
	"path/filepath"
	"testing"

	"cabinmix/pkg/db"
)

func TestDB(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "nested", "db_test.db")

	d, err := db.Init(path)
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if d == nil {
		t.Fatal("Init() returned nil DB")
	}
	defer d.Close()

	for _, table := range []string{"persistent_state", "vehicle_configs"} {
		var name string
		err := d.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}

	var n int
	if err := d.QueryRow("SELECT count(*) FROM pragma_table_info('vehicle_configs') WHERE name='updated_at'").Scan(&n); err != nil || n != 1 {
		t.Errorf("updated_at column missing (n=%d, err=%v)", n, err)
	}
}

func TestDB_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	d, err := db.Init(path)
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if _, err := d.Exec("INSERT INTO persistent_state (key, value) VALUES ('k', 'v')"); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	d.Close()

	// Migrations are idempotent and keep existing rows.
	d, err = db.Init(path)
	if err != nil {
		t.Fatalf("second Init() failed: %v", err)
	}
	defer d.Close()

	var v string
	if err := d.QueryRow("SELECT value FROM persistent_state WHERE key='k'").Scan(&v); err != nil || v != "v" {
		t.Errorf("expected persisted row, got %q (err=%v)", v, err)
	}
	if err := d.EnsureColumn("vehicle_configs", "updated_at", "DATETIME"); err != nil {
		t.Errorf("EnsureColumn on existing column failed: %v", err)
	}
}

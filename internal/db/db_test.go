package db

import (
	"path/filepath"
	"testing"

	"github.com/quarterhill/stratus/internal/config"
	"github.com/quarterhill/stratus/internal/logging"
)

func TestOpenCreatesSchema(t *testing.T) {
	cfg := &config.Config{DBPath: filepath.Join(t.TempDir(), "data", "inv.db")}
	gdb, err := Open(cfg, logging.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer Close(gdb)
	for _, table := range []string{
		"subscriptions", "storage_accounts", "containers", "storage_account_security",
		"wasabi_accounts", "wasabi_buckets", "aws_accounts", "aws_buckets",
		"aws_efs_file_systems", "pricing_cache", "ip_aliases", "settings",
	} {
		if !gdb.Migrator().HasTable(table) {
			t.Fatalf("missing table %s", table)
		}
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	cfg := &config.Config{DBPath: filepath.Join(t.TempDir(), "inv.db")}
	gdb, err := Open(cfg, logging.Nop())
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := Close(gdb); err != nil {
		t.Fatalf("close: %v", err)
	}
	gdb, err = Open(cfg, logging.Nop())
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	Close(gdb)
}

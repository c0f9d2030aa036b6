package repo_test

import (
	"database/sql"
	"fmt"
	"os"
	"testing"

	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/db"
)

func openTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set, skipping postgres test")
	}
	conn, err := db.Open(config.DatabaseConfig{
		Host:     host,
		Port:     5432,
		User:     "parley",
		Password: "parley_pass",
		DBName:   "parley_test",
		SSLMode:  "disable",
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return conn, func() {
		_ = conn.Close()
	}
}

var testSeq int

// newTestID avoids collisions when tests run against a shared database.
func newTestID(prefix string) string {
	testSeq++
	return fmt.Sprintf("%s-%d-%d", prefix, os.Getpid(), testSeq)
}

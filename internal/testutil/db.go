package testutil

import (
	"database/sql"
	"os"
	"testing"

	"github.com/xxxsen/pdfchat/internal/config"
	"github.com/xxxsen/pdfchat/internal/db"
)

// OpenTestDB connects to the postgres named by TEST_DB_HOST and truncates every table.
// The test is skipped when the variable is unset.
func OpenTestDB(t *testing.T) *sql.DB {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set, skipping postgres test")
	}
	conn, err := db.Open(t.Context(), config.DatabaseConfig{
		Host:     host,
		Port:     5432,
		User:     envOr("TEST_DB_USER", "pdfchat"),
		Password: envOr("TEST_DB_PASSWORD", "pdfchat_pass"),
		DBName:   envOr("TEST_DB_NAME", "pdfchat_test"),
		SSLMode:  "disable",
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	if err := db.ApplyMigrations(t.Context(), conn); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	if _, err := conn.Exec("TRUNCATE users, oauth_accounts, pdf_documents, chat_sessions"); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return conn
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

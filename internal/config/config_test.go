package config

import (
	"strings"
	"testing"
)

func TestDSN_BuildsFromFields(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db.internal:3307",
		User:     "reelkeep",
		Password: "s3cret",
		Name:     "reelkeep",
	}

	dsn := d.DSN()
	if !strings.Contains(dsn, "tcp(db.internal:3307)") {
		t.Errorf("expected host in DSN, got %q", dsn)
	}
	if !strings.Contains(dsn, "parseTime=true") {
		t.Errorf("expected parseTime enabled, got %q", dsn)
	}
}

// An UPDATE that matches a row but changes no column must still count as a
// hit, or the repositories' RowsAffected presence checks turn idempotent
// writes into 404s.
func TestDSN_ReportsMatchedRows(t *testing.T) {
	d := DatabaseConfig{Host: "localhost", User: "u", Password: "p", Name: "db"}

	if dsn := d.DSN(); !strings.Contains(dsn, "clientFoundRows=true") {
		t.Errorf("expected clientFoundRows enabled, got %q", dsn)
	}
}

func TestDSN_AppendsDefaultPort(t *testing.T) {
	d := DatabaseConfig{Host: "localhost", User: "u", Password: "p", Name: "db"}

	if dsn := d.DSN(); !strings.Contains(dsn, "tcp(localhost:3306)") {
		t.Errorf("expected default port appended, got %q", dsn)
	}
}

func TestDSN_OverrideTakesPrecedence(t *testing.T) {
	d := DatabaseConfig{
		Host:        "ignored:3306",
		dsnOverride: "user:pass@tcp(elsewhere:3306)/other",
	}

	if dsn := d.DSN(); dsn != "user:pass@tcp(elsewhere:3306)/other" {
		t.Errorf("expected override returned as-is, got %q", dsn)
	}
}

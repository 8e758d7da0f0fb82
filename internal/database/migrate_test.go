// Package database provides connection setup for MariaDB and Redis.
// This file validates migration SQL files to catch schema mismatches early.
package database

import (
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"testing"
)

// validUserRoles must match the ENUM values on users.role and the role
// constants used by the auth package.
// Current ENUM: ENUM('user', 'admin')
// Defined in 000001.
var validUserRoles = map[string]bool{
	"user":  true,
	"admin": true,
}

// migrationsDir returns the absolute path to the migrations directory from
// this test file.
func migrationsDir(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine test file path")
	}
	dir := filepath.Join(filepath.Dir(thisFile), "migrations")
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("migrations directory not found at %s: %v", dir, err)
	}
	return dir
}

// TestMigrations_EveryUpHasADown ensures rollbacks exist for every forward
// migration. golang-migrate fails mid-rollback without them.
func TestMigrations_EveryUpHasADown(t *testing.T) {
	dir := migrationsDir(t)
	ups, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		t.Fatalf("globbing migration files: %v", err)
	}
	if len(ups) == 0 {
		t.Fatal("no migration files found")
	}

	for _, up := range ups {
		down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
		if _, err := os.Stat(down); err != nil {
			t.Errorf("missing down migration for %s", filepath.Base(up))
		}
	}
}

// TestMigrations_SequentialNumbering ensures version numbers start at 1 and
// have no gaps, which golang-migrate depends on for ordering.
func TestMigrations_SequentialNumbering(t *testing.T) {
	dir := migrationsDir(t)
	ups, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		t.Fatalf("globbing migration files: %v", err)
	}

	versionRe := regexp.MustCompile(`^(\d{6})_`)
	seen := map[string]bool{}
	for _, up := range ups {
		m := versionRe.FindStringSubmatch(filepath.Base(up))
		if m == nil {
			t.Errorf("migration %s does not start with a 6-digit version", filepath.Base(up))
			continue
		}
		if seen[m[1]] {
			t.Errorf("duplicate migration version %s", m[1])
		}
		seen[m[1]] = true
	}
}

// TestMigrations_UserRoleEnumValues scans migration files for the users.role
// ENUM definition and checks its members against the roles the code uses.
// Prevents the "Data truncated for column 'role'" crash (Error 1265) when
// an unlisted role value is inserted.
func TestMigrations_UserRoleEnumValues(t *testing.T) {
	dir := migrationsDir(t)
	ups, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		t.Fatalf("globbing migration files: %v", err)
	}

	enumRe := regexp.MustCompile(`role\s+ENUM\(([^)]+)\)`)
	valueRe := regexp.MustCompile(`'([^']+)'`)

	found := false
	for _, up := range ups {
		data, err := os.ReadFile(up)
		if err != nil {
			t.Fatalf("reading %s: %v", up, err)
		}
		m := enumRe.FindStringSubmatch(string(data))
		if m == nil {
			continue
		}
		found = true
		for _, v := range valueRe.FindAllStringSubmatch(m[1], -1) {
			if !validUserRoles[v[1]] {
				t.Errorf("%s declares unknown role %q", filepath.Base(up), v[1])
			}
		}
	}
	if !found {
		t.Error("no users.role ENUM definition found in migrations")
	}
}

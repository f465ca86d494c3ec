package shared

import (
	"database/sql"
	"testing"
)

func setupMigrationDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()

	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&count)
	if err != nil {
		t.Fatalf("failed to check table %s: %v", name, err)
	}
	return count > 0
}

func TestRunMigrations(t *testing.T) {
	t.Run("creates all tables", func(t *testing.T) {
		db := setupMigrationDB(t)

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		tables := []string{
			"schema_migrations",
			"users", "users_sequence",
			"tracks", "tracks_sequence",
			"playlists", "playlists_sequence",
			"sort_runs", "sort_runs_sequence",
		}
		for _, table := range tables {
			if !tableExists(t, db, table) {
				t.Errorf("expected table %s to exist", table)
			}
		}
	})

	t.Run("seeds sequence tables", func(t *testing.T) {
		db := setupMigrationDB(t)

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		var value int
		if err := db.QueryRow("SELECT value FROM tracks_sequence WHERE id = 1").Scan(&value); err != nil {
			t.Fatalf("failed to read sequence: %v", err)
		}
		if value != 0 {
			t.Errorf("expected initial sequence 0, got %d", value)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		db := setupMigrationDB(t)

		if err := RunMigrations(db); err != nil {
			t.Fatalf("first run failed: %v", err)
		}
		if err := RunMigrations(db); err != nil {
			t.Fatalf("second run failed: %v", err)
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
			t.Fatalf("failed to count migrations: %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 recorded migration, got %d", count)
		}
	})
}

func TestRollbackMigration(t *testing.T) {
	t.Run("drops tables and clears record", func(t *testing.T) {
		db := setupMigrationDB(t)

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		if err := RollbackMigration(db); err != nil {
			t.Fatalf("failed to rollback: %v", err)
		}

		if tableExists(t, db, "tracks") {
			t.Error("expected tracks table to be dropped")
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
			t.Fatalf("failed to count migrations: %v", err)
		}
		if count != 0 {
			t.Errorf("expected 0 recorded migrations, got %d", count)
		}
	})

	t.Run("errors with nothing applied", func(t *testing.T) {
		db := setupMigrationDB(t)

		if err := createMigrationsTable(db); err != nil {
			t.Fatalf("failed to create migrations table: %v", err)
		}

		if err := RollbackMigration(db); err == nil {
			t.Error("expected error with no migrations applied")
		}
	})
}

func TestLoadMigrations(t *testing.T) {
	migrations, err := loadMigrations()
	if err != nil {
		t.Fatalf("failed to load migrations: %v", err)
	}
	if len(migrations) == 0 {
		t.Fatal("expected at least one migration")
	}

	for _, m := range migrations {
		if m.Up == "" {
			t.Errorf("migration %d missing up script", m.Version)
		}
		if m.Down == "" {
			t.Errorf("migration %d missing down script", m.Version)
		}
	}
}

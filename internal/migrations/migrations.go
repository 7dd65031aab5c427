// Package migrations applies the numbered SQL files under migrations/ to a
// MySQL database, tracking progress in schema_migrations.
package migrations

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/go-sql-driver/mysql"
)

const migrationsDir = "migrations"

// Run executes all pending migrations against the given MySQL DSN. The DSN
// must allow multi-statement execution.
func Run(dsn string) error {
	conn, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("connect for migrations: %w", err)
	}
	defer conn.Close()

	if err := conn.Ping(); err != nil {
		return fmt.Errorf("ping for migrations: %w", err)
	}

	if err := ensureMigrationsTable(conn); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	applied, err := getAppliedMigrations(conn)
	if err != nil {
		return fmt.Errorf("read applied migrations: %w", err)
	}

	files, err := getMigrationFiles()
	if err != nil {
		return fmt.Errorf("list migration files: %w", err)
	}

	pending := 0
	for _, filename := range files {
		name := strings.TrimSuffix(filename, ".sql")
		if applied[name] {
			continue
		}

		content, err := os.ReadFile(filepath.Join(migrationsDir, filename))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", filename, err)
		}
		if _, err := conn.Exec(string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", name, err)
		}
		if err := recordMigration(conn, name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}

		log.Printf("[MIGRATIONS] applied %s", name)
		pending++
	}

	if pending == 0 {
		log.Println("[MIGRATIONS] schema up to date")
	}
	return nil
}

func ensureMigrationsTable(conn *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			migration_name VARCHAR(255) UNIQUE NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4
	`
	_, err := conn.Exec(query)
	return err
}

func getAppliedMigrations(conn *sql.DB) (map[string]bool, error) {
	rows, err := conn.Query("SELECT migration_name FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

func getMigrationFiles() ([]string, error) {
	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}
		names = append(names, file.Name())
	}
	sort.Strings(names)
	return names, nil
}

func recordMigration(conn *sql.DB, name string) error {
	_, err := conn.Exec("INSERT INTO schema_migrations (migration_name) VALUES (?)", name)
	return err
}

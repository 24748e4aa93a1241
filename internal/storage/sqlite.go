package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps the SQLite request journal.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) history.db in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "history.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate applies embedded migrations that are not yet recorded in
// schema_version, in filename order.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}
	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

const interactionColumns = `id, request_id, created_at, operation, provider, result, attempts, duration_ms, error`

// SaveInteraction appends i to the journal. A zero CreatedAt is stamped
// with the current time.
func (s *Store) SaveInteraction(i Interaction) error {
	if i.CreatedAt.IsZero() {
		i.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO interactions (request_id, created_at, operation, provider, result, attempts, duration_ms, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		i.RequestID, i.CreatedAt.UTC().Format(time.RFC3339), i.Operation, i.Provider,
		i.Result, i.Attempts, i.DurationMS, i.Error,
	)
	return err
}

// GetInteraction returns the latest interaction recorded for requestID.
func (s *Store) GetInteraction(requestID string) (Interaction, error) {
	row := s.db.QueryRow(`SELECT `+interactionColumns+`
		FROM interactions WHERE request_id = ? ORDER BY id DESC LIMIT 1`, requestID)
	i, err := scanInteraction(row)
	if err == sql.ErrNoRows {
		return Interaction{}, ErrNotFound
	}
	return i, err
}

// GetRecentInteractions returns up to limit interactions, newest first.
func (s *Store) GetRecentInteractions(limit int) ([]Interaction, error) {
	rows, err := s.db.Query(`SELECT `+interactionColumns+`
		FROM interactions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []Interaction{}
	for rows.Next() {
		i, err := scanInteraction(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, i)
	}
	return results, rows.Err()
}

// CountResults groups interactions recorded at or after since by operation
// and result.
func (s *Store) CountResults(since time.Time) ([]ResultCount, error) {
	rows, err := s.db.Query(`
		SELECT operation, result, COUNT(*) FROM interactions
		WHERE created_at >= ?
		GROUP BY operation, result
		ORDER BY operation, result`, since.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := []ResultCount{}
	for rows.Next() {
		var c ResultCount
		if err := rows.Scan(&c.Operation, &c.Result, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// Prune deletes interactions recorded before cutoff and returns how many
// rows were removed.
func (s *Store) Prune(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM interactions WHERE created_at < ?`, cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInteraction(sc scanner) (Interaction, error) {
	var i Interaction
	var createdAt string
	if err := sc.Scan(&i.ID, &i.RequestID, &createdAt, &i.Operation, &i.Provider, &i.Result, &i.Attempts, &i.DurationMS, &i.Error); err != nil {
		return Interaction{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Interaction{}, fmt.Errorf("parsing created_at: %w", err)
	}
	i.CreatedAt = t
	return i, nil
}

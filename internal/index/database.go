// Package index maintains a derived SQLite index of the record store.
//
// The index is never authoritative: it is rebuilt from the store on demand
// and only serves reporting queries.
package index

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Dir is the directory under the store root holding derived state.
const Dir = ".skycat"

// ErrIndexLocked indicates another process is rebuilding the index.
var ErrIndexLocked = errors.New("index is locked for rebuild")

// CurrentDBVersion is the current database schema version. A database with
// any other version is dropped and recreated on open.
const CurrentDBVersion = 1

// Database is the SQLite database handle.
type Database struct {
	db   *sql.DB
	lock *indexLock
}

// DB returns the underlying sql.DB for ad hoc queries.
func (d *Database) DB() *sql.DB {
	return d.db
}

// Open opens or creates the index of the store rooted at root, holding an
// exclusive lock until Close.
func Open(root string) (*Database, error) {
	dbDir := filepath.Join(root, Dir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s directory: %w", Dir, err)
	}

	lock, err := acquireIndexLock(dbDir)
	if err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dbDir, "index.db")
	if version(dbPath) != CurrentDBVersion {
		if err := removeDatabaseFiles(dbPath); err != nil {
			_ = lock.Release()
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		_ = lock.Release()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	d := &Database{db: db, lock: lock}
	if err := d.initialize(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// OpenInMemory opens an in-memory database (for testing).
func OpenInMemory() (*Database, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	// Every pooled connection to :memory: is its own database.
	db.SetMaxOpenConns(1)

	d := &Database{db: db}
	if err := d.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the database and releases the lock.
func (d *Database) Close() error {
	err := d.db.Close()
	if lockErr := d.lock.Release(); err == nil {
		err = lockErr
	}
	return err
}

// version reads the schema version of an existing database file, or 0.
func version(dbPath string) int {
	if _, err := os.Stat(dbPath); err != nil {
		return 0
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return 0
	}
	defer db.Close()

	var v int
	if err := db.QueryRow(`SELECT value FROM meta WHERE key = 'version'`).Scan(&v); err != nil {
		return 0
	}
	return v
}

func (d *Database) initialize() error {
	schema := `
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;

		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS imagesets (
			url TEXT PRIMARY KEY,
			partition TEXT NOT NULL,  -- imagesets or quarantine
			bucket TEXT NOT NULL,
			file_path TEXT NOT NULL,
			name TEXT,
			data_set_type TEXT,
			band_pass TEXT,
			projection TEXT,
			alt_url TEXT,
			reason TEXT               -- quarantine only
		);

		CREATE TABLE IF NOT EXISTS places (
			id TEXT PRIMARY KEY,
			bucket TEXT NOT NULL,
			file_path TEXT NOT NULL,
			name TEXT,
			data_set_type TEXT,
			constellation TEXT,
			classification TEXT
		);

		-- Imagery used by each place: imageset, foreground or background.
		CREATE TABLE IF NOT EXISTS place_imagery (
			place_id TEXT NOT NULL,
			role TEXT NOT NULL,
			url TEXT NOT NULL,
			PRIMARY KEY (place_id, role)
		);

		CREATE TABLE IF NOT EXISTS templates (
			catalog TEXT PRIMARY KEY,
			file_path TEXT NOT NULL,
			standalone INTEGER NOT NULL,
			is_xml INTEGER NOT NULL,
			children INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_imagesets_bucket ON imagesets(partition, bucket);
		CREATE INDEX IF NOT EXISTS idx_places_bucket ON places(bucket);
		CREATE INDEX IF NOT EXISTS idx_place_imagery_url ON place_imagery(url);
	`
	if _, err := d.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	_, err := d.db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES ('version', ?)`,
		fmt.Sprintf("%d", CurrentDBVersion))
	if err != nil {
		return fmt.Errorf("failed to set database version: %w", err)
	}
	return nil
}

// indexLock is held for the life of an open on-disk index. It is released
// when the process exits even if Close is never called.
type indexLock struct {
	file *os.File
}

func acquireIndexLock(dbDir string) (*indexLock, error) {
	f, err := os.OpenFile(filepath.Join(dbDir, "index.lock"), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open index lock: %w", err)
	}
	ok, err := tryLock(f)
	if err != nil || !ok {
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to lock index: %w", err)
		}
		return nil, ErrIndexLocked
	}
	return &indexLock{file: f}, nil
}

func (l *indexLock) Release() error {
	if l == nil {
		return nil
	}
	return errors.Join(unlock(l.file), l.file.Close())
}

func removeDatabaseFiles(dbPath string) error {
	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}
	return nil
}

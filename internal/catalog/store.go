// Package catalog records completed scans in a SQLite database so collected
// paths can be listed later and grouped by the application they belong to.
//
// Only paths, sizes and attribution are stored, never file contents.
package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/calvinalkan/triagescan"
)

//go:embed schema.sql
var schemaSQL string

// ErrScanNotFound is returned for an unknown scan ID.
var ErrScanNotFound = errors.New("scan not found")

// Scan is one recorded scan.
type Scan struct {
	ID         string
	Root       string
	StartedAt  time.Time
	FinishedAt time.Time
	FileCount  int
}

// File is one collected path in a recorded scan.
type File struct {
	ScanID  string
	Path    string
	Package string
	Size    int64
}

// PackageCount is the number of files attributed to one package across all
// scans.
type PackageCount struct {
	Package string
	Files   int
}

// Store manages the catalog database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if needed) the catalog at dbPath.
// ":memory:" opens a private in-memory catalog.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Pragmas are per connection, and every connection to ":memory:" is a
	// separate database.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout=5000", // Must be first
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()

			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// Path returns the database path the store was opened with.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}

	return nil
}

// RecordScan stores the result of one scan and returns its record. The set is
// only read; the caller still owns and releases it.
func (s *Store) RecordScan(ctx context.Context, root string, startedAt, finishedAt time.Time, set *triagescan.PathSet) (*Scan, error) {
	rec := &Scan{
		ID:         uuid.NewString(),
		Root:       root,
		StartedAt:  startedAt.UTC(),
		FinishedAt: finishedAt.UTC(),
		FileCount:  set.Len(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO scans (id, root, started_at, finished_at, file_count) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.Root, rec.StartedAt, rec.FinishedAt, rec.FileCount)
	if err != nil {
		return nil, fmt.Errorf("insert scan: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO scanned_files (scan_id, file_path, package_name, size) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare file insert: %w", err)
	}

	defer func() { _ = stmt.Close() }()

	for path, size := range set.All() {
		if _, err := stmt.ExecContext(ctx, rec.ID, path, PackageName(path), size); err != nil {
			return nil, fmt.Errorf("insert file %s: %w", path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit scan: %w", err)
	}

	return rec, nil
}

// ListScans returns all scans, newest first.
func (s *Store) ListScans(ctx context.Context) ([]Scan, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, root, started_at, finished_at, file_count FROM scans ORDER BY started_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("query scans: %w", err)
	}
	defer rows.Close()

	var scans []Scan

	for rows.Next() {
		var sc Scan
		if err := rows.Scan(&sc.ID, &sc.Root, &sc.StartedAt, &sc.FinishedAt, &sc.FileCount); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		scans = append(scans, sc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scans: %w", err)
	}

	return scans, nil
}

// GetScan returns one scan by ID, or ErrScanNotFound.
func (s *Store) GetScan(ctx context.Context, id string) (*Scan, error) {
	var sc Scan

	err := s.db.QueryRowContext(ctx,
		`SELECT id, root, started_at, finished_at, file_count FROM scans WHERE id = ?`, id).
		Scan(&sc.ID, &sc.Root, &sc.StartedAt, &sc.FinishedAt, &sc.FileCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrScanNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("query scan %s: %w", id, err)
	}

	return &sc, nil
}

// FilesForScan returns the files of one scan in the order they were
// collected. An unknown ID yields ErrScanNotFound.
func (s *Store) FilesForScan(ctx context.Context, scanID string) ([]File, error) {
	if _, err := s.GetScan(ctx, scanID); err != nil {
		return nil, err
	}

	return s.queryFiles(ctx,
		`SELECT scan_id, file_path, package_name, size FROM scanned_files WHERE scan_id = ? ORDER BY id`, scanID)
}

// FilesByPackage returns every recorded file attributed to pkg across all
// scans.
func (s *Store) FilesByPackage(ctx context.Context, pkg string) ([]File, error) {
	return s.queryFiles(ctx,
		`SELECT scan_id, file_path, package_name, size FROM scanned_files WHERE package_name = ? ORDER BY id`, pkg)
}

// Packages returns the attributed packages with their file counts, most
// files first. Unattributed files are not listed.
func (s *Store) Packages(ctx context.Context) ([]PackageCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT package_name, COUNT(*) AS n
		FROM scanned_files
		WHERE package_name != ''
		GROUP BY package_name
		ORDER BY n DESC, package_name`)
	if err != nil {
		return nil, fmt.Errorf("query packages: %w", err)
	}
	defer rows.Close()

	var out []PackageCount

	for rows.Next() {
		var pc PackageCount
		if err := rows.Scan(&pc.Package, &pc.Files); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		out = append(out, pc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate packages: %w", err)
	}

	return out, nil
}

// DeleteScan removes a scan and its files.
func (s *Store) DeleteScan(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete scan %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete scan %s: %w", id, err)
	}

	if n == 0 {
		return fmt.Errorf("%w: %s", ErrScanNotFound, id)
	}

	return nil
}

func (s *Store) queryFiles(ctx context.Context, query string, args ...any) ([]File, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()

	var files []File

	for rows.Next() {
		var f File
		if err := rows.Scan(&f.ScanID, &f.Path, &f.Package, &f.Size); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		files = append(files, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}

	return files, nil
}

// ResolveScanID expands a unique ID prefix (as printed by short listings) to
// the full scan ID.
func (s *Store) ResolveScanID(ctx context.Context, prefix string) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("%w: empty id", ErrScanNotFound)
	}

	scans, err := s.ListScans(ctx)
	if err != nil {
		return "", err
	}

	var match string

	for _, sc := range scans {
		if !strings.HasPrefix(sc.ID, prefix) {
			continue
		}

		if match != "" {
			return "", fmt.Errorf("scan id prefix %q is ambiguous", prefix)
		}

		match = sc.ID
	}

	if match == "" {
		return "", fmt.Errorf("%w: %s", ErrScanNotFound, prefix)
	}

	return match, nil
}

// Package indexdb keeps a SQLite history of compiled maps: one row per build
// plus the digest of every file it wrote.
package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type SQLiteIndex struct {
	db   *sql.DB
	once sync.Once
}

// Build summarizes one compile run.
type Build struct {
	ID        string
	MapID     string
	BuiltAt   time.Time
	Cells     int
	Entries   int
	AtlasW    int
	AtlasH    int
	Sprites   int
	Missions  int
	Objects   int
	Outputs   []Output
	Dev       bool
	SourceMap string
}

type Output struct {
	Name   string
	Path   string
	Bytes  int64
	SHA256 string
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteIndex{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS builds (
			build_id TEXT PRIMARY KEY,
			map_id TEXT NOT NULL,
			built_at TEXT NOT NULL,
			source_map TEXT NOT NULL,
			dev INTEGER NOT NULL,
			cells INTEGER NOT NULL,
			entries INTEGER NOT NULL,
			atlas_w INTEGER NOT NULL,
			atlas_h INTEGER NOT NULL,
			sprites INTEGER NOT NULL,
			missions INTEGER NOT NULL,
			objects INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_builds_map_time ON builds(map_id, built_at);`,
		`CREATE TABLE IF NOT EXISTS outputs (
			build_id TEXT NOT NULL REFERENCES builds(build_id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			path TEXT NOT NULL,
			bytes INTEGER NOT NULL,
			sha256 TEXT NOT NULL,
			PRIMARY KEY (build_id, name)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		err = s.db.Close()
	})
	return err
}

// RecordBuild stores b and returns its build id. An empty ID is filled with a
// fresh UUID and a zero BuiltAt with the current time.
func (s *SQLiteIndex) RecordBuild(ctx context.Context, b Build) (string, error) {
	if s == nil {
		return "", nil
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.BuiltAt.IsZero() {
		b.BuiltAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return "", err
	}
	dev := 0
	if b.Dev {
		dev = 1
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO builds(build_id,map_id,built_at,source_map,dev,cells,entries,atlas_w,atlas_h,sprites,missions,objects) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`,
		b.ID, b.MapID, b.BuiltAt.UTC().Format(builtAtLayout), b.SourceMap, dev,
		b.Cells, b.Entries, b.AtlasW, b.AtlasH, b.Sprites, b.Missions, b.Objects,
	); err != nil {
		return "", err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO outputs(build_id,name,path,bytes,sha256) VALUES(?,?,?,?,?)`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()
	for _, o := range b.Outputs {
		if _, err := stmt.ExecContext(ctx, b.ID, o.Name, o.Path, o.Bytes, o.SHA256); err != nil {
			return "", err
		}
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return b.ID, nil
}

// builtAtLayout keeps every stored timestamp the same width so built_at
// sorts as text.
const builtAtLayout = "2006-01-02T15:04:05.000000000Z"

// Builds returns the most recent builds of mapID, newest first. Outputs are
// not loaded.
func (s *SQLiteIndex) Builds(ctx context.Context, mapID string, limit int) ([]Build, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT build_id,map_id,built_at,source_map,dev,cells,entries,atlas_w,atlas_h,sprites,missions,objects
		 FROM builds WHERE map_id=? ORDER BY built_at DESC, rowid DESC LIMIT ?`, mapID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Build
	for rows.Next() {
		var (
			b   Build
			at  string
			dev int
		)
		if err := rows.Scan(&b.ID, &b.MapID, &at, &b.SourceMap, &dev, &b.Cells, &b.Entries,
			&b.AtlasW, &b.AtlasH, &b.Sprites, &b.Missions, &b.Objects); err != nil {
			return nil, err
		}
		if b.BuiltAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("build %s: built_at %q: %w", b.ID, at, err)
		}
		b.Dev = dev != 0
		out = append(out, b)
	}
	return out, rows.Err()
}

// DescribeFile fills an Output for the file at path.
func DescribeFile(name, path string) (Output, error) {
	f, err := os.Open(path)
	if err != nil {
		return Output{}, err
	}
	defer f.Close()
	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return Output{}, err
	}
	return Output{Name: name, Path: path, Bytes: n, SHA256: hex.EncodeToString(h.Sum(nil))}, nil
}

// Package sqlite provides a SQLite-backed snapshot store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
	_ "modernc.org/sqlite"
)

var _ ports.SnapshotStore = (*Store)(nil)

const schema = `CREATE TABLE IF NOT EXISTS diagrams (
	id         TEXT PRIMARY KEY,
	snapshot   TEXT NOT NULL,
	nodes      INTEGER NOT NULL,
	edges      INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
)`

// Store persists diagram snapshots in SQLite, one row per diagram.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite snapshot store and creates its table.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Save upserts the snapshot.
func (s *Store) Save(ctx context.Context, snap *domain.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snap == nil || strings.TrimSpace(snap.DiagramID) == "" {
		return fmt.Errorf("%w: snapshot requires a diagram id", domain.ErrInvalidArgument)
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO diagrams (id, snapshot, nodes, edges, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   snapshot = excluded.snapshot,
		   nodes = excluded.nodes,
		   edges = excluded.edges,
		   updated_at = excluded.updated_at`,
		snap.DiagramID,
		string(data),
		len(snap.Nodes),
		len(snap.Edges),
		time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save diagram %q: %w", snap.DiagramID, err)
	}
	return nil
}

// Load reads one snapshot.
func (s *Store) Load(ctx context.Context, diagramID string) (*domain.Snapshot, error) {
	var data string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT snapshot FROM diagrams WHERE id = ?`, diagramID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrDiagramNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load diagram %q: %w", diagramID, err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("unmarshal diagram %q: %w", diagramID, err)
	}
	return &snap, nil
}

// Delete removes one snapshot.
func (s *Store) Delete(ctx context.Context, diagramID string) error {
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM diagrams WHERE id = ?`, diagramID); err != nil {
		return fmt.Errorf("delete diagram %q: %w", diagramID, err)
	}
	return nil
}

// List returns all diagram IDs in order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT id FROM diagrams ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list diagrams: %w", err)
	}
	defer rows.Close()

	diagrams := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan diagram id: %w", err)
		}
		diagrams = append(diagrams, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list diagrams: %w", err)
	}
	return diagrams, nil
}

// Stats returns the node and edge counts recorded with the stored snapshot.
func (s *Store) Stats(ctx context.Context, diagramID string) (nodes, edges int, updated time.Time, err error) {
	var millis int64
	err = s.sqlDB.QueryRowContext(ctx, `SELECT nodes, edges, updated_at FROM diagrams WHERE id = ?`, diagramID).Scan(&nodes, &edges, &millis)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, time.Time{}, domain.ErrDiagramNotFound
	}
	if err != nil {
		return 0, 0, time.Time{}, fmt.Errorf("stat diagram %q: %w", diagramID, err)
	}
	return nodes, edges, time.UnixMilli(millis).UTC(), nil
}

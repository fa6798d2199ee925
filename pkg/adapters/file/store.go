package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
)

var _ ports.SnapshotStore = (*Store)(nil)

// DefaultDir is used when New is given an empty base path.
var DefaultDir = filepath.Join(".espalier", "diagrams")

// Store implements ports.SnapshotStore using the local filesystem.
// It stores one JSON file per diagram in a configured directory.
type Store struct {
	BasePath string
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to DefaultDir.
func New(basePath string) *Store {
	if basePath == "" {
		basePath = DefaultDir
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(diagramID string) (string, error) {
	if diagramID == "" || strings.ContainsAny(diagramID, `/\`) || diagramID == "." || diagramID == ".." {
		return "", fmt.Errorf("%w: invalid diagram id %q", domain.ErrInvalidArgument, diagramID)
	}
	return filepath.Join(s.BasePath, diagramID+".json"), nil
}

// Save persists the snapshot to a JSON file atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Store) Save(ctx context.Context, snap *domain.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: snapshot is nil", domain.ErrInvalidArgument)
	}
	destPath, err := s.path(snap.DiagramID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure diagram directory: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	// Same directory, so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+snap.DiagramID+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Cannot rename an open file on Windows.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// On Windows, os.Rename fails if dest exists.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing diagram file for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file to diagram file: %w", err)
	}
	return nil
}

// Load reads the snapshot from its JSON file.
func (s *Store) Load(ctx context.Context, diagramID string) (*domain.Snapshot, error) {
	filePath, err := s.path(diagramID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrDiagramNotFound
		}
		return nil, fmt.Errorf("failed to read diagram file: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal diagram %q: %w", diagramID, err)
	}
	return &snap, nil
}

// Delete removes the diagram file.
func (s *Store) Delete(ctx context.Context, diagramID string) error {
	filePath, err := s.path(diagramID)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete diagram file: %w", err)
	}
	return nil
}

// List returns the IDs of all diagram files.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list diagrams: %w", err)
	}

	diagrams := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, "tmp-") {
			continue
		}
		diagrams = append(diagrams, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(diagrams)
	return diagrams, nil
}

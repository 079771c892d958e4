// Package storage keeps a local copy of the recipe catalog so plans can be
// generated without reaching Mealie.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mealie-planner/internal/recipe"
)

// ErrNoSnapshot is returned by Load when no snapshot has been written yet.
var ErrNoSnapshot = errors.New("no catalog snapshot")

// Snapshot is the on-disk catalog format.
type Snapshot struct {
	FetchedAt time.Time       `json:"fetched_at"`
	Recipes   []recipe.Recipe `json:"recipes"`
}

// CatalogStore provides file-based storage for the recipe catalog.
type CatalogStore struct {
	path string
}

// NewCatalogStore creates a CatalogStore and ensures the parent directory exists.
func NewCatalogStore(path string) (*CatalogStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
	}
	return &CatalogStore{path: path}, nil
}

// Path returns the snapshot file location.
func (s *CatalogStore) Path() string { return s.path }

// Save replaces the snapshot with recipes.
func (s *CatalogStore) Save(recipes []recipe.Recipe, fetchedAt time.Time) error {
	data, err := json.MarshalIndent(Snapshot{FetchedAt: fetchedAt.UTC(), Recipes: recipes}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	// Readers must never see a partial snapshot.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write catalog file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace catalog file: %w", err)
	}
	return nil
}

// Load reads the last saved snapshot.
func (s *CatalogStore) Load() (Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, fmt.Errorf("%w at %s", ErrNoSnapshot, s.path)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("failed to unmarshal catalog: %w", err)
	}
	return snap, nil
}

// Exists reports whether a snapshot has been written.
func (s *CatalogStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

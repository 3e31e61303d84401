// Package store persists the engine's two bookkeeping tables: replica
// baselines captured before destructive operations, and measured pod startup
// latencies. Both are keyed by (connection, namespace, workload) and hold at
// most one row per key.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"depctl/pkg/logging"

	"gopkg.in/yaml.v3"
)

type baselineRow struct {
	Connection string    `yaml:"connection"`
	Namespace  string    `yaml:"namespace"`
	Workload   string    `yaml:"workload"`
	Replicas   int32     `yaml:"replicas"`
	UpdatedAt  time.Time `yaml:"updatedAt"`
}

type baselineFile struct {
	Baselines []baselineRow `yaml:"baselines"`
}

// BaselineStore persists last-known replica baselines. A zero path keeps the
// store in memory only. All operations are atomic at the
// (connection, namespace) granularity.
type BaselineStore struct {
	mu   sync.Mutex
	path string
	// rows is keyed by connection id, then namespace, then workload name.
	rows map[string]map[string]map[string]baselineRow
}

// NewBaselineStore opens (or initializes) the baseline store at path.
func NewBaselineStore(path string) (*BaselineStore, error) {
	s := &BaselineStore{
		path: path,
		rows: make(map[string]map[string]map[string]baselineRow),
	}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read baseline store %s: %w", path, err)
	}
	var file baselineFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse baseline store %s: %w", path, err)
	}
	for _, row := range file.Baselines {
		s.setLocked(row)
	}
	logging.Debug("BaselineStore", "Loaded %d baseline rows from %s", len(file.Baselines), path)
	return s, nil
}

// HasBaseline reports whether any baseline row exists for the
// (connection, namespace) scope.
func (s *BaselineStore) HasBaseline(connectionID, namespace string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows[connectionID][namespace]) > 0
}

// Snapshot atomically replaces the entire baseline set for
// (connection, namespace) with the given replica counts. Delete-then-insert;
// never a partial merge.
func (s *BaselineStore) Snapshot(connectionID, namespace string, current map[string]int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if byNS, ok := s.rows[connectionID]; ok {
		delete(byNS, namespace)
	}
	now := time.Now()
	for name, replicas := range current {
		s.setLocked(baselineRow{
			Connection: connectionID,
			Namespace:  namespace,
			Workload:   name,
			Replicas:   replicas,
			UpdatedAt:  now,
		})
	}
	if err := s.persistLocked(); err != nil {
		return err
	}
	logging.Info("BaselineStore", "Snapshot of %d workloads stored for %s/%s", len(current), connectionID, namespace)
	return nil
}

// SetBaseline upserts a single baseline row, independent of Snapshot.
func (s *BaselineStore) SetBaseline(connectionID, namespace, name string, replicas int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(baselineRow{
		Connection: connectionID,
		Namespace:  namespace,
		Workload:   name,
		Replicas:   replicas,
		UpdatedAt:  time.Now(),
	})
	return s.persistLocked()
}

// GetBaseline returns the stored baseline map for (connection, namespace), or
// an empty map when nothing is stored.
func (s *BaselineStore) GetBaseline(connectionID, namespace string) map[string]int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make(map[string]int32)
	for name, row := range s.rows[connectionID][namespace] {
		result[name] = row.Replicas
	}
	return result
}

// GetBaselineFor returns the stored replica count for one workload.
func (s *BaselineStore) GetBaselineFor(connectionID, namespace, name string) (int32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[connectionID][namespace][name]
	if !ok {
		return 0, false
	}
	return row.Replicas, true
}

// LastUpdated returns the most recent write timestamp within the
// (connection, namespace) scope, or the zero time when nothing is stored.
func (s *BaselineStore) LastUpdated(connectionID, namespace string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest time.Time
	for _, row := range s.rows[connectionID][namespace] {
		if row.UpdatedAt.After(latest) {
			latest = row.UpdatedAt
		}
	}
	return latest
}

// Clear removes every baseline row for (connection, namespace).
func (s *BaselineStore) Clear(connectionID, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if byNS, ok := s.rows[connectionID]; ok {
		delete(byNS, namespace)
	}
	logging.Info("BaselineStore", "Cleared baselines for %s/%s", connectionID, namespace)
	return s.persistLocked()
}

func (s *BaselineStore) setLocked(row baselineRow) {
	byNS, ok := s.rows[row.Connection]
	if !ok {
		byNS = make(map[string]map[string]baselineRow)
		s.rows[row.Connection] = byNS
	}
	byName, ok := byNS[row.Namespace]
	if !ok {
		byName = make(map[string]baselineRow)
		byNS[row.Namespace] = byName
	}
	byName[row.Workload] = row
}

func (s *BaselineStore) persistLocked() error {
	if s.path == "" {
		return nil
	}
	var file baselineFile
	for _, byNS := range s.rows {
		for _, byName := range byNS {
			for _, row := range byName {
				file.Baselines = append(file.Baselines, row)
			}
		}
	}
	sort.Slice(file.Baselines, func(i, j int) bool {
		a, b := file.Baselines[i], file.Baselines[j]
		if a.Connection != b.Connection {
			return a.Connection < b.Connection
		}
		if a.Namespace != b.Namespace {
			return a.Namespace < b.Namespace
		}
		return a.Workload < b.Workload
	})

	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to marshal baselines: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write baseline store %s: %w", s.path, err)
	}
	return nil
}

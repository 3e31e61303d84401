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

type latencyRow struct {
	Connection string    `yaml:"connection"`
	Namespace  string    `yaml:"namespace"`
	Workload   string    `yaml:"workload"`
	Seconds    int64     `yaml:"seconds"`
	UpdatedAt  time.Time `yaml:"updatedAt"`
}

type latencyFile struct {
	Latencies []latencyRow `yaml:"latencies"`
}

// LatencyStore persists measured pod startup latencies, one row per
// (connection, namespace, workload). A zero path keeps the store in memory
// only.
type LatencyStore struct {
	mu   sync.Mutex
	path string
	rows map[string]latencyRow
}

// NewLatencyStore opens (or initializes) the latency store at path.
func NewLatencyStore(path string) (*LatencyStore, error) {
	s := &LatencyStore{
		path: path,
		rows: make(map[string]latencyRow),
	}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read latency store %s: %w", path, err)
	}
	var file latencyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse latency store %s: %w", path, err)
	}
	for _, row := range file.Latencies {
		s.rows[latencyKey(row.Connection, row.Namespace, row.Workload)] = row
	}
	logging.Debug("LatencyStore", "Loaded %d latency rows from %s", len(file.Latencies), path)
	return s, nil
}

func latencyKey(connectionID, namespace, name string) string {
	return connectionID + "/" + namespace + "/" + name
}

// Save upserts the measured startup latency for one workload, overwriting any
// prior value.
func (s *LatencyStore) Save(connectionID, namespace, name string, seconds int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[latencyKey(connectionID, namespace, name)] = latencyRow{
		Connection: connectionID,
		Namespace:  namespace,
		Workload:   name,
		Seconds:    seconds,
		UpdatedAt:  time.Now(),
	}
	if err := s.persistLocked(); err != nil {
		return err
	}
	logging.Info("LatencyStore", "Stored startup latency %ds for %s/%s/%s", seconds, connectionID, namespace, name)
	return nil
}

// Get returns the stored latency for one workload.
func (s *LatencyStore) Get(connectionID, namespace, name string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[latencyKey(connectionID, namespace, name)]
	if !ok {
		return 0, false
	}
	return row.Seconds, true
}

// LastUpdated returns when the latency for one workload was last measured, or
// the zero time when no measurement is stored.
func (s *LatencyStore) LastUpdated(connectionID, namespace, name string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[latencyKey(connectionID, namespace, name)].UpdatedAt
}

func (s *LatencyStore) persistLocked() error {
	if s.path == "" {
		return nil
	}
	var file latencyFile
	for _, row := range s.rows {
		file.Latencies = append(file.Latencies, row)
	}
	sort.Slice(file.Latencies, func(i, j int) bool {
		a, b := file.Latencies[i], file.Latencies[j]
		return latencyKey(a.Connection, a.Namespace, a.Workload) < latencyKey(b.Connection, b.Namespace, b.Workload)
	})

	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to marshal latencies: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write latency store %s: %w", s.path, err)
	}
	return nil
}

package connections

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

// registryFile is the on-disk shape of the registry.
type registryFile struct {
	Connections []Connection `yaml:"connections"`
	Groups      []Group      `yaml:"groups,omitempty"`
}

// FileRegistry is a YAML-file-backed connection registry. A zero path keeps
// the registry in memory only, which tests rely on.
type FileRegistry struct {
	mu    sync.RWMutex
	path  string
	conns map[string]Connection
	grps  map[string]Group
}

// NewFileRegistry opens (or initializes) the registry at path. A missing file
// is not an error; the registry starts empty.
func NewFileRegistry(path string) (*FileRegistry, error) {
	r := &FileRegistry{
		path:  path,
		conns: make(map[string]Connection),
		grps:  make(map[string]Group),
	}
	if path == "" {
		return r, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read connections file %s: %w", path, err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse connections file %s: %w", path, err)
	}
	for _, conn := range file.Connections {
		r.conns[conn.ID] = conn
	}
	for _, grp := range file.Groups {
		r.grps[grp.Name] = grp
	}
	logging.Debug("ConnectionRegistry", "Loaded %d connections and %d groups from %s", len(r.conns), len(r.grps), path)
	return r, nil
}

// Get returns the connection with the given id.
func (r *FileRegistry) Get(id string) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[id]
	return conn, ok
}

// List returns all connections, ordered by name.
func (r *FileRegistry) List() []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := make([]Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	sort.Slice(conns, func(i, j int) bool { return conns[i].Name < conns[j].Name })
	return conns
}

// ListInGroup returns the connections belonging to the named group, ordered
// by name.
func (r *FileRegistry) ListInGroup(group string) []Connection {
	all := r.List()
	conns := make([]Connection, 0, len(all))
	for _, conn := range all {
		if conn.Group == group {
			conns = append(conns, conn)
		}
	}
	return conns
}

// Groups returns all known groups, ordered by name.
func (r *FileRegistry) Groups() []Group {
	r.mu.RLock()
	defer r.mu.RUnlock()
	grps := make([]Group, 0, len(r.grps))
	for _, grp := range r.grps {
		grps = append(grps, grp)
	}
	sort.Slice(grps, func(i, j int) bool { return grps[i].Name < grps[j].Name })
	return grps
}

// Save upserts a connection record and persists the registry. The caller is
// responsible for invalidating any cached client handle for conn.ID.
func (r *FileRegistry) Save(conn Connection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn.UpdatedAt = time.Now()
	r.conns[conn.ID] = conn
	if err := r.persistLocked(); err != nil {
		return err
	}
	logging.Info("ConnectionRegistry", "Saved connection %s (%s)", conn.Name, conn.ID)
	return nil
}

// Delete removes a connection record. Deleting an unknown id is a no-op.
func (r *FileRegistry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[id]; !ok {
		return nil
	}
	delete(r.conns, id)
	if err := r.persistLocked(); err != nil {
		return err
	}
	logging.Info("ConnectionRegistry", "Deleted connection %s", id)
	return nil
}

// SaveGroup upserts a group definition and persists the registry.
func (r *FileRegistry) SaveGroup(grp Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grps[grp.Name] = grp
	return r.persistLocked()
}

func (r *FileRegistry) persistLocked() error {
	if r.path == "" {
		return nil
	}

	file := registryFile{}
	for _, conn := range r.conns {
		file.Connections = append(file.Connections, conn)
	}
	sort.Slice(file.Connections, func(i, j int) bool { return file.Connections[i].ID < file.Connections[j].ID })
	for _, grp := range r.grps {
		file.Groups = append(file.Groups, grp)
	}
	sort.Slice(file.Groups, func(i, j int) bool { return file.Groups[i].Name < file.Groups[j].Name })

	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to marshal connections: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write connections file %s: %w", r.path, err)
	}
	return nil
}

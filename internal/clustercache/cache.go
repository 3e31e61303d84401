package clustercache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"depctl/internal/connections"
	"depctl/pkg/logging"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
)

// ErrNotConfigured is returned when no connection record exists for the
// requested id.
var ErrNotConfigured = errors.New("connection is not configured")

// NewClientsetFromConfig is a package-level variable for creating a clientset
// from rest.Config. Exported to allow overriding in tests. The returned func
// releases the client's idle transport connections.
var NewClientsetFromConfig = func(cfg *rest.Config) (kubernetes.Interface, func(), error) {
	httpClient, err := rest.HTTPClientFor(cfg)
	if err != nil {
		return nil, nil, err
	}
	clientset, err := kubernetes.NewForConfigAndClient(cfg, httpClient)
	if err != nil {
		return nil, nil, err
	}
	return clientset, httpClient.CloseIdleConnections, nil
}

// Handle is a live client to one remote cluster. Handles are owned by the
// Cache; callers must not retain them across operations or close them.
type Handle struct {
	Clientset kubernetes.Interface

	conn      connections.Connection
	closeIdle func()
}

// Connection returns the connection record this handle was built from.
func (h *Handle) Connection() connections.Connection {
	return h.conn
}

// Close releases the handle's transport resources.
func (h *Handle) Close() {
	if h.closeIdle != nil {
		h.closeIdle()
	}
}

type cacheEntry struct {
	mu     sync.Mutex
	handle *Handle
}

// Cache owns at most one live client handle per connection id. Handles are
// created lazily on first use, replaced when the backing connection record
// changes, and closed on eviction.
type Cache struct {
	registry connections.Registry

	mu      sync.Mutex
	entries map[string]*cacheEntry
}

// New creates an empty cache backed by the given registry.
func New(registry connections.Registry) *Cache {
	return &Cache{
		registry: registry,
		entries:  make(map[string]*cacheEntry),
	}
}

// Get returns the live handle for the connection id, creating one if needed.
// Simulated connections return (nil, nil); callers must branch on the nil
// handle and serve synthetic data instead.
func (c *Cache) Get(ctx context.Context, id string) (*Handle, error) {
	conn, ok := c.registry.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, id)
	}
	if conn.Simulated {
		return nil, nil
	}

	entry := c.entry(id)

	// Per-entry lock makes get-or-create atomic for a given id: a racing
	// caller waits here instead of building a duplicate handle.
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.handle != nil {
		if entry.handle.conn == conn {
			return entry.handle, nil
		}
		// The connection record was edited; the cached handle is stale.
		logging.Info("ClusterClientCache", "Connection %s changed, discarding cached client", id)
		entry.handle.Close()
		entry.handle = nil
	}

	handle, err := c.create(ctx, conn)
	if err != nil {
		return nil, err
	}
	entry.handle = handle
	return handle, nil
}

func (c *Cache) entry(id string) *cacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[id]
	if !ok {
		entry = &cacheEntry{}
		c.entries[id] = entry
	}
	return entry
}

func (c *Cache) create(ctx context.Context, conn connections.Connection) (*Handle, error) {
	subsystem := fmt.Sprintf("ClusterClientCache-%s", conn.ID)
	logging.Debug(subsystem, "Creating client for %s (%s)", conn.Name, conn.APIURL)

	cfg := &rest.Config{
		Host:        conn.APIURL,
		BearerToken: conn.Token,
		TLSClientConfig: rest.TLSClientConfig{
			Insecure: true,
		},
		Timeout: 15 * time.Second,
	}

	clientset, closeIdle, err := NewClientsetFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for connection %s: %w", conn.ID, err)
	}

	// Best-effort reachability probe; a failure here is logged but does not
	// fail handle creation.
	if version, err := clientset.Discovery().ServerVersion(); err != nil {
		logging.Warn(subsystem, "Could not fetch server version for %s: %v", conn.APIURL, err)
	} else {
		logging.Info(subsystem, "Connected to %s (server %s)", conn.APIURL, version.GitVersion)
	}

	return &Handle{Clientset: clientset, conn: conn, closeIdle: closeIdle}, nil
}

// Invalidate closes and evicts the handle for one connection id. It is safe
// to call when no handle is cached.
func (c *Cache) Invalidate(id string) {
	c.mu.Lock()
	entry, ok := c.entries[id]
	if ok {
		delete(c.entries, id)
	}
	c.mu.Unlock()
	if !ok {
		return
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.handle != nil {
		entry.handle.Close()
		entry.handle = nil
		logging.Info("ClusterClientCache", "Evicted client for connection %s", id)
	}
}

// InvalidateAll closes and evicts every cached handle.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	entries := c.entries
	c.entries = make(map[string]*cacheEntry)
	c.mu.Unlock()

	for id, entry := range entries {
		entry.mu.Lock()
		if entry.handle != nil {
			entry.handle.Close()
			entry.handle = nil
			logging.Debug("ClusterClientCache", "Evicted client for connection %s", id)
		}
		entry.mu.Unlock()
	}
	logging.Info("ClusterClientCache", "Client cache cleared")
}

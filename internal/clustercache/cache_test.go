package clustercache_test

import (
	"context"
	"io"
	"os"
	"testing"

	"depctl/internal/clustercache"
	"depctl/internal/connections"
	"depctl/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/fake"
	"k8s.io/client-go/rest"
)

func TestMain(m *testing.M) {
	logging.Init(logging.LevelError, io.Discard)
	os.Exit(m.Run())
}

// overrideClientsetFactory replaces the clientset factory for the duration of
// the test and counts creations and close calls.
func overrideClientsetFactory(t *testing.T) (created *int, closed *int) {
	t.Helper()
	original := clustercache.NewClientsetFromConfig
	t.Cleanup(func() { clustercache.NewClientsetFromConfig = original })

	var createCount, closeCount int
	clustercache.NewClientsetFromConfig = func(cfg *rest.Config) (kubernetes.Interface, func(), error) {
		createCount++
		return fake.NewSimpleClientset(), func() { closeCount++ }, nil
	}
	return &createCount, &closeCount
}

func newTestRegistry(t *testing.T, conns ...connections.Connection) *connections.FileRegistry {
	t.Helper()
	registry, err := connections.NewFileRegistry("")
	require.NoError(t, err)
	for _, conn := range conns {
		require.NoError(t, registry.Save(conn))
	}
	return registry
}

func TestGetUnknownConnection(t *testing.T) {
	cache := clustercache.New(newTestRegistry(t))

	_, err := cache.Get(context.Background(), "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, clustercache.ErrNotConfigured)
}

func TestGetSimulatedConnection(t *testing.T) {
	cache := clustercache.New(newTestRegistry(t, connections.Connection{ID: "sim", Name: "sim", Simulated: true}))

	handle, err := cache.Get(context.Background(), "sim")
	require.NoError(t, err)
	assert.Nil(t, handle, "simulated connections have no client handle")
}

func TestGetCachesHandle(t *testing.T) {
	created, _ := overrideClientsetFactory(t)
	cache := clustercache.New(newTestRegistry(t, connections.Connection{ID: "c1", Name: "c1", APIURL: "https://api.example.com"}))

	first, err := cache.Get(context.Background(), "c1")
	require.NoError(t, err)
	second, err := cache.Get(context.Background(), "c1")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, *created)
}

func TestGetRecreatesAfterConnectionChange(t *testing.T) {
	created, closed := overrideClientsetFactory(t)
	registry := newTestRegistry(t, connections.Connection{ID: "c1", Name: "c1", APIURL: "https://old.example.com"})
	cache := clustercache.New(registry)

	first, err := cache.Get(context.Background(), "c1")
	require.NoError(t, err)

	// Editing the connection record makes the cached handle stale.
	require.NoError(t, registry.Save(connections.Connection{ID: "c1", Name: "c1", APIURL: "https://new.example.com"}))

	second, err := cache.Get(context.Background(), "c1")
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, 2, *created)
	assert.Equal(t, 1, *closed, "the stale handle must be closed")
}

func TestInvalidate(t *testing.T) {
	created, closed := overrideClientsetFactory(t)
	cache := clustercache.New(newTestRegistry(t, connections.Connection{ID: "c1", Name: "c1", APIURL: "https://api.example.com"}))

	_, err := cache.Get(context.Background(), "c1")
	require.NoError(t, err)

	cache.Invalidate("c1")
	assert.Equal(t, 1, *closed)

	// Invalidating an id with no cached handle is safe.
	cache.Invalidate("never-seen")

	_, err = cache.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, *created)
}

func TestInvalidateAll(t *testing.T) {
	_, closed := overrideClientsetFactory(t)
	cache := clustercache.New(newTestRegistry(t,
		connections.Connection{ID: "c1", Name: "c1", APIURL: "https://one.example.com"},
		connections.Connection{ID: "c2", Name: "c2", APIURL: "https://two.example.com"},
	))

	_, err := cache.Get(context.Background(), "c1")
	require.NoError(t, err)
	_, err = cache.Get(context.Background(), "c2")
	require.NoError(t, err)

	cache.InvalidateAll()
	assert.Equal(t, 2, *closed)
}

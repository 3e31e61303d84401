package connections_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"depctl/internal/connections"
	"depctl/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logging.Init(logging.LevelError, io.Discard)
	os.Exit(m.Run())
}

func TestFileRegistryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "connections.yaml")

	registry, err := connections.NewFileRegistry(path)
	require.NoError(t, err)

	conn := connections.Connection{
		ID:        "prod-east",
		Name:      "Production East",
		APIURL:    "https://api.prod-east.example.com:6443",
		Token:     "secret",
		Namespace: "shop",
		Group:     "prod",
	}
	require.NoError(t, registry.Save(conn))
	require.NoError(t, registry.SaveGroup(connections.Group{Name: "prod", Description: "Production clusters"}))

	// A fresh registry reads the same records back from disk.
	reloaded, err := connections.NewFileRegistry(path)
	require.NoError(t, err)

	got, ok := reloaded.Get("prod-east")
	require.True(t, ok)
	assert.Equal(t, "Production East", got.Name)
	assert.Equal(t, "shop", got.Namespace)
	assert.False(t, got.UpdatedAt.IsZero(), "Save should stamp UpdatedAt")

	groups := reloaded.Groups()
	require.Len(t, groups, 1)
	assert.Equal(t, "prod", groups[0].Name)
}

func TestFileRegistryListOrdering(t *testing.T) {
	registry, err := connections.NewFileRegistry("")
	require.NoError(t, err)

	require.NoError(t, registry.Save(connections.Connection{ID: "b", Name: "beta", Group: "g"}))
	require.NoError(t, registry.Save(connections.Connection{ID: "a", Name: "alpha", Group: "g"}))
	require.NoError(t, registry.Save(connections.Connection{ID: "c", Name: "gamma", Group: "other"}))

	all := registry.List()
	require.Len(t, all, 3)
	assert.Equal(t, "alpha", all[0].Name)
	assert.Equal(t, "beta", all[1].Name)
	assert.Equal(t, "gamma", all[2].Name)

	inGroup := registry.ListInGroup("g")
	require.Len(t, inGroup, 2)
	assert.Equal(t, "alpha", inGroup[0].Name)
	assert.Equal(t, "beta", inGroup[1].Name)
}

func TestFileRegistryDelete(t *testing.T) {
	registry, err := connections.NewFileRegistry("")
	require.NoError(t, err)

	require.NoError(t, registry.Save(connections.Connection{ID: "x", Name: "x"}))
	require.NoError(t, registry.Delete("x"))
	_, ok := registry.Get("x")
	assert.False(t, ok)

	// Deleting an unknown id is a no-op.
	require.NoError(t, registry.Delete("never-existed"))
}

func TestResolvedNamespace(t *testing.T) {
	conn := connections.Connection{ID: "a"}
	assert.Equal(t, "default", conn.ResolvedNamespace())

	conn.Namespace = "shop"
	assert.Equal(t, "shop", conn.ResolvedNamespace())
}

func TestFileRegistryMissingFile(t *testing.T) {
	registry, err := connections.NewFileRegistry(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Empty(t, registry.List())
}

package orchestrator_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"depctl/internal/clustercache"
	"depctl/internal/connections"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
)

func simConn(id, namespace, group string) connections.Connection {
	return connections.Connection{ID: id, Name: id, Namespace: namespace, Group: group, Simulated: true}
}

func TestGroupShutdownAllMergesDisjointResults(t *testing.T) {
	orch, _ := newTestOrchestrator(t, nil,
		simConn("east", "test-project", "prod"),
		simConn("west", "production", "prod"),
		simConn("outsider", "staging", "other"),
	)

	result, err := orch.GroupShutdownAll(context.Background(), "prod")
	require.NoError(t, err)

	// 3 workloads per simulated namespace, two connections in the group.
	assert.Equal(t, 6, result.TotalCount)
	assert.Equal(t, 6, result.SuccessCount)

	east, west := 0, 0
	for key, ok := range result.Results {
		assert.True(t, ok)
		switch {
		case strings.HasPrefix(key, "east/test-project/"):
			east++
		case strings.HasPrefix(key, "west/production/"):
			west++
		default:
			t.Errorf("unexpected result key %q", key)
		}
	}
	assert.Equal(t, 3, east)
	assert.Equal(t, 3, west)
}

func TestGroupFanOutIsolatesFailingConnection(t *testing.T) {
	orch, _ := newTestOrchestrator(t, nil,
		simConn("healthy", "test-project", "prod"),
		connections.Connection{ID: "broken", Name: "broken", APIURL: "https://down.example.com", Namespace: "shop", Group: "prod"},
	)
	// Replace the helper's factory so the broken connection cannot build a
	// client; the helper's cleanup still restores the original afterwards.
	clustercache.NewClientsetFromConfig = func(cfg *rest.Config) (kubernetes.Interface, func(), error) {
		return nil, nil, errors.New("cluster unreachable")
	}

	result, err := orch.GroupRestartAll(context.Background(), "prod")
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalCount, "the healthy connection's workloads are still processed")
	for key := range result.Results {
		assert.True(t, strings.HasPrefix(key, "healthy/test-project/"))
	}
}

func TestGroupRestoreRoundTrip(t *testing.T) {
	orch, baselines := newTestOrchestrator(t, nil,
		simConn("east", "test-project", "prod"),
	)
	ctx := context.Background()

	down, err := orch.GroupShutdownAll(ctx, "prod")
	require.NoError(t, err)
	require.Equal(t, down.TotalCount, down.SuccessCount)
	assert.True(t, baselines.HasBaseline("east", "test-project"))

	up, err := orch.GroupRestoreAll(ctx, "prod")
	require.NoError(t, err)
	assert.Equal(t, down.TotalCount, up.TotalCount)
	assert.Equal(t, up.TotalCount, up.SuccessCount)
}

func TestGroupScaleAll(t *testing.T) {
	orch, _ := newTestOrchestrator(t, nil, simConn("east", "development", "dev"))

	result, err := orch.GroupScaleAll(context.Background(), "dev", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalCount)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Contains(t, result.Results, "east/development/dev-app")
}

func TestGroupSaveState(t *testing.T) {
	orch, baselines := newTestOrchestrator(t, nil,
		simConn("east", "test-project", "prod"),
		simConn("west", "production", "prod"),
	)

	result, err := orch.GroupSaveState(context.Background(), "prod")
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalCount)
	assert.Equal(t, 2, result.SuccessCount)
	assert.True(t, baselines.HasBaseline("east", "test-project"))
	assert.True(t, baselines.HasBaseline("west", "production"))
}

func TestGroupWithNoConnections(t *testing.T) {
	orch, _ := newTestOrchestrator(t, nil)

	result, err := orch.GroupRestartAll(context.Background(), "empty")
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalCount)
	assert.Empty(t, result.Results)
}

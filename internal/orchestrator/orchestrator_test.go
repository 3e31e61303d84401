package orchestrator_test

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"depctl/internal/clustercache"
	"depctl/internal/connections"
	"depctl/internal/orchestrator"
	"depctl/internal/store"
	"depctl/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/fake"
	"k8s.io/client-go/rest"
	k8stesting "k8s.io/client-go/testing"
)

func TestMain(m *testing.M) {
	logging.Init(logging.LevelError, io.Discard)
	os.Exit(m.Run())
}

const restartedAtAnnotation = "kubectl.kubernetes.io/restartedAt"

// newTestOrchestrator wires an orchestrator whose client cache hands out the
// given fake clientset for every non-simulated connection.
func newTestOrchestrator(t *testing.T, clientset kubernetes.Interface, conns ...connections.Connection) (*orchestrator.Orchestrator, *store.BaselineStore) {
	t.Helper()

	original := clustercache.NewClientsetFromConfig
	t.Cleanup(func() { clustercache.NewClientsetFromConfig = original })
	clustercache.NewClientsetFromConfig = func(cfg *rest.Config) (kubernetes.Interface, func(), error) {
		return clientset, func() {}, nil
	}

	registry, err := connections.NewFileRegistry("")
	require.NoError(t, err)
	for _, conn := range conns {
		require.NoError(t, registry.Save(conn))
	}
	baselines, err := store.NewBaselineStore("")
	require.NoError(t, err)

	return orchestrator.New(clustercache.New(registry), registry, baselines), baselines
}

func clusterConn(id string) connections.Connection {
	return connections.Connection{ID: id, Name: id, APIURL: "https://api.example.com", Namespace: "shop"}
}

func deployment(namespace, name string, replicas int32) *appsv1.Deployment {
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    map[string]string{"app": name},
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: &replicas,
			Selector: &metav1.LabelSelector{MatchLabels: map[string]string{"app": name}},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: map[string]string{"app": name}},
			},
		},
		Status: appsv1.DeploymentStatus{
			AvailableReplicas: replicas,
			ReadyReplicas:     replicas,
			Conditions:        []appsv1.DeploymentCondition{{Type: appsv1.DeploymentAvailable}},
		},
	}
}

func pod(namespace, name, app string) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    map[string]string{"app": app},
		},
		Status: corev1.PodStatus{Phase: corev1.PodRunning},
	}
}

func getReplicas(t *testing.T, clientset kubernetes.Interface, namespace, name string) int32 {
	t.Helper()
	dep, err := clientset.AppsV1().Deployments(namespace).Get(context.Background(), name, metav1.GetOptions{})
	require.NoError(t, err)
	require.NotNil(t, dep.Spec.Replicas)
	return *dep.Spec.Replicas
}

func TestListCapturesBaselineOnFirstTouch(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		deployment("shop", "web", 3),
		deployment("shop", "api", 2),
	)
	orch, baselines := newTestOrchestrator(t, clientset, clusterConn("c1"))

	summaries, err := orch.List(context.Background(), "c1", "shop")
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, map[string]int32{"web": 3, "api": 2}, baselines.GetBaseline("c1", "shop"))
	for _, s := range summaries {
		assert.Equal(t, s.DesiredReplicas, s.BaselineReplicas)
	}
}

func TestListDoesNotRecaptureBaseline(t *testing.T) {
	clientset := fake.NewSimpleClientset(deployment("shop", "web", 3))
	orch, baselines := newTestOrchestrator(t, clientset, clusterConn("c1"))

	_, err := orch.List(context.Background(), "c1", "shop")
	require.NoError(t, err)

	ok, err := orch.Scale(context.Background(), "c1", "shop", "web", 9)
	require.NoError(t, err)
	require.True(t, ok)

	// The baseline still holds the first-touch value, not the scaled one.
	summaries, err := orch.List(context.Background(), "c1", "shop")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, int32(9), summaries[0].DesiredReplicas)
	assert.Equal(t, int32(3), summaries[0].BaselineReplicas)

	replicas, ok2 := baselines.GetBaselineFor("c1", "shop", "web")
	require.True(t, ok2)
	assert.Equal(t, int32(3), replicas)
}

func TestListEmptyNamespaceSkipsCapture(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	orch, baselines := newTestOrchestrator(t, clientset, clusterConn("c1"))

	summaries, err := orch.List(context.Background(), "c1", "empty")
	require.NoError(t, err)
	assert.Empty(t, summaries)
	assert.False(t, baselines.HasBaseline("c1", "empty"))
}

func TestListForbidden(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	clientset.PrependReactor("list", "deployments", func(action k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, apierrors.NewForbidden(
			schema.GroupResource{Group: "apps", Resource: "deployments"}, "", errors.New("RBAC denied"))
	})
	orch, _ := newTestOrchestrator(t, clientset, clusterConn("c1"))

	_, err := orch.List(context.Background(), "c1", "locked")
	require.Error(t, err)
	assert.True(t, orchestrator.IsAccessDenied(err))
}

func TestGetMissingWorkload(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	orch, _ := newTestOrchestrator(t, clientset, clusterConn("c1"))

	summary, err := orch.Get(context.Background(), "c1", "shop", "ghost")
	require.NoError(t, err)
	assert.Nil(t, summary)
}

func TestScale(t *testing.T) {
	clientset := fake.NewSimpleClientset(deployment("shop", "web", 3))
	orch, _ := newTestOrchestrator(t, clientset, clusterConn("c1"))

	ok, err := orch.Scale(context.Background(), "c1", "shop", "web", 5)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int32(5), getReplicas(t, clientset, "shop", "web"))
}

func TestScaleMissingWorkload(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	orch, _ := newTestOrchestrator(t, clientset, clusterConn("c1"))

	ok, err := orch.Scale(context.Background(), "c1", "shop", "ghost", 5)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRestartSetsAnnotation(t *testing.T) {
	clientset := fake.NewSimpleClientset(deployment("shop", "web", 3))
	orch, _ := newTestOrchestrator(t, clientset, clusterConn("c1"))

	ok, err := orch.Restart(context.Background(), "c1", "shop", "web")
	require.NoError(t, err)
	assert.True(t, ok)

	dep, err := clientset.AppsV1().Deployments("shop").Get(context.Background(), "web", metav1.GetOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, dep.Spec.Template.Annotations[restartedAtAnnotation])
}

func TestRestartFallsBackToPodDeletion(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		deployment("shop", "web", 3),
		pod("shop", "web-1", "web"),
		pod("shop", "web-2", "web"),
		pod("shop", "api-1", "api"),
	)
	clientset.PrependReactor("update", "deployments", func(action k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, errors.New("update blocked")
	})
	orch, _ := newTestOrchestrator(t, clientset, clusterConn("c1"))

	ok, err := orch.Restart(context.Background(), "c1", "shop", "web")
	require.NoError(t, err)
	assert.True(t, ok)

	pods, err := clientset.CoreV1().Pods("shop").List(context.Background(), metav1.ListOptions{})
	require.NoError(t, err)
	require.Len(t, pods.Items, 1, "only the pods of the restarted workload are deleted")
	assert.Equal(t, "api-1", pods.Items[0].Name)
}

func TestRestartPods(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		deployment("shop", "web", 2),
		pod("shop", "web-1", "web"),
	)
	orch, _ := newTestOrchestrator(t, clientset, clusterConn("c1"))

	ok, err := orch.RestartPods(context.Background(), "c1", "shop", "web")
	require.NoError(t, err)
	assert.True(t, ok)

	pods, err := clientset.CoreV1().Pods("shop").List(context.Background(), metav1.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, pods.Items)
}

func TestShutdownRestoreRoundTrip(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		deployment("shop", "web", 3),
		deployment("shop", "api", 2),
	)
	orch, _ := newTestOrchestrator(t, clientset, clusterConn("c1"))
	ctx := context.Background()

	down, err := orch.ShutdownAll(ctx, "c1", "shop")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"web": true, "api": true}, down)
	assert.Equal(t, int32(0), getReplicas(t, clientset, "shop", "web"))
	assert.Equal(t, int32(0), getReplicas(t, clientset, "shop", "api"))

	up, err := orch.RestoreAll(ctx, "c1", "shop")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"web": true, "api": true}, up)
	assert.Equal(t, int32(3), getReplicas(t, clientset, "shop", "web"))
	assert.Equal(t, int32(2), getReplicas(t, clientset, "shop", "api"))
}

func TestRestoreAllWithoutBaseline(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	orch, _ := newTestOrchestrator(t, clientset, clusterConn("c1"))

	results, err := orch.RestoreAll(context.Background(), "c1", "never-seen")
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results, "no baseline means an empty result, not an error")
}

func TestShutdownSingleCapturesRowBaseline(t *testing.T) {
	clientset := fake.NewSimpleClientset(deployment("shop", "web", 4))
	orch, baselines := newTestOrchestrator(t, clientset, clusterConn("c1"))
	ctx := context.Background()

	ok, err := orch.Shutdown(ctx, "c1", "shop", "web")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int32(0), getReplicas(t, clientset, "shop", "web"))

	replicas, found := baselines.GetBaselineFor("c1", "shop", "web")
	require.True(t, found)
	assert.Equal(t, int32(4), replicas)

	ok, err = orch.Restore(ctx, "c1", "shop", "web")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int32(4), getReplicas(t, clientset, "shop", "web"))
}

func TestRestoreWithoutRowBaseline(t *testing.T) {
	clientset := fake.NewSimpleClientset(deployment("shop", "web", 4))
	orch, _ := newTestOrchestrator(t, clientset, clusterConn("c1"))

	ok, err := orch.Restore(context.Background(), "c1", "shop", "web")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestScaleSelectedIsolatesMissingWorkloads(t *testing.T) {
	clientset := fake.NewSimpleClientset(deployment("shop", "web", 3))
	orch, _ := newTestOrchestrator(t, clientset, clusterConn("c1"))

	results, err := orch.ScaleSelected(context.Background(), "c1", "shop", []string{"web", "ghost"}, 1)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"web": true, "ghost": false}, results)
	assert.Equal(t, int32(1), getReplicas(t, clientset, "shop", "web"))
}

func TestRestoreSelectedCoversAllNames(t *testing.T) {
	clientset := fake.NewSimpleClientset(deployment("shop", "web", 3))
	orch, baselines := newTestOrchestrator(t, clientset, clusterConn("c1"))
	require.NoError(t, baselines.SetBaseline("c1", "shop", "web", 3))

	results, err := orch.RestoreSelected(context.Background(), "c1", "shop", []string{"web", "no-baseline"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"web": true, "no-baseline": false}, results)
}

func TestShutdownSelectedSnapshotsNamespace(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		deployment("shop", "web", 3),
		deployment("shop", "api", 2),
	)
	orch, baselines := newTestOrchestrator(t, clientset, clusterConn("c1"))

	results, err := orch.ShutdownSelected(context.Background(), "c1", "shop", []string{"web"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"web": true}, results)

	// The snapshot covers the whole namespace even when only one workload
	// was shut down.
	assert.Equal(t, map[string]int32{"web": 3, "api": 2}, baselines.GetBaseline("c1", "shop"))
	assert.Equal(t, int32(0), getReplicas(t, clientset, "shop", "web"))
	assert.Equal(t, int32(2), getReplicas(t, clientset, "shop", "api"))
}

func TestRestartAll(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		deployment("shop", "web", 3),
		deployment("shop", "api", 2),
	)
	orch, _ := newTestOrchestrator(t, clientset, clusterConn("c1"))

	results, err := orch.RestartAll(context.Background(), "c1", "shop")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"web": true, "api": true}, results)
}

func TestSaveCurrentStateOverwrites(t *testing.T) {
	clientset := fake.NewSimpleClientset(deployment("shop", "web", 3))
	orch, baselines := newTestOrchestrator(t, clientset, clusterConn("c1"))
	ctx := context.Background()

	require.NoError(t, orch.SaveCurrentState(ctx, "c1", "shop"))

	ok, err := orch.Scale(ctx, "c1", "shop", "web", 7)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, orch.SaveCurrentState(ctx, "c1", "shop"))
	replicas, found := baselines.GetBaselineFor("c1", "shop", "web")
	require.True(t, found)
	assert.Equal(t, int32(7), replicas)
}

func TestNamespaces(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		&corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: "shop"}},
		&corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: "tools"}},
	)
	orch, _ := newTestOrchestrator(t, clientset, clusterConn("c1"))

	namespaces, err := orch.Namespaces(context.Background(), "c1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"shop", "tools"}, namespaces)
}

func TestSimulatedConnectionServesSyntheticData(t *testing.T) {
	orch, baselines := newTestOrchestrator(t, nil, connections.Connection{ID: "sim", Name: "sim", Simulated: true})
	ctx := context.Background()

	summaries, err := orch.List(ctx, "sim", "test-project")
	require.NoError(t, err)
	require.NotEmpty(t, summaries)
	assert.True(t, baselines.HasBaseline("sim", "test-project"))

	summary, err := orch.Get(ctx, "sim", "test-project", summaries[0].Name)
	require.NoError(t, err)
	require.NotNil(t, summary)

	// Mutations against simulated connections are acknowledged no-ops.
	ok, err := orch.Scale(ctx, "sim", "test-project", summaries[0].Name, 0)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = orch.Restart(ctx, "sim", "test-project", summaries[0].Name)
	require.NoError(t, err)
	assert.True(t, ok)

	namespaces, err := orch.Namespaces(ctx, "sim")
	require.NoError(t, err)
	assert.Contains(t, namespaces, "test-project")
}

func TestUnknownConnection(t *testing.T) {
	orch, _ := newTestOrchestrator(t, nil)

	_, err := orch.List(context.Background(), "ghost", "shop")
	require.Error(t, err)
	assert.ErrorIs(t, err, clustercache.ErrNotConfigured)
}

// Package orchestrator implements the deployment state engine: listing and
// scaling workloads on remote clusters, rolling restarts with a pod-deletion
// fallback, shutdown/restore cycles against stored baselines, and bulk
// operations fanned out across connection groups.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"depctl/internal/clustercache"
	"depctl/internal/connections"
	"depctl/internal/kubeutil"
	"depctl/internal/simdata"
	"depctl/internal/store"
	"depctl/pkg/logging"

	appsv1 "k8s.io/api/apps/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

const restartedAtAnnotation = "kubectl.kubernetes.io/restartedAt"

// Orchestrator executes deployment operations against remote clusters,
// resolving client handles through the cluster client cache and replica
// baselines through the baseline store.
type Orchestrator struct {
	clients   *clustercache.Cache
	registry  connections.Registry
	baselines *store.BaselineStore
}

// New creates an orchestrator.
func New(clients *clustercache.Cache, registry connections.Registry, baselines *store.BaselineStore) *Orchestrator {
	return &Orchestrator{
		clients:   clients,
		registry:  registry,
		baselines: baselines,
	}
}

// List returns summaries of every workload in the namespace. The first
// non-empty listing of a namespace with no stored baseline captures the
// current desired replica counts as the baseline; later calls never
// re-snapshot implicitly.
func (o *Orchestrator) List(ctx context.Context, connectionID, namespace string) ([]WorkloadSummary, error) {
	subsystem := fmt.Sprintf("Orchestrator-%s", connectionID)
	logging.Debug(subsystem, "Listing workloads in namespace %s", namespace)

	handle, err := o.clients.Get(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	var summaries []WorkloadSummary
	if handle == nil {
		for _, w := range simdata.Workloads(namespace) {
			summaries = append(summaries, WorkloadSummary{
				Name:              w.Name,
				Namespace:         w.Namespace,
				DesiredReplicas:   w.Replicas,
				AvailableReplicas: w.Available,
				ReadyReplicas:     w.Ready,
				Labels:            w.Labels,
				CreatedAt:         w.CreatedAt,
				Status:            w.Status,
			})
		}
	} else {
		list, err := handle.Clientset.AppsV1().Deployments(namespace).List(ctx, metav1.ListOptions{})
		if err != nil {
			if apierrors.IsForbidden(err) {
				logging.Warn(subsystem, "No permission to list workloads in namespace %s", namespace)
				return nil, &AccessDeniedError{Namespace: namespace, Operation: "list workloads", Err: err}
			}
			return nil, fmt.Errorf("failed to list workloads in namespace %s: %w", namespace, err)
		}
		for i := range list.Items {
			summaries = append(summaries, summarize(&list.Items[i]))
		}
	}

	// First-touch capture: a namespace seen for the first time has its
	// current desired counts stored as the baseline.
	if len(summaries) > 0 && !o.baselines.HasBaseline(connectionID, namespace) {
		state := make(map[string]int32, len(summaries))
		for _, s := range summaries {
			state[s.Name] = s.DesiredReplicas
		}
		if err := o.baselines.Snapshot(connectionID, namespace, state); err != nil {
			return nil, fmt.Errorf("failed to capture baseline for %s/%s: %w", connectionID, namespace, err)
		}
		logging.Info(subsystem, "Captured initial baseline for namespace %s (%d workloads)", namespace, len(state))
	}

	for i := range summaries {
		o.annotateBaseline(connectionID, &summaries[i])
	}
	return summaries, nil
}

// Get returns the summary of one workload, or nil when it does not exist.
func (o *Orchestrator) Get(ctx context.Context, connectionID, namespace, name string) (*WorkloadSummary, error) {
	handle, err := o.clients.Get(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	if handle == nil {
		w, ok := simdata.Find(namespace, name)
		if !ok {
			return nil, nil
		}
		summary := WorkloadSummary{
			Name:              w.Name,
			Namespace:         w.Namespace,
			DesiredReplicas:   w.Replicas,
			AvailableReplicas: w.Available,
			ReadyReplicas:     w.Ready,
			Labels:            w.Labels,
			CreatedAt:         w.CreatedAt,
			Status:            w.Status,
		}
		o.annotateBaseline(connectionID, &summary)
		return &summary, nil
	}

	dep, err := handle.Clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil, nil
		}
		if apierrors.IsForbidden(err) {
			return nil, &AccessDeniedError{Namespace: namespace, Operation: fmt.Sprintf("get workload %q", name), Err: err}
		}
		return nil, fmt.Errorf("failed to get workload %s/%s: %w", namespace, name, err)
	}
	summary := summarize(dep)
	o.annotateBaseline(connectionID, &summary)
	return &summary, nil
}

// Scale sets the workload's desired replica count. It returns false when the
// workload does not exist; permission and other remote failures are returned
// as errors.
func (o *Orchestrator) Scale(ctx context.Context, connectionID, namespace, name string, replicas int32) (bool, error) {
	subsystem := fmt.Sprintf("Orchestrator-%s", connectionID)
	logging.Debug(subsystem, "Scaling %s/%s to %d replicas", namespace, name, replicas)

	handle, err := o.clients.Get(ctx, connectionID)
	if err != nil {
		return false, err
	}
	if handle == nil {
		logging.Info(subsystem, "Simulated connection: scale of %s/%s to %d acknowledged", namespace, name, replicas)
		return true, nil
	}

	deployments := handle.Clientset.AppsV1().Deployments(namespace)
	dep, err := deployments.Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			logging.Warn(subsystem, "Workload %s/%s not found", namespace, name)
			return false, nil
		}
		if apierrors.IsForbidden(err) {
			return false, &AccessDeniedError{Namespace: namespace, Operation: fmt.Sprintf("scale workload %q", name), Err: err}
		}
		return false, fmt.Errorf("failed to get workload %s/%s: %w", namespace, name, err)
	}

	dep.Spec.Replicas = &replicas
	if _, err := deployments.Update(ctx, dep, metav1.UpdateOptions{}); err != nil {
		if apierrors.IsForbidden(err) {
			return false, &AccessDeniedError{Namespace: namespace, Operation: fmt.Sprintf("scale workload %q", name), Err: err}
		}
		return false, fmt.Errorf("failed to scale workload %s/%s: %w", namespace, name, err)
	}
	logging.Info(subsystem, "Scaled %s/%s to %d replicas", namespace, name, replicas)
	return true, nil
}

// Restart restarts a workload. The primary path is a rolling restart via the
// restartedAt template annotation; when that fails the workload's pods are
// deleted by label selector so the controller recreates them.
func (o *Orchestrator) Restart(ctx context.Context, connectionID, namespace, name string) (bool, error) {
	subsystem := fmt.Sprintf("Orchestrator-%s", connectionID)
	logging.Debug(subsystem, "Restarting %s/%s", namespace, name)

	handle, err := o.clients.Get(ctx, connectionID)
	if err != nil {
		return false, err
	}
	if handle == nil {
		logging.Info(subsystem, "Simulated connection: restart of %s/%s acknowledged", namespace, name)
		return true, nil
	}

	ok, err := o.rollingRestart(ctx, handle.Clientset, namespace, name)
	if err == nil {
		return ok, nil
	}

	logging.Warn(subsystem, "Rolling restart of %s/%s failed (%v), falling back to pod deletion", namespace, name, err)
	return o.deleteWorkloadPods(ctx, handle.Clientset, namespace, name)
}

func (o *Orchestrator) rollingRestart(ctx context.Context, clientset kubernetes.Interface, namespace, name string) (bool, error) {
	deployments := clientset.AppsV1().Deployments(namespace)
	dep, err := deployments.Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get workload %s/%s: %w", namespace, name, err)
	}

	if dep.Spec.Template.Annotations == nil {
		dep.Spec.Template.Annotations = make(map[string]string)
	}
	dep.Spec.Template.Annotations[restartedAtAnnotation] = time.Now().Format(time.RFC3339)
	if _, err := deployments.Update(ctx, dep, metav1.UpdateOptions{}); err != nil {
		return false, fmt.Errorf("failed to trigger rolling restart of %s/%s: %w", namespace, name, err)
	}
	return true, nil
}

// RestartPods restarts a workload by deleting all pods matched by its label
// selector, bypassing the rolling restart.
func (o *Orchestrator) RestartPods(ctx context.Context, connectionID, namespace, name string) (bool, error) {
	handle, err := o.clients.Get(ctx, connectionID)
	if err != nil {
		return false, err
	}
	if handle == nil {
		logging.Info(fmt.Sprintf("Orchestrator-%s", connectionID), "Simulated connection: pod restart of %s/%s acknowledged", namespace, name)
		return true, nil
	}
	return o.deleteWorkloadPods(ctx, handle.Clientset, namespace, name)
}

// deleteWorkloadPods deletes every pod matched by the workload's selector
// (or app=<name> when it declares none). Failures are logged and reported as
// false rather than returned, matching the restart fallback contract.
func (o *Orchestrator) deleteWorkloadPods(ctx context.Context, clientset kubernetes.Interface, namespace, name string) (bool, error) {
	subsystem := fmt.Sprintf("Orchestrator-pods-%s", namespace)

	dep, err := clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			logging.Warn(subsystem, "Workload %s/%s not found", namespace, name)
			return false, nil
		}
		logging.Error(subsystem, err, "Failed to get workload %s/%s for pod deletion", namespace, name)
		return false, nil
	}

	selector := kubeutil.SelectorForDeployment(dep, name)
	err = clientset.CoreV1().Pods(namespace).DeleteCollection(ctx, metav1.DeleteOptions{}, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		logging.Error(subsystem, err, "Failed to delete pods of %s/%s (selector %s)", namespace, name, selector)
		return false, nil
	}
	logging.Info(subsystem, "Deleted pods of %s/%s (selector %s); controller will recreate them", namespace, name, selector)
	return true, nil
}

// ShutdownAll snapshots the namespace's current desired replica counts and
// then scales every workload to zero. Per-workload failures are recorded as
// false and never abort the remaining workloads.
func (o *Orchestrator) ShutdownAll(ctx context.Context, connectionID, namespace string) (map[string]bool, error) {
	subsystem := fmt.Sprintf("Orchestrator-%s", connectionID)
	logging.Info(subsystem, "Shutting down all workloads in namespace %s", namespace)

	summaries, err := o.List(ctx, connectionID, namespace)
	if err != nil {
		return nil, err
	}

	state := make(map[string]int32, len(summaries))
	for _, s := range summaries {
		state[s.Name] = s.DesiredReplicas
	}
	if err := o.baselines.Snapshot(connectionID, namespace, state); err != nil {
		return nil, err
	}

	results := make(map[string]bool, len(summaries))
	for _, s := range summaries {
		ok, err := o.Scale(ctx, connectionID, namespace, s.Name, 0)
		if err != nil {
			logging.Error(subsystem, err, "Failed to shut down workload %s/%s", namespace, s.Name)
			results[s.Name] = false
			continue
		}
		results[s.Name] = ok
	}
	return results, nil
}

// RestoreAll scales every workload with a stored baseline back to it. An
// empty result map means there is nothing to restore; callers must treat it
// as a distinct signal, not a failure.
func (o *Orchestrator) RestoreAll(ctx context.Context, connectionID, namespace string) (map[string]bool, error) {
	subsystem := fmt.Sprintf("Orchestrator-%s", connectionID)
	logging.Info(subsystem, "Restoring workloads in namespace %s to their baselines", namespace)

	baseline := o.baselines.GetBaseline(connectionID, namespace)
	if len(baseline) == 0 {
		logging.Warn(subsystem, "No stored baseline for namespace %s", namespace)
		return map[string]bool{}, nil
	}

	results := make(map[string]bool, len(baseline))
	for name, replicas := range baseline {
		ok, err := o.Scale(ctx, connectionID, namespace, name, replicas)
		if err != nil {
			logging.Error(subsystem, err, "Failed to restore workload %s/%s", namespace, name)
			results[name] = false
			continue
		}
		results[name] = ok
	}
	return results, nil
}

// RestartAll restarts every workload in the namespace, isolating per-workload
// failures.
func (o *Orchestrator) RestartAll(ctx context.Context, connectionID, namespace string) (map[string]bool, error) {
	subsystem := fmt.Sprintf("Orchestrator-%s", connectionID)
	logging.Info(subsystem, "Restarting all workloads in namespace %s", namespace)

	summaries, err := o.List(ctx, connectionID, namespace)
	if err != nil {
		return nil, err
	}

	results := make(map[string]bool, len(summaries))
	for _, s := range summaries {
		ok, err := o.Restart(ctx, connectionID, namespace, s.Name)
		if err != nil {
			logging.Error(subsystem, err, "Failed to restart workload %s/%s", namespace, s.Name)
			results[s.Name] = false
			continue
		}
		results[s.Name] = ok
	}
	return results, nil
}

// SaveCurrentState re-snapshots the namespace's current desired replica
// counts as the baseline. Unlike the implicit first-touch capture it always
// overwrites.
func (o *Orchestrator) SaveCurrentState(ctx context.Context, connectionID, namespace string) error {
	summaries, err := o.List(ctx, connectionID, namespace)
	if err != nil {
		return err
	}
	state := make(map[string]int32, len(summaries))
	for _, s := range summaries {
		state[s.Name] = s.DesiredReplicas
	}
	return o.baselines.Snapshot(connectionID, namespace, state)
}

// Shutdown scales a single workload to zero, capturing its current desired
// count as a baseline row first when none exists. Failures are reported as
// false.
func (o *Orchestrator) Shutdown(ctx context.Context, connectionID, namespace, name string) (bool, error) {
	subsystem := fmt.Sprintf("Orchestrator-%s", connectionID)

	summary, err := o.Get(ctx, connectionID, namespace, name)
	if err != nil {
		logging.Error(subsystem, err, "Failed to read current state of %s/%s before shutdown", namespace, name)
	} else if summary != nil {
		if _, ok := o.baselines.GetBaselineFor(connectionID, namespace, name); !ok {
			if err := o.baselines.SetBaseline(connectionID, namespace, name, summary.DesiredReplicas); err != nil {
				return false, err
			}
		}
	}

	ok, err := o.Scale(ctx, connectionID, namespace, name, 0)
	if err != nil {
		logging.Error(subsystem, err, "Failed to shut down workload %s/%s", namespace, name)
		return false, nil
	}
	return ok, nil
}

// Restore scales a single workload back to its stored baseline. A missing
// baseline row is reported as false.
func (o *Orchestrator) Restore(ctx context.Context, connectionID, namespace, name string) (bool, error) {
	subsystem := fmt.Sprintf("Orchestrator-%s", connectionID)

	replicas, ok := o.baselines.GetBaselineFor(connectionID, namespace, name)
	if !ok {
		logging.Warn(subsystem, "No stored baseline for workload %s/%s", namespace, name)
		return false, nil
	}
	scaled, err := o.Scale(ctx, connectionID, namespace, name, replicas)
	if err != nil {
		logging.Error(subsystem, err, "Failed to restore workload %s/%s", namespace, name)
		return false, nil
	}
	return scaled, nil
}

// Namespaces lists the namespaces visible through the connection.
func (o *Orchestrator) Namespaces(ctx context.Context, connectionID string) ([]string, error) {
	handle, err := o.clients.Get(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if handle == nil {
		return simdata.Namespaces(), nil
	}

	list, err := handle.Clientset.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
	if err != nil {
		if apierrors.IsForbidden(err) {
			return nil, &AccessDeniedError{Operation: "list namespaces", Err: err}
		}
		return nil, fmt.Errorf("failed to list namespaces: %w", err)
	}
	names := make([]string, 0, len(list.Items))
	for _, ns := range list.Items {
		names = append(names, ns.Name)
	}
	return names, nil
}

func (o *Orchestrator) annotateBaseline(connectionID string, summary *WorkloadSummary) {
	if replicas, ok := o.baselines.GetBaselineFor(connectionID, summary.Namespace, summary.Name); ok {
		summary.BaselineReplicas = replicas
		return
	}
	// No stored baseline; present the current desired count instead.
	summary.BaselineReplicas = summary.DesiredReplicas
}

func summarize(dep *appsv1.Deployment) WorkloadSummary {
	var desired int32
	if dep.Spec.Replicas != nil {
		desired = *dep.Spec.Replicas
	}
	status := "Unknown"
	if len(dep.Status.Conditions) > 0 {
		status = string(dep.Status.Conditions[0].Type)
	}
	return WorkloadSummary{
		Name:              dep.Name,
		Namespace:         dep.Namespace,
		DesiredReplicas:   desired,
		AvailableReplicas: dep.Status.AvailableReplicas,
		ReadyReplicas:     dep.Status.ReadyReplicas,
		Labels:            dep.Labels,
		CreatedAt:         dep.CreationTimestamp.Time,
		Status:            status,
	}
}

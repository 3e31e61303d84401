// Package probe measures pod startup latency with a delete-and-observe
// protocol: delete one pod of a workload, wait for its replacement to become
// fully ready, then read the replacement's condition timestamps.
package probe

import (
	"context"
	"fmt"
	"time"

	"depctl/internal/clustercache"
	"depctl/internal/kubeutil"
	"depctl/internal/simdata"
	"depctl/internal/store"
	"depctl/pkg/logging"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// Probe measures workload startup latencies and persists them to the latency
// store. An unmeasurable workload yields a nil result, never an error; only
// connection resolution failures are returned as errors.
type Probe struct {
	clients   *clustercache.Cache
	latencies *store.LatencyStore

	// Poll cadence and budget for the replacement pod; overridable in tests.
	pollInterval time.Duration
	pollBudget   time.Duration
}

// New creates a probe with the default 2 s poll interval and 300 s budget.
func New(clients *clustercache.Cache, latencies *store.LatencyStore) *Probe {
	return &Probe{
		clients:      clients,
		latencies:    latencies,
		pollInterval: 2 * time.Second,
		pollBudget:   300 * time.Second,
	}
}

// SetTiming overrides the poll cadence and budget. Non-positive values keep
// the current setting.
func (p *Probe) SetTiming(interval, budget time.Duration) {
	if interval > 0 {
		p.pollInterval = interval
	}
	if budget > 0 {
		p.pollBudget = budget
	}
}

// Measure deletes one pod of the workload, waits for its replacement to become
// fully ready, and returns the replacement's startup latency in whole seconds.
// The latency is the raw difference between the PodReadyToStartContainers and
// Initialized condition transitions; zero and negative values are reported
// as measured. A nil result means the latency could not be measured.
func (p *Probe) Measure(ctx context.Context, connectionID, namespace, name string) (*int64, error) {
	subsystem := fmt.Sprintf("StartupProbe-%s", connectionID)

	handle, err := p.clients.Get(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if handle == nil {
		seconds := simdata.StartupSeconds
		if err := p.latencies.Save(connectionID, namespace, name, seconds); err != nil {
			return nil, err
		}
		logging.Info(subsystem, "Simulated connection: reporting fixed startup latency %ds for %s/%s", seconds, namespace, name)
		return &seconds, nil
	}

	clientset := handle.Clientset

	dep, err := clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		logging.Warn(subsystem, "Cannot measure %s/%s: workload lookup failed: %v", namespace, name, err)
		return nil, nil
	}
	selector := kubeutil.SelectorForDeployment(dep, name)

	pods, err := clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		logging.Warn(subsystem, "Cannot measure %s/%s: pod listing failed: %v", namespace, name, err)
		return nil, nil
	}
	if len(pods.Items) == 0 {
		logging.Warn(subsystem, "Cannot measure %s/%s: no pods match selector %s", namespace, name, selector)
		return nil, nil
	}

	victim := pods.Items[0]
	logging.Info(subsystem, "Deleting pod %s/%s to measure startup of %s", namespace, victim.Name, name)
	if err := clientset.CoreV1().Pods(namespace).Delete(ctx, victim.Name, metav1.DeleteOptions{}); err != nil {
		logging.Error(subsystem, err, "Cannot measure %s/%s: pod deletion failed", namespace, name)
		return nil, nil
	}

	replacement := p.awaitReplacement(ctx, clientset, namespace, selector, victim.Name)
	if replacement == nil {
		logging.Warn(subsystem, "No ready replacement for %s/%s within %s", namespace, name, p.pollBudget)
		return nil, nil
	}

	initialized, ok := kubeutil.ConditionTransitionTime(replacement, corev1.PodInitialized)
	if !ok {
		logging.Warn(subsystem, "Replacement pod %s has no Initialized condition timestamp", replacement.Name)
		return nil, nil
	}
	readyToStart, ok := kubeutil.ConditionTransitionTime(replacement, corev1.PodReadyToStartContainers)
	if !ok {
		logging.Warn(subsystem, "Replacement pod %s has no PodReadyToStartContainers condition timestamp", replacement.Name)
		return nil, nil
	}

	seconds := readyToStart.Unix() - initialized.Unix()
	if err := p.latencies.Save(connectionID, namespace, name, seconds); err != nil {
		return nil, err
	}
	logging.Info(subsystem, "Measured startup latency %ds for %s/%s (pod %s)", seconds, namespace, name, replacement.Name)
	return &seconds, nil
}

// awaitReplacement polls for a pod with a different name than the victim that
// is fully ready. It returns nil when the budget or the context expires.
func (p *Probe) awaitReplacement(ctx context.Context, clientset kubernetes.Interface, namespace, selector, victimName string) *corev1.Pod {
	deadline := time.Now().Add(p.pollBudget)
	for {
		pods, err := clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
		if err == nil {
			for i := range pods.Items {
				pod := &pods.Items[i]
				if pod.Name == victimName {
					continue
				}
				if kubeutil.IsPodFullyReady(pod) {
					return pod
				}
			}
		} else {
			logging.Debug("StartupProbe", "Pod poll failed, retrying: %v", err)
		}

		if time.Now().After(deadline) {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(p.pollInterval):
		}
	}
}

// MeasureSelected measures each named workload in turn. The result map always
// holds one entry per input name; unmeasurable workloads and per-item failures
// map to nil.
func (p *Probe) MeasureSelected(ctx context.Context, connectionID, namespace string, names []string) (map[string]*int64, error) {
	subsystem := fmt.Sprintf("StartupProbe-%s", connectionID)

	results := make(map[string]*int64, len(names))
	for _, name := range names {
		seconds, err := p.Measure(ctx, connectionID, namespace, name)
		if err != nil {
			logging.Error(subsystem, err, "Failed to measure workload %s/%s", namespace, name)
			results[name] = nil
			continue
		}
		results[name] = seconds
	}
	return results, nil
}

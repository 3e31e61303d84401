package orchestrator

import (
	"context"
	"fmt"

	"depctl/pkg/logging"
)

// ScaleSelected scales each named workload to the given count. The result map
// always holds one entry per input name; per-item failures are recorded as
// false and never abort the batch.
func (o *Orchestrator) ScaleSelected(ctx context.Context, connectionID, namespace string, names []string, replicas int32) (map[string]bool, error) {
	subsystem := fmt.Sprintf("Orchestrator-%s", connectionID)

	results := make(map[string]bool, len(names))
	for _, name := range names {
		ok, err := o.Scale(ctx, connectionID, namespace, name, replicas)
		if err != nil {
			logging.Error(subsystem, err, "Failed to scale workload %s/%s", namespace, name)
			results[name] = false
			continue
		}
		results[name] = ok
	}
	return results, nil
}

// RestartSelected restarts each named workload with per-item failure
// isolation.
func (o *Orchestrator) RestartSelected(ctx context.Context, connectionID, namespace string, names []string) (map[string]bool, error) {
	subsystem := fmt.Sprintf("Orchestrator-%s", connectionID)

	results := make(map[string]bool, len(names))
	for _, name := range names {
		ok, err := o.Restart(ctx, connectionID, namespace, name)
		if err != nil {
			logging.Error(subsystem, err, "Failed to restart workload %s/%s", namespace, name)
			results[name] = false
			continue
		}
		results[name] = ok
	}
	return results, nil
}

// ShutdownSelected snapshots the namespace's current state, then scales each
// named workload to zero. The snapshot covers the whole namespace so a later
// RestoreAll can bring everything back.
func (o *Orchestrator) ShutdownSelected(ctx context.Context, connectionID, namespace string, names []string) (map[string]bool, error) {
	subsystem := fmt.Sprintf("Orchestrator-%s", connectionID)
	logging.Info(subsystem, "Shutting down %d selected workloads in namespace %s", len(names), namespace)

	if err := o.SaveCurrentState(ctx, connectionID, namespace); err != nil {
		return nil, err
	}

	results := make(map[string]bool, len(names))
	for _, name := range names {
		ok, err := o.Scale(ctx, connectionID, namespace, name, 0)
		if err != nil {
			logging.Error(subsystem, err, "Failed to shut down workload %s/%s", namespace, name)
			results[name] = false
			continue
		}
		results[name] = ok
	}
	return results, nil
}

// RestoreSelected scales each named workload back to its stored baseline.
// Names without a baseline row are reported as false so the result map always
// matches the input.
func (o *Orchestrator) RestoreSelected(ctx context.Context, connectionID, namespace string, names []string) (map[string]bool, error) {
	subsystem := fmt.Sprintf("Orchestrator-%s", connectionID)
	logging.Info(subsystem, "Restoring %d selected workloads in namespace %s", len(names), namespace)

	results := make(map[string]bool, len(names))
	for _, name := range names {
		replicas, ok := o.baselines.GetBaselineFor(connectionID, namespace, name)
		if !ok {
			logging.Warn(subsystem, "No stored baseline for workload %s/%s", namespace, name)
			results[name] = false
			continue
		}
		scaled, err := o.Scale(ctx, connectionID, namespace, name, replicas)
		if err != nil {
			logging.Error(subsystem, err, "Failed to restore workload %s/%s", namespace, name)
			results[name] = false
			continue
		}
		results[name] = scaled
	}
	return results, nil
}

package orchestrator

import (
	"context"
	"fmt"

	"depctl/internal/connections"
	"depctl/pkg/logging"
)

const groupSubsystem = "GroupOrchestrator"

// groupFanOut runs op against every connection in the group, merging the
// per-connection result maps under "connectionName/namespace/workloadName"
// keys. A failing connection contributes nothing to the merged map; the rest
// of the group still runs.
func (o *Orchestrator) groupFanOut(ctx context.Context, group string, op func(ctx context.Context, conn connections.Connection, namespace string) (map[string]bool, error)) (GroupResult, error) {
	conns := o.registry.ListInGroup(group)
	logging.Info(groupSubsystem, "Fanning out over group %s (%d connections)", group, len(conns))

	merged := make(map[string]bool)
	for _, conn := range conns {
		namespace := conn.ResolvedNamespace()
		results, err := op(ctx, conn, namespace)
		if err != nil {
			logging.Error(groupSubsystem, err, "Group operation failed for connection %s", conn.Name)
			continue
		}
		for name, ok := range results {
			merged[fmt.Sprintf("%s/%s/%s", conn.Name, namespace, name)] = ok
		}
	}
	return newGroupResult(merged), nil
}

// GroupRestartAll restarts every workload of every connection in the group.
func (o *Orchestrator) GroupRestartAll(ctx context.Context, group string) (GroupResult, error) {
	return o.groupFanOut(ctx, group, func(ctx context.Context, conn connections.Connection, namespace string) (map[string]bool, error) {
		return o.RestartAll(ctx, conn.ID, namespace)
	})
}

// GroupShutdownAll scales every workload of every connection in the group to
// zero, snapshotting each namespace first.
func (o *Orchestrator) GroupShutdownAll(ctx context.Context, group string) (GroupResult, error) {
	return o.groupFanOut(ctx, group, func(ctx context.Context, conn connections.Connection, namespace string) (map[string]bool, error) {
		return o.ShutdownAll(ctx, conn.ID, namespace)
	})
}

// GroupRestoreAll restores every workload of every connection in the group to
// its stored baseline.
func (o *Orchestrator) GroupRestoreAll(ctx context.Context, group string) (GroupResult, error) {
	return o.groupFanOut(ctx, group, func(ctx context.Context, conn connections.Connection, namespace string) (map[string]bool, error) {
		return o.RestoreAll(ctx, conn.ID, namespace)
	})
}

// GroupScaleAll scales every workload of every connection in the group to the
// same replica count.
func (o *Orchestrator) GroupScaleAll(ctx context.Context, group string, replicas int32) (GroupResult, error) {
	return o.groupFanOut(ctx, group, func(ctx context.Context, conn connections.Connection, namespace string) (map[string]bool, error) {
		summaries, err := o.List(ctx, conn.ID, namespace)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(summaries))
		for _, s := range summaries {
			names = append(names, s.Name)
		}
		return o.ScaleSelected(ctx, conn.ID, namespace, names, replicas)
	})
}

// GroupSaveState re-snapshots the baseline of every connection in the group.
// The result is counted per connection, keyed by connection name.
func (o *Orchestrator) GroupSaveState(ctx context.Context, group string) (GroupResult, error) {
	conns := o.registry.ListInGroup(group)
	logging.Info(groupSubsystem, "Saving state for group %s (%d connections)", group, len(conns))

	results := make(map[string]bool, len(conns))
	for _, conn := range conns {
		if err := o.SaveCurrentState(ctx, conn.ID, conn.ResolvedNamespace()); err != nil {
			logging.Error(groupSubsystem, err, "Failed to save state for connection %s", conn.Name)
			results[conn.Name] = false
			continue
		}
		results[conn.Name] = true
	}
	return newGroupResult(results), nil
}

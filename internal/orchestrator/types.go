package orchestrator

import "time"

// WorkloadSummary is a read-only projection of one workload's remote state,
// annotated with the stored baseline replica count. When no baseline row
// exists, BaselineReplicas falls back to DesiredReplicas.
type WorkloadSummary struct {
	Name              string
	Namespace         string
	DesiredReplicas   int32
	AvailableReplicas int32
	ReadyReplicas     int32
	BaselineReplicas  int32
	Labels            map[string]string
	CreatedAt         time.Time
	Status            string
}

// GroupResult is the merged outcome of a group fan-out. Results is keyed by
// "connectionName/namespace/workloadName"; keys from different connections
// never collide.
type GroupResult struct {
	Results      map[string]bool
	SuccessCount int
	TotalCount   int
}

func newGroupResult(results map[string]bool) GroupResult {
	success := 0
	for _, ok := range results {
		if ok {
			success++
		}
	}
	return GroupResult{
		Results:      results,
		SuccessCount: success,
		TotalCount:   len(results),
	}
}

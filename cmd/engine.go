package cmd

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"depctl/internal/clustercache"
	"depctl/internal/config"
	"depctl/internal/connections"
	"depctl/internal/orchestrator"
	"depctl/internal/probe"
	"depctl/internal/store"
)

const (
	connectionsFileName = "connections.yaml"
	baselinesFileName   = "baselines.yaml"
	latenciesFileName   = "latencies.yaml"
)

// engine bundles the wired components every command needs. It is built once
// per invocation from the files under the user's config directory.
type engine struct {
	registry  *connections.FileRegistry
	clients   *clustercache.Cache
	baselines *store.BaselineStore
	latencies *store.LatencyStore
	orch      *orchestrator.Orchestrator
	probe     *probe.Probe
}

func newEngine() (*engine, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, err
	}

	stateDir := settings.StateDir
	if stateDir == "" {
		stateDir, err = config.GetUserConfigDir()
		if err != nil {
			return nil, err
		}
	}

	registry, err := connections.NewFileRegistry(filepath.Join(stateDir, connectionsFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to open connection registry: %w", err)
	}
	baselines, err := store.NewBaselineStore(filepath.Join(stateDir, baselinesFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to open baseline store: %w", err)
	}
	latencies, err := store.NewLatencyStore(filepath.Join(stateDir, latenciesFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to open latency store: %w", err)
	}

	clients := clustercache.New(registry)
	startupProbe := probe.New(clients, latencies)
	startupProbe.SetTiming(
		time.Duration(settings.Probe.PollIntervalSeconds)*time.Second,
		time.Duration(settings.Probe.BudgetSeconds)*time.Second,
	)

	return &engine{
		registry:  registry,
		clients:   clients,
		baselines: baselines,
		latencies: latencies,
		orch:      orchestrator.New(clients, registry, baselines),
		probe:     startupProbe,
	}, nil
}

// printResults prints a name → ok map in a stable order with a success
// summary line.
func printResults(results map[string]bool) {
	names := sortedKeys(results)
	success := 0
	for _, name := range names {
		status := "failed"
		if results[name] {
			status = "ok"
			success++
		}
		fmt.Printf("  %s: %s\n", name, status)
	}
	fmt.Printf("%d of %d succeeded\n", success, len(results))
}

func sortedKeys(m map[string]bool) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Package simdata serves fixed synthetic cluster state for simulated
// connections, so the rest of the engine can be exercised without any remote
// cluster. Mutating operations against simulated connections are logged
// no-ops; this package is read-only.
package simdata

import (
	"strings"
	"time"
)

// StartupSeconds is the fixed startup latency reported for simulated
// connections.
const StartupSeconds int64 = 5

// Workload is a synthetic replica-counted workload.
type Workload struct {
	Name      string
	Namespace string
	Replicas  int32
	Available int32
	Ready     int32
	Labels    map[string]string
	CreatedAt time.Time
	Status    string
}

// Pod is a synthetic pod instance.
type Pod struct {
	Name      string
	Namespace string
	Phase     string
	NodeName  string
	Labels    map[string]string
	CreatedAt time.Time
}

// Namespaces returns the synthetic namespace list.
func Namespaces() []string {
	return []string{"test-project", "staging", "production", "development"}
}

// Workloads returns the synthetic workloads for a namespace. Unknown
// namespaces get a single generic workload.
func Workloads(namespace string) []Workload {
	now := time.Now()
	switch strings.ToLower(namespace) {
	case "test-project":
		return []Workload{
			workload("web-app", namespace, 2, 2, 2, map[string]string{"app": "web-app"}, now.Add(-2*time.Hour)),
			workload("api-service", namespace, 1, 1, 1, map[string]string{"app": "api"}, now.Add(-3*time.Hour)),
			workload("database", namespace, 1, 1, 1, map[string]string{"app": "database"}, now.Add(-5*24*time.Hour)),
		}
	case "staging":
		return []Workload{
			workload("staging-web", namespace, 2, 1, 1, map[string]string{"app": "web", "environment": "staging"}, now.Add(-24*time.Hour)),
			workload("staging-api", namespace, 1, 1, 1, map[string]string{"app": "api", "environment": "staging"}, now.Add(-24*time.Hour)),
			workload("staging-worker", namespace, 1, 0, 0, map[string]string{"app": "worker", "environment": "staging"}, now.Add(-30*time.Minute)),
		}
	case "production":
		return []Workload{
			workload("prod-web", namespace, 3, 3, 3, map[string]string{"app": "web", "environment": "prod"}, now.Add(-10*24*time.Hour)),
			workload("prod-api", namespace, 2, 2, 2, map[string]string{"app": "api", "environment": "prod"}, now.Add(-10*24*time.Hour)),
			workload("prod-database", namespace, 1, 1, 1, map[string]string{"app": "database", "environment": "prod"}, now.Add(-30*24*time.Hour)),
		}
	case "development":
		return []Workload{
			workload("dev-app", namespace, 2, 1, 1, map[string]string{"app": "dev-app", "env": "dev"}, now.Add(-2*time.Hour)),
		}
	default:
		return []Workload{
			workload("application", namespace, 2, 2, 2, map[string]string{"app": "application"}, now.Add(-24*time.Hour)),
		}
	}
}

// Find returns the synthetic workload with the given name, if any.
func Find(namespace, name string) (Workload, bool) {
	for _, w := range Workloads(namespace) {
		if w.Name == name {
			return w, true
		}
	}
	return Workload{}, false
}

// Pods returns the synthetic pods for a namespace.
func Pods(namespace string) []Pod {
	now := time.Now()
	switch strings.ToLower(namespace) {
	case "test-project":
		return []Pod{
			pod("web-app-1", namespace, "Running", "node-01", map[string]string{"app": "web-app", "version": "1.0"}, now.Add(-2*time.Hour)),
			pod("web-app-2", namespace, "Running", "node-02", map[string]string{"app": "web-app", "version": "1.0"}, now.Add(-time.Hour)),
			pod("api-service-1", namespace, "Running", "node-01", map[string]string{"app": "api", "version": "2.1"}, now.Add(-3*time.Hour)),
			pod("db-pod", namespace, "Running", "node-03", map[string]string{"app": "database", "tier": "backend"}, now.Add(-5*24*time.Hour)),
		}
	case "staging":
		return []Pod{
			pod("staging-web-1", namespace, "Running", "node-02", map[string]string{"app": "web", "environment": "staging"}, now.Add(-24*time.Hour)),
			pod("staging-api-1", namespace, "Running", "node-01", map[string]string{"app": "api", "environment": "staging"}, now.Add(-24*time.Hour)),
			pod("staging-worker", namespace, "Pending", "node-03", map[string]string{"app": "worker", "environment": "staging"}, now.Add(-30*time.Minute)),
		}
	case "production":
		return []Pod{
			pod("prod-web-1", namespace, "Running", "node-01", map[string]string{"app": "web", "environment": "prod"}, now.Add(-10*24*time.Hour)),
			pod("prod-web-2", namespace, "Running", "node-02", map[string]string{"app": "web", "environment": "prod"}, now.Add(-10*24*time.Hour)),
			pod("prod-web-3", namespace, "Running", "node-03", map[string]string{"app": "web", "environment": "prod"}, now.Add(-9*24*time.Hour)),
			pod("prod-api-1", namespace, "Running", "node-01", map[string]string{"app": "api", "environment": "prod"}, now.Add(-10*24*time.Hour)),
			pod("prod-api-2", namespace, "Running", "node-02", map[string]string{"app": "api", "environment": "prod"}, now.Add(-10*24*time.Hour)),
			pod("prod-db-primary", namespace, "Running", "node-03", map[string]string{"app": "database", "role": "primary", "environment": "prod"}, now.Add(-30*24*time.Hour)),
		}
	case "development":
		return []Pod{
			pod("dev-app-1", namespace, "Running", "node-02", map[string]string{"app": "dev-app", "env": "dev"}, now.Add(-2*time.Hour)),
			pod("dev-app-2", namespace, "CrashLoopBackOff", "node-01", map[string]string{"app": "dev-app", "env": "dev"}, now.Add(-time.Hour)),
		}
	default:
		return []Pod{
			pod("app-pod-1", namespace, "Running", "node-01", map[string]string{"app": "application"}, now.Add(-24*time.Hour)),
			pod("app-pod-2", namespace, "Running", "node-02", map[string]string{"app": "application"}, now.Add(-24*time.Hour)),
		}
	}
}

func workload(name, namespace string, replicas, available, ready int32, labels map[string]string, createdAt time.Time) Workload {
	status := "Progressing"
	if available == replicas {
		status = "Available"
	}
	return Workload{
		Name:      name,
		Namespace: namespace,
		Replicas:  replicas,
		Available: available,
		Ready:     ready,
		Labels:    labels,
		CreatedAt: createdAt,
		Status:    status,
	}
}

func pod(name, namespace, phase, nodeName string, labels map[string]string, createdAt time.Time) Pod {
	return Pod{
		Name:      name,
		Namespace: namespace,
		Phase:     phase,
		NodeName:  nodeName,
		Labels:    labels,
		CreatedAt: createdAt,
	}
}

package connections

import "time"

// Connection describes one remote cluster: its API endpoint, the credential
// used to reach it, and the single namespace this tool manages there.
// A simulated connection never gets a live client; callers serve synthetic
// data for it instead.
type Connection struct {
	ID        string    `yaml:"id"`
	Name      string    `yaml:"name"`
	APIURL    string    `yaml:"apiUrl"`
	Token     string    `yaml:"token"`
	Namespace string    `yaml:"namespace"`
	Group     string    `yaml:"group,omitempty"`
	Simulated bool      `yaml:"simulated,omitempty"`
	UpdatedAt time.Time `yaml:"updatedAt,omitempty"`
}

// ResolvedNamespace returns the connection's namespace, falling back to
// "default" when none is configured.
func (c Connection) ResolvedNamespace() string {
	if c.Namespace == "" {
		return "default"
	}
	return c.Namespace
}

// Group is a named set of connections targeted together by bulk operations.
// Membership lives on the Connection record.
type Group struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
}

// Registry supplies connection records to the engine. The engine never
// mutates records; any edit made through Save must be followed by a cache
// invalidation for that connection id.
type Registry interface {
	Get(id string) (Connection, bool)
	List() []Connection
	ListInGroup(group string) []Connection
	Groups() []Group
}

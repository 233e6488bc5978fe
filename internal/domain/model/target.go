// Package model holds the domain types shared by the watch, merge, and
// portal surfaces.
package model

// WatchTarget is a (repository, branch, optional pinned pipeline definition)
// tuple under observation. Static configuration, never mutated at runtime.
type WatchTarget struct {
	RepoID       string // Azure DevOps repository UUID.
	Alias        string // Display name used in logs and notifications.
	Project      string // Owning project; pipelines may live outside the default one.
	DefinitionID int    // Pinned build definition id; 0 means any definition.
	Branch       string // Fully qualified ref, e.g. "refs/heads/qas".
}

// DisplayName returns the alias, falling back to the repository id for
// targets configured without one.
func (t WatchTarget) DisplayName() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.RepoID
}

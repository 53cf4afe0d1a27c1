// Package ledger records which feedback items this client has already voted
// for, per project. A ledger only grows: saving merges with what is already
// persisted, so a stale in-memory copy never erases votes recorded elsewhere.
package ledger

import (
	"net/url"
	"sort"
)

// Set is a set of feedback item ids.
type Set map[string]struct{}

func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s Set) Add(ids ...string) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

// Sorted returns the ids in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s Set) Clone() Set {
	out := make(Set, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Store is the durable side of the ledger.
type Store interface {
	// Load returns the persisted set for the project; empty if none exists.
	Load(projectID string) (Set, error)
	// Save merges ids into the persisted set and returns the merged result.
	Save(projectID string, ids Set) (Set, error)
}

// Name is the storage name of a project's ledger: votes-<projectId>.
func Name(projectID string) string {
	return "votes-" + url.PathEscape(projectID)
}

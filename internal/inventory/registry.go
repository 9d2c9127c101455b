package inventory

import (
	"context"
	"fmt"
)

// LookupRow is one bucket or state row from the lookup tables.
type LookupRow struct {
	Code string
	Name string
}

// Registry is the process-wide, read-only view of the bucket and state lookup
// tables. It is populated once at startup; a missing required code aborts
// boot.
type Registry struct {
	buckets map[Bucket]string
	states  map[State]string
}

// NewRegistry validates the lookup rows against the closed enumerations.
func NewRegistry(buckets, states []LookupRow) (*Registry, error) {
	reg := &Registry{
		buckets: make(map[Bucket]string, len(buckets)),
		states:  make(map[State]string, len(states)),
	}
	for _, row := range buckets {
		reg.buckets[Bucket(row.Code)] = row.Name
	}
	for _, row := range states {
		reg.states[State(row.Code)] = row.Name
	}
	for _, b := range []Bucket{BucketGodown, BucketCMOut, BucketDefFull, BucketDefEmpty} {
		if _, ok := reg.buckets[b]; !ok {
			return nil, fmt.Errorf("%w: bucket %s", ErrMissingLookup, b)
		}
	}
	for _, s := range []State{StateFull, StateEmpty, StateDefective} {
		if _, ok := reg.states[s]; !ok {
			return nil, fmt.Errorf("%w: state %s", ErrMissingLookup, s)
		}
	}
	return reg, nil
}

// LoadRegistry reads the lookup tables through the repository and builds the
// registry.
func LoadRegistry(ctx context.Context, repo RepositoryPort) (*Registry, error) {
	buckets, states, err := repo.LoadLookups(ctx)
	if err != nil {
		return nil, fmt.Errorf("inventory: load lookups: %w", err)
	}
	return NewRegistry(buckets, states)
}

// BucketName returns the display name for a bucket code.
func (r *Registry) BucketName(b Bucket) string {
	return r.buckets[b]
}

// StateName returns the display name for a state code.
func (r *Registry) StateName(s State) string {
	return r.states[s]
}

package constants

import (
	"strings"
	"sync/atomic"

	"constserv/metrics"
)

// Result is the outcome of resolving one requested name.
// Name always echoes the requested string unchanged.
type Result struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
	Found bool    `json:"found"`
}

// Resolver answers lookups from the current dataset snapshot.
// Lookups never block; Reload swaps the snapshot atomically.
type Resolver struct {
	table atomic.Pointer[Table]
}

// NewResolver creates a resolver serving t. A nil table is treated as empty.
func NewResolver(t *Table) *Resolver {
	r := &Resolver{}
	r.Reload(t)
	return r
}

// Resolve looks up a single name. Unknown and empty names resolve to Found=false.
func (r *Resolver) Resolve(name string) Result {
	c, ok := r.table.Load().Lookup(strings.TrimSpace(name))
	metrics.RecordLookup(ok)
	if !ok {
		return Result{Name: name}
	}
	return Result{Name: name, Value: c.Value, Unit: c.Unit, Found: true}
}

// Reload replaces the active snapshot.
func (r *Resolver) Reload(t *Table) {
	if t == nil {
		t = EmptyTable()
	}
	r.table.Store(t)
}

// Len returns the size of the active snapshot.
func (r *Resolver) Len() int {
	return r.table.Load().Len()
}

// Package extract pulls raw staff roster tuples out of venue page markup.
//
// Each supported source site has its own markup dialect. A dialect is a
// capability: it implements Extract and registers under the name venues carry
// in their source_dialect column. Supporting a third site means adding one
// more implementation here; nothing else changes.
package extract

import (
	"fmt"
	"sort"
)

// Entry is one raw staff tuple as it appears on the roster page, before any
// classification. The texts are passed through verbatim; interpreting them is
// the classifier's job.
type Entry struct {
	StaffID          string
	ShiftTimeText    string
	AvailabilityText string
}

// Dialect extracts roster entries from one source site's markup. A single
// malformed entry must never abort extraction: implementations skip it and
// report it in the skipped count.
type Dialect interface {
	Name() string
	Extract(markup string) (entries []Entry, skipped int, err error)
}

// ErrUnknownDialect is returned when a venue references a dialect that has no
// registered implementation. It is a per-venue configuration error.
var ErrUnknownDialect = fmt.Errorf("unknown source dialect")

// Registry is a dispatch table from source_dialect values to implementations.
type Registry struct {
	dialects map[string]Dialect
}

// NewRegistry returns a registry with all built-in dialects installed.
func NewRegistry() *Registry {
	r := &Registry{dialects: make(map[string]Dialect)}
	r.Register(NewCityheavenDialect())
	r.Register(NewDtownDialect())
	return r
}

// Register installs a dialect under its name, replacing any previous one.
func (r *Registry) Register(d Dialect) {
	r.dialects[d.Name()] = d
}

// Get looks up a dialect by name.
func (r *Registry) Get(name string) (Dialect, error) {
	d, ok := r.dialects[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDialect, name)
	}
	return d, nil
}

// Names lists the registered dialect names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.dialects))
	for name := range r.dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

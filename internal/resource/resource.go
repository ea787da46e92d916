// Package resource resolves logical resource names to backend locators.
package resource

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/Deuthe/test-odrl-integration/internal/util"
)

// Descriptor names a protected resource and where its data lives.
type Descriptor struct {
	Name    string
	Locator string
}

// Table is an immutable name to descriptor mapping.
type Table struct {
	entries map[string]Descriptor
	names   []string
}

// NewTable builds a table from name to locator pairs. Relative locators
// are resolved against baseURL.
func NewTable(baseURL string, locators map[string]string) (*Table, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend base URL %q: %w", baseURL, err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	t := &Table{
		entries: make(map[string]Descriptor, len(locators)),
		names:   make([]string, 0, len(locators)),
	}

	for name, raw := range locators {
		loc, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("resource %s: invalid locator %q: %w", name, raw, err)
		}
		t.entries[name] = Descriptor{
			Name:    name,
			Locator: base.ResolveReference(loc).String(),
		}
		t.names = append(t.names, name)
	}
	sort.Strings(t.names)

	return t, nil
}

// Lookup finds a descriptor by exact, case-sensitive name.
func (t *Table) Lookup(name string) (Descriptor, bool) {
	d, ok := t.entries[name]
	return d, ok
}

// Names returns the sorted resource names.
func (t *Table) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Resolver serves lookups from the current table. Swap replaces the
// table atomically; a lookup always sees one complete table.
type Resolver struct {
	table atomic.Pointer[Table]
}

// NewResolver creates a resolver serving table.
func NewResolver(table *Table) *Resolver {
	r := &Resolver{}
	r.table.Store(table)
	return r
}

// Resolve returns the descriptor for name or a not-found error.
func (r *Resolver) Resolve(name string) (Descriptor, error) {
	if d, ok := r.table.Load().Lookup(name); ok {
		return d, nil
	}
	return Descriptor{}, util.NewError(util.KindNotFound, "resource.resolve",
		fmt.Sprintf("unknown resource %q", name))
}

// Names returns the sorted names of the current table.
func (r *Resolver) Names() []string {
	return r.table.Load().Names()
}

// Swap installs a new table and returns the previous one.
func (r *Resolver) Swap(table *Table) *Table {
	return r.table.Swap(table)
}

package instruct

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds record types by name. Names are unique within a registry.
type Registry struct {
	mu      sync.RWMutex
	records map[string]RecordType
}

// NewRegistry creates a new record registry.
func NewRegistry() *Registry {
	return &Registry{
		records: make(map[string]RecordType),
	}
}

// Register adds a record type. The definition is compiled first so an
// invalid record never becomes visible.
func (r *Registry) Register(d Describer) error {
	rt := d.RecordType()
	if _, err := CompileSchema(rt); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[rt.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateRecord, rt.Name)
	}
	r.records[rt.Name] = rt.clone()
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(d Describer) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// Get returns a record type by name.
func (r *Registry) Get(name string) (RecordType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rt, ok := r.records[name]
	if !ok {
		return RecordType{}, false
	}
	return rt.clone(), true
}

// Lookup returns a record type by name or ErrRecordNotFound.
func (r *Registry) Lookup(name string) (RecordType, error) {
	rt, ok := r.Get(name)
	if !ok {
		return RecordType{}, fmt.Errorf("%w: %s", ErrRecordNotFound, name)
	}
	return rt, nil
}

// Names returns the registered record names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.records))
	for name := range r.records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every registered record type sorted by name.
func (r *Registry) All() []RecordType {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]RecordType, 0, len(names))
	for _, name := range names {
		if rt, ok := r.records[name]; ok {
			all = append(all, rt.clone())
		}
	}
	return all
}

// Tools builds a tool descriptor for every registered record type.
func (r *Registry) Tools() ([]ToolDescriptor, error) {
	all := r.All()
	tools := make([]ToolDescriptor, 0, len(all))
	for _, rt := range all {
		tool, err := BuildToolDescriptor(rt, "", "")
		if err != nil {
			return nil, err
		}
		tools = append(tools, tool)
	}
	return tools, nil
}

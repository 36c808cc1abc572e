// Package registry maps dataset names to Silver job definitions.
//
// The registry is plain data: the three curated datasets are built in, and
// further datasets can be declared in configuration with the same rule kinds.
// Table ids without a schema are qualified with the warehouse namespace.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"aviation/internal/config"
	"aviation/internal/job"
	"aviation/internal/storage"
	"aviation/internal/transformer/builtin"
)

// Registry is an immutable lookup table of job definitions.
type Registry struct {
	defs map[string]job.Definition
}

// Builtin returns a registry holding only the built-in datasets.
func Builtin(namespace string) *Registry {
	r := &Registry{defs: make(map[string]job.Definition)}
	for _, d := range builtinDefinitions() {
		r.add(d, namespace)
	}
	return r
}

// New returns the built-in datasets plus the configured ones. A configured
// dataset with a built-in name replaces the built-in definition.
func New(namespace string, datasets []config.Dataset) (*Registry, error) {
	r := Builtin(namespace)
	for i, ds := range datasets {
		d, err := FromConfig(ds)
		if err != nil {
			return nil, fmt.Errorf("registry: datasets[%d]: %w", i, err)
		}
		r.add(d, namespace)
	}
	return r, nil
}

// FromConfig compiles one configured dataset into an unqualified definition.
func FromConfig(ds config.Dataset) (job.Definition, error) {
	name := strings.TrimSpace(ds.Name)
	if name == "" {
		return job.Definition{}, fmt.Errorf("name is required")
	}
	in, err := storage.ParseTableID(ds.Input)
	if err != nil {
		return job.Definition{}, fmt.Errorf("%s: input: %w", name, err)
	}
	out, err := storage.ParseTableID(ds.Output)
	if err != nil {
		return job.Definition{}, fmt.Errorf("%s: output: %w", name, err)
	}
	rules, err := builtin.FromConfig(ds.Transform)
	if err != nil {
		return job.Definition{}, fmt.Errorf("%s: %w", name, err)
	}
	step := ds.Step
	if step == "" {
		step = "CLEANING"
	}
	return job.Definition{
		Dataset: name,
		Step:    step,
		Message: ds.Message,
		Input:   in,
		Output:  out,
		Rules:   rules,
	}, nil
}

func (r *Registry) add(d job.Definition, namespace string) {
	d.Input = storage.Qualify(d.Input, namespace)
	d.Output = storage.Qualify(d.Output, namespace)
	r.defs[d.Dataset] = d
}

// Get returns the definition registered under name.
func (r *Registry) Get(name string) (job.Definition, bool) {
	d, ok := r.defs[name]
	return d, ok
}

// Names returns the registered dataset names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.defs))
	for n := range r.defs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// All returns every definition ordered by name.
func (r *Registry) All() []job.Definition {
	names := r.Names()
	out := make([]job.Definition, len(names))
	for i, n := range names {
		out[i] = r.defs[n]
	}
	return out
}

// Select returns the definitions for names in the given order. Unknown names
// are reported together.
func (r *Registry) Select(names ...string) ([]job.Definition, error) {
	out := make([]job.Definition, 0, len(names))
	var unknown []string
	for _, n := range names {
		d, ok := r.defs[n]
		if !ok {
			unknown = append(unknown, n)
			continue
		}
		out = append(out, d)
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("registry: unknown dataset(s) %s; known: %s",
			strings.Join(unknown, ", "), strings.Join(r.Names(), ", "))
	}
	return out, nil
}

// Package source keeps the registry of content source adapters. Adapter
// registration order is significant: the pipeline aggregates discovery
// results in registration order so downstream tie-breaks stay reproducible.
package source

import (
	"fmt"

	"github.com/cristianleoo/influencerpy/internal/domain"
	"github.com/cristianleoo/influencerpy/internal/ports"
)

// Registry maps source kinds to their adapter implementations.
type Registry struct {
	adapters map[domain.SourceKind]ports.SourceAdapter
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: map[domain.SourceKind]ports.SourceAdapter{}}
}

// Register adds or replaces an adapter implementation.
func (r *Registry) Register(adapter ports.SourceAdapter) {
	if r.adapters == nil {
		r.adapters = map[domain.SourceKind]ports.SourceAdapter{}
	}
	r.adapters[adapter.Kind()] = adapter
}

// RegisterAs registers an adapter under an explicit kind, for adapters that
// serve more than one kind (substack feeds are plain RSS underneath).
func (r *Registry) RegisterAs(kind domain.SourceKind, adapter ports.SourceAdapter) {
	if r.adapters == nil {
		r.adapters = map[domain.SourceKind]ports.SourceAdapter{}
	}
	r.adapters[kind] = adapter
}

// Resolve returns an adapter by kind or an error if it is absent.
func (r *Registry) Resolve(kind domain.SourceKind) (ports.SourceAdapter, error) {
	if adapter, ok := r.adapters[kind]; ok {
		return adapter, nil
	}
	return nil, fmt.Errorf("source adapter %s is not registered", kind)
}

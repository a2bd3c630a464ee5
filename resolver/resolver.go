// Package resolver translates URIs named in a client document into the URIs
// of resources that actually exist on the server.
package resolver

import (
	"maps"
	"strings"
	"sync"
)

// Resolver maps document URIs to resource URIs for the lifetime of one
// synchronisation tree.
type Resolver interface {
	Resolve(uri string) string
	Add(documentURI string, resourceURI string)
	Remove(uri string)
	Update(documentURI string, resourceURI string)
}

// Identity resolves every URI to itself and records nothing.
var Identity Resolver = identity{}

type identity struct{}

func (identity) Resolve(uri string) string { return uri }
func (identity) Add(string, string)        {}
func (identity) Remove(string)             {}
func (identity) Update(string, string)     {}

// Table is an in-memory Resolver safe for concurrent use.
type Table struct {
	mu       sync.RWMutex
	mappings map[string]string
}

func NewTable() *Table {
	return &Table{mappings: map[string]string{}}
}

// Resolve returns the resource URI recorded for uri, or uri itself.
func (t *Table) Resolve(uri string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if mapped, ok := t.mappings[strings.TrimSpace(uri)]; ok {
		return mapped
	}
	return uri
}

func (t *Table) Add(documentURI string, resourceURI string) {
	documentURI = strings.TrimSpace(documentURI)
	if documentURI == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mappings[documentURI] = strings.TrimSpace(resourceURI)
}

func (t *Table) Update(documentURI string, resourceURI string) {
	t.Add(documentURI, resourceURI)
}

// Remove forgets every mapping from or to uri.
func (t *Table) Remove(uri string) {
	uri = strings.TrimSpace(uri)
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.mappings, uri)
	for documentURI, resourceURI := range t.mappings {
		if resourceURI == uri {
			delete(t.mappings, documentURI)
		}
	}
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.mappings)
}

// Mappings returns a copy of the recorded mappings.
func (t *Table) Mappings() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return maps.Clone(t.mappings)
}

package graph

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/crmarques/hypersync/faults"
	"github.com/crmarques/hypersync/resource"
)

// Network is the identity table of a session: every URI maps to exactly one
// Resource so that state written through one path is visible through all
// others.
type Network struct {
	mu    sync.Mutex
	nodes map[string]*Resource
}

func NewNetwork() *Network {
	return &Network{nodes: map[string]*Resource{}}
}

// Track returns the resource tracked for uri, creating a locationOnly node
// when none exists. An empty uri yields a fresh untracked unknown node.
func (n *Network) Track(uri string) *Resource {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return newResource("", StatusUnknown)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if existing, ok := n.nodes[uri]; ok {
		return existing
	}
	node := newResource(uri, StatusLocationOnly)
	n.nodes[uri] = node
	return node
}

func (n *Network) Lookup(uri string) (*Resource, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	node, ok := n.nodes[strings.TrimSpace(uri)]
	return node, ok
}

// StateOf returns the state tracked for uri. Untracked URIs are a contract
// error.
func (n *Network) StateOf(uri string) (State, error) {
	node, ok := n.Lookup(uri)
	if !ok {
		return State{}, faults.Contract(fmt.Sprintf("resource %s is not tracked", uri))
	}
	return node.State(), nil
}

// TryStateOf returns the state tracked for uri or def.
func (n *Network) TryStateOf(uri string, def State) State {
	node, ok := n.Lookup(uri)
	if !ok {
		return def
	}
	return node.State()
}

// Forget drops uri from the table. Callers holding the node keep it.
func (n *Network) Forget(uri string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.nodes, strings.TrimSpace(uri))
}

// NewVirtual creates a client-only resource identified by a urn:uuid URI.
// Virtual resources are never fetched, updated or deleted.
func (n *Network) NewVirtual(representation resource.Representation) *Resource {
	uri := "urn:uuid:" + uuid.NewString()

	node := newResource(uri, StatusVirtual)
	node.repr.Attributes = representation.Clone().Attributes
	node.repr.Links = append(node.repr.Links, representation.Links.Without(resource.Rel(resource.RelSelf))...)
	if representation.IsCollection() {
		node.collection = true
	}

	n.mu.Lock()
	n.nodes[uri] = node
	n.mu.Unlock()
	return node
}

func (n *Network) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.nodes)
}

package graph

import (
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/crmarques/hypersync/faults"
	"github.com/crmarques/hypersync/resource"
)

// Resource is a node of the network of data: a representation paired with
// its State, plus the child resources attached to it by name. Nodes are
// shared by pointer; Network guarantees one node per URI.
type Resource struct {
	mu sync.RWMutex

	uri         string
	repr        resource.Representation
	collection  bool
	items       []*Resource
	state       State
	singletons  map[string]*Resource
	collections map[string]*Resource
}

func newResource(uri string, status Status) *Resource {
	r := &Resource{uri: uri}
	r.state.Status = status
	r.state.PreviousStatus = status
	if uri != "" {
		r.repr.Links = resource.Links{{Rel: resource.RelSelf, Href: uri}}
	}
	return r
}

// URI returns the identity of the resource.
func (r *Resource) URI() string {
	if r == nil {
		return ""
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.uri
}

func (r *Resource) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.Status
}

// State returns a copy of the bookkeeping state.
func (r *Resource) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.clone()
}

func (r *Resource) Links() resource.Links {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.repr.Links.Clone()
}

func (r *Resource) Attribute(name string) (resource.Value, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.repr.Attribute(name)
}

// Title is the title attribute or, failing that, the mapped feed title.
func (r *Resource) Title() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if title, ok := r.repr.StringAttribute("title"); ok {
		return title
	}
	return r.state.MappedTitle
}

func (r *Resource) IsCollection() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collection
}

// Representation returns a copy of the resource document. Collections carry
// their members' representations as items.
func (r *Resource) Representation() resource.Representation {
	r.mu.RLock()
	out := r.repr.Clone()
	out.Items = nil
	collection := r.collection
	items := slices.Clone(r.items)
	r.mu.RUnlock()

	if collection {
		out.Items = make([]resource.Representation, 0, len(items))
		for _, item := range items {
			out.Items = append(out.Items, item.Representation())
		}
	}
	return out
}

// Document returns the last document received for the resource, with its
// items exactly as the server sent them. Forms are read this way.
func (r *Resource) Document() resource.Representation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.repr.Clone()
}

// Items returns the current collection members.
func (r *Resource) Items() []*Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.items)
}

func (r *Resource) Singleton(name string) (*Resource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	child, ok := r.singletons[name]
	return child, ok
}

func (r *Resource) Collection(name string) (*Resource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	child, ok := r.collections[name]
	return child, ok
}

// AttachSingleton registers child under name. A name already used for a
// collection is a contract error.
func (r *Resource) AttachSingleton(name string, child *Resource) error {
	if r == nil || child == nil {
		return faults.Contract("cannot attach a singleton to or from a nil resource")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.collections[name]; exists {
		return faults.Contract(fmt.Sprintf("attribute %q is already registered as a collection", name))
	}
	if r.singletons == nil {
		r.singletons = map[string]*Resource{}
	}
	if _, exists := r.singletons[name]; !exists {
		r.state.Singletons = append(r.state.Singletons, name)
	}
	r.singletons[name] = child
	return nil
}

// AttachCollection registers child as the collection named name. A name
// already used for a singleton is a contract error.
func (r *Resource) AttachCollection(name string, child *Resource) error {
	if r == nil || child == nil {
		return faults.Contract("cannot attach a collection to or from a nil resource")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.singletons[name]; exists {
		return faults.Contract(fmt.Sprintf("attribute %q is already registered as a singleton", name))
	}
	if r.collections == nil {
		r.collections = map[string]*Resource{}
	}
	if _, exists := r.collections[name]; !exists {
		r.state.Collections = append(r.state.Collections, name)
	}
	r.collections[name] = child

	child.mu.Lock()
	child.collection = true
	child.mu.Unlock()
	return nil
}

// AddItem appends item to the collection unless it is already a member.
func (r *Resource) AddItem(item *Resource) error {
	if r == nil {
		return faults.Contract("cannot add an item to a nil collection")
	}
	if item == nil {
		return faults.Contract("cannot add a nil item to a collection")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.collection = true
	if slices.Contains(r.items, item) {
		return nil
	}
	r.items = append(r.items, item)
	return nil
}

// RemoveItem drops item from the collection and reports whether it was a
// member.
func (r *Resource) RemoveItem(item *Resource) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := slices.Index(r.items, item)
	if idx < 0 {
		return false
	}
	r.items = slices.Delete(r.items, idx, idx+1)
	return true
}

// MarkStale forces the next synchronise to refetch. Resources that were
// deleted, are being deleted, or are virtual keep their status.
func (r *Resource) MarkStale() {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state.Status {
	case StatusDeleted, StatusDeleteInProgress, StatusVirtual:
		return
	}
	r.setStatusLocked(StatusStale)
}

func (r *Resource) String() string {
	return fmt.Sprintf("%s[%s]", r.URI(), r.Status())
}

func (r *Resource) setStatus(status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setStatusLocked(status)
}

func (r *Resource) setStatusLocked(status Status) {
	if r.state.Status == status {
		return
	}
	r.state.PreviousStatus = r.state.Status
	r.state.Status = status
}

func (r *Resource) revertStatus() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Status = r.state.PreviousStatus
}

// beginDelete moves the resource into deleteInProgress and reports whether
// the caller owns the delete. Repeated or pointless deletes return false.
func (r *Resource) beginDelete() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state.Status {
	case StatusDeleteInProgress, StatusVirtual, StatusDeleted, StatusForbidden:
		return false
	}
	r.setStatusLocked(StatusDeleteInProgress)
	return true
}

// hydrate replaces the document with a fetched representation and records
// the response metadata.
func (r *Resource) hydrate(representation resource.Representation, header http.Header, retrieved time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	links := representation.Links.Clone()
	if links.URI() == "" && r.uri != "" {
		links = append(resource.Links{{Rel: resource.RelSelf, Href: r.uri}}, links...)
	}
	cloned := representation.Clone()
	r.repr = resource.Representation{
		Links:      links,
		Attributes: cloned.Attributes,
		Items:      cloned.Items,
	}
	if representation.IsCollection() {
		r.collection = true
	}
	if header != nil {
		r.state.Header = header.Clone()
	}
	r.state.Retrieved = retrieved
	r.setStatusLocked(StatusHydrated)
}

// touch records a revalidated response without changing the document.
func (r *Resource) touch(header http.Header, retrieved time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if header != nil {
		merged := r.state.Header.Clone()
		if merged == nil {
			merged = http.Header{}
		}
		for key, values := range header {
			merged[key] = values
		}
		r.state.Header = merged
	}
	r.state.Retrieved = retrieved
	r.setStatusLocked(StatusHydrated)
}

func (r *Resource) setItems(items []*Resource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collection = true
	r.items = items
}

// applyFeedItem records what a collection feed says about a member that has
// not been hydrated yet. Attributes embedded in the entry are kept so that
// comparators can see them before the member is fetched.
func (r *Resource) applyFeedItem(item resource.FeedItem, entry resource.Representation, opts LoadOptions) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state.Status {
	case StatusHydrated, StatusForbidden, StatusDeleted, StatusDeleteInProgress, StatusVirtual:
		return
	}

	for name, value := range entry.Clone().Attributes {
		switch name {
		case "id", "eTag", "lastModified":
			continue
		}
		r.repr.SetAttribute(name, value)
	}
	for _, link := range entry.Links {
		if link.Rel == resource.RelSelf || r.repr.Links.Has(resource.Rel(link.Rel)) {
			continue
		}
		r.repr.Links = append(r.repr.Links, link)
	}

	r.state.MappedTitle = item.Title
	if item.Title != "" {
		r.repr.SetAttribute("title", item.Title)
		if opts.MappedTitleAttribute != "" {
			r.repr.SetAttribute(opts.MappedTitleAttribute, item.Title)
		}
	}
	if item.ETag != "" || item.LastModified != "" {
		if r.state.Header == nil {
			r.state.Header = http.Header{}
		}
		if item.ETag != "" {
			r.state.Header.Set("ETag", item.ETag)
		}
		if item.LastModified != "" {
			r.state.Header.Set("Last-Modified", item.LastModified)
		}
	}

	if r.state.Status == StatusUnknown {
		if opts.FeedOnly {
			r.setStatusLocked(StatusFeedOnly)
		} else {
			r.setStatusLocked(StatusLocationOnly)
		}
	}
}

// StateOf returns the state of r. A nil resource cannot be synchronised.
func StateOf(r *Resource) (State, error) {
	if r == nil {
		return State{}, faults.Contract("resource is not tracked")
	}
	return r.State(), nil
}

// TryState returns the state of r or def when r is nil.
func TryState(r *Resource, def State) State {
	if r == nil {
		return def
	}
	return r.State()
}

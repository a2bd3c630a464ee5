package graph

import (
	"net/http"
	"time"
)

// Status is the lifecycle position of a tracked resource.
type Status int

const (
	// StatusUnknown: neither URI nor body is trusted.
	StatusUnknown Status = iota
	// StatusLocationOnly: URI known, body never fetched.
	StatusLocationOnly
	StatusHydrated
	// StatusFeedOnly: only the collection feed title is known.
	StatusFeedOnly
	// StatusStale: the next synchronise must refetch.
	StatusStale
	StatusForbidden
	StatusDeleted
	StatusDeleteInProgress
	// StatusVirtual: client-only placeholder that is never fetched.
	StatusVirtual
)

var statusNames = [...]string{
	StatusUnknown:          "unknown",
	StatusLocationOnly:     "locationOnly",
	StatusHydrated:         "hydrated",
	StatusFeedOnly:         "feedOnly",
	StatusStale:            "stale",
	StatusForbidden:        "forbidden",
	StatusDeleted:          "deleted",
	StatusDeleteInProgress: "deleteInProgress",
	StatusVirtual:          "virtual",
}

func (s Status) String() string {
	if int(s) >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "invalid"
}

// LoadOptions tune fetch behaviour.
type LoadOptions struct {
	ForceLoad bool
	// MappedTitleAttribute copies each feed item's title into this attribute
	// of the sparse child so comparators can match on it before hydration.
	MappedTitleAttribute string
	// FeedOnly marks new feed children feedOnly instead of locationOnly.
	FeedOnly bool
	// HydrateItems also synchronises every collection member.
	HydrateItems bool
	// BatchSize bounds concurrent item hydration; zero means unbounded.
	BatchSize int
}

// NeedsFetch reports whether a resource in status must go to the network.
func NeedsFetch(status Status, opts LoadOptions) bool {
	switch status {
	case StatusUnknown, StatusLocationOnly, StatusStale:
		return true
	case StatusHydrated:
		return opts.ForceLoad
	default:
		return false
	}
}

// State is the out-of-band bookkeeping attached to every tracked resource.
// It never reaches the wire.
type State struct {
	Status         Status
	PreviousStatus Status
	// Singletons names the attributes holding single child resources.
	Singletons []string
	// Collections names the attributes holding child collections.
	Collections []string
	Header      http.Header
	Retrieved   time.Time
	MappedTitle string
}

func (s State) clone() State {
	cloned := s
	cloned.Singletons = append([]string(nil), s.Singletons...)
	cloned.Collections = append([]string(nil), s.Collections...)
	if s.Header != nil {
		cloned.Header = s.Header.Clone()
	}
	return cloned
}

// ETag returns the entity tag recorded with the last response.
func (s State) ETag() string {
	if s.Header == nil {
		return ""
	}
	return s.Header.Get("ETag")
}

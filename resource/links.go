package resource

import (
	"regexp"
	"strings"
)

// LinkMatcher selects link relations.
type LinkMatcher interface {
	MatchRel(rel string) bool
	String() string
}

type exactRel string

func (m exactRel) MatchRel(rel string) bool { return string(m) == rel }
func (m exactRel) String() string           { return string(m) }

type anyRel struct{}

func (anyRel) MatchRel(string) bool { return true }
func (anyRel) String() string       { return "*" }

type patternRel struct {
	pattern *regexp.Regexp
}

func (m patternRel) MatchRel(rel string) bool { return m.pattern.MatchString(rel) }
func (m patternRel) String() string           { return m.pattern.String() }

// AnyRel matches every relation.
var AnyRel LinkMatcher = anyRel{}

// Rel matches a relation exactly; "*" matches any relation.
func Rel(rel string) LinkMatcher {
	rel = strings.TrimSpace(rel)
	if rel == "*" {
		return AnyRel
	}
	return exactRel(rel)
}

func RelPattern(pattern *regexp.Regexp) LinkMatcher {
	if pattern == nil {
		return AnyRel
	}
	return patternRel{pattern: pattern}
}

// Find returns the first link matching the relation. When mediaType is set a
// link whose type equals it wins over an untyped one; links typed for another
// media type never match.
func (l Links) Find(matcher LinkMatcher, mediaType string) (Link, bool) {
	if matcher == nil {
		return Link{}, false
	}

	mediaType = strings.TrimSpace(mediaType)
	var fallback *Link
	for idx := range l {
		link := l[idx]
		if !matcher.MatchRel(link.Rel) {
			continue
		}
		if mediaType == "" || link.Type == mediaType {
			return link, true
		}
		if link.Type == "" && fallback == nil {
			fallback = &l[idx]
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return Link{}, false
}

func (l Links) Href(matcher LinkMatcher, mediaType string) string {
	link, ok := l.Find(matcher, mediaType)
	if !ok {
		return ""
	}
	return link.Href
}

func (l Links) Filter(matcher LinkMatcher) Links {
	var filtered Links
	for _, link := range l {
		if matcher != nil && matcher.MatchRel(link.Rel) {
			filtered = append(filtered, link)
		}
	}
	return filtered
}

func (l Links) Hrefs(matcher LinkMatcher) []string {
	var hrefs []string
	for _, link := range l.Filter(matcher) {
		hrefs = append(hrefs, link.Href)
	}
	return hrefs
}

func (l Links) Has(matcher LinkMatcher) bool {
	_, ok := l.Find(matcher, "")
	return ok
}

// Without returns a copy of l minus the links matching matcher.
func (l Links) Without(matcher LinkMatcher) Links {
	kept := make(Links, 0, len(l))
	for _, link := range l {
		if matcher != nil && matcher.MatchRel(link.Rel) {
			continue
		}
		kept = append(kept, link)
	}
	return kept
}

// Replace swaps every link of rel for one link per href, keeping the position
// of the first replaced link.
func (l Links) Replace(rel string, hrefs ...string) Links {
	replacement := make(Links, 0, len(hrefs))
	for _, href := range hrefs {
		replacement = append(replacement, Link{Rel: rel, Href: href})
	}

	out := make(Links, 0, len(l)+len(hrefs))
	inserted := false
	for _, link := range l {
		if link.Rel != rel {
			out = append(out, link)
			continue
		}
		if !inserted {
			out = append(out, replacement...)
			inserted = true
		}
	}
	if !inserted {
		out = append(out, replacement...)
	}
	return out
}

// URI is the identity of a representation: its self link, else canonical.
func (l Links) URI() string {
	if href := l.Href(Rel(RelSelf), ""); href != "" {
		return href
	}
	return l.Href(Rel(RelCanonical), "")
}

func (l Links) Clone() Links {
	if l == nil {
		return nil
	}
	return append(Links{}, l...)
}

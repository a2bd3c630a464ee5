package resource

import "strings"

// FeedItem is the minimal reference a collection envelope carries for each
// member before the member itself is fetched.
type FeedItem struct {
	ID           string `json:"id" yaml:"id"`
	Title        string `json:"title,omitempty" yaml:"title,omitempty"`
	ETag         string `json:"eTag,omitempty" yaml:"eTag,omitempty"`
	LastModified string `json:"lastModified,omitempty" yaml:"lastModified,omitempty"`
}

// FeedItems reads the feed entries of a collection envelope, skipping items
// without identity.
func FeedItems(collection Representation) []FeedItem {
	items := make([]FeedItem, 0, len(collection.Items))
	for _, item := range collection.Items {
		if entry, ok := FeedItemOf(item); ok {
			items = append(items, entry)
		}
	}
	return items
}

// FeedItemOf reads one feed entry. Items carrying only links fall back to
// their self link as id.
func FeedItemOf(item Representation) (FeedItem, bool) {
	id, _ := item.StringAttribute("id")
	if id == "" {
		id = item.URI()
	}
	if strings.TrimSpace(id) == "" {
		return FeedItem{}, false
	}
	title, _ := item.StringAttribute("title")
	eTag, _ := item.StringAttribute("eTag")
	lastModified, _ := item.StringAttribute("lastModified")
	return FeedItem{
		ID:           id,
		Title:        title,
		ETag:         eTag,
		LastModified: lastModified,
	}, true
}

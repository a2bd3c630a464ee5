package resource

type Value = any

// Link is a typed hypermedia link carried in a representation's links array.
type Link struct {
	Rel   string `json:"rel" yaml:"rel"`
	Href  string `json:"href" yaml:"href"`
	Type  string `json:"type,omitempty" yaml:"type,omitempty"`
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
}

type Links []Link

// Well-known link relations.
const (
	RelSelf       = "self"
	RelCanonical  = "canonical"
	RelCreateForm = "create-form"
	RelEditForm   = "edit-form"
	RelSubmit     = "submit"
	RelUp         = "up"
)

// Media types understood by the engine.
const (
	MediaTypeJSON    = "application/json"
	MediaTypeURIList = "text/uri-list"
)

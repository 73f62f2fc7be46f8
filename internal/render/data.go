package render

type LinkKind string

const (
	KindImage      LinkKind = "image"
	KindNavigation LinkKind = "navigation"
	KindAnchor     LinkKind = "anchor"
)

type Link struct {
	Kind LinkKind `json:"kind"`
	URL  string   `json:"url"`
}

// Rendered is a description in the three forms a listing view needs.
type Rendered struct {
	Markdown string
	HTML     string
	Text     string
	Links    []Link
}

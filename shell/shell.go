package shell

import (
	"io"

	g "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

// Metadata is the metadata of the viewer page.
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Default returns the metadata the viewer ships with.
func Default() Metadata {
	return Metadata{
		Title:       "Rippley Viewer",
		Description: "AI-Powered Modular App Builder UI",
	}
}

// Document wraps content in the document shell: an english-language HTML
// document with a UTF-8 charset, the standard viewport declaration and the
// title and description from meta. The content is placed in the body verbatim,
// in the provided order.
func Document(meta Metadata, content ...g.Node) g.Node {
	return Doctype(
		HTML(Lang("en"),
			Head(
				Meta(Charset("utf-8")),
				Meta(Name("viewport"), Content("width=device-width, initial-scale=1.0")),
				Meta(Name("description"), Content(meta.Description)),
				TitleEl(g.Text(meta.Title)),
			),
			Body(g.Group(content)),
		),
	)
}

// Render writes the document shell around content to w.
func Render(w io.Writer, meta Metadata, content ...g.Node) error {
	return Document(meta, content...).Render(w)
}

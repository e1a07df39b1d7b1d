package plot

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/gosimple/slug"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// GalleryFile is the index page written at the root of the plots tree
const GalleryFile = "index.html"

// WriteGallery writes an HTML page linking every plot, grouped by label.
// plots must be sorted by label.
func WriteGallery(path, plotsRoot string, plots []Plot) error {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	root := element(atom.Html)
	doc.AppendChild(root)

	head := element(atom.Head)
	title := element(atom.Title)
	title.AppendChild(text("Barometer DTW plots"))
	head.AppendChild(title)
	root.AppendChild(head)

	body := element(atom.Body)
	root.AppendChild(body)
	h1 := element(atom.H1)
	h1.AppendChild(text("Barometer DTW plots"))
	body.AppendChild(h1)

	// Table of contents
	nav := element(atom.Ul)
	body.AppendChild(nav)

	var section *html.Node
	current := ""
	for _, p := range plots {
		if p.Label != current || section == nil {
			current = p.Label
			id := slug.Make(p.Label)

			li := element(atom.Li)
			a := element(atom.A, html.Attribute{Key: "href", Val: "#" + id})
			a.AppendChild(text(p.Label))
			li.AppendChild(a)
			nav.AppendChild(li)

			h2 := element(atom.H2, html.Attribute{Key: "id", Val: id})
			h2.AppendChild(text(p.Label))
			body.AppendChild(h2)
			section = element(atom.Div)
			body.AppendChild(section)
		}

		src, err := relativeURL(plotsRoot, p.Image)
		if err != nil {
			return err
		}
		fig := element(atom.Figure)
		fig.AppendChild(element(atom.Img,
			html.Attribute{Key: "src", Val: src},
			html.Attribute{Key: "alt", Val: p.Label + " " + p.Date},
		))
		caption := element(atom.Figcaption)
		caption.AppendChild(text(p.Date))
		fig.AppendChild(caption)
		section.AppendChild(fig)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create gallery: %w", err)
	}
	defer f.Close()

	if err := html.Render(f, doc); err != nil {
		return fmt.Errorf("render gallery: %w", err)
	}
	return f.Close()
}

func relativeURL(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", fmt.Errorf("gallery link: %w", err)
	}
	u := url.URL{Path: filepath.ToSlash(rel)}
	return u.EscapedPath(), nil
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

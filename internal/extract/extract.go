// Package extract renders the visible text of a parsed HTML document.
package extract

import (
	"strings"

	"github.com/vasilisp/pagechat/internal/util"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// subtrees under these elements never contribute text
var excluded = map[string]struct{}{
	"script":   {},
	"style":    {},
	"noscript": {},
	"iframe":   {},
	"svg":      {},
}

func isExcluded(n *html.Node) bool {
	if _, ok := excluded[strings.ToLower(n.Data)]; ok {
		return true
	}
	// template content is inert and never part of the rendered page
	return n.DataAtom == atom.Template && n.Namespace == ""
}

// Text walks the tree rooted at root in document order and returns its
// visible text with every whitespace run collapsed to a single space.
func Text(root *html.Node) string {
	if root == nil {
		return ""
	}

	var b strings.Builder
	stack := []*html.Node{root}

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch n.Type {
		case html.TextNode:
			if text := strings.TrimSpace(n.Data); text != "" {
				b.WriteString(text)
				b.WriteByte(' ')
			}
			continue
		case html.ElementNode:
			if isExcluded(n) {
				continue
			}
		case html.DocumentNode:
		default:
			continue
		}

		// push in reverse so the first child is popped first
		for c := n.LastChild; c != nil; c = c.PrevSibling {
			stack = append(stack, c)
		}
	}

	return util.CollapseSpace(b.String())
}

func find(root *html.Node, tag string) *html.Node {
	if root == nil {
		return nil
	}

	stack := []*html.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		// only HTML elements; an svg <title> is not the document title
		if n.Type == html.ElementNode && n.Namespace == "" && n.Data == tag {
			return n
		}
		for c := n.LastChild; c != nil; c = c.PrevSibling {
			stack = append(stack, c)
		}
	}

	return nil
}

// Body returns the body element of doc, or nil.
func Body(doc *html.Node) *html.Node {
	return find(doc, "body")
}

// Title returns the trimmed text of the first title element.
func Title(doc *html.Node) string {
	title := find(doc, "title")
	if title == nil {
		return ""
	}

	var b strings.Builder
	for c := title.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return util.CollapseSpace(b.String())
}

// Document returns the title and body text of a parsed document.
func Document(doc *html.Node) (string, string) {
	return Title(doc), Text(Body(doc))
}

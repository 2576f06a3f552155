// CLAUDE:SUMMARY Minimal DOM helpers over x/net/html: simple CSS selector matching, text flattening.
package extract

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// querySelectorAll returns all nodes matching a simple CSS selector.
// Supported forms: "tag", ".class", "#id", "tag.class", "tag#id",
// "tag[attr]", "tag[attr=val]", and descendant combinations joined by spaces.
func querySelectorAll(doc *html.Node, selector string) []*html.Node {
	parts := strings.Fields(selector)
	if len(parts) == 0 {
		return nil
	}

	matches := matchSimple(doc, parts[0])
	for i := 1; i < len(parts); i++ {
		var next []*html.Node
		for _, parent := range matches {
			next = append(next, matchSimple(parent, parts[i])...)
		}
		matches = next
	}
	return matches
}

// querySelector returns the first node matching a simple CSS selector.
func querySelector(doc *html.Node, selector string) *html.Node {
	all := querySelectorAll(doc, selector)
	if len(all) == 0 {
		return nil
	}
	return all[0]
}

func matchSimple(root *html.Node, sel string) []*html.Node {
	m := parseSimpleSelector(sel)
	var results []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if matchesSelector(n, m) {
			results = append(results, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return results
}

type simpleSelector struct {
	tag     string
	id      string
	class   string
	attrKey string
	attrVal string
}

func parseSimpleSelector(sel string) simpleSelector {
	var s simpleSelector

	if idx := strings.IndexByte(sel, '['); idx >= 0 {
		attrPart := strings.TrimRight(sel[idx+1:], "]")
		sel = sel[:idx]
		if eqIdx := strings.IndexByte(attrPart, '='); eqIdx >= 0 {
			s.attrKey = attrPart[:eqIdx]
			s.attrVal = strings.Trim(attrPart[eqIdx+1:], `"'`)
		} else {
			s.attrKey = attrPart
		}
	}

	if idx := strings.IndexByte(sel, '#'); idx >= 0 {
		s.id = sel[idx+1:]
		sel = sel[:idx]
	}

	if idx := strings.IndexByte(sel, '.'); idx >= 0 {
		s.class = sel[idx+1:]
		sel = sel[:idx]
	}

	s.tag = sel
	return s
}

func matchesSelector(n *html.Node, s simpleSelector) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if s.tag != "" && n.Data != s.tag {
		return false
	}
	if s.id != "" && getAttr(n, "id") != s.id {
		return false
	}
	if s.class != "" {
		found := false
		for _, c := range strings.Fields(getAttr(n, "class")) {
			if c == s.class {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if s.attrKey != "" {
		if s.attrVal != "" {
			if getAttr(n, s.attrKey) != s.attrVal {
				return false
			}
		} else if !hasAttr(n, s.attrKey) {
			return false
		}
	}
	return true
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return true
		}
	}
	return false
}

// collectText flattens all text content under a node, excluding script and
// style subtrees, with whitespace runs collapsed to single spaces.
func collectText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style) {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// scriptText concatenates the raw content of every script element.
func scriptText(doc *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Script {
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					sb.WriteString(c.Data)
					sb.WriteByte('\n')
				}
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return sb.String()
}

// elementsByAtom returns all elements with the given tag in document order.
func elementsByAtom(root *html.Node, tag atom.Atom) []*html.Node {
	var results []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == tag {
			results = append(results, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return results
}

// firstByAtom returns the first element with the given tag, or nil.
func firstByAtom(root *html.Node, tag atom.Atom) *html.Node {
	all := elementsByAtom(root, tag)
	if len(all) == 0 {
		return nil
	}
	return all[0]
}

// followingByAtom returns the first element with the given tag that appears
// after the anchor node in document order.
func followingByAtom(root *html.Node, anchor *html.Node, tag atom.Atom) *html.Node {
	seen := false
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n == anchor {
			seen = true
		} else if seen && n.Type == html.ElementNode && n.DataAtom == tag {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return found
}

// nextElementSibling returns the next sibling that is an element node.
func nextElementSibling(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

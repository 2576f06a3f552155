package extract

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// maxRowValueLen caps accepted values. A longer match means the "value"
// region swallowed unrelated page content and must be treated as absent.
const maxRowValueLen = 1000

// labelSlack bounds how much trailing text a label element may carry beyond
// the label itself (colons, № marks) and still count as a label.
const labelSlack = 20

// labelAtoms are the structural elements a label match may originate from.
// Matching outside this set (any container whose flattened text merely
// contains the label, or a script body) previously pulled navigation and
// script content into record fields, so the anchor set stays closed.
var labelAtoms = []atom.Atom{atom.Th, atom.Td, atom.Dt, atom.Label, atom.Strong, atom.B}

// rowValue finds the value text paired with the first of the given label
// synonyms. Labels are tried in order; within one label, candidates are
// scanned in document order. Returns "" when nothing anchored is found or
// every candidate value exceeds maxRowValueLen.
func rowValue(doc *html.Node, labels ...string) string {
	for _, label := range labels {
		if v := rowValueOne(doc, label); v != "" {
			return v
		}
	}
	return ""
}

func rowValueOne(doc *html.Node, label string) string {
	for _, tag := range labelAtoms {
		for _, n := range elementsByAtom(doc, tag) {
			own := collectText(n)
			if !labelMatches(own, label) {
				continue
			}
			value := strings.TrimSpace(valueFor(n))
			if value == "" || utf8.RuneCountInString(value) > maxRowValueLen {
				continue
			}
			return value
		}
	}
	return ""
}

func labelMatches(text, label string) bool {
	if text == label {
		return true
	}
	if !strings.HasPrefix(text, label) {
		return false
	}
	return len(text)-len(label) <= labelSlack
}

// valueFor locates the value region adjacent to a matched label element.
// Table and definition-list labels pair with their next element sibling;
// inline labels (strong, b, label) pair with the text that follows them
// inside the same parent.
func valueFor(labelNode *html.Node) string {
	switch labelNode.DataAtom {
	case atom.Th, atom.Td, atom.Dt:
		if sib := nextElementSibling(labelNode); sib != nil {
			return collectText(sib)
		}
	case atom.Label:
		if sib := nextElementSibling(labelNode); sib != nil {
			return collectText(sib)
		}
	case atom.Strong, atom.B:
		var sb strings.Builder
		for s := labelNode.NextSibling; s != nil; s = s.NextSibling {
			switch s.Type {
			case html.TextNode:
				sb.WriteString(s.Data)
			case html.ElementNode:
				if s.DataAtom == atom.Script || s.DataAtom == atom.Style {
					continue
				}
				sb.WriteString(collectText(s))
				sb.WriteByte(' ')
			}
		}
		return strings.Join(strings.Fields(sb.String()), " ")
	}
	return ""
}

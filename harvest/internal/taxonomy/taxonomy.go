// CLAUDE:SUMMARY Two-level classification table: exact-name resolution plus parent-id prefix heuristic.
// Package taxonomy resolves category and subcategory names to numeric IDs.
//
// The table is an immutable snapshot built from the register's two list
// endpoints; resolution is pure lookup with no I/O.
package taxonomy

import (
	"strconv"
	"strings"
)

// Category is one top-level classification.
type Category struct {
	ID   int64
	Name string
}

// Subcategory is one second-level classification owned by a Category.
type Subcategory struct {
	ID       int64
	ParentID int64
	Name     string
}

// Table is a snapshot of the classification tree, immutable between syncs.
type Table struct {
	catByName map[string]int64
	subByName map[string]Subcategory
	parentIDs []int64
}

// NewTable builds a lookup table. Name keys are case-folded and trimmed so
// heading text variations still resolve.
func NewTable(cats []Category, subs []Subcategory) *Table {
	t := &Table{
		catByName: make(map[string]int64, len(cats)),
		subByName: make(map[string]Subcategory, len(subs)),
		parentIDs: make([]int64, 0, len(cats)),
	}
	for _, c := range cats {
		t.catByName[foldName(c.Name)] = c.ID
		t.parentIDs = append(t.parentIDs, c.ID)
	}
	for _, s := range subs {
		t.subByName[foldName(s.Name)] = s
	}
	return t
}

// ParentIDs returns the known top-level category IDs.
func (t *Table) ParentIDs() []int64 { return t.parentIDs }

// Resolve maps a category name and/or subcategory name to numeric IDs.
// When only the subcategory matches, the category ID is derived from the
// subcategory's stored parent reference. No-match yields nil, never an error.
func (t *Table) Resolve(categoryName, subcategoryName string) (categoryID, subcategoryID *int64) {
	if categoryName != "" {
		if id, ok := t.catByName[foldName(categoryName)]; ok {
			categoryID = &id
		}
	}
	if subcategoryName != "" {
		if sub, ok := t.subByName[foldName(subcategoryName)]; ok {
			id := sub.ID
			subcategoryID = &id
			if categoryID == nil {
				parent := sub.ParentID
				if parent == 0 {
					parent = ParentFromID(sub.ID, t.parentIDs)
				}
				if parent != 0 {
					categoryID = &parent
				}
			}
		}
	}
	return categoryID, subcategoryID
}

// ParentFromID recovers a subcategory's parent by decimal-prefix match
// against the known parent IDs, longest prefix first; when none of the known
// IDs prefixes the subcategory ID, the first digit is used as a fallback.
func ParentFromID(subID int64, known []int64) int64 {
	s := strconv.FormatInt(subID, 10)

	var best int64
	bestLen := 0
	for _, p := range known {
		ps := strconv.FormatInt(p, 10)
		if len(ps) < len(s) && strings.HasPrefix(s, ps) && len(ps) > bestLen {
			best, bestLen = p, len(ps)
		}
	}
	if bestLen > 0 {
		return best
	}

	first, err := strconv.ParseInt(s[:1], 10, 64)
	if err != nil {
		return 0
	}
	return first
}

// SplitDisplay splits a subcategory list entry of the form
// "Parent name - Subcategory name" into its two halves. Entries without the
// separator come back with an empty parent.
func SplitDisplay(text string) (parent, sub string) {
	before, after, found := strings.Cut(text, " - ")
	if !found {
		return "", strings.TrimSpace(text)
	}
	return strings.TrimSpace(before), strings.TrimSpace(after)
}

func foldName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

package taxonomy

import "testing"

func sampleTable() *Table {
	cats := []Category{
		{ID: 1, Name: "Чистота"},
		{ID: 3, Name: "Пътна инфраструктура"},
		{ID: 12, Name: "Зелена система"},
	}
	subs := []Subcategory{
		{ID: 30271, ParentID: 3, Name: "Проблеми с велосипедната инфраструктура"},
		{ID: 30105, ParentID: 3, Name: "Дупки по платното"},
		{ID: 12040, ParentID: 12, Name: "Паднали клони"},
	}
	return NewTable(cats, subs)
}

// WHAT: resolving both names yields both numeric IDs.
// WHY: scraped heading text must map onto the register's stable IDs.
func TestResolveBothNames(t *testing.T) {
	tab := sampleTable()
	catID, subID := tab.Resolve("Пътна инфраструктура", "Проблеми с велосипедната инфраструктура")
	if catID == nil || *catID != 3 {
		t.Fatalf("category id = %v, want 3", catID)
	}
	if subID == nil || *subID != 30271 {
		t.Fatalf("subcategory id = %v, want 30271", subID)
	}
}

// WHAT: a subcategory-only match still derives the parent category ID.
// WHY: some pages carry only the second heading line.
func TestResolveSubcategoryDerivesParent(t *testing.T) {
	tab := sampleTable()
	catID, subID := tab.Resolve("", "Проблеми с велосипедната инфраструктура")
	if subID == nil || *subID != 30271 {
		t.Fatalf("subcategory id = %v, want 30271", subID)
	}
	if catID == nil || *catID != 3 {
		t.Fatalf("derived category id = %v, want 3", catID)
	}
}

// WHAT: lookup is case- and whitespace-insensitive.
func TestResolveFoldsNames(t *testing.T) {
	tab := sampleTable()
	catID, _ := tab.Resolve("  пътна инфраструктура ", "")
	if catID == nil || *catID != 3 {
		t.Fatalf("category id = %v, want 3", catID)
	}
}

// WHAT: unknown names resolve to nil rather than an error.
// WHY: classifications the sync has not seen yet must not abort the harvest.
func TestResolveUnknown(t *testing.T) {
	tab := sampleTable()
	catID, subID := tab.Resolve("Несъществуваща", "Също несъществуваща")
	if catID != nil || subID != nil {
		t.Fatalf("got %v/%v, want nil/nil", catID, subID)
	}
}

// WHAT: prefix heuristic picks the longest known parent ID prefixing the
// subcategory ID, with a first-digit fallback.
func TestParentFromID(t *testing.T) {
	known := []int64{1, 3, 12, 30}
	cases := []struct {
		sub  int64
		want int64
	}{
		{30271, 30}, // "30" is a longer prefix of "30271" than "3"
		{3105, 3},
		{12040, 12},
		{90001, 9}, // no known prefix, first digit
	}
	for _, c := range cases {
		if got := ParentFromID(c.sub, known); got != c.want {
			t.Errorf("ParentFromID(%d) = %d, want %d", c.sub, got, c.want)
		}
	}
}

// WHAT: parent derivation without a stored ParentID falls back to the
// prefix heuristic over the table's category IDs.
func TestResolvePrefixFallback(t *testing.T) {
	cats := []Category{{ID: 3, Name: "Пътна инфраструктура"}}
	subs := []Subcategory{{ID: 30271, Name: "Проблеми с велосипедната инфраструктура"}}
	tab := NewTable(cats, subs)
	catID, subID := tab.Resolve("", "Проблеми с велосипедната инфраструктура")
	if subID == nil || *subID != 30271 {
		t.Fatalf("subcategory id = %v, want 30271", subID)
	}
	if catID == nil || *catID != 3 {
		t.Fatalf("category id = %v, want 3", catID)
	}
}

// WHAT: list entries of the form "Parent - Sub" split on the separator.
func TestSplitDisplay(t *testing.T) {
	p, s := SplitDisplay("Пътна инфраструктура - Дупки по платното")
	if p != "Пътна инфраструктура" || s != "Дупки по платното" {
		t.Fatalf("got %q/%q", p, s)
	}
	p, s = SplitDisplay("Само подкатегория")
	if p != "" || s != "Само подкатегория" {
		t.Fatalf("no-separator case: got %q/%q", p, s)
	}
}

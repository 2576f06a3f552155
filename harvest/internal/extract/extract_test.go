package extract

import (
	"strings"
	"testing"
)

func extractOne(t *testing.T, page string, id int64) *Record {
	t.Helper()
	rec, err := Extract([]byte(page), id)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	return rec
}

func TestNotFoundMarker(t *testing.T) {
	// WHAT: A page carrying the register's not-found phrase yields no record.
	// WHY: The register answers HTTP 200 for absent IDs; only the body tells.
	page := `<html><body><div class="error">Няма такъв сигнал</div></body></html>`
	rec := extractOne(t, page, 536304)
	if rec != nil {
		t.Fatalf("rec = %+v, want nil", rec)
	}
}

func TestAnchoredLabelSearch(t *testing.T) {
	// WHAT: A label occurring inside a script must not win over the genuine
	// label-bearing element.
	// WHY: Naive substring search over whole containers previously pulled
	// script and navigation content into record fields.
	page := `<html><body>
		<script>var x = "Район данни за картата 12345";</script>
		<table><tr><td>Район</td><td>район Младост</td></tr></table>
	</body></html>`
	rec := extractOne(t, page, 1)
	if rec.Neighborhood == nil {
		t.Fatal("neighborhood not extracted")
	}
	if *rec.Neighborhood != "район Младост" {
		t.Errorf("neighborhood = %q, want %q", *rec.Neighborhood, "район Младост")
	}
}

func TestRowValueLengthCap(t *testing.T) {
	// WHAT: A value longer than the cap is rejected as noise.
	long := strings.Repeat("я", 2000)
	page := `<html><body><table><tr><td>Адрес</td><td>` + long + `</td></tr></table></body></html>`
	rec := extractOne(t, page, 1)
	if rec.Address != nil {
		t.Errorf("address should be absent for oversized value, got %d bytes", len(*rec.Address))
	}
}

func TestRowValueLabelSynonyms(t *testing.T) {
	// WHAT: The second synonym in a label list still finds the value.
	page := `<html><body><dl><dt>Улица</dt><dd>бул. Витоша 15</dd></dl></body></html>`
	rec := extractOne(t, page, 1)
	if rec.Address == nil || *rec.Address != "бул. Витоша 15" {
		t.Errorf("address = %v, want бул. Витоша 15", rec.Address)
	}
}

func TestCoordinatesFromLocationValue(t *testing.T) {
	// WHAT: A bracketed pair inside the location field becomes the coordinate pair.
	page := `<html><body><table><tr>
		<td>Местоположение</td><td>Местоположение [42.123456,23.654321]</td>
	</tr></table></body></html>`
	rec := extractOne(t, page, 1)
	if rec.Lat == nil || rec.Lng == nil {
		t.Fatal("coordinates not extracted")
	}
	if *rec.Lat != 42.123456 || *rec.Lng != 23.654321 {
		t.Errorf("pair = [%v,%v], want [42.123456,23.654321]", *rec.Lat, *rec.Lng)
	}
}

func TestCoordinatesNeverPartial(t *testing.T) {
	// WHAT: A lone bracketed number never produces half a pair.
	page := `<html><body><table><tr>
		<td>Местоположение</td><td>кв. Лозенец [42.123456]</td>
	</tr></table></body></html>`
	rec := extractOne(t, page, 1)
	if rec.Lat != nil || rec.Lng != nil {
		t.Errorf("partial pair accepted: lat=%v lng=%v", rec.Lat, rec.Lng)
	}
}

func TestCoordinatesFromScript(t *testing.T) {
	// WHAT: When the location field has no pair, the script scan finds one,
	// constrained to the register's 42.x/23.x prefixes.
	page := `<html><body>
		<script>var zoom = [15.0, 3.5]; map.setView([42.697708, 23.321868], 15);</script>
	</body></html>`
	rec := extractOne(t, page, 1)
	if rec.Lat == nil || rec.Lng == nil {
		t.Fatal("script coordinates not extracted")
	}
	if *rec.Lat != 42.697708 || *rec.Lng != 23.321868 {
		t.Errorf("pair = [%v,%v]", *rec.Lat, *rec.Lng)
	}
}

func TestCoordinatesOutOfBounds(t *testing.T) {
	// WHAT: A pair outside the plausible city box is discarded whole.
	page := `<html><body><table><tr>
		<td>Местоположение</td><td>[55.755800,37.617600]</td>
	</tr></table></body></html>`
	rec := extractOne(t, page, 1)
	if rec.Lat != nil || rec.Lng != nil {
		t.Errorf("out-of-bounds pair accepted: lat=%v lng=%v", rec.Lat, rec.Lng)
	}
}

func TestHeaderTokens(t *testing.T) {
	// WHAT: Registration number and date-time tokens come from the h1; both optional.
	page := `<html><body><h1>Сигнал СОА21-КЦ01-12345 от 12.05.2021 14:33</h1></body></html>`
	rec := extractOne(t, page, 1)
	if rec.RegNumber == nil || *rec.RegNumber != "СОА21-КЦ01-12345" {
		t.Errorf("reg number = %v", rec.RegNumber)
	}
	if rec.SubmittedAt == nil || *rec.SubmittedAt != "12.05.2021 14:33" {
		t.Errorf("submitted at = %v", rec.SubmittedAt)
	}
}

func TestHeaderTokensAbsent(t *testing.T) {
	// WHAT: A heading without tokens does not fail extraction.
	page := `<html><body><h1>Преглед на сигнал</h1></body></html>`
	rec := extractOne(t, page, 1)
	if rec == nil {
		t.Fatal("record should exist")
	}
	if rec.RegNumber != nil || rec.SubmittedAt != nil {
		t.Error("tokens should be absent")
	}
}

func TestClassificationHeading(t *testing.T) {
	// WHAT: Category before "/", subcategory after, preferring the italic span.
	page := `<html><body>
		<h1>Сигнал</h1>
		<h2>Пътна инфраструктура / <i>Проблеми с велосипедната инфраструктура</i></h2>
	</body></html>`
	rec := extractOne(t, page, 1)
	if rec.CategoryName == nil || *rec.CategoryName != "Пътна инфраструктура" {
		t.Errorf("category = %v", rec.CategoryName)
	}
	if rec.SubcategoryName == nil || *rec.SubcategoryName != "Проблеми с велосипедната инфраструктура" {
		t.Errorf("subcategory = %v", rec.SubcategoryName)
	}
}

func TestClassificationHeadingNoSeparator(t *testing.T) {
	page := `<html><body><h1>Сигнал</h1><h2>Общи въпроси</h2></body></html>`
	rec := extractOne(t, page, 1)
	if rec.CategoryName != nil || rec.SubcategoryName != nil {
		t.Error("no classification expected without separator")
	}
}

func TestStatusFallbackChain(t *testing.T) {
	// WHAT: The second fallback element supplies the status when the primary is absent.
	page := `<html><body><span class="signal-status">Приключен</span></body></html>`
	rec := extractOne(t, page, 1)
	if rec.Status == nil || *rec.Status != "Приключен" {
		t.Errorf("status = %v", rec.Status)
	}
}

func TestDescriptionFromMeta(t *testing.T) {
	page := `<html><head><meta name="description" content="Счупена пейка в градинката до блока"></head><body></body></html>`
	rec := extractOne(t, page, 1)
	if rec.Description == nil || *rec.Description != "Счупена пейка в градинката до блока" {
		t.Errorf("description = %v", rec.Description)
	}
}

func TestDescriptionLabeledWindow(t *testing.T) {
	// WHAT: Without meta or structural candidates, the text window after
	// "Описание" is bounded by the next section label.
	page := `<html><body>
		<p><strong>Описание</strong> Дупка на пътното платно пред входа, опасна за колоездачи.</p>
		<p><strong>Адрес</strong> ул. Шипка 3</p>
	</body></html>`
	rec := extractOne(t, page, 1)
	if rec.Description == nil {
		t.Fatal("description not extracted")
	}
	if strings.Contains(*rec.Description, "Шипка") {
		t.Errorf("window leaked past next section label: %q", *rec.Description)
	}
	if !strings.Contains(*rec.Description, "Дупка на пътното платно") {
		t.Errorf("description = %q", *rec.Description)
	}
}

func TestDescriptionTooShortRejected(t *testing.T) {
	page := `<html><head><meta name="description" content="кратко"></head><body></body></html>`
	rec := extractOne(t, page, 1)
	if rec.Description != nil {
		t.Errorf("short description accepted: %q", *rec.Description)
	}
}

func TestAttachmentFlag(t *testing.T) {
	with := `<html><body><a href="/uploads/photo123.jpg">снимка</a></body></html>`
	without := `<html><body><a href="/bg/about">за нас</a></body></html>`
	if rec := extractOne(t, with, 1); !rec.HasDocuments {
		t.Error("attachment link not detected")
	}
	if rec := extractOne(t, without, 1); rec.HasDocuments {
		t.Error("ordinary link flagged as attachment")
	}
}

func TestScriptClassificationIDs(t *testing.T) {
	// WHAT: Loose key-pattern scrape picks category and subcategory IDs apart.
	page := `<html><body><script>
		var signal = { categoryId: 3, subcategoryId: 30271 };
	</script></body></html>`
	rec := extractOne(t, page, 1)
	if rec.CategoryID == nil || *rec.CategoryID != 3 {
		t.Errorf("categoryID = %v, want 3", rec.CategoryID)
	}
	if rec.SubcategoryID == nil || *rec.SubcategoryID != 30271 {
		t.Errorf("subcategoryID = %v, want 30271", rec.SubcategoryID)
	}
}

func TestScriptSubcategoryOnly(t *testing.T) {
	// WHAT: "subcategoryId" alone must not satisfy the category pattern.
	page := `<html><body><script>var s = { subcategoryId: 30271 };</script></body></html>`
	rec := extractOne(t, page, 1)
	if rec.CategoryID != nil {
		t.Errorf("categoryID = %v, want nil", *rec.CategoryID)
	}
	if rec.SubcategoryID == nil || *rec.SubcategoryID != 30271 {
		t.Errorf("subcategoryID = %v, want 30271", rec.SubcategoryID)
	}
}

func TestEveryFieldOptional(t *testing.T) {
	// WHAT: A nearly empty page still extracts to a record with the ID set.
	// WHY: Extraction never throws for missing optional fields.
	rec := extractOne(t, `<html><body><p>нищо</p></body></html>`, 42)
	if rec == nil {
		t.Fatal("record should exist")
	}
	if rec.ID != 42 {
		t.Errorf("id = %d, want 42", rec.ID)
	}
}

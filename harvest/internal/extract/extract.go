// CLAUDE:SUMMARY Heuristic signal-page extractor: ordered fallback rules turn loose HTML into a typed Record.
// Package extract converts a fetched signal page into a typed Record.
//
// Every field is optional and extracted by its own ordered fallback chain;
// a malformed or missing field degrades to absent, never to a failed record.
// Only the not-found presence check can short-circuit the whole extraction.
package extract

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// NotFoundMarkers are the in-body phrases the register serves (with HTTP 200)
// for signal IDs that do not exist.
var NotFoundMarkers = []string{
	"Няма такъв сигнал",
	"Невалиден номер на сигнал",
}

// Record is the structured output of extraction for one signal.
// Pointer fields distinguish "document is silent" (nil) from "document
// explicitly empties this field" (pointer to "").
type Record struct {
	ID              int64
	RegNumber       *string
	SubmittedAt     *string
	Status          *string
	Description     *string
	Neighborhood    *string
	Address         *string
	LocationText    *string
	LocationType    *string
	CategoryName    *string
	SubcategoryName *string

	// Lat and Lng are set together or not at all.
	Lat *float64
	Lng *float64

	HasDocuments bool

	// Classification IDs; scraped best-effort here, normally filled by the
	// taxonomy resolver afterwards.
	CategoryID    *int64
	SubcategoryID *int64

	// RawMarkdown is filled by the pipeline when raw retention is on.
	RawMarkdown *string
}

// Sofia plausibility box. A coordinate pair outside it is extraction noise.
const (
	minLat, maxLat = 42.0, 43.0
	minLng, maxLng = 23.0, 24.0
)

var (
	regNumberRe = regexp.MustCompile(`[А-Я]{3}\d{2}-[А-Я]{2}\d{2}-\d+`)
	dateTimeRe  = regexp.MustCompile(`\d{2}\.\d{2}\.\d{4}(?:\s+\d{2}:\d{2}(?::\d{2})?)?`)

	// Bracketed [lat,lng] pair in a field value.
	coordPairRe = regexp.MustCompile(`\[\s*(-?\d{1,2}\.\d+)\s*,\s*(-?\d{1,3}\.\d+)\s*\]`)
	// Script-embedded pair, constrained to the register's coordinate prefixes
	// so map-tile and viewport constants are never mistaken for a location.
	scriptPairRe = regexp.MustCompile(`\[\s*(42\.\d+)\s*,\s*(23\.\d+)\s*\]`)

	categoryIDRe    = regexp.MustCompile(`(?i)\bcategoryId["']?\s*[:=]\s*(\d+)`)
	subcategoryIDRe = regexp.MustCompile(`(?i)subcategoryId["']?\s*[:=]\s*(\d+)`)
)

// statusSelectors is the primary status element plus its two fallbacks.
var statusSelectors = []string{"#signal-status", "#current-status", ".signal-status"}

// descriptionSelectors are tried in order after the meta description.
var descriptionSelectors = []string{
	"div.signal-description",
	"div.description",
	"article p",
}

// sectionLabels bound the text-window description fallback.
var sectionLabels = []string{
	"Адрес", "Район", "Местоположение", "Статус",
	"Вид местоположение", "Прикачени файлове", "История",
}

// fieldSpec pairs a record field with its ordered label synonyms, so new
// synonyms extend data, not control flow.
type fieldSpec struct {
	labels []string
	assign func(r *Record, v string)
}

var labeledFields = []fieldSpec{
	{labels: []string{"Район", "Квартал"}, assign: func(r *Record, v string) { r.Neighborhood = &v }},
	{labels: []string{"Адрес", "Улица"}, assign: func(r *Record, v string) { r.Address = &v }},
	{labels: []string{"Вид местоположение", "Тип на мястото"}, assign: func(r *Record, v string) { r.LocationType = &v }},
}

// attachmentHints mark an href as a signal attachment link.
var attachmentHints = []string{"/uploads/", "/files/", "getattachment", "download"}

var sanitizer = bluemonday.StrictPolicy()

// Extract parses a signal page. It returns (nil, nil) when the page is the
// register's not-found response, an error only when the payload cannot be
// parsed as HTML at all.
func Extract(body []byte, id int64) (*Record, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("extract: parse html: %w", err)
	}

	pageText := collectText(doc)
	for _, marker := range NotFoundMarkers {
		if strings.Contains(pageText, marker) {
			return nil, nil
		}
	}

	rec := &Record{ID: id}

	parseHeader(doc, rec)
	parseClassification(doc, rec)
	parseStatus(doc, rec)

	if v := rowValue(doc, "Местоположение", "Локация"); v != "" {
		rec.LocationText = &v
	}
	parseCoordinates(doc, rec)
	parseDescription(doc, pageText, rec)

	for _, f := range labeledFields {
		if v := rowValue(doc, f.labels...); v != "" {
			f.assign(rec, clean(v))
		}
	}

	rec.HasDocuments = hasAttachments(doc)
	scrapeClassificationIDs(doc, rec)

	return rec, nil
}

// parseHeader pulls the registration number and submission timestamp out of
// the page's primary heading. Both tokens are optional.
func parseHeader(doc *html.Node, rec *Record) {
	h1 := firstByAtom(doc, atom.H1)
	if h1 == nil {
		return
	}
	text := collectText(h1)
	if m := regNumberRe.FindString(text); m != "" {
		rec.RegNumber = &m
	}
	if m := dateTimeRe.FindString(text); m != "" {
		rec.SubmittedAt = &m
	}
}

// parseClassification reads "Category / Subcategory" from the secondary
// heading that follows the primary one. The subcategory prefers an embedded
// emphasized span when present.
func parseClassification(doc *html.Node, rec *Record) {
	h1 := firstByAtom(doc, atom.H1)
	if h1 == nil {
		return
	}
	h2 := followingByAtom(doc, h1, atom.H2)
	if h2 == nil {
		return
	}
	text := collectText(h2)
	before, after, found := strings.Cut(text, "/")
	if !found {
		return
	}
	if cat := strings.TrimSpace(before); cat != "" {
		rec.CategoryName = &cat
	}

	sub := strings.TrimSpace(after)
	if em := firstByAtom(h2, atom.I); em != nil {
		if t := collectText(em); t != "" {
			sub = t
		}
	} else if em := firstByAtom(h2, atom.Em); em != nil {
		if t := collectText(em); t != "" {
			sub = t
		}
	}
	if sub != "" {
		rec.SubcategoryName = &sub
	}
}

func parseStatus(doc *html.Node, rec *Record) {
	for _, sel := range statusSelectors {
		if n := querySelector(doc, sel); n != nil {
			if t := strings.TrimSpace(collectText(n)); t != "" {
				rec.Status = &t
				return
			}
		}
	}
}

// parseCoordinates looks for a bracketed [lat,lng] pair, first in the
// location field value, then in script content constrained to the register's
// known numeric prefixes. A pair is only ever accepted whole.
func parseCoordinates(doc *html.Node, rec *Record) {
	if rec.LocationText != nil {
		if lat, lng, ok := matchPair(coordPairRe, *rec.LocationText); ok && inBounds(lat, lng) {
			rec.Lat, rec.Lng = &lat, &lng
			return
		}
	}
	if lat, lng, ok := matchPair(scriptPairRe, scriptText(doc)); ok && inBounds(lat, lng) {
		rec.Lat, rec.Lng = &lat, &lng
	}
}

func matchPair(re *regexp.Regexp, s string) (lat, lng float64, ok bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, false
	}
	lat, err1 := strconv.ParseFloat(m[1], 64)
	lng, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lat, lng, true
}

func inBounds(lat, lng float64) bool {
	return lat >= minLat && lat <= maxLat && lng >= minLng && lng <= maxLng
}

// parseDescription tries the meta description, then structural selectors,
// then a labeled text window bounded by the next section label. Candidates
// outside (10,5000) characters are rejected.
func parseDescription(doc *html.Node, pageText string, rec *Record) {
	for _, meta := range querySelectorAll(doc, "meta[name=description]") {
		if v := clean(getAttr(meta, "content")); descriptionPlausible(v) {
			rec.Description = &v
			return
		}
	}

	for _, sel := range descriptionSelectors {
		if n := querySelector(doc, sel); n != nil {
			if v := clean(collectText(n)); descriptionPlausible(v) {
				rec.Description = &v
				return
			}
		}
	}

	if v := labeledWindow(pageText, "Описание"); descriptionPlausible(v) {
		rec.Description = &v
	}
}

func descriptionPlausible(s string) bool {
	n := utf8.RuneCountInString(s)
	return n > 10 && n < 5000
}

// labeledWindow cuts the flattened page text after the given label, stopping
// at the next known section label.
func labeledWindow(pageText, label string) string {
	idx := strings.Index(pageText, label)
	if idx < 0 {
		return ""
	}
	window := pageText[idx+len(label):]
	window = strings.TrimLeft(window, ": ")
	cut := len(window)
	for _, next := range sectionLabels {
		if i := strings.Index(window, next); i >= 0 && i < cut {
			cut = i
		}
	}
	return clean(window[:cut])
}

func hasAttachments(doc *html.Node) bool {
	for _, a := range elementsByAtom(doc, atom.A) {
		href := strings.ToLower(getAttr(a, "href"))
		for _, hint := range attachmentHints {
			if strings.Contains(href, hint) {
				return true
			}
		}
	}
	return false
}

// scrapeClassificationIDs is a best-effort numeric ID scrape from script
// content. Absence is non-fatal; the taxonomy resolver is the real source.
func scrapeClassificationIDs(doc *html.Node, rec *Record) {
	script := scriptText(doc)
	if m := categoryIDRe.FindStringSubmatch(script); m != nil {
		if id, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			rec.CategoryID = &id
		}
	}
	if m := subcategoryIDRe.FindStringSubmatch(script); m != nil {
		if id, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			rec.SubcategoryID = &id
		}
	}
}

// clean strips any residual markup and collapses whitespace.
func clean(s string) string {
	s = sanitizer.Sanitize(s)
	return strings.Join(strings.Fields(s), " ")
}

package fingerprint

import (
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// accentFolder strips combining marks after NFD decomposition, so
// "anunció" and "anuncio" hash identically.
var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize produces the canonical text that fingerprinting hashes:
// HTML stripped, accents folded, lowercased, whitespace collapsed.
// Deterministic: equal inputs always yield equal outputs.
func Normalize(raw string) string {
	text := stripHTML(raw)

	if folded, _, err := transform.String(accentFolder, text); err == nil {
		text = folded
	}

	text = strings.ToLower(text)
	return strings.Join(strings.Fields(text), " ")
}

// stripHTML extracts visible text from markup. Non-HTML input passes
// through unchanged (the parser treats plain text as a text node).
func stripHTML(raw string) string {
	if !strings.ContainsRune(raw, '<') {
		return raw
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return raw
	}
	doc.Find("script, style").Remove()
	return doc.Text()
}

package scrape

import (
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
)

// DefaultMaxChars bounds the text handed to the model.
const DefaultMaxChars = 12000

// noiseSelector matches elements whose text is navigation or presentation,
// not business content.
const noiseSelector = "script, style, nav, footer, header"

var (
	// Same boundaries as Python's str.splitlines.
	lineBreakRe = regexp.MustCompile(`\r\n|[\n\r\v\f\x1c\x1d\x1e\x{85}\x{2028}\x{2029}]`)
	// Two or more spaces separate visually distinct phrases on one line.
	phraseGapRe = regexp.MustCompile(` {2,}`)
)

// ExtractText parses an HTML document, drops noise elements and returns the
// cleaned text bounded to maxChars runes. The bool reports truncation.
func ExtractText(r io.Reader, maxChars int) (string, bool, error) {
	// With scripting disabled <noscript> content is parsed as markup, so
	// only its text survives.
	root, err := html.ParseWithOptions(r, html.ParseOptionEnableScripting(false))
	if err != nil {
		return "", false, eris.Wrap(err, "scrape: parse html")
	}
	doc := goquery.NewDocumentFromNode(root)

	doc.Find(noiseSelector).Remove()

	text, truncated := CleanText(doc.Text(), maxChars)
	return text, truncated, nil
}

// CleanText trims every line, splits lines on runs of spaces and joins the
// non-empty phrases with newlines before truncating.
func CleanText(raw string, maxChars int) (string, bool) {
	var phrases []string
	for _, line := range lineBreakRe.Split(raw, -1) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, phrase := range phraseGapRe.Split(line, -1) {
			if p := strings.TrimSpace(phrase); p != "" {
				phrases = append(phrases, p)
			}
		}
	}
	return Truncate(strings.Join(phrases, "\n"), maxChars)
}

// Truncate keeps the first maxChars runes of s. A non-positive maxChars
// disables the bound.
func Truncate(s string, maxChars int) (string, bool) {
	if maxChars <= 0 || utf8.RuneCountInString(s) <= maxChars {
		return s, false
	}
	n := 0
	for i := range s {
		if n == maxChars {
			return s[:i], true
		}
		n++
	}
	return s, false
}

package labs

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// blockElements end a line of text when opened or closed.
var blockElements = map[string]bool{
	"br": true, "p": true, "div": true, "li": true, "ul": true, "ol": true,
	"table": true, "thead": true, "tbody": true, "tfoot": true, "tr": true, "td": true, "th": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "header": true, "footer": true, "hr": true, "dt": true, "dd": true,
}

// PlainText flattens an HTML fragment into text. Entities are decoded,
// script and style bodies are dropped, and block or table-cell boundaries
// become line breaks so cell contents never run into each other.
// Text without markup passes through unchanged.
func PlainText(fragment string) string {
	var sb strings.Builder
	z := html.NewTokenizer(strings.NewReader(fragment))
	skip := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			return sb.String()
		case html.TextToken:
			if skip == 0 {
				sb.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				skip++
			}
			if blockElements[tag] {
				sb.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if (tag == "script" || tag == "style") && skip > 0 {
				skip--
			}
			if blockElements[tag] {
				sb.WriteByte('\n')
			}
		}
	}
}

// Title formats a measurement name for display ("glucosa" -> "Glucosa").
func Title(name string) string {
	return cases.Title(language.Spanish).String(name)
}

// canonicalName trims, collapses internal whitespace and lowercases.
func canonicalName(raw string) string {
	return strings.ToLower(strings.Join(strings.Fields(raw), " "))
}

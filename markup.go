package subflow

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// overrideBlock matches ASS override blocks such as {\i1} or {\pos(10,20)}.
var overrideBlock = regexp.MustCompile(`\{[^}]*\}`)

// knownTag matches the HTML-style tags SRT conversions leave behind. Any
// other angle bracket is dialogue.
var knownTag = regexp.MustCompile(`(?i)</?(?:i|b|u|s|font)(?:\s[^<>]*)?>`)

// multiSpace collapses runs of whitespace.
var multiSpace = regexp.MustCompile(`\s+`)

// PlainText reduces a dialogue payload to readable text: ASS override blocks
// are dropped, \N \n and \h become spaces, and HTML-style tags left over from
// SRT conversions (<i>, <font color=...>) are removed with their entities
// decoded. The result is trimmed with inner whitespace runs collapsed to a
// single space.
func PlainText(text string) string {
	s := overrideBlock.ReplaceAllString(text, "")
	s = strings.NewReplacer(`\N`, " ", `\n`, " ", `\h`, " ").Replace(s)

	if strings.ContainsAny(s, "<&") {
		s = stripTags(s)
	}

	return strings.TrimSpace(multiSpace.ReplaceAllString(s, " "))
}

// stripTags parses s as a body fragment and returns its text content. Only
// known tags survive as markup; stray brackets are escaped first so they come
// back as text.
func stripTags(s string) string {
	escape := strings.NewReplacer("<", "&lt;", ">", "&gt;")

	var b strings.Builder
	last := 0
	for _, loc := range knownTag.FindAllStringIndex(s, -1) {
		b.WriteString(escape.Replace(s[last:loc[0]]))
		b.WriteString(s[loc[0]:loc[1]])
		last = loc[1]
	}
	b.WriteString(escape.Replace(s[last:]))

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(b.String()), body)
	if err != nil {
		return s
	}

	var text strings.Builder
	for _, n := range nodes {
		text.WriteString(goquery.NewDocumentFromNode(n).Text())
	}
	return text.String()
}

package processing

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"golang.org/x/net/html"
)

// Ellipsis is appended to text cut by TruncateRunes and TruncateWidth.
const Ellipsis = "…"

var whitespace = regexp.MustCompile(`\s+`)

// CleanText decodes HTML entities and squeezes whitespace.
func CleanText(input string) string {
	if input == "" {
		return ""
	}
	decoded := html.UnescapeString(input)
	decoded = whitespace.ReplaceAllString(decoded, " ")
	return strings.TrimSpace(decoded)
}

// HTMLToText renders an HTML fragment (the API's trailText) as a single line
// of plain text. Unparseable input falls back to CleanText.
func HTMLToText(input string) string {
	if input == "" {
		return ""
	}
	if !strings.ContainsAny(input, "<&") {
		return CleanText(input)
	}

	node, err := html.Parse(strings.NewReader(input))
	if err != nil {
		return CleanText(input)
	}

	var builder strings.Builder
	extractText(node, &builder)
	return strings.Join(strings.Fields(builder.String()), " ")
}

func extractText(node *html.Node, builder *strings.Builder) {
	switch node.Type {
	case html.TextNode:
		builder.WriteString(node.Data)
	case html.ElementNode:
		switch node.Data {
		case "script", "style":
			return
		case "br", "p", "li":
			builder.WriteRune(' ')
		}
	}

	for child := node.FirstChild; child != nil; child = child.NextSibling {
		extractText(child, builder)
	}

	if node.Type == html.ElementNode && (node.Data == "p" || node.Data == "li") {
		builder.WriteRune(' ')
	}
}

// TruncateRunes keeps the first limit characters of s and appends tail when
// s is longer than limit characters.
func TruncateRunes(s string, limit int, tail string) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + tail
}

// TruncateWidth cuts s to fit width terminal cells, ellipsis included.
func TruncateWidth(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, Ellipsis)
}

// PadWidth right-pads s with spaces to width terminal cells.
func PadWidth(s string, width int) string {
	return runewidth.FillRight(s, width)
}

// BuildRecordID hashes the most stable fields of an article to form a
// deterministic row identifier.
func BuildRecordID(url, headline string, publishedAt *time.Time) string {
	ts := ""
	if publishedAt != nil {
		ts = publishedAt.UTC().Format(time.RFC3339)
	}
	s := sha1.Sum([]byte(url + "|" + headline + "|" + ts))
	return hex.EncodeToString(s[:])
}

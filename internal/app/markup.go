package app

import (
	"strings"

	"golang.org/x/net/html"
)

// stripMarkup removes HTML tags and unwraps markdown emphasis markers that
// models sometimes emit despite being told not to, leaving plain text.
func stripMarkup(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	tok := html.NewTokenizer(strings.NewReader(s))
	for {
		tt := tok.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt == html.TextToken {
			b.Write(tok.Text())
		}
	}
	out := b.String()
	for _, marker := range []string{"**", "__", "*", "_", "`"} {
		out = strings.ReplaceAll(out, marker, "")
	}
	return out
}

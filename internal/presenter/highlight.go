package presenter

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// Segment is a run of result text, marked when the backend highlighted it.
type Segment struct {
	Text   string
	Marked bool
}

// ParseHighlight turns backend highlight markup into segments. Only <mark>
// affects highlighting; every other tag is dropped and entities are decoded,
// so no markup or control sequence from the backend reaches the terminal.
func ParseHighlight(markup string) []Segment {
	z := html.NewTokenizer(strings.NewReader(markup))
	depth := 0
	var segs []Segment
	for {
		switch z.Next() {
		case html.ErrorToken:
			return mergeSegments(segs)
		case html.TextToken:
			text := Sanitize(string(z.Text()))
			if text != "" {
				segs = append(segs, Segment{Text: text, Marked: depth > 0})
			}
		case html.StartTagToken:
			if name, _ := z.TagName(); string(name) == "mark" {
				depth++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); string(name) == "mark" && depth > 0 {
				depth--
			}
		}
	}
}

// PlainSegments wraps untrusted plain text as a single unmarked segment.
func PlainSegments(text string) []Segment {
	text = Sanitize(text)
	if text == "" {
		return nil
	}
	return []Segment{{Text: text}}
}

// Sanitize drops control characters, including the ESC that starts terminal
// escape sequences. Newlines and tabs become spaces.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t' || r == '\r':
			return ' '
		case unicode.IsControl(r):
			return -1
		default:
			return r
		}
	}, s)
}

func mergeSegments(segs []Segment) []Segment {
	if len(segs) < 2 {
		return segs
	}
	out := segs[:1]
	for _, s := range segs[1:] {
		last := &out[len(out)-1]
		if last.Marked == s.Marked {
			last.Text += s.Text
			continue
		}
		out = append(out, s)
	}
	return out
}

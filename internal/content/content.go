// Package content reads and writes the line format stored in an
// association's content field:
//
//	<item>: <bullet> (Imagery: <imagery>)
//
// One line per palace item, joined with newlines.
package content

import (
	"strings"
)

const imageryMarker = "(Imagery:"

// Placeholder stands in for a bullet or imagery that could not be generated.
const Placeholder = "N/A"

// Line is one item of an association.
type Line struct {
	Item    string
	Bullet  string
	Imagery string
}

// String renders the line. Line breaks inside a field are folded into
// spaces so the line stays a single line.
func (l Line) String() string {
	return flatten(l.Item) + ": " + flatten(l.Bullet) + " " + imageryMarker + " " + flatten(l.Imagery) + ")"
}

// Format renders lines joined by newlines.
func Format(lines []Line) string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.String()
	}
	return strings.Join(out, "\n")
}

// Entry is one parsed line of stored content. Lines that do not follow the
// format keep their raw text with OK unset.
type Entry struct {
	Line
	Raw string
	OK  bool
}

// ParseLine splits s on the first ':' and then on the last "(Imagery:".
func ParseLine(s string) (Line, bool) {
	item, rest, ok := strings.Cut(s, ":")
	if !ok {
		return Line{}, false
	}
	idx := strings.LastIndex(rest, imageryMarker)
	if idx == -1 {
		return Line{}, false
	}
	imagery := strings.TrimSpace(rest[idx+len(imageryMarker):])
	imagery = strings.TrimSpace(strings.TrimSuffix(imagery, ")"))
	return Line{
		Item:    strings.TrimSpace(item),
		Bullet:  strings.TrimSpace(rest[:idx]),
		Imagery: imagery,
	}, true
}

// Parse splits stored content into entries, skipping blank lines.
func Parse(content string) []Entry {
	var entries []Entry
	for _, raw := range strings.Split(content, "\n") {
		raw = strings.TrimRight(raw, "\r")
		if strings.TrimSpace(raw) == "" {
			continue
		}
		line, ok := ParseLine(raw)
		entries = append(entries, Entry{Line: line, Raw: raw, OK: ok})
	}
	return entries
}

// Markdown renders content as a bullet list, one entry per item. Entries
// that failed to parse are shown verbatim.
func Markdown(content string) string {
	var b strings.Builder
	for _, e := range Parse(content) {
		if !e.OK {
			b.WriteString("- " + e.Raw + "\n")
			continue
		}
		b.WriteString("- **" + e.Item + "**: " + e.Bullet + "\n")
		b.WriteString("  - *Imagery:* " + e.Imagery + "\n")
	}
	return b.String()
}

func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

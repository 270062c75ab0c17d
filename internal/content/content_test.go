package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineRoundTrip(t *testing.T) {
	l := Line{Item: "Desk", Bullet: "Napoleon was exiled", Imagery: "a tiny emperor on your desk"}
	s := l.String()
	assert.Equal(t, "Desk: Napoleon was exiled (Imagery: a tiny emperor on your desk)", s)

	got, ok := ParseLine(s)
	require.True(t, ok)
	assert.Equal(t, l, got)
}

func TestParseLineSplitsOnFirstColon(t *testing.T) {
	got, ok := ParseLine("Clock: Time: the fourth dimension (Imagery: a melting clock)")
	require.True(t, ok)
	assert.Equal(t, "Clock", got.Item)
	assert.Equal(t, "Time: the fourth dimension", got.Bullet)
	assert.Equal(t, "a melting clock", got.Imagery)
}

func TestParseLineUsesLastImageryMarker(t *testing.T) {
	got, ok := ParseLine("Stove: heat (Imagery: flows) (Imagery: a kettle screaming)")
	require.True(t, ok)
	assert.Equal(t, "heat (Imagery: flows)", got.Bullet)
	assert.Equal(t, "a kettle screaming", got.Imagery)
}

func TestParseLineMalformed(t *testing.T) {
	for _, s := range []string{
		"no colon here",
		"Stove: heat without imagery",
	} {
		_, ok := ParseLine(s)
		assert.False(t, ok, s)
	}
}

func TestParseKeepsRawForMalformedLines(t *testing.T) {
	content := "Stove: Energy is conserved (Imagery: a pot that never cools)\n\njust some text\r\nSink: Entropy rises (Imagery: water swirling)"
	entries := Parse(content)
	require.Len(t, entries, 3)

	assert.True(t, entries[0].OK)
	assert.Equal(t, "Stove", entries[0].Item)

	assert.False(t, entries[1].OK)
	assert.Equal(t, "just some text", entries[1].Raw)

	assert.True(t, entries[2].OK)
	assert.Equal(t, "water swirling", entries[2].Imagery)
}

func TestFormatFlattensFields(t *testing.T) {
	out := Format([]Line{
		{Item: "Stove", Bullet: "Energy is\nconserved", Imagery: "a pot\n that never cools"},
		{Item: "Sink", Bullet: Placeholder, Imagery: Placeholder},
	})
	assert.Equal(t,
		"Stove: Energy is conserved (Imagery: a pot that never cools)\nSink: N/A (Imagery: N/A)",
		out)

	entries := Parse(out)
	require.Len(t, entries, 2)
	assert.Equal(t, "Energy is conserved", entries[0].Bullet)
}

func TestMarkdown(t *testing.T) {
	md := Markdown("Stove: heat (Imagery: fire)\nbroken")
	assert.Contains(t, md, "- **Stove**: heat")
	assert.Contains(t, md, "*Imagery:* fire")
	assert.Contains(t, md, "- broken")
}

package provider

import "strings"

const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

// thinkSplitter separates <think>...</think> reasoning from answer text in a
// stream whose chunks may cut a tag in half.
type thinkSplitter struct {
	buf     string
	inThink bool
}

func (t *thinkSplitter) feed(s string) (delta, thinking string) {
	t.buf += s
	var d, th strings.Builder
	for {
		tag := thinkOpen
		if t.inThink {
			tag = thinkClose
		}
		if i := strings.Index(t.buf, tag); i >= 0 {
			t.emit(&d, &th, t.buf[:i])
			t.buf = t.buf[i+len(tag):]
			t.inThink = !t.inThink
			continue
		}
		keep := partialSuffix(t.buf, tag)
		t.emit(&d, &th, t.buf[:len(t.buf)-keep])
		t.buf = t.buf[len(t.buf)-keep:]
		return d.String(), th.String()
	}
}

// flush returns whatever is still buffered.
func (t *thinkSplitter) flush() (delta, thinking string) {
	rest := t.buf
	t.buf = ""
	if t.inThink {
		return "", rest
	}
	return rest, ""
}

func (t *thinkSplitter) emit(d, th *strings.Builder, s string) {
	if t.inThink {
		th.WriteString(s)
	} else {
		d.WriteString(s)
	}
}

// partialSuffix is the length of the longest suffix of s that is a proper
// prefix of tag.
func partialSuffix(s, tag string) int {
	for n := len(tag) - 1; n > 0; n-- {
		if len(s) >= n && strings.HasSuffix(s, tag[:n]) {
			return n
		}
	}
	return 0
}

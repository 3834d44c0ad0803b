// Package textsplit splits streamed generation text at sentence boundaries,
// the same boundary set (CJK and ASCII enders) used to decide when a
// generated sentence is ready to hand off to the TTS pipeline.
package textsplit

import "strings"

// DefaultSeparators is the fixed set of sentence-ending runes: CJK period,
// question mark, exclamation mark, and tilde, plus their ASCII equivalents
// and line breaks.
const DefaultSeparators = "。？！～.?!~\n\r"

// Buffer accumulates streamed text and yields complete sentences as they
// become available, carrying any trailing partial sentence forward.
type Buffer struct {
	seps string
	buf  strings.Builder
}

// NewBuffer constructs a Buffer using DefaultSeparators.
func NewBuffer() *Buffer {
	return &Buffer{seps: DefaultSeparators}
}

// Add appends a token and returns every complete sentence it completed, in
// order. The buffer retains any trailing text that has not yet reached a
// boundary.
func (b *Buffer) Add(token string) []string {
	b.buf.WriteString(token)
	sentences, remainder := Split(b.buf.String(), b.seps)
	b.buf.Reset()
	b.buf.WriteString(remainder)
	return sentences
}

// Flush returns whatever partial text remains buffered, clearing it. Used
// when a generation stream ends without a final boundary.
func (b *Buffer) Flush() string {
	text := strings.TrimSpace(b.buf.String())
	b.buf.Reset()
	return text
}

func isSeparator(r rune, seps string) bool {
	return strings.ContainsRune(seps, r)
}

// Split partitions s into complete sentences (each ending at a run of one
// or more separator runes) plus a trailing remainder that has not yet
// reached a boundary. Each returned sentence has leading whitespace
// trimmed; separators attach to the sentence they close, matching the
// reference implementation's split_text.
func Split(s string, seps string) (sentences []string, remainder string) {
	runes := []rune(s)
	n := len(runes)

	var cur strings.Builder
	inSep := false

	flushCur := func() {
		text := strings.TrimLeft(cur.String(), " \t\r\n")
		if text != "" {
			sentences = append(sentences, text)
		}
		cur.Reset()
	}

	for i := 0; i < n; i++ {
		r := runes[i]
		if isSeparator(r, seps) {
			cur.WriteRune(r)
			inSep = true
			continue
		}
		if inSep {
			// a run of separators just ended: the sentence closes here.
			flushCur()
			inSep = false
		}
		cur.WriteRune(r)
	}
	if inSep {
		// text ended mid/just-after a separator run: that's a complete
		// sentence too.
		flushCur()
		return sentences, ""
	}
	return sentences, cur.String()
}

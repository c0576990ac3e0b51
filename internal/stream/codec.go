// ABOUTME: Wire codec for the chunk protocol over a newline-delimited text channel.
// ABOUTME: Terminal chunks carry a sentinel prefix; everything else is status text.

package stream

import "strings"

// Sentinel prefixes marking terminal chunks on the wire. A line with
// neither prefix is a status chunk. Chunks are newline-delimited so the
// framing never depends on transport write granularity.
const (
	FinalDataPrefix = "[FINAL_DATA::]"
	FinalTextPrefix = "[FINAL_DATA:]"
)

// EncodeLine renders a chunk as one wire line, without the trailing
// newline. Embedded newlines in text are flattened to keep the
// line-per-chunk invariant.
func EncodeLine(c Chunk) string {
	switch c.Kind {
	case KindFinalData:
		return FinalDataPrefix + flatten(string(c.Payload))
	case KindFinalText:
		return FinalTextPrefix + flatten(c.Text)
	default:
		return flatten(c.Text)
	}
}

// DecodeLine parses one wire line back into a chunk.
func DecodeLine(line string) Chunk {
	if rest, ok := strings.CutPrefix(line, FinalDataPrefix); ok {
		return Chunk{Kind: KindFinalData, Payload: []byte(rest)}
	}
	if rest, ok := strings.CutPrefix(line, FinalTextPrefix); ok {
		return Chunk{Kind: KindFinalText, Text: rest}
	}
	return Chunk{Kind: KindStatus, Text: line}
}

func flatten(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\r", " ")
}

package store

import "strings"

// MaxPreviewLen bounds the generated text snippet.
const MaxPreviewLen = 120

// MakePreview produces a snippet of text, preferring to break at a
// paragraph boundary, then a sentence boundary, before falling back to a
// hard cut at the maximum length.
func MakePreview(text string, max int) string {
	text = strings.TrimSpace(text)
	if len(text) <= max {
		return text
	}

	window := text[:max]

	if i := strings.LastIndex(window, "\n\n"); i > 0 {
		return strings.TrimSpace(window[:i])
	}
	if i := strings.LastIndex(window, ". "); i > 0 {
		return strings.TrimSpace(window[:i+1])
	}

	// Hard cut; avoid splitting a multi-byte rune.
	cut := max
	for cut > 0 && !isRuneStart(text[cut]) {
		cut--
	}
	return strings.TrimSpace(text[:cut])
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

package directory

import "strings"

// MaxTokenLength is the longest word the tokenizer will emit; longer runs
// are truncated rather than dropped, so no content is silently lost from
// the index.
const MaxTokenLength = 40

// Tokenize splits s into lowercased word tokens on anything that isn't an
// ASCII letter or digit (non-ASCII letters also act as separators),
// discarding empty tokens and truncating any token longer than
// MaxTokenLength.
func Tokenize(s string) []string {
	var tokens []string
	var b strings.Builder

	flush := func() {
		if b.Len() == 0 {
			return
		}
		tok := b.String()
		if len(tok) > MaxTokenLength {
			tok = tok[:MaxTokenLength]
		}
		tokens = append(tokens, tok)
		b.Reset()
	}

	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			flush()
		}
	}
	flush()

	return tokens
}

package facturatech

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// accentStripper decomposes characters and drops combining marks,
// so accented letters come out as their plain ASCII base. Chains carry
// state, so each call builds its own.
func accentStripper() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

var valueReplacer = strings.NewReplacer(
	"\r\n", " ",
	"\n", " ",
	"\r", " ",
	string(fieldTerminator), ",",
	string(fieldSeparator), "-",
)

// SanitizeValue cleans a free-text value for embedding in the flat-file
// layout: separator and terminator characters are substituted, newlines
// collapse to spaces, accents are stripped. Idempotent.
func SanitizeValue(s string) string {
	out, _, err := transform.String(accentStripper(), s)
	if err != nil {
		out = s
	}
	out = valueReplacer.Replace(out)
	return strings.TrimSpace(out)
}

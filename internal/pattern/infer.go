package pattern

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Infer derives a pattern source from a handler name.
//
//	opens_the_door  -> "Opens the door"
//	opensTheDoor    -> "Opens the door"
//	_leading        -> " leading"
func Infer(name string) string {
	return Capitalize(Humanize(name))
}

// Humanize turns an identifier into space-separated words.
// Underscores become spaces and camelCase boundaries become a space followed
// by the lowercased letter. Whitespace is never trimmed.
func Humanize(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 8)

	var prev rune
	for i, r := range name {
		switch {
		case r == '_':
			b.WriteByte(' ')
		case unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev)):
			b.WriteByte(' ')
			b.WriteRune(unicode.ToLower(r))
		case i == 0 && unicode.IsUpper(r) && nextIsLower(name[utf8.RuneLen(r):]):
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
		prev = r
	}
	return b.String()
}

// Capitalize upper-cases the first byte only when it is a lowercase ASCII
// letter. Leading whitespace and non-ASCII first characters are left as-is.
func Capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

func nextIsLower(rest string) bool {
	r, _ := utf8.DecodeRuneInString(rest)
	return unicode.IsLower(r)
}

package pattern

import (
	"strings"
	"unicode/utf8"
)

// token is one lexed unit of a pattern source.
// Exactly one of literal or name is meaningful, selected by placeholder.
type token struct {
	placeholder bool
	literal     string
	name        string
	hint        string
	offset      int
}

// lex splits a pattern source into literal and placeholder tokens.
// Consecutive literal characters (including escapes) are merged into one token.
func lex(src string) ([]token, error) {
	var (
		tokens []token
		lit    strings.Builder
	)

	flush := func() {
		if lit.Len() == 0 {
			return
		}
		tokens = append(tokens, token{literal: lit.String()})
		lit.Reset()
	}

	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '\\':
			if i+1 < len(src) {
				_, w := utf8.DecodeRuneInString(src[i+1:])
				lit.WriteString(src[i+1 : i+1+w])
				i += 1 + w
				continue
			}
			lit.WriteByte('\\')
			i++

		case c == '{' && i+1 < len(src) && src[i+1] == '{':
			lit.WriteByte('{')
			i += 2

		case c == '}' && i+1 < len(src) && src[i+1] == '}':
			lit.WriteByte('}')
			i += 2

		case c == '{':
			flush()
			tok, next, err := lexPlaceholder(src, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
			i = next

		case c == '}':
			return nil, newPatternError(ErrCodeUnbalancedBrace, src, i, "",
				"unmatched closing brace '}'")

		default:
			lit.WriteByte(c)
			i++
		}
	}

	flush()
	return tokens, nil
}

// lexPlaceholder parses "{name}" or "{name:hint}" starting at src[start] == '{'.
// Returns the token and the index just past the closing brace.
func lexPlaceholder(src string, start int) (token, int, error) {
	i := start + 1
	nameStart := i
	for i < len(src) && isNameByte(src[i], i == nameStart) {
		i++
	}
	name := src[nameStart:i]

	if i >= len(src) {
		return token{}, 0, newPatternError(ErrCodeUnbalancedBrace, src, start, name,
			"missing closing '}' for placeholder")
	}
	if name == "" {
		return token{}, 0, newPatternError(ErrCodeInvalidPlaceholder, src, start, "",
			"placeholder name must start with a letter or underscore")
	}

	var hint string
	switch src[i] {
	case '}':
		return token{placeholder: true, name: name, offset: start}, i + 1, nil
	case ':':
		hintStart := i + 1
		end := strings.IndexByte(src[hintStart:], '}')
		if end < 0 {
			return token{}, 0, newPatternError(ErrCodeUnbalancedBrace, src, start, name,
				"missing closing '}' for placeholder")
		}
		hint = src[hintStart : hintStart+end]
		if !validHint(hint) {
			return token{}, 0, newPatternError(ErrCodeInvalidPlaceholder, src, start, name,
				"type hint must be non-empty without whitespace, braces or escapes")
		}
		return token{placeholder: true, name: name, hint: hint, offset: start}, hintStart + end + 1, nil
	default:
		return token{}, 0, newPatternError(ErrCodeInvalidPlaceholder, src, start, name,
			"unexpected character in placeholder")
	}
}

func isNameByte(c byte, first bool) bool {
	switch {
	case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return !first
	}
	return false
}

func validHint(h string) bool {
	if h == "" {
		return false
	}
	return !strings.ContainsAny(h, " \t\r\n{}\\")
}

// Package pattern compiles step-definition patterns and matches them against
// literal scenario step text.
//
// A pattern is literal text with named placeholders:
//
//	I have {count:u32} cukes in my {container}
//
// Compilation splits the source into alternating literal and placeholder
// segments. Matching walks the segments left to right:
//   - Literals must appear at exactly the current position (case-sensitive).
//   - A placeholder captures at least one character, up to the FIRST
//     occurrence of the literal that follows it. The last placeholder in a
//     pattern captures the rest of the text.
//   - The whole text must be consumed.
//
// There is no backtracking. If a captured value fails its type hint, the
// pattern does not match and the caller moves on to the next candidate.
//
// Two placeholders with no literal between them are rejected at compile
// time, because the split point between them would be arbitrary.
//
// ESCAPES:
//
//	{{ and }}   literal braces
//	\x          literal x (e.g. \{ )
//
// Pattern sources and step text are normalized to Unicode NFC before use, so
// composed and decomposed spellings of the same text match each other.
package pattern

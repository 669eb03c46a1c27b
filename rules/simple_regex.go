package rules

import "strings"

// Special characters of the basic rule pattern syntax.
const (
	// MaskStartURL anchors the pattern to the hostname start, "||".
	MaskStartURL = "||"

	// MaskPipe anchors the pattern to the start or the end of the URL.
	MaskPipe = "|"

	// MaskSeparator matches any separator character or the end of the URL.
	MaskSeparator = "^"

	// MaskAnyCharacter matches any sequence of characters.
	MaskAnyCharacter = "*"
)

// Regular expressions the basic pattern special characters are translated
// to.
const (
	// RegexAnyCharacter corresponds to [MaskAnyCharacter].
	RegexAnyCharacter = ".*"

	// RegexSeparator corresponds to [MaskSeparator].
	RegexSeparator = "([^ a-zA-Z0-9.%_-]|$)"

	// RegexStartURL corresponds to [MaskStartURL].
	RegexStartURL = "^(http|https|ws|wss)://([a-z0-9-_.]+\\.)?"

	// RegexStartString corresponds to [MaskPipe] at the pattern start.
	RegexStartString = "^"

	// RegexEndString corresponds to [MaskPipe] at the pattern end.
	RegexEndString = "$"
)

// regexSpecialCharacters are escaped when a basic pattern is translated.  The
// pattern special characters "*", "^", and "|" are handled separately.
const regexSpecialCharacters = `.+?${}()[]/\`

// patternToRegexp translates a basic rule pattern into a regular expression.
// Regexp patterns, the ones enclosed in slashes, are returned without the
// slashes.
func patternToRegexp(pattern string) (re string) {
	switch pattern {
	case "", MaskStartURL, MaskPipe, MaskAnyCharacter:
		return RegexAnyCharacter
	}

	if isRegexPattern(pattern) {
		return pattern[1 : len(pattern)-1]
	}

	var prefix, suffix string
	switch {
	case strings.HasPrefix(pattern, MaskStartURL):
		prefix = RegexStartURL
		pattern = pattern[len(MaskStartURL):]
	case strings.HasPrefix(pattern, MaskPipe):
		prefix = RegexStartString
		pattern = pattern[len(MaskPipe):]
	}

	if strings.HasSuffix(pattern, MaskPipe) {
		suffix = RegexEndString
		pattern = pattern[:len(pattern)-len(MaskPipe)]
	}

	sb := &strings.Builder{}
	sb.Grow(len(prefix) + 2*len(pattern) + len(suffix))
	sb.WriteString(prefix)

	for i := range len(pattern) {
		c := pattern[i]
		switch {
		case c == '*':
			sb.WriteString(RegexAnyCharacter)
		case c == '^':
			sb.WriteString(RegexSeparator)
		case c == '|':
			sb.WriteString(`\|`)
		case strings.IndexByte(regexSpecialCharacters, c) != -1:
			sb.WriteByte('\\')
			sb.WriteByte(c)
		default:
			sb.WriteByte(c)
		}
	}

	sb.WriteString(suffix)

	return sb.String()
}

// isRegexPattern returns true if pattern is a regular expression enclosed in
// slashes.
func isRegexPattern(pattern string) (ok bool) {
	return len(pattern) > 1 && pattern[0] == '/' && pattern[len(pattern)-1] == '/'
}

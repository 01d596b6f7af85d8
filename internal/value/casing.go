package value

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CamelCase normalizes a label or key into the form used for object keys.
//
// Strings containing spaces are split on them, the first word is lower-cased
// and every following word gets an upper-case first character with the rest
// lower-cased before the words are joined. A string
// without spaces that already contains an upper-case letter only has its first
// character lower-cased; anything else is lower-cased entirely. The function is
// idempotent: CamelCase(CamelCase(s)) == CamelCase(s).
func CamelCase(s string) string {
	if strings.Contains(s, " ") {
		var words []string
		for _, w := range strings.Split(s, " ") {
			if w != "" {
				words = append(words, w)
			}
		}
		if len(words) == 0 {
			return ""
		}
		var sb strings.Builder
		sb.WriteString(strings.ToLower(words[0]))
		for _, w := range words[1:] {
			sb.WriteString(upperFirst(strings.ToLower(w)))
		}
		return lowerFirst(sb.String())
	}
	if strings.IndexFunc(s, unicode.IsUpper) >= 0 {
		return lowerFirst(s)
	}
	return strings.ToLower(s)
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || !unicode.IsUpper(r) {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

// Humanize turns a key such as "publishDate", "publish_date" or
// "publish-date" into a display label ("Publish Date").
func Humanize(key string) string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	runes := []rune(key)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || unicode.IsSpace(r):
			flush()
		case unicode.IsUpper(r) && i > 0 && (unicode.IsLower(runes[i-1]) ||
			(i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))):
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()

	title := cases.Title(language.English)
	for i, w := range words {
		words[i] = title.String(strings.ToLower(w))
	}
	return strings.Join(words, " ")
}

package candidate

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	maxTitleKeyLen  = 60
	maxAuthorKeyLen = 24
	keySeparator    = "|"
)

var (
	annotationRe = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)|\{[^}]*\}`)
	fractionRe   = regexp.MustCompile(`\b\d+\s*/\s*\d+\b`)
	editionRe    = regexp.MustCompile(`\b(?:\d+(?:st|nd|rd|th)\s+)?(?:volume|vol|edition|part|series)\b`)
)

// stripDiacritics removes combining marks after canonical decomposition.
// Transformers hold state, so one is built per call.
func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// stripPunctuation replaces every rune that is not a letter, digit or space with a space.
func stripPunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, s)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}

// CleanText lowercases s, strips diacritics and punctuation and collapses whitespace.
func CleanText(s string) string {
	return collapseSpaces(stripPunctuation(stripDiacritics(strings.ToLower(s))))
}

// TitleKey is the title half of a dedupe key.
func TitleKey(title string) string {
	s := strings.ToLower(title)
	s = annotationRe.ReplaceAllString(s, " ")
	s = fractionRe.ReplaceAllString(s, " ")
	s = editionRe.ReplaceAllString(s, " ")
	s = collapseSpaces(stripPunctuation(stripDiacritics(s)))
	if s == "" {
		s = CleanText(title)
	}
	return truncateRunes(s, maxTitleKeyLen)
}

// AuthorKey reduces an author name to a cleaned surname token.
// "Orwell, George" and "George Orwell" both give "orwell".
func AuthorKey(author string) string {
	if surname, _, ok := strings.Cut(author, ","); ok && strings.TrimSpace(surname) != "" {
		author = surname
	}
	fields := strings.Fields(CleanText(author))
	if len(fields) == 0 {
		return ""
	}
	return truncateRunes(fields[len(fields)-1], maxAuthorKeyLen)
}

// NormalizeAuthor is the full cleaned author name used for per-author caps.
func NormalizeAuthor(author string) string {
	if surname, given, ok := strings.Cut(author, ","); ok && strings.TrimSpace(given) != "" {
		author = given + " " + surname
	}
	return CleanText(author)
}

// DedupeKey identifies the underlying work across editions and providers.
func DedupeKey(c Candidate) string {
	return TitleKey(c.Title) + keySeparator + AuthorKey(c.PrimaryAuthor())
}

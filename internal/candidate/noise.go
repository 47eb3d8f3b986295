package candidate

import "strings"

// derivativeTerms mark summaries, study aids and other works about a work.
var derivativeTerms = []string{
	"summary", "summaries", "guide", "study guide", "study notes", "workbook",
	"excerpt", "excerpts", "translation", "translated", "companion", "annotated",
	"adaptation", "review", "analysis", "biography", "sparknotes", "cliffsnotes",
}

// foreignEditionTerms hint at a non-English edition. Matched after diacritics are stripped.
var foreignEditionTerms = []string{
	"edicion", "traduccion", "traduction", "traducao", "ubersetzung", "ausgabe",
	"auflage", "espanol", "en espanol", "deutsch", "francais", "italiano",
	"edizione", "portugues", "nederlands", "roman graphique", "los", "las", "del", "und",
}

// minPrimaryTitleLen is the shortest cleaned title not treated as noise.
const minPrimaryTitleLen = 3

// IsNonPrimaryWork reports whether title looks like a derivative work, a
// translated edition or is too short to be meaningful.
func IsNonPrimaryWork(title string) bool {
	cleaned := CleanText(title)
	if len([]rune(strings.ReplaceAll(cleaned, " ", ""))) < minPrimaryTitleLen {
		return true
	}
	padded := " " + cleaned + " "
	for _, term := range derivativeTerms {
		if strings.Contains(padded, " "+term+" ") {
			return true
		}
	}
	for _, term := range foreignEditionTerms {
		if strings.Contains(padded, " "+term+" ") {
			return true
		}
	}
	return false
}

package manifest

import (
	"fmt"
	"regexp"
	"strconv"
)

var chapterNumPattern = regexp.MustCompile(`(\d+)`)

// CanonicalTitle computes "Chapter <N>" from a chapter id such as
// "chapter_04" (spec §3 "Chapter": "the canonical chapter title is
// derived from the id").
func CanonicalTitle(chapterID string) string {
	match := chapterNumPattern.FindString(chapterID)
	n, err := strconv.Atoi(match)
	if err != nil {
		return chapterID
	}
	return fmt.Sprintf("Chapter %d", n)
}

// NormalizeTitles implements spec §4.6's "Title normalization":
// compute canonical titles for every chapter; any model-supplied title
// that is duplicated across chapters, or whose embedded number
// disagrees with the chapter's own canonical number, is replaced by
// the canonical title. Idempotent per P6: running it twice yields the
// same result as running it once, since it only ever replaces a title
// with the canonical derived purely from the chapter id.
func (m *Manifest) NormalizeTitles(lang string) {
	seen := make(map[string]int, len(m.Chapters))
	for i := range m.Chapters {
		canonical := CanonicalTitle(m.Chapters[i].ID)
		current := m.Chapters[i].TitleByLang[lang]
		if current == "" {
			setTitle(&m.Chapters[i], lang, canonical)
			continue
		}
		if !titleNumberMatches(current, m.Chapters[i].ID) {
			setTitle(&m.Chapters[i], lang, canonical)
			continue
		}
		seen[current]++
	}
	// Second pass: any title seen on more than one chapter is a
	// duplicate and must be replaced, since a duplicated title cannot
	// be trusted to belong uniquely to either chapter.
	for i := range m.Chapters {
		current := m.Chapters[i].TitleByLang[lang]
		if seen[current] > 1 {
			setTitle(&m.Chapters[i], lang, CanonicalTitle(m.Chapters[i].ID))
		}
	}
}

func setTitle(c *Chapter, lang, title string) {
	if c.TitleByLang == nil {
		c.TitleByLang = map[string]string{}
	}
	c.TitleByLang[lang] = title
}

// titleNumberMatches reports whether the first number embedded in
// title equals the number embedded in the chapter id. Compared as
// integers so a zero-padded id ("chapter_04") accepts "Chapter 4".
func titleNumberMatches(title, chapterID string) bool {
	titleNum := chapterNumPattern.FindString(title)
	idNum := chapterNumPattern.FindString(chapterID)
	if titleNum == "" || idNum == "" {
		return true
	}
	t, terr := strconv.Atoi(titleNum)
	n, nerr := strconv.Atoi(idNum)
	if terr != nil || nerr != nil {
		return titleNum == idNum
	}
	return t == n
}

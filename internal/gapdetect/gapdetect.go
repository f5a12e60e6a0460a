// Package gapdetect implements spec §4.5 step 2's optional, target-agnostic
// gap detection: a low-volume, high-precision scan of chapter source text
// for three curated patterns the original pipeline's
// GapSemanticAnalyzer called Gap A/B/C — emotion+action sentence surgery,
// ruby visual jokes, and sarcasm/subtext markers. That original used a full
// LLM pass per gap; this port keeps the spec's cheaper regex/marker-driven
// shape (it only needs to produce a short guidance block injected into the
// prompt, not a structured analysis object) while preserving the same
// three categories and their curated marker vocabularies.
//
// Detection failure (nothing found) is never an error: spec §4.5 step 2
// says this step "skip[s] quietly on failure" and simply yields no
// gap_flags.
package gapdetect

import (
	"regexp"
	"strings"
)

// Kind identifies which of the three curated gap categories a Flag
// belongs to.
type Kind string

const (
	KindEmotionAction Kind = "emotion_action"
	KindRubyJoke      Kind = "ruby_joke"
	KindSarcasm       Kind = "sarcasm"
)

// Flag is one low-volume, high-precision hint surfaced to the prompt
// loader (spec §4.5 step 2: "gap_flags of low-volume high-precision
// hints").
type Flag struct {
	Kind     Kind
	Excerpt  string
	Guidance string
}

// sentenceBreak matches the JP sentence-ending punctuation the original
// gap_semantic_analyzer.py counts to apply its <=3-sentence safety
// threshold for Gap A.
var sentenceBreak = regexp.MustCompile(`[。！？」]`)

// emotionWords is the curated Gap A emotion-word vocabulary (a
// condensed subset of the original's gap_a_emotion_action.detection_
// markers.emotion_words, enough to drive the same surgery-recommended
// heuristic without requiring the curated JSON corpus file).
var emotionWords = map[string]string{
	"胸が締め付けられる": "a tightening in the chest",
	"鼓動が速くなる":   "a racing heartbeat",
	"頬が熱くなる":    "a rush of heat to the cheeks",
	"息が詰まる":     "a catch of breath",
	"涙がこぼれる":    "tears spilling over",
}

// actionPairs are the co-occurring action verbs that, together with an
// emotion word in the same short passage, signal a sentence that reads
// flat in literal translation and benefits from "surgery" (recombining
// the emotion clause and the action clause into one English sentence
// instead of two mechanically separate ones).
var actionPairs = []string{"目を逸らす", "俯く", "拳を握る", "唇を噛む", "息を呑む"}

// rubyPattern matches a kanji run immediately followed by a
// parenthesized furigana reading, the plain-text rendering an EPUB
// extraction leaves behind for a <ruby><rb>/<rt> pair.
var rubyPattern = regexp.MustCompile(`([\p{Han}]{1,6})\(([\p{Hiragana}\p{Katakana}ー]{1,12})\)`)

// kiraKiraIndicators are reading fragments associated with "kira-kira"
// names — unconventional furigana assigned to ordinary-looking kanji,
// the glossary's "Kira-kira / Ghost Ruby" case that needs a TL-note
// rather than plain romanization.
var kiraKiraIndicators = []string{"てんし", "きせき", "ゆめ", "ひかり", "そら"}

// sarcasmMarkers are curated phrase fragments the original's Gap C
// pass treats as subtext signals (a tsundere surface-denial pattern,
// or a classically ironic compliment).
var sarcasmMarkers = []string{"別に", "そんなわけ", "勘違いしないで", "〜んだからね"}

// Detect scans text for Gap A/B/C markers and returns whatever low-
// volume hints it finds. An empty result is the common case and is not
// an error.
func Detect(text string) []Flag {
	var flags []Flag
	flags = append(flags, detectEmotionAction(text)...)
	flags = append(flags, detectRubyJokes(text)...)
	flags = append(flags, detectSarcasm(text)...)
	return flags
}

// detectEmotionAction implements Gap A: only passages with at most
// three sentences are considered (the original's "safety threshold"),
// and an emotion word must co-occur with one of the action verbs.
func detectEmotionAction(text string) []Flag {
	var flags []Flag
	for _, passage := range splitPassages(text) {
		if len(sentenceBreak.FindAllStringIndex(passage, -1)) > 3 {
			continue
		}
		var emotionJP, emotionEN string
		for jp, en := range emotionWords {
			if strings.Contains(passage, jp) {
				emotionJP, emotionEN = jp, en
				break
			}
		}
		if emotionJP == "" {
			continue
		}
		hasAction := false
		for _, a := range actionPairs {
			if strings.Contains(passage, a) {
				hasAction = true
				break
			}
		}
		if !hasAction {
			continue
		}
		flags = append(flags, Flag{
			Kind:    KindEmotionAction,
			Excerpt: strings.TrimSpace(passage),
			Guidance: "This passage pairs an emotion cue (" + emotionJP + " / " + emotionEN +
				") with a physical action in the same short beat. Consider combining them into " +
				"one flowing English sentence rather than translating each clause mechanically.",
		})
	}
	return flags
}

// detectRubyJokes implements Gap B: furigana readings attached to kanji
// that do not match the kanji's standard reading are a visual joke in
// the source typesetting. This port cannot validate "standard reading"
// without a dictionary, so it flags every ruby annotation and
// classifies it as kira-kira (needs a TL-note) when the reading
// contains a recognizable kira-kira fragment, else as a plain
// character-name "Ghost Ruby" (romanize, no footnote).
func detectRubyJokes(text string) []Flag {
	var flags []Flag
	for _, match := range rubyPattern.FindAllStringSubmatch(text, -1) {
		kanji, reading := match[1], match[2]
		isKiraKira := false
		for _, ind := range kiraKiraIndicators {
			if strings.Contains(reading, ind) {
				isKiraKira = true
				break
			}
		}
		if isKiraKira {
			flags = append(flags, Flag{
				Kind:    KindRubyJoke,
				Excerpt: kanji + "(" + reading + ")",
				Guidance: "\"" + kanji + "\" is given the unconventional reading \"" + reading +
					"\" (kira-kira naming). Render as the natural English sense of the kanji and add " +
					"a translator's-note footnote giving the literal reading.",
			})
			continue
		}
		flags = append(flags, Flag{
			Kind:    KindRubyJoke,
			Excerpt: kanji + "(" + reading + ")",
			Guidance: "\"" + kanji + "\" carries the reading \"" + reading +
				"\" — a character-name ghost ruby. Romanize the reading plainly; no footnote needed.",
		})
	}
	return flags
}

// detectSarcasm implements Gap C: a curated marker phrase inside
// dialogue (quoted with Japanese brackets) signals subtext the literal
// translation would flatten.
func detectSarcasm(text string) []Flag {
	var flags []Flag
	for _, line := range dialogueLines(text) {
		for _, marker := range sarcasmMarkers {
			if strings.Contains(line, marker) {
				flags = append(flags, Flag{
					Kind:    KindSarcasm,
					Excerpt: strings.TrimSpace(line),
					Guidance: "This line's surface wording (\"" + marker + "\") reads as a flat denial " +
						"but the scene context suggests the opposite is meant. Let the English phrasing " +
						"carry the irony rather than translating the denial literally.",
				})
				break
			}
		}
	}
	return flags
}

var passageSplit = regexp.MustCompile(`\n\s*\n`)

func splitPassages(text string) []string {
	return passageSplit.Split(text, -1)
}

var dialoguePattern = regexp.MustCompile(`「[^」]*」`)

func dialogueLines(text string) []string {
	return dialoguePattern.FindAllString(text, -1)
}

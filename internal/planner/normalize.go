package planner

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// maxHealableGap is the largest paragraph gap between consecutive
// scenes that normalization closes by extending the earlier scene.
const maxHealableGap = 2

// normalizePlan coerces a raw model plan into the vocabulary Config
// allows: unknown beat types fall back to "setup", registers and
// rhythms map onto the configured sets, inverted paragraph ranges are
// clamped, tiny coverage gaps are healed, and an empty scene list
// becomes a single whole-chapter setup beat.
func (a *Agent) normalizePlan(raw rawPlan, totalParagraphs int) ScenePlan {
	scenes := make([]SceneBeat, 0, len(raw.Scenes))
	for i, rs := range raw.Scenes {
		scenes = append(scenes, a.normalizeScene(rs, i+1))
	}

	if len(scenes) == 0 {
		scenes = []SceneBeat{{
			ID:               "scene_01",
			BeatType:         "setup",
			EmotionalArc:     "neutral_progression",
			DialogueRegister: a.cfg.DefaultRegister,
			TargetRhythm:     a.cfg.DefaultRhythm,
			StartParagraph:   1,
		}}
	}

	healCoverageGaps(scenes, totalParagraphs)

	profiles := make(map[string]CharacterProfile, len(raw.CharacterProfiles))
	for name, rp := range raw.CharacterProfiles {
		if strings.TrimSpace(name) == "" {
			continue
		}
		profileName := strings.TrimSpace(rp.Name)
		if profileName == "" {
			profileName = name
		}
		profiles[name] = CharacterProfile{
			Name:                profileName,
			EmotionalState:      textOr(rp.EmotionalState, "neutral"),
			SentenceBias:        textOr(rp.SentenceBias, "8-10w medium"),
			VictoryPatterns:     compactStrings(rp.VictoryPatterns),
			DenialPatterns:      compactStrings(rp.DenialPatterns),
			RelationshipDynamic: textOr(rp.RelationshipDynamic, "unspecified"),
		}
	}

	return ScenePlan{
		ChapterID:         textOr(raw.ChapterID, "chapter_unknown"),
		Scenes:            scenes,
		CharacterProfiles: profiles,
		OverallTone:       textOr(raw.OverallTone, "neutral"),
		PacingStrategy:    textOr(raw.PacingStrategy, "standard"),
	}
}

func (a *Agent) normalizeScene(rs rawScene, idx int) SceneBeat {
	beatType := strings.ToLower(strings.TrimSpace(rs.BeatType))
	if !containsFold(a.cfg.BeatTypes, beatType) {
		beatType = "setup"
	}

	start := coerceInt(rs.StartParagraph)
	end := coerceInt(rs.EndParagraph)
	if start > 0 && end > 0 && end < start {
		end = start
	}

	return SceneBeat{
		ID:                 textOr(rs.ID, fmt.Sprintf("scene_%02d", idx)),
		BeatType:           beatType,
		EmotionalArc:       textOr(rs.EmotionalArc, "neutral_progression"),
		DialogueRegister:   a.mapDialogueRegister(rs.DialogueRegister),
		TargetRhythm:       a.mapTargetRhythm(rs.TargetRhythm),
		IllustrationAnchor: resolveIllustrationAnchor(rs, beatType),
		StartParagraph:     start,
		EndParagraph:       end,
	}
}

// resolveIllustrationAnchor honors any of the anchor keys models emit,
// and falls back to the beat type's own semantics when all are absent.
func resolveIllustrationAnchor(rs rawScene, beatType string) bool {
	for _, raw := range []json.RawMessage{rs.IllustrationAnchor, rs.SceneAnchor, rs.VisualAnchor} {
		if len(raw) > 0 {
			return coerceBool(raw)
		}
	}
	return beatType == "illustration_anchor"
}

// mapDialogueRegister maps a free-form register onto the configured
// set: exact normalized match, then substring, then keyword buckets,
// then the default.
func (a *Agent) mapDialogueRegister(raw string) string {
	allowed := a.cfg.DialogueRegisters
	if len(allowed) == 0 {
		return textOr(strings.TrimSpace(raw), a.cfg.DefaultRegister)
	}

	norm := normalizeToken(raw)
	for _, register := range allowed {
		if normalizeToken(register) == norm {
			return register
		}
	}
	for _, register := range allowed {
		if key := normalizeToken(register); key != "" && strings.Contains(norm, key) {
			return register
		}
	}

	tokens := tokenSet(norm)
	pick := func(candidates ...string) string {
		for _, c := range candidates {
			if containsFold(allowed, c) {
				return c
			}
		}
		return a.cfg.DefaultRegister
	}
	switch {
	case tokens.any("formal", "polite", "request", "strategic", "assertive"):
		return pick("formal_request")
	case tokens.any("teasing", "smug", "playful", "banter", "competitive"):
		return pick("smug_teasing")
	case tokens.any("flustered", "defense", "defensive", "denial", "embarrassed", "shy", "panic"):
		return pick("flustered_defense", "breathless_shock")
	case tokens.any("shock", "shocked", "breathless", "surprised"):
		return pick("breathless_shock", "flustered_defense")
	}
	return a.cfg.DefaultRegister
}

// mapTargetRhythm maps a free-form rhythm onto the configured keys:
// exact/substring match, then word-range midpoint, then short/long
// keywords, then the default.
func (a *Agent) mapTargetRhythm(raw string) string {
	if len(a.cfg.RhythmTargets) == 0 {
		return textOr(strings.TrimSpace(raw), a.cfg.DefaultRhythm)
	}

	norm := normalizeToken(raw)
	keys := sortedKeys(a.cfg.RhythmTargets)
	for _, key := range keys {
		if normalizeToken(key) == norm {
			return key
		}
	}
	for _, key := range keys {
		if nk := normalizeToken(key); nk != "" && strings.Contains(norm, nk) {
			return key
		}
	}

	levels := a.rhythmLevels()
	if lo, hi, ok := parseWordRange(raw); ok && len(levels) > 0 {
		midpoint := float64(lo+hi) / 2
		best := levels[0]
		for _, l := range levels[1:] {
			if abs(l.midpoint-midpoint) < abs(best.midpoint-midpoint) {
				best = l
			}
		}
		return best.key
	}

	if len(levels) > 0 {
		tokens := tokenSet(norm)
		if tokens.any("quick", "fast", "rapid", "brief", "short", "snappy", "witty", "punchline", "reveal") {
			return levels[0].key
		}
		if tokens.any("slow", "deliberate", "reflective", "strategic", "tender", "confession", "climactic") {
			return levels[len(levels)-1].key
		}
		return levels[len(levels)/2].key
	}
	return a.cfg.DefaultRhythm
}

type rhythmLevel struct {
	key      string
	midpoint float64
}

// rhythmLevels orders the configured rhythm keys by their word-range
// midpoint, shortest first, so keyword fallbacks can pick an extreme.
func (a *Agent) rhythmLevels() []rhythmLevel {
	var levels []rhythmLevel
	for _, key := range sortedKeys(a.cfg.RhythmTargets) {
		if lo, hi, ok := parseWordRange(a.cfg.RhythmTargets[key]); ok {
			levels = append(levels, rhythmLevel{key: key, midpoint: float64(lo+hi) / 2})
		}
	}
	sort.SliceStable(levels, func(i, j int) bool { return levels[i].midpoint < levels[j].midpoint })
	return levels
}

// healCoverageGaps extends a scene's end paragraph over gaps of at
// most maxHealableGap paragraphs before the next scene (and before the
// chapter's end), so downstream consumers see contiguous coverage.
func healCoverageGaps(scenes []SceneBeat, totalParagraphs int) {
	for i := 0; i+1 < len(scenes); i++ {
		end, next := scenes[i].EndParagraph, scenes[i+1].StartParagraph
		if end <= 0 || next <= 0 {
			continue
		}
		if gap := next - end - 1; gap > 0 && gap <= maxHealableGap {
			scenes[i].EndParagraph = next - 1
		}
	}
	if totalParagraphs > 0 && len(scenes) > 0 {
		last := &scenes[len(scenes)-1]
		if last.EndParagraph > 0 {
			if gap := totalParagraphs - last.EndParagraph; gap > 0 && gap <= maxHealableGap {
				last.EndParagraph = totalParagraphs
			}
		}
	}
}

var wordRangePattern = regexp.MustCompile(`(\d+)\s*[-–]\s*(\d+)`)
var singleWordPattern = regexp.MustCompile(`\b(\d+)\s*words?\b`)

func parseWordRange(s string) (lo, hi int, ok bool) {
	if m := wordRangePattern.FindStringSubmatch(s); m != nil {
		lo, _ = strconv.Atoi(m[1])
		hi, _ = strconv.Atoi(m[2])
		if lo > hi {
			lo, hi = hi, lo
		}
		return lo, hi, true
	}
	if m := singleWordPattern.FindStringSubmatch(strings.ToLower(s)); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n, n, true
	}
	return 0, 0, false
}

var tokenCleanPattern = regexp.MustCompile(`[^a-z0-9]+`)

func normalizeToken(s string) string {
	return strings.Trim(tokenCleanPattern.ReplaceAllString(strings.ToLower(s), "_"), "_")
}

type tokens map[string]bool

func tokenSet(norm string) tokens {
	set := tokens{}
	for _, t := range strings.Split(norm, "_") {
		if t != "" {
			set[t] = true
		}
	}
	return set
}

func (t tokens) any(words ...string) bool {
	for _, w := range words {
		if t[w] {
			return true
		}
	}
	return false
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func textOr(s, fallback string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return fallback
}

func compactStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func coerceInt(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n
		}
	}
	return 0
}

func coerceBool(raw json.RawMessage) bool {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "1", "true", "yes", "y":
			return true
		}
		return false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n != 0
	}
	return false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

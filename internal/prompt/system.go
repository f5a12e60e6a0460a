package prompt

import (
	"fmt"
	"sort"
	"strings"

	"digital.vasic.lnmtl/internal/continuity"
	"digital.vasic.lnmtl/internal/manifest"
)

// SystemInstructionInput bundles every input the seven system-instruction
// layers of spec §4.4 need. The caller (orchestrator) is responsible for
// having already performed the merges spec P2's glossary layering law and
// spec §4.4 step 4's roster merge describe; this package only formats.
type SystemInstructionInput struct {
	Genre                 string
	BiblePromptBlock      string // empty if no bible resolved (spec "Bible missing")
	WorldSettingDirective string

	// Roster and Glossary are already the fully-merged maps (continuity
	// ⊕ manifest ⊕ bible ⊕ locked, per spec P2/step 4/step 5).
	Roster   map[string]string
	Glossary map[string]string

	Semantic manifest.SemanticMetadata

	Continuity *continuity.Pack // nil on a fresh series with no prior volume
}

// BuildSystemInstruction assembles the stable, cacheable system
// instruction in the fixed layer order spec §4.4 requires: master
// prompt, style guide, bible block + world-setting directive, roster,
// glossary, semantic metadata, continuity pack.
func BuildSystemInstruction(loader *Loader, in SystemInstructionInput) string {
	var sb strings.Builder

	sb.WriteString(loader.MasterPrompt())
	sb.WriteString("\n\n")

	sb.WriteString("=== STYLE GUIDE ===\n")
	sb.WriteString(loader.StyleGuideFor(in.Genre).format())
	sb.WriteString("\n")

	if in.BiblePromptBlock != "" {
		sb.WriteString(in.BiblePromptBlock)
		sb.WriteString("\n")
	}
	if in.WorldSettingDirective != "" {
		sb.WriteString(in.WorldSettingDirective)
		sb.WriteString("\n\n")
	}

	if len(in.Roster) > 0 {
		sb.WriteString("=== CHARACTER ROSTER ===\n")
		sb.WriteString(formatMap(in.Roster))
		sb.WriteString("\n")
	}

	if len(in.Glossary) > 0 {
		sb.WriteString("=== GLOSSARY (authoritative JP -> target) ===\n")
		sb.WriteString(formatMap(in.Glossary))
		sb.WriteString("\n")
	}

	if semantic := formatSemanticMetadata(in.Semantic); semantic != "" {
		sb.WriteString("=== CHARACTER SPEECH & SCENE METADATA ===\n")
		sb.WriteString(semantic)
		sb.WriteString("\n")
	}

	if in.Continuity != nil {
		if cont := formatContinuity(in.Continuity); cont != "" {
			sb.WriteString("=== CONTINUITY FROM PRIOR CHAPTERS/VOLUMES ===\n")
			sb.WriteString(cont)
		}
	}

	return sb.String()
}

func formatMap(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s -> %s\n", k, m[k])
	}
	return sb.String()
}

// formatSemanticMetadata renders the rich per-character fields spec
// §4.4 step 6 requires be preserved rather than silently dropped: RTAS
// relationships, keigo_switch, contraction_rate, how_refers_to_others.
func formatSemanticMetadata(s manifest.SemanticMetadata) string {
	var sb strings.Builder

	for _, p := range s.CharacterProfiles {
		fmt.Fprintf(&sb, "- %s (%s)", p.NameEN, p.NameJP)
		if p.SpeechFingerprint != "" {
			fmt.Fprintf(&sb, ": %s", p.SpeechFingerprint)
		}
		sb.WriteString("\n")
		if p.ContractionRate > 0 {
			fmt.Fprintf(&sb, "  contraction rate: %.2f\n", p.ContractionRate)
		}
		if len(p.KeigoSwitch) > 0 {
			sb.WriteString("  keigo switch (partner -> register):\n")
			for _, pair := range sortedPairs(p.KeigoSwitch) {
				fmt.Fprintf(&sb, "    %s -> %s\n", pair[0], pair[1])
			}
		}
		if len(p.HowRefersToOthers) > 0 {
			sb.WriteString("  how they refer to others:\n")
			for _, pair := range sortedPairs(p.HowRefersToOthers) {
				fmt.Fprintf(&sb, "    %s -> %s\n", pair[0], pair[1])
			}
		}
		for _, r := range p.RTAS {
			fmt.Fprintf(&sb, "  relationship: %s (%s, score %.2f)", r.With, r.RelationType, r.Score)
			if r.ContractionRate > 0 {
				fmt.Fprintf(&sb, " [contraction override %.2f]", r.ContractionRate)
			}
			sb.WriteString("\n")
		}
	}

	if len(s.SceneContexts) > 0 {
		sb.WriteString("Scene contexts:\n")
		for _, c := range s.SceneContexts {
			sb.WriteString("  - " + c + "\n")
		}
	}
	if len(s.TranslationGuidelines) > 0 {
		sb.WriteString("Translation guidelines:\n")
		for _, g := range s.TranslationGuidelines {
			sb.WriteString("  - " + g + "\n")
		}
	}

	return sb.String()
}

// sortedPairs returns map entries as a deterministically-ordered slice
// of [2]string so prompt output (and the volume cache it feeds) is
// stable across runs.
func sortedPairs(m map[string]string) [][2]string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([][2]string, len(keys))
	for i, k := range keys {
		out[i] = [2]string{k, m[k]}
	}
	return out
}

func formatContinuity(p *continuity.Pack) string {
	var sb strings.Builder
	if len(p.Relationships) > 0 {
		sb.WriteString("Relationships established so far:\n")
		for _, r := range p.Relationships {
			fmt.Fprintf(&sb, "  - %s %s %s (from %s)\n", r.Subject, r.Kind, r.Object, r.Chapter)
		}
	}
	if len(p.NarrativeFlags) > 0 {
		sb.WriteString("Narrative flags to keep consistent:\n")
		for _, f := range p.NarrativeFlags {
			sb.WriteString("  - " + f + "\n")
		}
	}
	return sb.String()
}

package bible

import (
	"fmt"
	"sort"
	"strings"
)

// PromptBlock implements spec §4.3's "Prompt formatting": a structured
// block with === WORLD SETTING ===, then categorised === CHARACTERS
// ===, geography, weapons, etc.
func (b *SeriesBible) PromptBlock() string {
	var sb strings.Builder

	sb.WriteString("=== WORLD SETTING ===\n")
	fmt.Fprintf(&sb, "Type: %s (%s)\n", b.WorldSetting.Type, b.WorldSetting.Label)
	fmt.Fprintf(&sb, "Honorifics: %s — %s\n", b.WorldSetting.Honorifics.Mode, b.WorldSetting.Honorifics.Policy)
	fmt.Fprintf(&sb, "Name order: %s — %s\n", b.WorldSetting.NameOrder.Default, b.WorldSetting.NameOrder.Policy)
	if len(b.WorldSetting.Exceptions) > 0 {
		sb.WriteString("Exceptions:\n")
		for _, ex := range b.WorldSetting.Exceptions {
			fmt.Fprintf(&sb, "  - %s: %s\n", ex.Character, ex.Override)
		}
	}

	writeCategory(&sb, "CHARACTERS", b.Characters)
	writeCategory(&sb, "GEOGRAPHY: COUNTRIES", b.Geography.Countries)
	writeCategory(&sb, "GEOGRAPHY: REGIONS", b.Geography.Regions)
	writeCategory(&sb, "GEOGRAPHY: CITIES", b.Geography.Cities)
	writeCategory(&sb, "WEAPONS & ARTIFACTS", b.WeaponsArtifacts)
	writeCategory(&sb, "ORGANIZATIONS", b.Organizations)
	writeCategory(&sb, "CULTURAL TERMS", b.CulturalTerms)
	writeCategory(&sb, "MYTHOLOGY", b.Mythology)

	return sb.String()
}

func writeCategory(sb *strings.Builder, title string, entries map[string]Entry) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(sb, "=== %s ===\n", title)
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, jp := range keys {
		e := entries[jp]
		fmt.Fprintf(sb, "%s -> %s", jp, e.CanonicalEN)
		if e.Notes != "" {
			fmt.Fprintf(sb, " (%s)", e.Notes)
		}
		sb.WriteString("\n")
	}
}

// WorldSettingDirective emits the one-line compact form of the world
// setting, for space-constrained prompt slots.
func (b *SeriesBible) WorldSettingDirective() string {
	return fmt.Sprintf(
		"World: %s setting; honorifics %s (%s); name order %s (%s).",
		b.WorldSetting.Label,
		b.WorldSetting.Honorifics.Mode,
		b.WorldSetting.Honorifics.Policy,
		b.WorldSetting.NameOrder.Default,
		b.WorldSetting.NameOrder.Policy,
	)
}

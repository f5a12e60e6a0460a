package bible

// FlatGlossary implements spec §3's "bible.flat_glossary()": walks all
// six categories and their sub-categories, emitting {jp_key ->
// canonical_en} plus {alias_jp -> short_name_of_owner}. This is the
// authoritative JP->EN map for the volume before continuity-pack and
// manifest overrides are layered on (spec P2, §4.4 step 5).
func (b *SeriesBible) FlatGlossary() map[string]string {
	out := make(map[string]string)

	addCategory := func(entries map[string]Entry) {
		for jp, e := range entries {
			out[jp] = e.CanonicalEN
			owner := e.ShortName
			if owner == "" {
				owner = e.CanonicalEN
			}
			for _, alias := range e.AliasesJP {
				out[alias] = owner
			}
		}
	}

	addCategory(b.Characters)
	addCategory(b.Geography.Countries)
	addCategory(b.Geography.Regions)
	addCategory(b.Geography.Cities)
	addCategory(b.WeaponsArtifacts)
	addCategory(b.Organizations)
	addCategory(b.CulturalTerms)
	addCategory(b.Mythology)

	return out
}

package continuity

// MergeRoster merges the pack's roster with a current-volume roster,
// current-volume wins on key conflict (spec §4.4 step 4: "Character
// roster (merged: continuity_pack.roster ⊕ manifest.character_names,
// current volume wins)").
func (p *Pack) MergeRoster(current map[string]string) map[string]string {
	out := make(map[string]string, len(p.Roster)+len(current))
	for k, v := range p.Roster {
		out[k] = v
	}
	for k, v := range current {
		out[k] = v
	}
	return out
}

// MergeGlossary implements spec P2's glossary layering law:
// bible.flat_glossary() ⊕ continuity_pack.glossary ⊕ manifest.locked_glossary,
// later terms winning on key conflict. The formula's fourth term,
// chapter_local_names, has no extraction source anywhere in this
// pipeline — manifest.Chapter carries no such field, and the Gemini
// agent this was ported from (pipeline/translator/agent.py) only ever
// merges these same three (bible_glossary, continuity_glossary,
// locked_glossary) before handing the result to the prompt loader once
// per volume. That one-time injection also matches spec §3's
// GlossaryLayering invariant that the merged view is "injected once
// into the cached system instruction and is immutable for the duration
// of the volume cache's life" - a true per-chapter term would violate
// it. Dropping the term is documented as a decided Open Question in
// DESIGN.md rather than silently omitted.
func (p *Pack) MergeGlossary(bibleFlat, lockedGlossary map[string]string) map[string]string {
	out := make(map[string]string, len(bibleFlat)+len(p.Glossary)+len(lockedGlossary))
	for k, v := range bibleFlat {
		out[k] = v
	}
	for k, v := range p.Glossary {
		out[k] = v
	}
	for k, v := range lockedGlossary {
		out[k] = v
	}
	return out
}

// AddSnapshot implements spec §5's "Shared-resource policy": the pack
// is "mutated only by the orchestrator at end-of-chapter". Appending a
// snapshot folds its roster/glossary deltas and narrative flags into
// the running pack immediately, so a crash after chapter i still
// leaves the first i snapshots durable once the caller calls Save.
func (p *Pack) AddSnapshot(snap ChapterSnapshot) {
	p.ChapterSnapshots = append(p.ChapterSnapshots, snap)
	for k, v := range snap.Roster {
		p.Roster[k] = v
	}
	for k, v := range snap.Glossary {
		p.Glossary[k] = v
	}
	p.Relationships = append(p.Relationships, snap.Relationships...)
	p.NarrativeFlags = appendUnique(p.NarrativeFlags, snap.NarrativeFlags...)
}

func appendUnique(existing []string, incoming ...string) []string {
	seen := make(map[string]bool, len(existing))
	for _, v := range existing {
		seen[v] = true
	}
	out := existing
	for _, v := range incoming {
		if !seen[v] {
			out = append(out, v)
			seen[v] = true
		}
	}
	return out
}

// Aggregate implements spec §4.6's finalization step: "aggregate all
// chapter snapshots into a fresh continuity_pack.json ... for the NEXT
// volume". This is the multi-pass consolidation idiom grounded on the
// teacher's PreparationCoordinator.consolidateAnalyses, adapted from
// "merge N independent LLM analysis passes" to "merge N ordered
// chapter snapshots" — later snapshots win on key conflict, same as
// the teacher's final pass supersedes earlier passes.
func Aggregate(snapshots []ChapterSnapshot) *Pack {
	p := NewPack()
	for _, snap := range snapshots {
		p.AddSnapshot(snap)
	}
	return p
}

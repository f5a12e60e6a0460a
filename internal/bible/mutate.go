package bible

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// AddEntry implements spec §4.3's "add_entry(category_path, jp_key,
// data)": navigates a dotted path such as "geography.cities" and
// merges data into the existing entry for jp_key, or creates one.
func (b *SeriesBible) AddEntry(categoryPath, jpKey string, data Entry) error {
	target, err := b.categoryMap(categoryPath)
	if err != nil {
		return err
	}
	if *target == nil {
		*target = make(map[string]Entry)
	}
	if existing, ok := (*target)[jpKey]; ok {
		merged := mergeEntry(existing, data)
		(*target)[jpKey] = merged
	} else {
		(*target)[jpKey] = data
	}
	return nil
}

func mergeEntry(existing, incoming Entry) Entry {
	out := existing
	if incoming.CanonicalEN != "" {
		out.CanonicalEN = incoming.CanonicalEN
	}
	if incoming.ShortName != "" {
		out.ShortName = incoming.ShortName
	}
	if incoming.Category != "" {
		out.Category = incoming.Category
	}
	if incoming.Notes != "" {
		out.Notes = incoming.Notes
	}
	out.AliasesJP = mergeAliases(out.AliasesJP, incoming.AliasesJP)
	return out
}

func mergeAliases(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	out := append([]string{}, existing...)
	for _, a := range existing {
		seen[a] = true
	}
	for _, a := range incoming {
		if !seen[a] {
			out = append(out, a)
			seen[a] = true
		}
	}
	return out
}

// categoryMap resolves a dotted category path ("characters",
// "geography.cities", ...) to the backing map pointer.
func (b *SeriesBible) categoryMap(categoryPath string) (*map[string]Entry, error) {
	parts := strings.Split(categoryPath, ".")
	switch parts[0] {
	case "characters":
		return &b.Characters, nil
	case "weapons_artifacts":
		return &b.WeaponsArtifacts, nil
	case "organizations":
		return &b.Organizations, nil
	case "cultural_terms":
		return &b.CulturalTerms, nil
	case "mythology":
		return &b.Mythology, nil
	case "geography":
		if len(parts) < 2 {
			return nil, fmt.Errorf("bible: geography category path needs a sub-category")
		}
		switch parts[1] {
		case "countries":
			return &b.Geography.Countries, nil
		case "regions":
			return &b.Geography.Regions, nil
		case "cities":
			return &b.Geography.Cities, nil
		}
	}
	return nil, fmt.Errorf("bible: unknown category path %q", categoryPath)
}

// RegisterVolume implements spec §4.3's "register_volume(volume_id,
// title, index)": idempotent append to the series' volumes list, kept
// sorted.
func (r *Registry) RegisterVolume(seriesID, volumeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.index.Series[seriesID]
	if !ok {
		return fmt.Errorf("bible: unknown series %q", seriesID)
	}
	shortID := extractShortID(volumeID)
	if shortID == "" {
		shortID = volumeID
	}
	for _, v := range entry.Volumes {
		if v == shortID {
			return nil
		}
	}
	entry.Volumes = append(entry.Volumes, shortID)
	sort.Strings(entry.Volumes)
	entry.LastUpdated = now()
	if b, ok := r.loaded[seriesID]; ok {
		found := false
		for _, v := range b.VolumesRegistered {
			if v == volumeID {
				found = true
				break
			}
		}
		if !found {
			b.VolumesRegistered = append(b.VolumesRegistered, volumeID)
		}
	}
	return nil
}

// Save implements spec §4.3's "save(): timestamps and writes" for a
// single series bible, then refreshes the index entry's entry_count
// and last_updated and persists the index too.
func (r *Registry) Save(b *SeriesBible) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b.UpdatedAt = now()
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("bible: marshal %q: %w", b.SeriesID, err)
	}

	path := b.Path
	if path == "" {
		path = filepath.Join(r.dir, b.SeriesID+".json")
		b.Path = path
	}
	if err := atomicWrite(path, data); err != nil {
		return fmt.Errorf("bible: write %q: %w", path, err)
	}

	if entry, ok := r.index.Series[b.SeriesID]; ok {
		entry.EntryCount = len(b.FlatGlossary())
		entry.LastUpdated = b.UpdatedAt
	}
	return r.saveIndex()
}

// ImportFromManifest creates or enriches characters entries from a
// manifest's character_names map: a new JP key becomes an entry with
// that canonical_en, and an existing entry's canonical_en is filled in
// only when it is empty. It does not read character_profiles, and it
// does not touch the index: volumeID is unused, and linking a volume's
// short-id into index.volumes[] is done by Registry.RegisterVolume.
func (b *SeriesBible) ImportFromManifest(characterNames map[string]string, volumeID string) {
	if b.Characters == nil {
		b.Characters = make(map[string]Entry)
	}
	for jp, en := range characterNames {
		existing, ok := b.Characters[jp]
		if !ok {
			b.Characters[jp] = Entry{CanonicalEN: en, Category: "character"}
			continue
		}
		if existing.CanonicalEN == "" {
			existing.CanonicalEN = en
			b.Characters[jp] = existing
		}
	}
}

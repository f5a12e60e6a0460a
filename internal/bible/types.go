// Package bible implements C3: per-series canonical glossary/world-setting
// resolution. A SeriesBible is canonical data for one named series; an
// Index lists every known series and the volume short-ids registered to
// each, so a volume's manifest can be resolved to at most one bible.
package bible

import "time"

// WorldSetting describes genre/honorific/name-order conventions for a
// series (spec §3 "SeriesBible").
type WorldSetting struct {
	Type       string            `json:"type"`
	Label      string            `json:"label"`
	Honorifics HonorificsPolicy  `json:"honorifics"`
	NameOrder  NameOrderPolicy   `json:"name_order"`
	Exceptions []NameException   `json:"exceptions,omitempty"`
}

type HonorificsPolicy struct {
	Mode   string `json:"mode"`
	Policy string `json:"policy"`
}

type NameOrderPolicy struct {
	Default string `json:"default"`
	Policy  string `json:"policy"`
}

type NameException struct {
	Character string `json:"character"`
	Override  string `json:"override"`
}

// Entry is one glossary entry (spec §3: "JP key -> {canonical_en,
// short_name?, aliases_jp[]?, category?, notes?}").
type Entry struct {
	CanonicalEN string   `json:"canonical_en"`
	ShortName   string   `json:"short_name,omitempty"`
	AliasesJP   []string `json:"aliases_jp,omitempty"`
	Category    string   `json:"category,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

// Geography groups the three geography sub-categories the spec names.
type Geography struct {
	Countries map[string]Entry `json:"countries"`
	Regions   map[string]Entry `json:"regions"`
	Cities    map[string]Entry `json:"cities"`
}

// SeriesTitle carries the three title renderings a bible tracks.
type SeriesTitle struct {
	JA     string `json:"ja"`
	EN     string `json:"en"`
	Romaji string `json:"romaji"`
}

// SeriesBible is canonical data for a named series (spec §3).
type SeriesBible struct {
	Path string `json:"-"`

	SeriesID         string            `json:"series_id"`
	SeriesTitle      SeriesTitle       `json:"series_title"`
	WorldSetting     WorldSetting      `json:"world_setting"`
	TranslationRules map[string]string `json:"translation_rules,omitempty"`
	VolumesRegistered []string         `json:"volumes_registered,omitempty"`

	Characters       map[string]Entry `json:"characters"`
	Geography        Geography        `json:"geography"`
	WeaponsArtifacts map[string]Entry `json:"weapons_artifacts"`
	Organizations    map[string]Entry `json:"organizations"`
	CulturalTerms    map[string]Entry `json:"cultural_terms"`
	Mythology        map[string]Entry `json:"mythology"`

	UpdatedAt time.Time `json:"updated_at"`
}

// IndexEntry is one series' registry row (spec §3 "BibleIndex").
type IndexEntry struct {
	BibleFile    string   `json:"bible_file"`
	MatchPatterns []string `json:"match_patterns"`
	Volumes      []string `json:"volumes"` // short hashes
	EntryCount   int      `json:"entry_count"`
	LastUpdated  time.Time `json:"last_updated"`
}

// Index is the global registry, one per installation (spec §3
// "BibleIndex").
type Index struct {
	Series map[string]*IndexEntry `json:"series"`
}

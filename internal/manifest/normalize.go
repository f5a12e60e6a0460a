package manifest

import (
	"encoding/json"
	"fmt"
)

// rawManifest captures every shape the three schema variants (v1, v2,
// enhanced-v2.1) might send, using json.RawMessage for the fields
// whose shape varies by version so normalize can dispatch on them.
type rawManifest struct {
	SchemaVersion string          `json:"schema_version"`
	VolumeID      string          `json:"volume_id"`
	Metadata      struct {
		Series string `json:"series"`
		Title  string `json:"title"`
		Genre  string `json:"genre"`
	} `json:"metadata"`
	PublisherID    string                     `json:"publisher_id"`
	BibleID        string                     `json:"bible_id"`
	LockedGlossary map[string]string          `json:"locked_glossary"`
	Chapters       []rawChapter               `json:"chapters"`
	PipelineState  struct {
		Librarian struct {
			Status string `json:"status"`
		} `json:"librarian"`
		Translator   TranslatorState   `json:"translator"`
		ScenePlanner ScenePlannerState `json:"scene_planner"`
	} `json:"pipeline_state"`

	// Per-language metadata arrives as metadata_en, metadata_vi, etc.
	// rather than a nested map, so Parse extracts it from a generic
	// key map; this field is not populated.
	Extra map[string]json.RawMessage `json:"-"`
}

type rawChapter struct {
	ID                string            `json:"id"`
	SourceFile        string            `json:"source_file"`
	TitleByLang       map[string]string `json:"-"`
	OutputFileByLang  map[string]string `json:"output_file_by_lang"`
	TranslationStatus string            `json:"translation_status"`
	Model             string            `json:"model"`
	SchemaCache       string            `json:"schema_cache"`
	ScenePlanFile     string            `json:"scene_plan_file"`
	Extra             map[string]json.RawMessage `json:"-"`
}

// rawLanguageMetadata is the v1/legacy-v2 shape for metadata_<lang>:
// character_names is present, but character_profiles may be either
// the legacy flat shape (v2) or the enhanced shape (v2.1); both are
// folded into CharacterProfile by normalizeProfile.
type rawLanguageMetadata struct {
	CharacterNames    map[string]string        `json:"character_names"`
	CharacterProfiles []json.RawMessage        `json:"character_profiles"`
	SemanticMetadata  struct {
		SceneContexts         []string `json:"scene_contexts"`
		TranslationGuidelines []string `json:"translation_guidelines"`
	} `json:"semantic_metadata"`
}

// legacyV2Profile is the flat shape the spec says loses RTAS/keigo/
// contraction/how-refers-to-others when read naively.
type legacyV2Profile struct {
	NameJP string `json:"name_jp"`
	NameEN string `json:"name_en"`
}

// enhancedProfile is the v2.1 shape carrying the rich fields.
type enhancedProfile struct {
	NameJP            string            `json:"name_jp"`
	NameEN            string            `json:"name_en"`
	SpeechFingerprint string            `json:"speech_fingerprint"`
	KeigoSwitch       map[string]string `json:"keigo_switch"`
	ContractionRate   float64           `json:"contraction_rate"`
	HowRefersToOthers map[string]string `json:"how_refers_to_others"`
	RTAS              []RTAS            `json:"rtas"`
}

// Load reads and normalizes a manifest.json file at path into the
// canonical shape.
func Load(path string) (*Manifest, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: read %q: %w", path, err)
	}
	return Parse(data, path)
}

// Parse normalizes raw manifest.json bytes. Exposed separately from
// Load so tests can exercise normalization without touching disk.
func Parse(data []byte, path string) (*Manifest, error) {
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("manifest: invalid json: %w", err)
	}

	var raw rawManifest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("manifest: parse: %w", err)
	}
	if raw.SchemaVersion == "" {
		return nil, fmt.Errorf("manifest: missing schema_version")
	}
	if raw.VolumeID == "" {
		return nil, fmt.Errorf("manifest: missing volume_id")
	}

	m := &Manifest{
		Path:           path,
		SchemaVersion:  raw.SchemaVersion,
		VolumeID:       raw.VolumeID,
		Series:         raw.Metadata.Series,
		Title:          raw.Metadata.Title,
		Genre:          raw.Metadata.Genre,
		PublisherID:    raw.PublisherID,
		BibleID:        raw.BibleID,
		LockedGlossary: raw.LockedGlossary,
		LanguageMeta:   make(map[string]LanguageMetadata),
		PipelineState: PipelineState{
			LibrarianStatus: raw.PipelineState.Librarian.Status,
			Translator:      raw.PipelineState.Translator,
			ScenePlanner:    raw.PipelineState.ScenePlanner,
		},
	}

	for _, rc := range raw.Chapters {
		m.Chapters = append(m.Chapters, Chapter{
			ID:                rc.ID,
			SourceFile:        rc.SourceFile,
			OutputFileByLang:  rc.OutputFileByLang,
			TranslationStatus: normalizeStatus(rc.TranslationStatus),
			ModelOverride:     rc.Model,
			SchemaCache:       rc.SchemaCache,
			ScenePlanFile:     rc.ScenePlanFile,
		})
	}

	for key, value := range generic {
		const prefix = "metadata_"
		if len(key) <= len(prefix) || key[:len(prefix)] != prefix {
			continue
		}
		lang := key[len(prefix):]
		var rawLang rawLanguageMetadata
		if err := json.Unmarshal(value, &rawLang); err != nil {
			continue
		}
		m.LanguageMeta[lang] = LanguageMetadata{
			CharacterNames: rawLang.CharacterNames,
			SemanticMetadata: SemanticMetadata{
				CharacterProfiles:     normalizeProfiles(rawLang.CharacterProfiles),
				SceneContexts:         rawLang.SemanticMetadata.SceneContexts,
				TranslationGuidelines: rawLang.SemanticMetadata.TranslationGuidelines,
			},
		}
	}

	if m.PipelineState.Translator.Status == "" {
		m.PipelineState.Translator.Status = "idle"
	}

	return m, nil
}

func normalizeStatus(s string) ChapterStatus {
	switch ChapterStatus(s) {
	case StatusCompleted, StatusFailed:
		return ChapterStatus(s)
	default:
		return StatusPending
	}
}

// normalizeProfiles folds legacy-v2 (flat) and enhanced-v2.1 character
// profiles into one shape. Every legacy field the source dropped
// (RTAS, keigo_switch, contraction_rate, how_refers_to_others) is
// preserved when present, and defaulted (not omitted) when the source
// is a legacy profile lacking them.
func normalizeProfiles(raws []json.RawMessage) []CharacterProfile {
	out := make([]CharacterProfile, 0, len(raws))
	for _, raw := range raws {
		var enhanced enhancedProfile
		if err := json.Unmarshal(raw, &enhanced); err == nil && (len(enhanced.RTAS) > 0 || len(enhanced.KeigoSwitch) > 0 || enhanced.HowRefersToOthers != nil || enhanced.ContractionRate != 0 || enhanced.SpeechFingerprint != "") {
			out = append(out, CharacterProfile{
				NameJP:            enhanced.NameJP,
				NameEN:            enhanced.NameEN,
				SpeechFingerprint: enhanced.SpeechFingerprint,
				KeigoSwitch:       enhanced.KeigoSwitch,
				ContractionRate:   enhanced.ContractionRate,
				HowRefersToOthers: enhanced.HowRefersToOthers,
				RTAS:              enhanced.RTAS,
			})
			continue
		}

		var legacy legacyV2Profile
		if err := json.Unmarshal(raw, &legacy); err != nil {
			continue
		}
		out = append(out, CharacterProfile{
			NameJP:            legacy.NameJP,
			NameEN:            legacy.NameEN,
			KeigoSwitch:       map[string]string{},
			HowRefersToOthers: map[string]string{},
			ContractionRate:   0.5,
		})
	}
	return out
}

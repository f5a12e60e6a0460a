package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const legacyManifest = `{
	"schema_version": "2.0",
	"volume_id": "madan_no_ou_vol1_a3f2",
	"metadata": {"series": "Madan no Ou to Vanadis", "title": "Madan no Ou to Vanadis Vol. 1", "genre": "historical_fantasy"},
	"chapters": [
		{"id": "chapter_01", "source_file": "JP/CHAPTER_01_JP.md", "translation_status": "pending"}
	],
	"metadata_en": {
		"character_names": {"タイガー": "Tigre"},
		"character_profiles": [
			{"name_jp": "タイガー", "name_en": "Tigre"}
		]
	},
	"pipeline_state": {"librarian": {"status": "completed"}, "translator": {"status": "idle"}}
}`

const enhancedManifest = `{
	"schema_version": "2.1",
	"volume_id": "vol_b4e1",
	"metadata": {"series": "Series", "title": "Title", "genre": "romcom_school_life"},
	"chapters": [
		{"id": "chapter_01", "source_file": "JP/CHAPTER_01_JP.md", "translation_status": "pending"}
	],
	"metadata_en": {
		"character_names": {"タイガー": "Tigre"},
		"character_profiles": [
			{"name_jp": "タイガー", "name_en": "Tigre", "keigo_switch": {"エレン": "casual"}, "contraction_rate": 0.8, "how_refers_to_others": {"エレン": "first_name"}, "rtas": [{"with": "エレン", "relation_type": "rival", "score": 0.7}]}
		]
	},
	"pipeline_state": {"librarian": {"status": "completed"}, "translator": {"status": "idle"}}
}`

func TestParseLegacyManifestDefaultsRichFields(t *testing.T) {
	m, err := Parse([]byte(legacyManifest), "m.json")
	require.NoError(t, err)
	require.Len(t, m.LanguageMeta["en"].SemanticMetadata.CharacterProfiles, 1)
	profile := m.LanguageMeta["en"].SemanticMetadata.CharacterProfiles[0]
	assert.Equal(t, "Tigre", profile.NameEN)
	assert.NotNil(t, profile.KeigoSwitch)
	assert.NotNil(t, profile.HowRefersToOthers)
}

func TestParseEnhancedManifestPreservesRichFields(t *testing.T) {
	m, err := Parse([]byte(enhancedManifest), "m.json")
	require.NoError(t, err)
	profile := m.LanguageMeta["en"].SemanticMetadata.CharacterProfiles[0]
	assert.Equal(t, "casual", profile.KeigoSwitch["エレン"])
	assert.Equal(t, 0.8, profile.ContractionRate)
	require.Len(t, profile.RTAS, 1)
	assert.Equal(t, "rival", profile.RTAS[0].RelationType)
}

func TestParseMissingSchemaVersionErrors(t *testing.T) {
	_, err := Parse([]byte(`{"volume_id": "x"}`), "m.json")
	assert.Error(t, err)
}

func TestRequiresPreflight(t *testing.T) {
	m := &Manifest{SchemaVersion: "3.6"}
	assert.True(t, m.RequiresPreflight())
	m.SchemaVersion = "2.1"
	assert.False(t, m.RequiresPreflight())
}

func TestCanonicalTitle(t *testing.T) {
	assert.Equal(t, "Chapter 4", CanonicalTitle("chapter_04"))
}

func TestNormalizeTitlesReplacesMismatchedNumber(t *testing.T) {
	m := &Manifest{Chapters: []Chapter{
		{ID: "chapter_01", TitleByLang: map[string]string{"en": "Chapter 99"}},
	}}
	m.NormalizeTitles("en")
	assert.Equal(t, "Chapter 1", m.Chapters[0].TitleByLang["en"])
}

func TestNormalizeTitlesKeepsMatchingTitleDespiteZeroPadding(t *testing.T) {
	m := &Manifest{Chapters: []Chapter{
		{ID: "chapter_04", TitleByLang: map[string]string{"en": "Chapter 4: The Feast"}},
	}}
	m.NormalizeTitles("en")
	assert.Equal(t, "Chapter 4: The Feast", m.Chapters[0].TitleByLang["en"])
}

func TestNormalizeTitlesReplacesDuplicates(t *testing.T) {
	m := &Manifest{Chapters: []Chapter{
		{ID: "chapter_01", TitleByLang: map[string]string{"en": "Prologue"}},
		{ID: "chapter_02", TitleByLang: map[string]string{"en": "Prologue"}},
	}}
	m.NormalizeTitles("en")
	assert.Equal(t, "Chapter 1", m.Chapters[0].TitleByLang["en"])
	assert.Equal(t, "Chapter 2", m.Chapters[1].TitleByLang["en"])
}

func TestNormalizeTitlesIdempotent(t *testing.T) {
	m := &Manifest{Chapters: []Chapter{
		{ID: "chapter_01", TitleByLang: map[string]string{"en": "Chapter 99"}},
	}}
	m.NormalizeTitles("en")
	first := m.Chapters[0].TitleByLang["en"]
	m.NormalizeTitles("en")
	assert.Equal(t, first, m.Chapters[0].TitleByLang["en"])
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	require.NoError(t, os.WriteFile(path, []byte(legacyManifest), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	m.MarkCompleted("chapter_01", "en", "CHAPTER_01_EN.md")
	require.NoError(t, m.Save())

	reloaded, err := Load(path)
	require.NoError(t, err)
	ch, ok := reloaded.Chapter("chapter_01")
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, ch.TranslationStatus)
	assert.Equal(t, "CHAPTER_01_EN.md", ch.OutputFileByLang["en"])
}

func TestBeginAndFinishTranslation(t *testing.T) {
	m := &Manifest{}
	m.BeginTranslation("en", "gemini-2.5-pro")
	assert.Equal(t, "in_progress", m.PipelineState.Translator.Status)
	m.FinishTranslation(true, nil)
	assert.Equal(t, "completed", m.PipelineState.Translator.Status)

	m2 := &Manifest{}
	m2.BeginTranslation("en", "gemini-2.5-pro")
	m2.FinishTranslation(false, []string{"chapter_02"})
	assert.Equal(t, "partial", m2.PipelineState.Translator.Status)
}

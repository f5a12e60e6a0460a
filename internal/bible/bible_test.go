package bible

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital.vasic.lnmtl/internal/config"
	"digital.vasic.lnmtl/internal/logging"
)

func newTestRegistry(t *testing.T) (*Registry, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.BibleConfig{RegistryDir: dir, FuzzyMatchThreshold: FuzzyMatchThreshold}
	r, err := Open(cfg, logging.NewNoOp())
	require.NoError(t, err)
	return r, dir
}

func writeSeriesBible(t *testing.T, dir, seriesID string, b SeriesBible) {
	t.Helper()
	b.SeriesID = seriesID
	data, err := json.Marshal(b)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, seriesID+".json"), data, 0o644))
}

func seedIndex(r *Registry, seriesID string, entry *IndexEntry) {
	r.index.Series[seriesID] = entry
}

func TestExtractShortID(t *testing.T) {
	assert.Equal(t, "a3f2", extractShortID("madan_no_ou_vol1_a3f2"))
	assert.Equal(t, "", extractShortID("no_suffix_here"))
}

func TestResolveByBibleID(t *testing.T) {
	r, dir := newTestRegistry(t)
	writeSeriesBible(t, dir, "madan_no_ou", SeriesBible{
		Characters: map[string]Entry{"タイガー": {CanonicalEN: "Tigre"}},
	})
	seedIndex(r, "madan_no_ou", &IndexEntry{BibleFile: "madan_no_ou.json"})

	b, err := r.Resolve(context.Background(), ManifestRef{BibleID: "madan_no_ou"})
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "Tigre", b.Characters["タイガー"].CanonicalEN)
}

func TestResolveByVolumeShortID(t *testing.T) {
	r, dir := newTestRegistry(t)
	writeSeriesBible(t, dir, "madan_no_ou", SeriesBible{})
	seedIndex(r, "madan_no_ou", &IndexEntry{BibleFile: "madan_no_ou.json", Volumes: []string{"a3f2"}})

	b, err := r.Resolve(context.Background(), ManifestRef{VolumeID: "vol1_a3f2"})
	require.NoError(t, err)
	require.NotNil(t, b)
}

func TestResolveByFuzzyTitle(t *testing.T) {
	r, dir := newTestRegistry(t)
	writeSeriesBible(t, dir, "madan_no_ou_to_vanadis", SeriesBible{
		Characters: map[string]Entry{"タイガー": {CanonicalEN: "Tigre"}},
	})
	seedIndex(r, "madan_no_ou_to_vanadis", &IndexEntry{
		BibleFile:     "madan_no_ou_to_vanadis.json",
		MatchPatterns: []string{"Madan no Ou", "魔弾の王"},
	})

	b, err := r.Resolve(context.Background(), ManifestRef{
		VolumeID: "madan_vol1_a3f2",
		Series:   "Madan no Ou to Vanadis",
		Title:    "Madan no Ou to Vanadis Vol. 1",
	})
	require.NoError(t, err)
	require.NotNil(t, b)

	// The fuzzy hit links this volume into the series: its short-id is
	// appended to the index entry's volumes list.
	assert.Contains(t, r.index.Series["madan_no_ou_to_vanadis"].Volumes, "a3f2")
}

func TestResolveIsDeterministicWhenTwoSeriesMatch(t *testing.T) {
	r, dir := newTestRegistry(t)
	// Both series' patterns substring-match the same title; resolution
	// must pick the same one on every run (sorted id order, so
	// "series_a" wins) regardless of map iteration order.
	writeSeriesBible(t, dir, "series_a", SeriesBible{})
	writeSeriesBible(t, dir, "series_b", SeriesBible{})
	seedIndex(r, "series_b", &IndexEntry{BibleFile: "series_b.json", MatchPatterns: []string{"Madan"}})
	seedIndex(r, "series_a", &IndexEntry{BibleFile: "series_a.json", MatchPatterns: []string{"Madan no Ou"}})

	for i := 0; i < 20; i++ {
		b, err := r.Resolve(context.Background(), ManifestRef{Title: "Madan no Ou to Vanadis Vol. 1"})
		require.NoError(t, err)
		require.NotNil(t, b)
		assert.Equal(t, "series_a", b.SeriesID)
	}
}

func TestResolveReturnsNilWhenNoMatch(t *testing.T) {
	r, _ := newTestRegistry(t)
	b, err := r.Resolve(context.Background(), ManifestRef{Series: "Unrelated Series", Title: "Unrelated Title"})
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestFlatGlossaryIncludesAliases(t *testing.T) {
	b := &SeriesBible{
		Characters: map[string]Entry{
			"タイガー": {CanonicalEN: "Tigre", ShortName: "Tigre", AliasesJP: []string{"虎"}},
		},
	}
	flat := b.FlatGlossary()
	assert.Equal(t, "Tigre", flat["タイガー"])
	assert.Equal(t, "Tigre", flat["虎"])
}

func TestPromptBlockContainsSections(t *testing.T) {
	b := &SeriesBible{
		WorldSetting: WorldSetting{Type: "medieval_fantasy", Label: "Medieval Fantasy"},
		Characters:   map[string]Entry{"タイガー": {CanonicalEN: "Tigre"}},
	}
	block := b.PromptBlock()
	assert.Contains(t, block, "=== WORLD SETTING ===")
	assert.Contains(t, block, "=== CHARACTERS ===")
	assert.Contains(t, block, "タイガー -> Tigre")
}

func TestAddEntryCreatesAndMerges(t *testing.T) {
	b := &SeriesBible{}
	require.NoError(t, b.AddEntry("geography.cities", "王都", Entry{CanonicalEN: "the Capital"}))
	assert.Equal(t, "the Capital", b.Geography.Cities["王都"].CanonicalEN)

	require.NoError(t, b.AddEntry("geography.cities", "王都", Entry{Notes: "seat of the crown"}))
	assert.Equal(t, "the Capital", b.Geography.Cities["王都"].CanonicalEN)
	assert.Equal(t, "seat of the crown", b.Geography.Cities["王都"].Notes)
}

func TestAddEntryUnknownCategoryErrors(t *testing.T) {
	b := &SeriesBible{}
	err := b.AddEntry("nonsense", "k", Entry{})
	assert.Error(t, err)
}

func TestRegisterVolumeIsIdempotent(t *testing.T) {
	r, dir := newTestRegistry(t)
	writeSeriesBible(t, dir, "series_a", SeriesBible{})
	seedIndex(r, "series_a", &IndexEntry{BibleFile: "series_a.json"})

	require.NoError(t, r.RegisterVolume("series_a", "vol_1_aaaa"))
	require.NoError(t, r.RegisterVolume("series_a", "vol_1_aaaa"))
	assert.Equal(t, []string{"aaaa"}, r.index.Series["series_a"].Volumes)
}

func TestSaveWritesFileAndUpdatesIndex(t *testing.T) {
	r, dir := newTestRegistry(t)
	b := &SeriesBible{SeriesID: "series_b", Characters: map[string]Entry{"A": {CanonicalEN: "A"}}}
	seedIndex(r, "series_b", &IndexEntry{BibleFile: "series_b.json"})

	require.NoError(t, r.Save(b))
	_, err := os.Stat(filepath.Join(dir, "series_b.json"))
	require.NoError(t, err)
	assert.Equal(t, 1, r.index.Series["series_b"].EntryCount)
}

func TestSequenceMatchRatioIdentical(t *testing.T) {
	assert.Equal(t, 1.0, sequenceMatchRatio("Madan no Ou", "Madan no Ou"))
}

func TestSequenceMatchRatioPartial(t *testing.T) {
	ratio := sequenceMatchRatio("Madan no Ou to Vanadis", "Madan no Ou")
	assert.Greater(t, ratio, 0.5)
	assert.Less(t, ratio, 1.0)
}

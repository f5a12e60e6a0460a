package continuity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsEmptyPack(t *testing.T) {
	p, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.NotNil(t, p.Roster)
	assert.Empty(t, p.ChapterSnapshots)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "continuity_pack.json")
	p := NewPack()
	p.AddSnapshot(ChapterSnapshot{ChapterID: "chapter_01", Roster: map[string]string{"タイガー": "Tigre"}})
	require.NoError(t, p.Save(path))

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Tigre", reloaded.Roster["タイガー"])
	require.Len(t, reloaded.ChapterSnapshots, 1)

	_, statErr := os.Stat(path)
	require.NoError(t, statErr)
}

func TestMergeRosterCurrentVolumeWins(t *testing.T) {
	p := NewPack()
	p.Roster["タイガー"] = "Old Name"
	merged := p.MergeRoster(map[string]string{"タイガー": "Tigre"})
	assert.Equal(t, "Tigre", merged["タイガー"])
}

func TestMergeGlossaryLayeringOrder(t *testing.T) {
	p := NewPack()
	p.Glossary["K"] = "from_continuity"
	bible := map[string]string{"K": "from_bible"}
	locked := map[string]string{"K": "from_manifest"}
	assert.Equal(t, "from_manifest", p.MergeGlossary(bible, locked)["K"])

	p2 := NewPack()
	p2.Glossary["K"] = "from_continuity"
	assert.Equal(t, "from_continuity", p2.MergeGlossary(bible, map[string]string{})["K"])
}

func TestAggregateMergesSnapshotsInOrder(t *testing.T) {
	snapshots := []ChapterSnapshot{
		{ChapterID: "chapter_01", Roster: map[string]string{"A": "v1"}, NarrativeFlags: []string{"flag1"}},
		{ChapterID: "chapter_02", Roster: map[string]string{"A": "v2"}, NarrativeFlags: []string{"flag1", "flag2"}},
	}
	pack := Aggregate(snapshots)
	assert.Equal(t, "v2", pack.Roster["A"])
	assert.Equal(t, []string{"flag1", "flag2"}, pack.NarrativeFlags)
	assert.Len(t, pack.ChapterSnapshots, 2)
}

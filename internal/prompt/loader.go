// Package prompt implements C4: assembly of the two strings the engine
// sends to the LLM client — a volume-stable, cacheable system instruction
// and a per-chapter user prompt (spec §4.4). The system instruction is
// layered in a fixed order (master prompt, genre style guide, bible
// block, roster, glossary, semantic metadata, continuity pack) so later
// sections may reference names/terms the earlier sections already
// established.
package prompt

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// defaultGenre is the style guide used when a manifest's genre has no
// matching file on disk (spec §4.4 step 2: "falls back to
// romcom_school_life").
const defaultGenre = "romcom_school_life"

// StyleGuide is one genre's voice/register guidance, loaded from
// style_guides/<genre>.yaml. YAML is used here (rather than the
// teacher's usual encoding/json) because these are hand-authored,
// human-edited prose documents; gopkg.in/yaml.v3 is already in the
// teacher's go.mod for exactly this kind of human-facing config file.
type StyleGuide struct {
	Genre       string   `yaml:"genre"`
	Voice       string   `yaml:"voice"`
	Register    string   `yaml:"register"`
	Notes       []string `yaml:"notes"`
	Prohibited  []string `yaml:"prohibited"`
}

// Loader loads and caches the master prompt and genre style guides from
// a directory on disk.
type Loader struct {
	dir          string
	masterPrompt string
	guides       map[string]StyleGuide
}

// NewLoader constructs a Loader rooted at dir, which is expected to
// contain master_prompt.txt and a style_guides/ subdirectory of
// <genre>.yaml files.
func NewLoader(dir string) (*Loader, error) {
	l := &Loader{dir: dir, guides: make(map[string]StyleGuide)}

	masterPath := filepath.Join(dir, "master_prompt.txt")
	data, err := os.ReadFile(masterPath)
	if err != nil {
		if os.IsNotExist(err) {
			l.masterPrompt = defaultMasterPrompt
		} else {
			return nil, fmt.Errorf("prompt: read master prompt: %w", err)
		}
	} else {
		l.masterPrompt = string(data)
	}

	guideDir := filepath.Join(dir, "style_guides")
	entries, err := os.ReadDir(guideDir)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("prompt: read style guides dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		guide, err := loadStyleGuide(filepath.Join(guideDir, entry.Name()))
		if err != nil {
			continue
		}
		l.guides[guide.Genre] = guide
	}

	if _, ok := l.guides[defaultGenre]; !ok {
		l.guides[defaultGenre] = StyleGuide{
			Genre:    defaultGenre,
			Voice:    "light, warm, contemporary YA voice",
			Register: "casual-neutral, school-life dialogue cadence",
			Notes:    []string{"Keep banter snappy; prefer contractions in dialogue."},
		}
	}

	return l, nil
}

func loadStyleGuide(path string) (StyleGuide, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return StyleGuide{}, err
	}
	var g StyleGuide
	if err := yaml.Unmarshal(data, &g); err != nil {
		return StyleGuide{}, fmt.Errorf("prompt: parse style guide %q: %w", path, err)
	}
	if g.Genre == "" {
		g.Genre = trimExt(filepath.Base(path))
	}
	return g, nil
}

func trimExt(name string) string {
	ext := filepath.Ext(name)
	return name[:len(name)-len(ext)]
}

// MasterPrompt returns the loaded (or default) master translator prompt.
func (l *Loader) MasterPrompt() string {
	return l.masterPrompt
}

// StyleGuideFor returns the style guide for genre, falling back to
// defaultGenre when genre is empty or unknown (spec §4.4 step 2).
func (l *Loader) StyleGuideFor(genre string) StyleGuide {
	if g, ok := l.guides[genre]; ok {
		return g
	}
	return l.guides[defaultGenre]
}

func (g StyleGuide) format() string {
	s := fmt.Sprintf("Genre: %s\nVoice: %s\nRegister: %s\n", g.Genre, g.Voice, g.Register)
	for _, n := range g.Notes {
		s += "- " + n + "\n"
	}
	if len(g.Prohibited) > 0 {
		s += "Avoid:\n"
		for _, p := range g.Prohibited {
			s += "- " + p + "\n"
		}
	}
	return s
}

// defaultMasterPrompt is the stable fallback system-instruction preamble
// used when no master_prompt.txt is configured on disk, grounded on the
// register/voice directives the teacher's own preparation prompt builder
// issues to the model (pkg/preparation/prompts.go).
const defaultMasterPrompt = `You are a professional literary translator producing a publication-quality
English (or Vietnamese) rendering of a Japanese light novel chapter.

Preserve narrative voice, character speech patterns, and pacing. Prefer
natural target-language prose over literal word-for-word rendering.
Dialogue should read the way a native speaker of the target language
would actually talk. Never summarize, omit, or add plot content that is
not present in the source text.`

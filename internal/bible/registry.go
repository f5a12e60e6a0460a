package bible

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"digital.vasic.lnmtl/internal/config"
	"digital.vasic.lnmtl/internal/logging"
)

// BibleSchemaVersion and IndexSchemaVersion mirror the versions the
// original pipeline stamps onto bible files and the index, so files
// this package writes remain readable by that format.
const (
	BibleSchemaVersion = "1.0"
	IndexSchemaVersion = "1.0"
)

// Registry is the resolver's handle on the on-disk bible registry: the
// index file plus every series bible it references. It corresponds to
// the original pipeline's BibleController singleton, minus the
// process-wide singleton-ness (the orchestrator owns one Registry per
// run instead).
type Registry struct {
	dir string
	cfg config.BibleConfig
	log logging.Logger

	mu      sync.RWMutex
	index   Index
	loaded  map[string]*SeriesBible
}

// Open loads (or initializes) the registry rooted at cfg.RegistryDir.
func Open(cfg config.BibleConfig, log logging.Logger) (*Registry, error) {
	r := &Registry{
		dir:    cfg.RegistryDir,
		cfg:    cfg,
		log:    log,
		loaded: make(map[string]*SeriesBible),
	}
	if err := os.MkdirAll(cfg.RegistryDir, 0o755); err != nil {
		return nil, fmt.Errorf("bible: create registry dir: %w", err)
	}

	indexPath := filepath.Join(cfg.RegistryDir, "index.json")
	data, err := os.ReadFile(indexPath)
	if err != nil {
		if os.IsNotExist(err) {
			r.index = Index{Series: map[string]*IndexEntry{}}
			return r, nil
		}
		return nil, fmt.Errorf("bible: read index: %w", err)
	}

	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("bible: parse index: %w", err)
	}
	if idx.Series == nil {
		idx.Series = map[string]*IndexEntry{}
	}
	r.index = idx
	return r, nil
}

// load reads a series bible file, caching it for the lifetime of the
// registry (spec §3.3: "Bible files are read-only during a translation
// run").
func (r *Registry) load(seriesID string) (*SeriesBible, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.loaded[seriesID]; ok {
		return b, nil
	}

	entry, ok := r.index.Series[seriesID]
	if !ok {
		return nil, fmt.Errorf("bible: unknown series %q", seriesID)
	}

	path := filepath.Join(r.dir, entry.BibleFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bible: read %q: %w", path, err)
	}

	var b SeriesBible
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("bible: parse %q: %w", path, err)
	}
	b.Path = path
	r.loaded[seriesID] = &b
	if r.log != nil {
		r.log.Info("bible loaded", map[string]interface{}{"series_id": seriesID, "path": path})
	}
	return &b, nil
}

// saveIndex atomically persists the index file.
func (r *Registry) saveIndex() error {
	data, err := json.MarshalIndent(struct {
		SchemaVersion string                  `json:"schema_version"`
		Series        map[string]*IndexEntry `json:"series"`
	}{IndexSchemaVersion, r.index.Series}, "", "  ")
	if err != nil {
		return fmt.Errorf("bible: marshal index: %w", err)
	}
	return atomicWrite(filepath.Join(r.dir, "index.json"), data)
}

// atomicWrite writes data to a temp file in the same directory then
// renames it over path, so a crash mid-write never leaves a truncated
// registry file.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// now is overridable indirection for deterministic tests; production
// code uses time.Now.
var now = time.Now

package bible

import (
	"context"
	"regexp"
	"sort"
	"strings"
)

// FuzzyMatchThreshold is the default SequenceMatcher.ratio() cutoff for
// step 3 of the resolution algorithm (spec §4.3).
const FuzzyMatchThreshold = 0.70

var shortIDPattern = regexp.MustCompile(`_([0-9a-f]{4})$`)

// ManifestRef is the subset of a volume manifest the resolver needs.
type ManifestRef struct {
	BibleID    string
	VolumeID   string
	Series     string
	Title      string
}

// Resolve implements spec §4.3's resolution algorithm: given a
// manifest, return at most one SeriesBible. It never returns an error
// for "no match" — that case is represented by a nil bible, per the
// spec's "Bible missing" row ("resolver returns null; proceed without
// bible; log info").
func (r *Registry) Resolve(ctx context.Context, m ManifestRef) (*SeriesBible, error) {
	if m.BibleID != "" {
		if _, ok := r.index.Series[m.BibleID]; ok {
			b, err := r.load(m.BibleID)
			if err == nil {
				return b, nil
			}
		}
	}

	if shortID := extractShortID(m.VolumeID); shortID != "" {
		for _, seriesID := range r.sortedSeriesIDs() {
			if containsString(r.index.Series[seriesID].Volumes, shortID) {
				b, err := r.load(seriesID)
				if err == nil {
					return b, nil
				}
			}
		}
	}

	if seriesID, ok := r.fuzzyMatch(m.Series, m.Title); ok {
		b, err := r.load(seriesID)
		if err != nil {
			return nil, err
		}
		// A fuzzy hit is this volume's first link to the series; record
		// its short-id in the index so later runs of this same volume
		// resolve by step 2 instead of re-fuzzy-matching.
		if extractShortID(m.VolumeID) != "" {
			if regErr := r.RegisterVolume(seriesID, m.VolumeID); regErr == nil {
				r.mu.Lock()
				saveErr := r.saveIndex()
				r.mu.Unlock()
				if saveErr != nil && r.log != nil {
					r.log.Warn("bible: persist index after volume link failed", map[string]interface{}{"series_id": seriesID, "error": saveErr.Error()})
				}
			}
		}
		return b, nil
	}

	return nil, nil
}

// extractShortID pulls the trailing 4-hex-char suffix from a volume id,
// e.g. "madan_no_ou_1_a3f2" -> "a3f2".
func extractShortID(volumeID string) string {
	match := shortIDPattern.FindStringSubmatch(volumeID)
	if match == nil {
		return ""
	}
	return match[1]
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// fuzzyMatch implements step 3: substring match against any
// match_patterns entry wins immediately; otherwise the highest
// SequenceMatcher-equivalent ratio above the threshold wins. Series
// are visited in sorted id order (not map order) so two series whose
// patterns both match, or that tie on ratio, resolve to the same
// winner on every run — the same treatment formatMap gives prompt
// output.
func (r *Registry) fuzzyMatch(series, title string) (string, bool) {
	candidates := []string{series, title}
	seriesIDs := r.sortedSeriesIDs()

	for _, seriesID := range seriesIDs {
		for _, pattern := range r.index.Series[seriesID].MatchPatterns {
			if pattern == "" {
				continue
			}
			for _, candidate := range candidates {
				if candidate == "" {
					continue
				}
				if strings.Contains(candidate, pattern) || strings.Contains(pattern, candidate) {
					return seriesID, true
				}
			}
		}
	}

	bestSeries := ""
	bestRatio := r.cfg.FuzzyMatchThreshold
	for _, seriesID := range seriesIDs {
		for _, pattern := range r.index.Series[seriesID].MatchPatterns {
			for _, candidate := range candidates {
				if candidate == "" || pattern == "" {
					continue
				}
				ratio := sequenceMatchRatio(candidate, pattern)
				if ratio > bestRatio {
					bestRatio = ratio
					bestSeries = seriesID
				}
			}
		}
	}

	if bestSeries == "" {
		return "", false
	}
	return bestSeries, true
}

// sortedSeriesIDs returns the index's series ids in sorted order, the
// stable iteration order every resolution loop uses.
func (r *Registry) sortedSeriesIDs() []string {
	ids := make([]string, 0, len(r.index.Series))
	for id := range r.index.Series {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

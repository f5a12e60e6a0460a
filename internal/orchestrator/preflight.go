package orchestrator

import (
	"fmt"

	"digital.vasic.lnmtl/internal/manifest"
)

// runPreflight implements spec §4.6 step 1's v3.6 structural pre-flight
// check: every chapter the librarian marked complete must have a
// matching chapters[] entry with a non-empty source_file. A librarian
// status other than "complete" skips the check and is only a warning,
// logged by TranslateVolume (spec: "mirrors the
// original's warn-not-block behavior"); a missing source_file is a hard
// stop unless forcePreflight is set (SPEC_FULL.md Open Question: the
// original interactively prompts "Continue anyway?", which has no
// batch-pipeline equivalent, so this resolves it as an explicit CLI
// override instead).
func runPreflight(m *manifest.Manifest, forcePreflight bool) error {
	if !m.RequiresPreflight() {
		return nil
	}

	if m.PipelineState.LibrarianStatus != "complete" {
		return nil
	}

	var missing []string
	for _, c := range m.Chapters {
		if c.SourceFile == "" {
			missing = append(missing, c.ID)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	if forcePreflight {
		return nil
	}
	return fmt.Errorf("preflight: %d chapter(s) missing source_file with librarian status complete: %v (pass --force-preflight to proceed anyway)", len(missing), missing)
}

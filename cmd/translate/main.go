// Command translate runs the light-novel translation engine's single
// entry point over one volume directory. Grounded on the teacher's
// cmd/cli/main.go flag-parsing idiom (flag package, a printHelp
// function; no shorthand aliases), retargeted from ebook-format
// conversion flags to the volume/chapter flags spec §6 defines.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"digital.vasic.lnmtl/internal/config"
	"digital.vasic.lnmtl/internal/logging"
	"digital.vasic.lnmtl/internal/orchestrator"
	"digital.vasic.lnmtl/internal/storage"
)

const version = "1.0.0"

func main() {
	var (
		chaptersFlag      string
		force             bool
		forcePreflight    bool
		enableContinuity  bool
		enableGapAnalysis bool
		enableMultimodal  bool
		configFile        string
		lang              string
		showVersion       bool
		showHelp          bool
	)

	flag.StringVar(&chaptersFlag, "chapters", "", "Comma-separated chapter IDs to translate (default: all chapters in the manifest)")
	flag.BoolVar(&force, "force", false, "Re-translate chapters even if already marked completed")
	flag.BoolVar(&forcePreflight, "force-preflight", false, "Proceed past a v3.6 structural pre-flight failure (missing source_file on a completed-librarian manifest)")
	flag.BoolVar(&enableContinuity, "enable-continuity", false, "Aggregate a fresh continuity_pack.json from this run's chapter snapshots")
	flag.BoolVar(&enableGapAnalysis, "enable-gap-analysis", false, "Run gap detection (emotion/action, ruby jokes, sarcasm) before translating each chapter")
	flag.BoolVar(&enableMultimodal, "enable-multimodal", false, "Fold in cached illustration visual context where available")
	flag.StringVar(&configFile, "config", "", "Configuration file path (defaults to built-in defaults plus environment overrides)")
	flag.StringVar(&lang, "lang", "en", "Target language code")
	flag.BoolVar(&showVersion, "version", false, "Show version")
	flag.BoolVar(&showHelp, "help", false, "Show help")

	flag.Usage = printHelp
	flag.Parse()

	if showVersion {
		fmt.Printf("lnmtl-translate v%s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if showHelp || len(args) < 1 {
		printHelp()
		os.Exit(2)
	}

	volumeID := args[0]
	volumeDir := volumeID
	if len(args) >= 2 {
		volumeDir = args[1]
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "translate: load config: %v\n", err)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "translate: invalid configuration: %v\n", err)
		os.Exit(2)
	}

	log := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, OutputFile: cfg.Logging.OutputFile})

	// SIGINT/SIGTERM stop the run between chapters: the in-flight
	// chapter finishes, state is persisted, and the process exits 1.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch, err := orchestrator.New(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "translate: initialize: %v\n", err)
		os.Exit(2)
	}
	defer orch.Close()

	store, err := openRunHistory(cfg)
	if err != nil {
		log.Warn("translate: run history storage unavailable, continuing without it", map[string]interface{}{"error": err.Error()})
	} else {
		defer store.Close()
		orch.SetRunHistory(store)
	}

	var chapterIDs []string
	if chaptersFlag != "" {
		chapterIDs = strings.Split(chaptersFlag, ",")
		for i := range chapterIDs {
			chapterIDs[i] = strings.TrimSpace(chapterIDs[i])
		}
	}

	result, err := orch.TranslateVolume(ctx, orchestrator.Options{
		VolumeDir:         volumeDir,
		Lang:              lang,
		ChapterIDs:        chapterIDs,
		Force:             force,
		ForcePreflight:    forcePreflight,
		EnableContinuity:  enableContinuity,
		EnableGapAnalysis: enableGapAnalysis,
		EnableMultimodal:  enableMultimodal,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "translate: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("Volume %s: %s\n", volumeID, result.Status)
	fmt.Printf("  Completed: %d\n", len(result.CompletedChapters))
	fmt.Printf("  Failed:    %d\n", len(result.FailedChapters))
	fmt.Printf("  Skipped:   %d\n", len(result.SkippedChapters))
	if len(result.FailedChapters) > 0 {
		fmt.Printf("  Failed chapter IDs: %s\n", strings.Join(result.FailedChapters, ", "))
	}

	if result.Status != "completed" {
		os.Exit(1)
	}
}

// openRunHistory opens the same storage backend the monitor dashboard
// reads from (cfg.Monitor.StorageKind/StorageDSN), so a volume run
// started from this CLI shows up in that dashboard's history list.
// Run history is optional: a translate invocation must not fail just
// because the dashboard's database is unreachable.
func openRunHistory(cfg *config.Config) (storage.Storage, error) {
	sc := &storage.Config{Database: cfg.Monitor.StorageDSN}
	switch cfg.Monitor.StorageKind {
	case "postgres":
		return storage.NewPostgreSQLStorage(sc)
	case "redis":
		return storage.NewRedisStorage(sc, 0)
	default:
		return storage.NewSQLiteStorage(sc)
	}
}

func printHelp() {
	fmt.Printf(`lnmtl-translate v%s

Translate one light-novel volume from Japanese to a target language.

Usage:
  translate <volume_id> [volume_dir] [options]

  volume_id    Identifier used in output messages
  volume_dir   Directory containing manifest.json (default: volume_id itself)

Options:
  -lang <code>              Target language code [default: en]
  -chapters <id1,id2,...>   Translate only these chapter IDs [default: all]
  -force                    Re-translate chapters already marked completed
  -force-preflight          Proceed past a v3.6 structural pre-flight failure
  -enable-continuity        Aggregate a fresh continuity_pack.json after the run
  -enable-gap-analysis      Run gap detection before translating each chapter
  -enable-multimodal        Fold in cached illustration visual context
  -config <file>            Configuration file path
  -version                  Show version
  -help                     Show this help

Environment Variables:
  GOOGLE_API_KEY / GEMINI_API_KEY   Gemini API key
  WORK_DIR                          Working directory root
  JWT_SECRET                        Monitor dashboard JWT signing secret

Exit codes:
  0   every targeted chapter completed
  1   one or more chapters failed (partial run)
  2   invalid input or a setup failure before any chapter ran

Examples:
  translate vol-03 ./volumes/vol-03 -lang vi -enable-continuity
  translate vol-03 -chapters ch01,ch02 -force
`, version)
}

// Command plan runs the Stage 1 scene planner over one volume: for
// each selected chapter it generates a narrative scaffold (scene beats,
// chapter-local character profiles) from the Japanese source and
// persists it to PLANS/<chapter_id>_scene_plan.json, linked from the
// manifest. Run before translate so the translation prompt can carry
// the scaffold.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"digital.vasic.lnmtl/internal/config"
	"digital.vasic.lnmtl/internal/llm"
	"digital.vasic.lnmtl/internal/logging"
	"digital.vasic.lnmtl/internal/planner"
)

const version = "1.0.0"

func main() {
	var (
		chaptersFlag  string
		force         bool
		configFile    string
		planConfig    string
		model         string
		failOnPartial bool
		showVersion   bool
		showHelp      bool
	)

	flag.StringVar(&chaptersFlag, "chapters", "", "Comma-separated chapter selectors: id, source file, or number (default: all)")
	flag.BoolVar(&force, "force", false, "Regenerate plans that already exist on disk")
	flag.StringVar(&configFile, "config", "", "Configuration file path")
	flag.StringVar(&planConfig, "plan-config", "", "Planning vocabulary file (beat types, registers, rhythm targets)")
	flag.StringVar(&model, "model", "", "Model override for planning")
	flag.BoolVar(&failOnPartial, "fail-on-partial", false, "Exit non-zero when any chapter's planning fails")
	flag.BoolVar(&showVersion, "version", false, "Show version")
	flag.BoolVar(&showHelp, "help", false, "Show help")

	flag.Usage = printHelp
	flag.Parse()

	if showVersion {
		fmt.Printf("lnmtl-plan v%s\n", version)
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
		fmt.Fprintf(os.Stderr, "plan: load config: %v\n", err)
		os.Exit(2)
	}
	if cfg.LLM.APIKey == "" {
		fmt.Fprintln(os.Stderr, "plan: no LLM API key configured (set GOOGLE_API_KEY or GEMINI_API_KEY)")
		os.Exit(2)
	}

	log := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, OutputFile: cfg.Logging.OutputFile})

	ctx := context.Background()
	llmClient, err := llm.New(ctx, cfg.LLM, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "plan: initialize llm client: %v\n", err)
		os.Exit(2)
	}

	planCfg, err := planner.LoadConfig(planConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "plan: load planning config: %v\n", err)
		os.Exit(2)
	}
	if model != "" {
		planCfg.Model = model
	}

	var selectors []string
	if chaptersFlag != "" {
		selectors = strings.Split(chaptersFlag, ",")
		for i := range selectors {
			selectors[i] = strings.TrimSpace(selectors[i])
		}
	}

	runner := planner.NewRunner(planner.NewAgent(llmClient, planCfg, log), log)
	result, err := runner.Run(ctx, planner.RunOptions{
		VolumeDir:        volumeDir,
		ChapterSelectors: selectors,
		Force:            force,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "plan: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("Volume %s scene planning:\n", volumeID)
	fmt.Printf("  Generated: %d\n", result.Generated)
	fmt.Printf("  Skipped:   %d\n", result.Skipped)
	fmt.Printf("  Failed:    %d\n", result.Failed)
	for _, e := range result.Errors {
		fmt.Printf("  error: %s\n", e)
	}

	if result.Failed > 0 && (failOnPartial || result.Generated+result.Skipped == 0) {
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Printf(`lnmtl-plan v%s

Generate Stage 1 scene plans (narrative scaffolds) for one volume.

Usage:
  plan <volume_id> [volume_dir] [options]

  volume_id    Identifier used in output messages
  volume_dir   Directory containing manifest.json (default: volume_id itself)

Options:
  -chapters <sel1,sel2,...>  Plan only matching chapters (id, source file, or number)
  -force                     Regenerate plans that already exist
  -plan-config <file>        Planning vocabulary file
  -model <name>              Model override for planning
  -fail-on-partial           Exit 1 when any chapter's planning fails
  -config <file>             Configuration file path
  -version                   Show version
  -help                      Show this help

Environment Variables:
  GOOGLE_API_KEY / GEMINI_API_KEY   Gemini API key

Exit codes:
  0   every selected chapter planned or already had a plan
  1   partial (with -fail-on-partial, or when nothing succeeded)
  2   invalid input or a setup failure

Examples:
  plan vol-03 ./volumes/vol-03
  plan vol-03 -chapters chapter_02,chapter_03 -force
`, version)
}

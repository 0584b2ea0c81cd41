package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"race_preview/pkg/core/agent"
	"race_preview/pkg/core/config"
	"race_preview/pkg/core/generation"
	"race_preview/pkg/core/llm"
	"race_preview/pkg/core/logger"
	"race_preview/pkg/core/pipeline"
	"race_preview/pkg/core/preview"
	"race_preview/pkg/core/prompt"
	"race_preview/pkg/core/standings"
	"race_preview/pkg/core/store"
)

const usageExamples = `
Examples:
  previews                                   # Generate everything
  previews --only=prediction                 # Only regenerate the race prediction
  previews --only=top5                       # Only regenerate the top 5
  previews --only=underdogs                  # Only regenerate the underdogs
  previews --only=standings                  # Only regenerate the standings
  previews --only=drivers                    # Only regenerate all driver profiles
  previews --only=driver --driver="Max Verstappen"
`

func main() {
	only := flag.String("only", "", "regenerate one section using existing data: "+strings.Join(pipeline.Modes(), ", "))
	driver := flag.String("driver", "", `driver name for --only=driver (e.g. "Max Verstappen")`)
	jsonPath := flag.String("json", "", "path to the preview data JSON file (default from config: preview_data.json)")
	configPath := flag.String("config", "", "path to the YAML config (default "+config.DefaultPath+" when present)")
	envPath := flag.String("env", ".env", "dotenv file with API keys")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: previews [flags]\n\nGenerate race weekend previews.\n\n")
		flag.PrintDefaults()
		fmt.Fprint(flag.CommandLine.Output(), usageExamples)
	}
	flag.Parse()

	if err := godotenv.Load(*envPath); err != nil {
		fmt.Printf("Warning: %s not found, assuming environment variables are set.\n", *envPath)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fail("Error: %v", err)
	}
	if *jsonPath != "" {
		cfg.OutputPath = *jsonPath
	}

	if *only != "" && !validMode(*only) {
		fail("Error: unknown --only value %q (valid: %s)", *only, strings.Join(pipeline.Modes(), ", "))
	}
	if *only == pipeline.OnlyDriver && *driver == "" {
		fail("Error: --driver argument is required when using --only=driver\nAvailable drivers: %s", strings.Join(cfg.DriverNames(), ", "))
	}
	if *only == pipeline.OnlyDriver {
		if _, ok := cfg.FindDriver(*driver); !ok {
			fail("Error: driver %q not found\nAvailable drivers: %s", *driver, strings.Join(cfg.DriverNames(), ", "))
		}
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fail("Error: failed to build logger: %v", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *only, *driver, log); err != nil {
		log.Error("run failed", "error", err)
		if errors.Is(err, store.ErrNotFound) {
			fail("✗ %v. Generate full data first.", err)
		}
		fail("✗ %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, only, driver string, log *logger.Logger) error {
	prompts, err := prompt.Default()
	if err != nil {
		return err
	}
	if cfg.PromptDir != "" {
		if err := prompt.LoadFromDirectory(prompts, cfg.PromptDir); err != nil {
			return err
		}
		fmt.Printf("[PROMPT] Loaded %d prompts (overrides from %s)\n", prompts.Count(), cfg.PromptDir)
	}

	mgr := agent.NewManager(cfg.Provider, agent.KeysFromEnv())
	defer mgr.Close()

	var runner pipeline.Runner
	if only != pipeline.OnlyStandings {
		provider, err := mgr.Active(ctx)
		if err != nil {
			return fmt.Errorf("provider %s: %w", mgr.GetActiveProvider(), err)
		}
		runner = generation.NewUnit(provider, llm.Request{
			Model:           cfg.Model,
			MaxOutputTokens: cfg.MaxOutputTokens,
			WebSearch:       cfg.WebSearch,
		}, cfg.RequestTimeout, log)
	}

	orch := pipeline.NewOrchestrator(runner, prompts, pipeline.Options{
		Drivers:     cfg.Drivers,
		Circuit:     cfg.Circuit,
		RaceDate:    cfg.RaceDate,
		Season:      cfg.Season,
		Sessions:    cfg.Sessions,
		OutputPath:  cfg.OutputPath,
		ImagePath:   cfg.ImagePath,
		Concurrency: cfg.Concurrency,
	}, log)
	orch.SetStandings(standings.NewClient(cfg.StandingsURL, log))

	if cfg.Archive {
		archive, err := store.OpenArchive(ctx, os.Getenv("DATABASE_URL"))
		if err == nil {
			err = archive.EnsureSchema(ctx)
		}
		if err != nil {
			log.Warn("archive disabled", "error", err)
		} else {
			defer archive.Close()
			orch.SetArchive(archive)
		}
	}

	if only != "" {
		return runOnly(ctx, orch, cfg, only, driver)
	}

	if cfg.HeaderImage {
		if gen, ok := mgr.ImageGenerator(ctx); ok {
			orch.SetImageGenerator(gen)
		}
	}
	return runFull(ctx, orch, cfg)
}

func runOnly(ctx context.Context, orch *pipeline.Orchestrator, cfg *config.Config, only, driver string) error {
	switch only {
	case pipeline.OnlyDriver:
		fmt.Printf("\n👤 Regenerating profile for %s...\n", driver)
	case pipeline.OnlyDrivers:
		fmt.Printf("\n👥 Regenerating all %d driver profiles...\n", len(cfg.Drivers))
	default:
		fmt.Printf("\n🔁 Regenerating %s from existing data...\n", only)
	}

	if _, err := orch.Regenerate(ctx, only, driver); err != nil {
		return err
	}
	fmt.Printf("   ✓ %s saved to %s\n", only, cfg.OutputPath)
	return nil
}

func runFull(ctx context.Context, orch *pipeline.Orchestrator, cfg *config.Config) error {
	if cfg.NeedsDetection() {
		fmt.Println("\n🔍 Auto-detecting next Grand Prix...")
	} else {
		fmt.Printf("\nGenerating previews for %s GP on %s...\n", cfg.Circuit, cfg.RaceDate)
	}
	if cfg.WebSearch {
		fmt.Println("\n🌐 Web search ENABLED - the model will search for the latest race data, weather and results")
	} else {
		fmt.Println("\n📝 Web search DISABLED - using the model's training data only")
	}
	if done := preview.CompletedSessions(cfg.Sessions); len(done) > 0 {
		fmt.Printf("\n📊 Including results from completed sessions: %s\n", strings.Join(done, ", "))
	} else {
		fmt.Println("\n📅 No manual session results provided")
	}

	orch.OnStage(func(s pipeline.Stage) {
		switch s {
		case pipeline.StageContextGenerated:
			fmt.Println("   ✓ Race context generated")
			fmt.Printf("\nGenerating %d driver previews in parallel...\n", len(cfg.Drivers))
		case pipeline.StageEntitiesGenerated:
			fmt.Println("   ✓ Driver previews gathered")
			fmt.Println("\nGenerating top 5, underdogs, prediction and standings...")
		case pipeline.StageDerivedSectionsGenerated:
			fmt.Println("   ✓ Derived sections gathered")
		}
	})

	_, report, err := orch.RunFull(ctx)
	if report != nil && report.Event.GPName != "" {
		fmt.Printf("   ✓ Grand Prix: %s on %s\n", report.Event.GPName, report.Event.RaceDate)
	}
	if err != nil {
		return err
	}

	for _, name := range sortedKeys(report.FailedDrivers) {
		fmt.Printf("   ✗ %s: %v\n", name, report.FailedDrivers[name])
	}
	for _, name := range sortedKeys(report.FailedSections) {
		fmt.Printf("   ✗ %s: %v\n", name, report.FailedSections[name])
	}
	if report.ImageWritten {
		fmt.Printf("   ✓ Header image saved to %s\n", cfg.ImagePath)
	}
	fmt.Printf("\n✅ All done! Preview data saved to %s\n", cfg.OutputPath)
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadOptional(config.DefaultPath)
}

func validMode(mode string) bool {
	for _, m := range pipeline.Modes() {
		if m == mode {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]error) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// Package main is the entry point for SpaceGame.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/calhale/spacegame/internal/config"
	"github.com/calhale/spacegame/internal/game"
	"github.com/calhale/spacegame/internal/narrative"
	"github.com/calhale/spacegame/internal/storage/memory"
	"github.com/calhale/spacegame/internal/storage/sqlite"
	"github.com/calhale/spacegame/internal/telemetry"
	"github.com/calhale/spacegame/internal/ui"
)

func main() {
	configPath := flag.String("config", "", "path to a game config JSON file (defaults to the embedded config)")
	ephemeral := flag.Bool("ephemeral", false, "keep state in memory only; nothing is written to disk")
	flag.Parse()

	// Load .env file for local development
	if err := godotenv.Load(); err != nil {
		// Not fatal - env vars might be set directly
		log.Printf("Note: .env file not loaded: %v", err)
	}

	setupOTelEnv()

	ctx := context.Background()

	// Initialize telemetry
	shutdown, err := telemetry.Setup(ctx)
	if err != nil {
		log.Printf("Warning: telemetry setup failed: %v", err)
		log.Printf("Game will run without observability")
		// Continue without telemetry - game still works
	} else {
		defer func() {
			if err := shutdown(ctx); err != nil {
				log.Printf("Error shutting down telemetry: %v", err)
			}
		}()
	}

	if err := run(ctx, *configPath, *ephemeral); err != nil {
		log.Fatalf("Game error: %v", err)
	}
}

func run(ctx context.Context, configPath string, ephemeral bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		// Missing or broken config files fall back to the embedded defaults.
		log.Printf("Note: %v; using default config", err)
		cfg = config.MustDefault()
	}

	envCfg, err := config.ParseEnv()
	if err != nil {
		return fmt.Errorf("load environment: %w", err)
	}

	var store game.Store
	if ephemeral {
		store = memory.New()
	} else {
		s, err := sqlite.Open(envCfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		store = s
	}
	defer store.Close()

	if err := store.SeedProjectsIfEmpty(ctx, projectSeeds(cfg)); err != nil {
		return fmt.Errorf("seed projects: %w", err)
	}

	state, err := loadOrNewState(ctx, cfg, store)
	if err != nil {
		return err
	}

	controller := game.NewController(state, game.NewInterpreter(), game.Options{
		NarrationTimeout:   cfg.NarrationTimeout(),
		CheckpointInterval: cfg.CheckpointInterval,
	})
	controller.SetStore(store)

	if envCfg.NarrationAPIKey != "" {
		narrator, err := narrative.NewClient(narrative.Config{
			APIKey:       envCfg.NarrationAPIKey,
			Model:        envCfg.NarrationModel,
			ResponsesURL: envCfg.NarrationURL,
		})
		if err != nil {
			return fmt.Errorf("narration client: %w", err)
		}
		controller.SetNarrator(narrator)
	} else {
		log.Printf("Note: SPACEGAME_NARRATION_API_KEY not set; narration disabled")
	}

	screen, err := ui.NewScreen()
	if err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer screen.Close()

	app := ui.NewApp(screen, cfg.Title)
	for _, sink := range app.Sinks() {
		controller.AddSink(sink)
	}

	runErr := app.Run(ctx, controller)

	// Let in-flight narration settle, then save once more on the way out.
	controller.Drain()
	if err := controller.Checkpoint(ctx); err != nil {
		log.Printf("Warning: final save failed: %v", err)
	}
	return runErr
}

// loadOrNewState restores the saved snapshot or starts a fresh game from the
// seeded project catalog.
func loadOrNewState(ctx context.Context, cfg config.Config, store game.Store) (*game.State, error) {
	snap, ok, err := store.LoadState(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	if ok {
		return game.Restore(cfg, snap), nil
	}
	projects, err := store.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return game.NewState(cfg, projects), nil
}

// projectSeeds converts the configured starter catalog into store seeds.
func projectSeeds(cfg config.Config) []game.ProjectSeed {
	seeds := make([]game.ProjectSeed, 0, len(cfg.Projects))
	for _, def := range cfg.Projects {
		seed := game.ProjectSeed{
			Project: game.Project{
				ID:          game.ProjectID(def.Key),
				Name:        def.Name,
				Description: def.Description,
				Status:      game.StatusPending,
			},
		}
		for _, task := range def.Tasks {
			seed.Tasks = append(seed.Tasks, game.TaskSeed{
				Key:         task.Key,
				Name:        task.Name,
				Description: task.Description,
			})
		}
		seeds = append(seeds, seed)
	}
	return seeds
}

// setupOTelEnv configures OTEL environment variables from our custom env vars.
func setupOTelEnv() {
	apiKey := os.Getenv("HONEYCOMB_SPACEGAME_API_KEY")
	if apiKey == "" {
		return
	}
	dataset := os.Getenv("HONEYCOMB_SPACEGAME_DATASET")
	if dataset == "" {
		dataset = "spacegame" // default dataset name
	}
	os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "https://api.honeycomb.io")
	os.Setenv("OTEL_EXPORTER_OTLP_HEADERS",
		fmt.Sprintf("x-honeycomb-team=%s,x-honeycomb-dataset=%s", apiKey, dataset))
}

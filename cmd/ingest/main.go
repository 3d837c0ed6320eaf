package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/lox/pokeretl/internal/analyticstore"
	"github.com/lox/pokeretl/internal/applog"
	"github.com/lox/pokeretl/internal/config"
	"github.com/lox/pokeretl/internal/handrank"
	"github.com/lox/pokeretl/internal/ingest"
	"github.com/lox/pokeretl/internal/pipeline"
	"github.com/lox/pokeretl/internal/rangesdb"
	"github.com/lox/pokeretl/internal/rawstore"
	"github.com/lox/pokeretl/internal/rules"
	"github.com/lox/pokeretl/internal/upstream"
)

// CLI mirrors the ingestion command surface described in spec.md §6:
// a date cursor to start from, connection settings, and the sleep/clean
// knobs that shape the outer date loop.
type CLI struct {
	Date string `arg:"" optional:"" help:"Date to start ingesting from (YYYY-MM-DD). Defaults to STARTING_DATE from config.txt."`

	Config      string   `help:"Path to config.txt." default:"config.txt"`
	URL         string   `help:"Upstream base URL, overrides config.txt BASE_URL."`
	DB          string   `help:"Database connection string, overrides DATABASE_URL."`
	Sleep       int      `help:"Seconds to sleep between date iterations." default:"300"`
	SkipScripts []string `help:"Name of an ETL stage to skip; may be specified multiple times."`
	NoScripts   bool     `help:"Skip all post-ingest ETL stages."`
	NoClean     bool     `help:"Skip the hosted-mode first-deploy wipe."`
	LogLevel    string   `help:"Log level." enum:"debug,info,warn,error" default:"info"`
	LogFile     string   `help:"Log file path." default:"ingest.log"`
	RangesPath  string   `help:"Override RANGES_PATH (preflop reference DB connection string)."`
	Normalize   bool     `help:"Rescale postflop scores during joining (§4.11 --normalize)."`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("pokeretl-ingest"),
		kong.Description("Hand-history ingestion and ETL pipeline driver"),
		kong.UsageOnError(),
	)

	cfg, err := config.Load(cli.Config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cli.URL != "" {
		cfg.BaseURL = cli.URL
	}
	if cli.DB != "" {
		cfg.DatabaseURL = cli.DB
	}
	if cli.RangesPath != "" {
		cfg.RangesPath = cli.RangesPath
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, closeLog, err := applog.New(cli.LogFile, cli.LogLevel, "ingest")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closeLog()

	paths, err := config.ResolveDataRoot(".")
	if err != nil {
		logger.Error("resolve data root", "error", err)
		kctx.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := run(ctx, cli, cfg, paths, logger); err != nil {
		logger.Error("ingest failed", "error", err)
		if err == upstream.ErrUnavailable {
			kctx.Exit(2)
		}
		kctx.Exit(1)
	}
}

func run(ctx context.Context, cli CLI, cfg config.Config, paths config.Paths, logger *log.Logger) error {
	raw, err := rawstore.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect primary store: %w", err)
	}
	defer raw.Close()
	if err := raw.InitSchema(ctx); err != nil {
		return fmt.Errorf("init primary schema: %w", err)
	}

	analytic, err := analyticstore.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect analytic store: %w", err)
	}
	defer analytic.Close()
	if err := analytic.InitSchema(ctx); err != nil {
		return fmt.Errorf("init analytic schema: %w", err)
	}

	var ranges *rangesdb.Store
	if cfg.RangesPath != "" {
		ranges, err = rangesdb.Connect(ctx, cfg.RangesPath)
		if err != nil {
			return fmt.Errorf("connect ranges db: %w", err)
		}
		defer ranges.Close()
	}

	client, err := upstream.New(cfg.BaseURL, cfg.Username, cfg.Password, 0)
	if err != nil {
		return fmt.Errorf("new upstream client: %w", err)
	}
	if err := client.Login(ctx); err != nil {
		return upstream.ErrUnavailable
	}

	labelRules, err := rules.LoadLabelRules(filepath.Join(".", "label_rules.hcl"))
	if err != nil {
		return fmt.Errorf("load label rules: %w", err)
	}
	intentionTree, err := rules.LoadIntentionTree(filepath.Join(".", "intentions"))
	if err != nil {
		logger.Warn("no intention mapping tree found, falling back to synthesized labels", "error", err)
		intentionTree = &rules.IntentionTree{}
	}

	stages := []pipeline.Stage{
		&pipeline.PreflopMatcherStage{Ranges: ranges},
		&pipeline.SizingClassifierStage{},
		&pipeline.ActionLabelerStage{Rules: labelRules},
		&pipeline.HandStrengthScorerStage{PreflopTable: handrank.BuildPreflopTable()},
		&pipeline.IntentionMapperStage{Tree: intentionTree},
		&pipeline.ScoreJoinerStage{Normalize: cli.Normalize},
		&pipeline.MaterializerStage{LockPath: filepath.Join(paths.Database, "dashboard_materialize.lock")},
	}
	stages = filterStages(stages, cli.NoScripts, cli.SkipScripts)

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}

	driver := &ingest.Driver{
		Raw:           raw,
		Analytic:      analytic,
		Upstream:      client,
		Organizer:     cfg.Organizer,
		Event:         cfg.Event,
		BatchSize:     batchSize,
		Stages:        stages,
		NormalizeCur:  cfg.NormalizeCur,
		Logger:        logger,
		WriteLockPath: filepath.Join(paths.Database, "analytic.lock"),
	}

	startDate := cli.Date
	if startDate == "" {
		startDate = cfg.StartingDate
	}
	if startDate == "" {
		return fmt.Errorf("no start date: pass a date argument or set STARTING_DATE in config.txt")
	}

	sleepSeconds := cli.Sleep
	if sleepSeconds <= 0 {
		sleepSeconds = 300
	}

	return driver.Loop(ctx, ingest.LoopOptions{
		StartDate:    startDate,
		SleepSeconds: sleepSeconds,
		Hosted:       config.IsHosted(),
		NoClean:      cli.NoClean,
		DataRoot:     paths.Root,
	})
}

// filterStages implements --no-scripts (drop every post-ingest stage) and
// --skip-scripts (drop only the named stages), per spec.md §6.
func filterStages(stages []pipeline.Stage, noScripts bool, skip []string) []pipeline.Stage {
	if noScripts {
		return nil
	}
	if len(skip) == 0 {
		return stages
	}
	skipSet := make(map[string]bool, len(skip))
	for _, name := range skip {
		skipSet[name] = true
	}
	out := make([]pipeline.Stage, 0, len(stages))
	for _, s := range stages {
		if !skipSet[s.Name()] {
			out = append(out, s)
		}
	}
	return out
}

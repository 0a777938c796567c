package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"lapfinder/internal/analysis"
	"lapfinder/internal/config"
	"lapfinder/internal/generate"
	"lapfinder/internal/httpapi"
	"lapfinder/internal/monitoring"
	"lapfinder/internal/remote"
	"lapfinder/internal/service"
	"lapfinder/internal/store"
	"lapfinder/internal/telemetry"
	"lapfinder/internal/tui"
)

// loadConfig reads ~/.lapfinder/config.json, falling back to defaults
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		configDir, _ := config.GetConfigDir()
		return nil, fmt.Errorf("invalid config in %s/config.json: %w", configDir, err)
	}
	return cfg, nil
}

// runInit writes an example config unless one already exists
func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	if err := config.CreateExample(); err != nil {
		return fmt.Errorf("creating example config: %w", err)
	}
	configDir, err := config.GetConfigDir()
	if err != nil {
		return err
	}
	fmt.Printf("Config file at:\n  %s/config.json\n\n", configDir)
	fmt.Println("Add remote.token_url, remote.client_id and remote.client_secret to fetch")
	fmt.Println("telemetry from an authenticated export endpoint.")
	return nil
}

func openStore(cfg *config.Config) (*store.DB, error) {
	db, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func runAnalyze(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defaults := cfg.AnalysisOptions()

	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	segments := fs.Int("segments", defaults.Segments, "number of equal track segments")
	maxDT := fs.Float64("max-dt", -1, "drop sample intervals longer than this many seconds (negative disables)")
	brake := fs.Float64("brake", defaults.BrakeThreshold, "brake threshold in [0,1]")
	throttle := fs.Float64("throttle", defaults.ThrottleThreshold, "throttle threshold in [0,1]")
	format := fs.String("format", "table", "output format: table, json or csv")
	save := fs.Bool("save", false, "save the run to history")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: lapfinder analyze [flags] <file|url>")
		fs.PrintDefaults()
		return errUsage
	}

	opts := analysis.Options{
		Segments:          *segments,
		MaxDT:             defaults.MaxDT,
		BrakeThreshold:    *brake,
		ThrottleThreshold: *throttle,
	}
	if flagSet(fs, "max-dt") {
		opts.MaxDT = nil
		if *maxDT >= 0 {
			opts.MaxDT = maxDT
		}
	}

	var db *store.DB
	if *save {
		if db, err = openStore(cfg); err != nil {
			return err
		}
		defer db.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := service.NewAnalysisService(db, remote.NewClient(cfg.Remote), defaults)
	result, err := svc.AnalyzeSource(ctx, fs.Arg(0), opts, *save)
	if err != nil {
		return err
	}

	if err := writeResult(os.Stdout, *format, result); err != nil {
		return err
	}
	if result.Saved {
		fmt.Fprintf(os.Stderr, "saved run %s\n", result.Run.ID)
	}
	return nil
}

func writeResult(w io.Writer, format string, result *service.RunResult) error {
	switch format {
	case "table":
		_, err := fmt.Fprintln(w, tui.RenderSummary(result))
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result.Reports)
	case "csv":
		return analysis.WriteReportsCSV(w, result.Reports)
	default:
		return fmt.Errorf("unknown format %q (want table, json or csv)", format)
	}
}

func runServe(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", cfg.Server.Addr, "listen address")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := service.NewAnalysisService(db, remote.NewClient(cfg.Remote), cfg.AnalysisOptions())
	server := httpapi.NewServer(httpapi.ServerConfig{
		Address:        *addr,
		Service:        svc,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	})
	return server.Start(ctx)
}

func runGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	seed := fs.Int64("seed", -1, "random seed (negative for a random session)")
	laps := fs.Int("laps", generate.DefaultLaps, "number of laps")
	points := fs.Int("points", generate.DefaultPoints, "samples per lap")
	out := fs.String("out", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	opts := generate.Options{Laps: *laps, Points: *points}
	if *seed >= 0 {
		s := uint64(*seed)
		opts.Seed = &s
	}
	samples := generate.Generate(opts)

	w := io.Writer(os.Stdout)
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if err := telemetry.WriteCSV(w, samples); err != nil {
		return err
	}
	if *out != "" {
		monitoring.Logf("wrote %s samples (%d laps) to %s", humanize.Comma(int64(len(samples))), opts.Laps, *out)
	}
	return nil
}

func runHistory(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	limit := fs.Int("limit", service.DefaultHistoryLimit, "number of runs to list")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := service.NewAnalysisService(db, nil, cfg.AnalysisOptions())
	runs, err := svc.History(*limit)
	if err != nil {
		return err
	}
	total, err := svc.RunCount()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No saved runs. Use 'lapfinder analyze -save <file>'.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWHEN\tSOURCE\tLAPS\tSEGMENTS\tBEST LAP")
	for _, run := range runs {
		best := "-"
		if run.BestLap != nil && run.BestLapTime != nil {
			best = fmt.Sprintf("%d (%s)", *run.BestLap, service.FormatLapTime(*run.BestLapTime))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			run.ID, humanize.Time(run.CreatedAt), run.Source, run.LapCount, run.Segments, best)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if total > len(runs) {
		fmt.Printf("\nShowing %d of %s saved runs. Use -limit to see more.\n", len(runs), humanize.Comma(int64(total)))
	}
	return nil
}

func runView(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("view", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// Keep diagnostic output from tearing the alternate screen
	monitoring.SetLogger(nil)

	svc := service.NewAnalysisService(db, nil, cfg.AnalysisOptions())
	if err := tui.Run(svc, fs.Arg(0), nil); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}

// flagSet reports whether name was given on the command line
func flagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// Command trainlog records, imports and plans training activities.
//
// Usage:
//
//	trainlog [-config path] [-db path] <command> [args]
//
// Commands:
//
//	serve                     run the HTTP API and the live activity engine
//	import [-type t] <file>   import a FIT file
//	export [-out dir] <id>    write an activity's readings to Parquet
//	plan                      generate next week's workouts from history
//	schema <action>           inspect or migrate the database schema
//	version                   print build metadata
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/banshee-data/trainlog/internal/api"
	"github.com/banshee-data/trainlog/internal/config"
	"github.com/banshee-data/trainlog/internal/db"
	"github.com/banshee-data/trainlog/internal/engine"
	"github.com/banshee-data/trainlog/internal/exporter"
	"github.com/banshee-data/trainlog/internal/history"
	"github.com/banshee-data/trainlog/internal/importer"
	"github.com/banshee-data/trainlog/internal/observability"
	"github.com/banshee-data/trainlog/internal/plan"
	"github.com/banshee-data/trainlog/internal/version"
)

var (
	configPath = flag.String("config", "", "Path to a JSON config file (env TRAINLOG_CONFIG)")
	dbPath     = flag.String("db", "", "SQLite database path, overrides the config (env TRAINLOG_DB)")
	listen     = flag.String("listen", "", "Listen address for serve, overrides the config")
	discard    = flag.Bool("discard-orphan", false, "Discard an unfinished activity on startup instead of resuming it")
)

func main() {
	// A missing .env is fine; the environment and flags still apply.
	_ = godotenv.Load()
	flag.Usage = usage
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	switch args[0] {
	case "serve":
		err = serve(cfg)
	case "import":
		err = runImport(cfg, args[1:])
	case "export":
		err = runExport(cfg, args[1:])
	case "plan":
		err = runPlan(cfg)
	case "version":
		fmt.Println(version.String())
	case "schema":
		db.RunSchemaCommand(args[1:], databasePath(cfg))
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] serve|import|export|plan|schema|version [args]\n\n", os.Args[0])
	flag.PrintDefaults()
}

func loadConfig() (*config.Config, error) {
	path := *configPath
	if path == "" {
		path = os.Getenv("TRAINLOG_CONFIG")
	}
	if path == "" {
		return config.Empty(), nil
	}
	return config.Load(path)
}

func databasePath(cfg *config.Config) string {
	if *dbPath != "" {
		return *dbPath
	}
	if p := os.Getenv("TRAINLOG_DB"); p != "" {
		return p
	}
	return cfg.GetDatabasePath()
}

func openDB(cfg *config.Config) (*db.DB, error) {
	d, err := db.NewDB(databasePath(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return d, nil
}

// profile returns the configured profile, taking the weight from the newest
// stored measurement when one exists.
func profile(ctx context.Context, cfg *config.Config, database *db.DB) engine.Profile {
	p := cfg.GetProfile()
	if m, err := database.NewestWeight(ctx); err == nil && m.WeightKg > 0 {
		p.WeightKg = m.WeightKg
	} else if err != nil && !errors.Is(err, db.ErrNotFound) {
		log.Printf("failed to read weight, using configured profile: %v", err)
	}
	return p
}

func serve(cfg *config.Config) error {
	database, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ecfg := cfg.EngineConfig()
	ecfg.Profile = profile(ctx, cfg, database)
	eng := engine.New(database, ecfg)

	id, err := eng.DetectOrphan(ctx)
	if err != nil {
		return fmt.Errorf("failed to check for an unfinished activity: %w", err)
	}
	if id != "" {
		if *discard {
			if err := eng.DiscardOrphan(ctx); err != nil {
				return fmt.Errorf("failed to discard activity %s: %w", id, err)
			}
			log.Printf("discarded unfinished activity %s", id)
		} else {
			if err := eng.RecoverOrphan(ctx); err != nil {
				return fmt.Errorf("failed to recover activity %s: %w", id, err)
			}
			log.Printf("resumed unfinished activity %s", id)
		}
	}

	mux := http.NewServeMux()
	// mount the admin debugging routes (accessible only in dev mode or over Tailscale)
	if err := database.AttachAdminRoutes(mux); err != nil {
		return err
	}
	mux.Handle("/metrics", observability.Handler())

	srv := api.NewServer(database, eng, api.Options{
		Units:     cfg.GetUnits(),
		Profile:   ecfg.Profile,
		Goal:      cfg.GetGoal(),
		Generator: plan.NewGenerator(cfg.GetPlanSeed()),
	})
	mux.Handle("/api/", api.LoggingMiddleware(srv.ServeMux()))

	addr := cfg.GetListenAddr()
	if *listen != "" {
		addr = *listen
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	log.Printf("%s listening on %s", version.String(), addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		stop()
		wg.Wait()
		return fmt.Errorf("failed to start server: %w", err)
	}
	wg.Wait()

	// Leave the live activity stored; the next start detects it as an orphan.
	if st := eng.State(); st.Started() {
		log.Printf("activity %s left %s, it will be offered for recovery on restart", eng.CurrentActivityID(), st)
	}
	log.Printf("Graceful shutdown complete")
	return nil
}

func runImport(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	activityType := fs.String("type", "", "Override the activity type recorded in the file")
	format := fs.String("format", "", "File format, inferred from the extension when empty")
	fs.Parse(args)
	if fs.NArg() == 0 {
		return errors.New("import: at least one file is required")
	}

	database, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	im := importer.New(database, profile(ctx, cfg, database), cfg.GetUserID())
	var failures int
	for _, path := range fs.Args() {
		id, err := im.Import(ctx, path, *format, *activityType)
		switch {
		case errors.Is(err, importer.ErrDuplicate):
			fmt.Printf("%s: already imported as %s\n", path, id)
		case err != nil:
			log.Printf("%s: %v", path, err)
			failures++
		default:
			fmt.Printf("%s: imported as %s\n", path, id)
		}
	}
	if failures > 0 {
		return fmt.Errorf("import: %d of %d files failed", failures, fs.NArg())
	}
	return nil
}

func runExport(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	out := fs.String("out", ".", "Directory to write the export into")
	format := fs.String("format", exporter.FormatParquet, "Export format")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("export: exactly one activity id is required")
	}

	database, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	path, err := exporter.New(database).Export(context.Background(), fs.Arg(0), *format, *out)
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

// runPlan generates a week of workouts starting tomorrow, stores it in
// place of the current plan and prints it as JSON.
func runPlan(cfg *config.Config) error {
	database, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	now := time.Now()
	in, err := history.PlanInputs(ctx, database, now, cfg.GetGoal())
	if err != nil {
		return fmt.Errorf("failed to read training history: %w", err)
	}
	p := plan.NewGenerator(cfg.GetPlanSeed()).Generate(in)
	y, m, d := now.Date()
	plan.Schedule(p.Workouts, time.Date(y, m, d+1, 0, 0, 0, 0, now.Location()))
	if err := database.ReplaceWorkouts(ctx, p.Workouts); err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

// reminderctl is the operator companion to reminderd: it validates
// configuration, loads cohort CSV exports into the source store, and prunes
// the sent-reminder key set.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"reminderbot/internal/config"
	"reminderbot/internal/dedup"
	"reminderbot/internal/importer"
	logx "reminderbot/pkg/logx"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	log := logx.NewConsole("info")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "check-config":
		err = runCheckConfig(os.Args[2:])
	case "import":
		err = runImport(ctx, os.Args[2:], log)
	case "show":
		err = runShow(ctx, os.Args[2:], log)
	case "compact":
		err = runCompact(ctx, os.Args[2:], log)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: reminderctl <command> [flags]

commands:
  check-config  -config <path>                   parse and validate a config file
  import        -config <path> -dir <path>       load cohort CSVs into the source store
  show          -config <path>                   print row counts per table
  compact       -config <path> [-older <dur>]    prune old sent-reminder keys`)
}

func runCheckConfig(args []string) error {
	fs := flag.NewFlagSet("check-config", flag.ExitOnError)
	cfgPath := fs.String("config", "./config.yaml", "path to config yaml")
	_ = fs.Parse(args)

	mgr := config.NewConfigManager(*cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	fmt.Printf("%s: ok (timezone %s, %d class windows, %d assignment windows)\n",
		*cfgPath, loc, len(cfg.ClassWindows()), len(cfg.AssignmentWindows()))
	return nil
}

func runImport(ctx context.Context, args []string, log logx.Logger) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	cfgPath := fs.String("config", "./config.yaml", "path to config yaml")
	dir := fs.String("dir", ".", "directory of cohort CSV files")
	_ = fs.Parse(args)

	cfg, err := config.NewConfigManager(*cfgPath).Load()
	if err != nil {
		return err
	}

	im, err := importer.Open(ctx, cfg.Source.Driver, cfg.Source.DSN, log)
	if err != nil {
		return err
	}
	defer im.Close()

	if err := im.EnsureSchema(ctx); err != nil {
		return err
	}
	sum, err := im.ImportDir(ctx, *dir)
	if err != nil {
		return err
	}
	fmt.Printf("imported %d cohorts: %d students, %d classes, %d assignments\n",
		sum.Cohorts, sum.Students, sum.Classes, sum.Assignments)
	return nil
}

func runShow(ctx context.Context, args []string, log logx.Logger) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	cfgPath := fs.String("config", "./config.yaml", "path to config yaml")
	_ = fs.Parse(args)

	cfg, err := config.NewConfigManager(*cfgPath).Load()
	if err != nil {
		return err
	}

	im, err := importer.Open(ctx, cfg.Source.Driver, cfg.Source.DSN, log)
	if err != nil {
		return err
	}
	defer im.Close()

	counts, err := im.Counts(ctx)
	if err != nil {
		return err
	}
	for _, table := range []string{"students", "classes", "assignments"} {
		fmt.Printf("%-12s %d\n", table, counts[table])
	}
	return nil
}

func runCompact(ctx context.Context, args []string, log logx.Logger) error {
	fs := flag.NewFlagSet("compact", flag.ExitOnError)
	cfgPath := fs.String("config", "./config.yaml", "path to config yaml")
	older := fs.Duration("older", 720*time.Hour, "prune keys older than this")
	_ = fs.Parse(args)

	cfg, err := config.NewConfigManager(*cfgPath).Load()
	if err != nil {
		return err
	}
	busy, err := config.ParseDurationField("dedup.busy_timeout", cfg.Dedup.BusyTimeout)
	if err != nil {
		return err
	}

	store, err := dedup.Open(ctx, dedup.Config{
		Driver:      cfg.Dedup.Driver,
		Path:        cfg.Dedup.Path,
		DSN:         cfg.Dedup.DSN,
		BusyTimeout: busy,
	}, log)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.Compact(ctx, *older)
	if err != nil {
		return err
	}
	fmt.Printf("pruned %d keys older than %s\n", n, older)
	return nil
}

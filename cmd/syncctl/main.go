// Command syncctl runs supplier syncs, raw dumps and bulk imports from the
// shell against the same database and stores as the API server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	importapp "github.com/supplysync/backend/internal/application/import"
	syncapp "github.com/supplysync/backend/internal/application/sync"
	"github.com/supplysync/backend/internal/bootstrap"
	"github.com/supplysync/backend/internal/domain/supplier"
	"github.com/supplysync/backend/internal/infrastructure/config"
	"github.com/supplysync/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

type command struct {
	summary string
	run     func(ctx context.Context, app *bootstrap.App, args []string) error
}

var commands = map[string]command{
	"sync":           {"Sync one provider into the catalog", runSync},
	"dump":           {"Download raw supplier items to the artifact store", runDump},
	"ping":           {"Check that a provider answers", runPing},
	"logs":           {"Show the latest sync runs of a provider", runLogs},
	"account-set":    {"Create or update a provider account", runAccountSet},
	"cleanup-tmp":    {"Remove stale import uploads", runCleanup},
	"template":       {"Print the bulk import template", runTemplate},
	"import-preview": {"Preview a local CSV or JSON file", runImportPreview},
	"import-commit":  {"Import a local CSV or JSON file", runImportCommit},
}

var commandOrder = []string{
	"sync", "dump", "ping", "logs", "account-set",
	"cleanup-tmp", "template", "import-preview", "import-commit",
}

func main() {
	logLevel := flag.String("log-level", "", "Override the configured log level")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	// stdout carries command output
	cfg.Log.Output = "stderr"
	cfg.Log.Format = "console"

	log, err := logger.New(logger.FromAppConfig(cfg.Log))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize application", zap.Error(err))
	}

	runErr := cmd.run(ctx, app, args[1:])
	if err := app.Close(context.Background()); err != nil {
		log.Warn("Error releasing resources", zap.Error(err))
	}
	if runErr != nil {
		if errors.Is(runErr, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Error("Command failed", zap.String("command", args[0]), zap.Error(runErr))
		_ = logger.Sync(log)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `syncctl - supplier sync and bulk import tool

Usage:
  syncctl [-log-level level] <command> [flags]

Commands:`)
	for _, name := range commandOrder {
		fmt.Fprintf(os.Stderr, "  %-15s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(os.Stderr, `
Run "syncctl <command> -h" for the flags of a command.
Configuration comes from config.toml, .env and SUPPLYSYNC_* variables.`)
}

// filterFlags collects repeated -filter key=value pairs
type filterFlags map[string]string

func (f filterFlags) String() string {
	parts := make([]string, 0, len(f))
	for k, v := range f {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (f filterFlags) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(k) == "" {
		return fmt.Errorf("expected key=value, got %q", s)
	}
	f[strings.TrimSpace(k)] = strings.TrimSpace(v)
	return nil
}

// fetchFlags are shared by sync and dump
type fetchFlags struct {
	provider string
	pageSize int
	maxPages int
	limit    int
	mode     string
	bulkSize int
	filters  filterFlags
}

func (f *fetchFlags) register(fs *flag.FlagSet) {
	f.filters = filterFlags{}
	fs.StringVar(&f.provider, "provider", "cj", "Provider code")
	fs.IntVar(&f.pageSize, "page-size", 0, "Listing page size (0 uses the configured default)")
	fs.IntVar(&f.maxPages, "max-pages", 0, "Maximum listing pages (0 uses the configured default)")
	fs.IntVar(&f.limit, "limit", 0, "Stop after this many items (0 means no cap)")
	fs.StringVar(&f.mode, "mode", "per_detail", "Fetch mode: list_only, bulk_detail or per_detail")
	fs.IntVar(&f.bulkSize, "bulk-size", 0, "Identifiers per bulk detail call")
	fs.Var(f.filters, "filter", "Listing filter key=value (repeatable)")
}

func runSync(ctx context.Context, app *bootstrap.App, args []string) error {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	var ff fetchFlags
	ff.register(fs)
	dryRun := fs.Bool("dry-run", false, "Count what would change without writing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	mode, err := supplier.ParseFetchMode(ff.mode)
	if err != nil {
		return err
	}

	result, err := app.Sync.SyncProvider(ctx, syncapp.SyncRequest{
		ProviderCode: ff.provider,
		PageSize:     ff.pageSize,
		MaxPages:     ff.maxPages,
		Limit:        ff.limit,
		Filters:      ff.filters,
		FetchMode:    mode,
		BulkSize:     ff.bulkSize,
		DryRun:       *dryRun,
	})
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runDump(ctx context.Context, app *bootstrap.App, args []string) error {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	var ff fetchFlags
	ff.register(fs)
	format := fs.String("format", "json", "Archive format: json or zip")
	if err := fs.Parse(args); err != nil {
		return err
	}
	mode, err := supplier.ParseFetchMode(ff.mode)
	if err != nil {
		return err
	}
	dumpFormat, err := syncapp.ParseDumpFormat(*format)
	if err != nil {
		return err
	}

	result, err := app.Sync.Dump(ctx, syncapp.DumpRequest{
		ProviderCode: ff.provider,
		PageSize:     ff.pageSize,
		MaxPages:     ff.maxPages,
		Limit:        ff.limit,
		Filters:      ff.filters,
		FetchMode:    mode,
		BulkSize:     ff.bulkSize,
		Format:       dumpFormat,
	})
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runPing(ctx context.Context, app *bootstrap.App, args []string) error {
	fs := flag.NewFlagSet("ping", flag.ContinueOnError)
	provider := fs.String("provider", "cj", "Provider code")
	if err := fs.Parse(args); err != nil {
		return err
	}
	result, err := app.Sync.Ping(ctx, *provider)
	if err != nil {
		return err
	}
	if err := printJSON(result); err != nil {
		return err
	}
	if !result.OK {
		return errors.New("provider did not answer: " + result.Error)
	}
	return nil
}

func runLogs(ctx context.Context, app *bootstrap.App, args []string) error {
	fs := flag.NewFlagSet("logs", flag.ContinueOnError)
	provider := fs.String("provider", "cj", "Provider code")
	limit := fs.Int("limit", 10, "Number of runs")
	if err := fs.Parse(args); err != nil {
		return err
	}
	logs, err := app.Sync.RecentLogs(ctx, *provider, *limit)
	if err != nil {
		return err
	}
	return printJSON(logs)
}

// runAccountSet merges -cred pairs into the active account of the provider,
// creating the account when there is none.
func runAccountSet(ctx context.Context, app *bootstrap.App, args []string) error {
	fs := flag.NewFlagSet("account-set", flag.ContinueOnError)
	provider := fs.String("provider", "cj", "Provider code")
	name := fs.String("name", "", "Display name for a new account")
	creds := filterFlags{}
	fs.Var(creds, "cred", "Credential key=value, e.g. email=ops@example.com (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	account, err := app.Accounts.FindActiveByCode(ctx, *provider)
	switch {
	case errors.Is(err, supplier.ErrAccountNotFound):
		bag := supplier.Credentials{}
		for k, v := range creds {
			bag[k] = v
		}
		if *name == "" {
			*name = strings.ToUpper(*provider)
		}
		account, err = supplier.NewProviderAccount(*provider, *name, bag)
		if err != nil {
			return err
		}
		if err := app.Accounts.Save(ctx, account); err != nil {
			return err
		}
		app.Logger.Info("Provider account created", zap.String("provider", *provider), zap.String("id", account.ID.String()))
	case err != nil:
		return err
	default:
		bag := account.Credentials.Clone()
		for k, v := range creds {
			bag[k] = v
		}
		if err := app.Accounts.UpdateCredentials(ctx, account.ID, bag); err != nil {
			return err
		}
		app.Logger.Info("Provider account updated", zap.String("provider", *provider), zap.String("id", account.ID.String()))
	}
	return nil
}

func runCleanup(ctx context.Context, app *bootstrap.App, args []string) error {
	fs := flag.NewFlagSet("cleanup-tmp", flag.ContinueOnError)
	hours := fs.Int("hours", 0, "Remove uploads older than this many hours (0 uses the configured age)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	removed, err := app.Import.CleanupStaleUploads(ctx, time.Duration(*hours)*time.Hour)
	if err != nil {
		return err
	}
	return printJSON(map[string]int{"removed": removed})
}

func runTemplate(_ context.Context, app *bootstrap.App, args []string) error {
	fs := flag.NewFlagSet("template", flag.ContinueOnError)
	format := fs.String("format", "csv", "Template format: csv or json")
	out := fs.String("out", "", "Write to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	file, err := app.Import.Template(*format)
	if err != nil {
		return err
	}
	if *out == "" {
		_, err = os.Stdout.Write(file.Body)
		return err
	}
	return os.WriteFile(*out, file.Body, 0o644)
}

// importFlags are shared by import-preview and import-commit
type importFlags struct {
	file    string
	upsert  bool
	mapping filterFlags
}

func (f *importFlags) register(fs *flag.FlagSet) {
	f.mapping = filterFlags{}
	fs.StringVar(&f.file, "file", "", "CSV or JSON file to import")
	fs.BoolVar(&f.upsert, "upsert", false, "Update variants whose SKU already exists")
	fs.Var(f.mapping, "map", "Column mapping field=Source Header (repeatable)")
}

// upload stores the local file the same way the HTTP upload does
func (f *importFlags) upload(ctx context.Context, app *bootstrap.App) (string, error) {
	if f.file == "" {
		return "", errors.New("-file is required")
	}
	fh, err := os.Open(f.file)
	if err != nil {
		return "", err
	}
	defer fh.Close()
	return app.Import.SaveUpload(ctx, filepath.Base(f.file), fh)
}

func runImportPreview(ctx context.Context, app *bootstrap.App, args []string) error {
	fs := flag.NewFlagSet("import-preview", flag.ContinueOnError)
	var f importFlags
	f.register(fs)
	page := fs.Int("page", 1, "Preview page")
	perPage := fs.Int("per-page", 50, "Rows per page")
	if err := fs.Parse(args); err != nil {
		return err
	}
	token, err := f.upload(ctx, app)
	if err != nil {
		return err
	}

	result, err := app.Import.Preview(ctx, importapp.PreviewRequest{
		Token:   token,
		Upsert:  f.upsert,
		Mapping: f.mapping,
		Page:    *page,
		PerPage: *perPage,
	})
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runImportCommit(ctx context.Context, app *bootstrap.App, args []string) error {
	fs := flag.NewFlagSet("import-commit", flag.ContinueOnError)
	var f importFlags
	f.register(fs)
	dryRun := fs.Bool("dry-run", false, "Validate and count without writing")
	importedBy := fs.String("imported-by", "", "User ID recorded on the import log")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var importer *uuid.UUID
	if *importedBy != "" {
		id, err := uuid.Parse(*importedBy)
		if err != nil {
			return fmt.Errorf("-imported-by: %w", err)
		}
		importer = &id
	}

	token, err := f.upload(ctx, app)
	if err != nil {
		return err
	}
	result, err := app.Import.Commit(ctx, importapp.CommitRequest{
		Token:      token,
		Upsert:     f.upsert,
		DryRun:     *dryRun,
		Mapping:    f.mapping,
		ImportedBy: importer,
	})
	if err != nil {
		return err
	}
	return printJSON(result)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Command cirestore restores the configuration repository into the object
// store and optionally queues search index rebuilds afterwards.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/google/uuid"

	"github.com/pateepk/agilesite-ci/internal/config"
	"github.com/pateepk/agilesite-ci/internal/lock"
	"github.com/pateepk/agilesite-ci/internal/log"
	"github.com/pateepk/agilesite-ci/internal/model"
	"github.com/pateepk/agilesite-ci/internal/orchestrator"
	"github.com/pateepk/agilesite-ci/internal/provider"
	"github.com/pateepk/agilesite-ci/internal/repoconfig"
	"github.com/pateepk/agilesite-ci/internal/repository"
	"github.com/pateepk/agilesite-ci/internal/searchindex"
	"github.com/pateepk/agilesite-ci/internal/storage"
	"github.com/pateepk/agilesite-ci/internal/textenc"
)

const (
	exitSuccess      = 0
	exitError        = 1
	exitUnrecognized = 2
)

const helpText = `cirestore - restore the CI repository into the database

Usage:
  cirestore -r        Restore all objects from the repository
  cirestore -r -i     Restore, then create search index rebuild tasks

Flags:
  -r, --restore                  Restore objects from the repository
  -i, --rebuild-search-indexes   Create search index rebuild tasks after the restore

The configuration is read from $CISYNC_CONFIG or ./cisync.yaml.

Exit codes:
  0  success
  1  an error occurred or the restore was cancelled
  2  unrecognized arguments
`

type options struct {
	rebuildSearchIndexes bool
}

func main() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, sigCh))
}

// parseArgs accepts exactly the restore flag, optionally followed or preceded
// by the search index flag.
func parseArgs(args []string) (options, bool) {
	var (
		opts    options
		restore bool
	)
	if len(args) == 0 || len(args) > 2 {
		return opts, false
	}
	for _, a := range args {
		switch a {
		case "-r", "--restore":
			if restore {
				return opts, false
			}
			restore = true
		case "-i", "--rebuild-search-indexes":
			if opts.rebuildSearchIndexes {
				return opts, false
			}
			opts.rebuildSearchIndexes = true
		default:
			return opts, false
		}
	}
	return opts, restore
}

// syncWriter serializes progress output with the signal handler's notice.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) println(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, format+"\n", args...)
}

func run(args []string, stdout, stderr io.Writer, sigCh <-chan os.Signal) int {
	opts, ok := parseArgs(args)
	if !ok {
		fmt.Fprint(stdout, helpText)
		return exitUnrecognized
	}

	cfg, err := config.LoadOrDefault()
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return exitError
	}
	log.Setup(cfg.Log.Level, cfg.Log.Format)
	logger := log.WithComponent("cirestore")

	out := &syncWriter{w: stdout}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		cancelMu  sync.Mutex
		cancelled bool
	)
	isCancelled := func() bool {
		cancelMu.Lock()
		defer cancelMu.Unlock()
		return cancelled
	}
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received termination signal", "signal", sig)
			cancelMu.Lock()
			cancelled = true
			cancelMu.Unlock()
			out.println("Cancelling the restore, waiting for the current object to finish...")
			cancel()
		case <-ctx.Done():
		}
	}()

	code, err := restore(ctx, cfg, opts, out)
	if err != nil {
		if isCancelled() || errors.Is(err, context.Canceled) {
			return exitError
		}
		fmt.Fprintf(stderr, "Restore failed: %v\n", err)
		logger.Error("restore failed", "error", err)
		return exitError
	}
	return code
}

func restore(ctx context.Context, cfg *config.Config, opts options, out *syncWriter) (int, error) {
	enc, err := cfg.Encoding()
	if err != nil {
		return exitError, err
	}
	textenc.SetCurrent(enc)

	catalog, err := cfg.Catalog()
	if err != nil {
		return exitError, err
	}
	rules, err := repoconfig.Load(cfg.RulesPath())
	if err != nil {
		return exitError, err
	}
	repoCfg, err := repository.NewConfig(cfg.Repository.Path, enc, rules, catalog)
	if err != nil {
		return exitError, err
	}

	runID := uuid.NewString()
	runLock, err := lock.Acquire(cfg.LockPath(), runID)
	if err != nil {
		return exitError, err
	}
	defer runLock.Release()

	db, err := storage.OpenSQLite(ctx, cfg.State.Path)
	if err != nil {
		return exitError, err
	}
	defer db.Close()

	p := provider.NewSQLite(db, catalog)
	restorer := orchestrator.NewRestorer(repoCfg, p, nil, orchestrator.Options{
		Retry: orchestrator.RetryPolicy{
			MaxRetries:      cfg.Restore.MaxRetries,
			InitialInterval: cfg.Restore.RetryInterval,
		},
		DeleteMissing: cfg.Restore.DeleteMissing,
		RunID:         runID,
	})

	res, err := restorer.RestoreAll(ctx, func(msg string) { out.println("%s", msg) })
	if err != nil {
		return exitError, err
	}

	printSection(out, "Warnings", res.Warnings)
	printSection(out, "Errors", res.Errors)

	if res.Cancelled {
		out.println("The restore was cancelled. Objects restored so far were kept; run the restore again to reach a consistent state.")
		return exitError, nil
	}
	if !res.Success {
		out.println("The restore finished with %d error(s). Fix them and run the restore again.", len(res.Errors))
		return exitError, nil
	}

	if opts.rebuildSearchIndexes {
		ids, err := searchindex.New(db).EnqueueRebuild(ctx, searchableTypes(repoCfg), runID)
		if err != nil {
			return exitError, fmt.Errorf("create search index tasks: %w", err)
		}
		out.println("Created %d search index rebuild task(s).", len(ids))
	}

	out.println("The restore finished successfully.")
	return exitSuccess, nil
}

func searchableTypes(cfg *repository.Config) []*model.TypeInfo {
	var out []*model.TypeInfo
	for _, info := range cfg.Catalog.Supported() {
		if info.Searchable && cfg.Rules.IsTypeIncluded(info.Name) {
			out = append(out, info)
		}
	}
	return out
}

func printSection(out *syncWriter, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	out.println("")
	out.println("%s (%d):", title, len(lines))
	for _, l := range lines {
		out.println("  %s", l)
	}
}

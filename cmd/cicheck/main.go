// Command cicheck verifies that two repository trees are identical. With
// -regenerate it first serializes the object store into a fresh tree and
// compares that against the reference tree.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pateepk/agilesite-ci/internal/compare"
	"github.com/pateepk/agilesite-ci/internal/config"
	"github.com/pateepk/agilesite-ci/internal/log"
	"github.com/pateepk/agilesite-ci/internal/orchestrator"
	"github.com/pateepk/agilesite-ci/internal/provider"
	"github.com/pateepk/agilesite-ci/internal/repoconfig"
	"github.com/pateepk/agilesite-ci/internal/repository"
	"github.com/pateepk/agilesite-ci/internal/storage"
	"github.com/pateepk/agilesite-ci/internal/textenc"
)

const (
	exitClean    = 0
	exitIssues   = 1
	exitBadUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func usage(w io.Writer) {
	fmt.Fprint(w, `Usage:
  cicheck <original-dir> <new-dir>
  cicheck -regenerate <output-dir> <original-dir>

Compares two repository trees and prints every missing, extra or changed
file. With -regenerate the object store is first serialized into
<output-dir>, which is then compared against <original-dir>.
`)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("cicheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { usage(stderr) }
	regenerate := fs.String("regenerate", "", "Serialize the object store into this directory before comparing")
	if err := fs.Parse(args); err != nil {
		return exitBadUsage
	}

	var originalRoot, newRoot string
	switch {
	case *regenerate != "" && fs.NArg() == 1:
		originalRoot, newRoot = fs.Arg(0), *regenerate
	case *regenerate == "" && fs.NArg() == 2:
		originalRoot, newRoot = fs.Arg(0), fs.Arg(1)
	default:
		usage(stderr)
		return exitBadUsage
	}

	if *regenerate != "" {
		if err := regenerateTree(ctx, *regenerate, stdout); err != nil {
			fmt.Fprintf(stderr, "Regeneration failed: %v\n", err)
			return exitIssues
		}
	}

	issues, err := compare.Compare(originalRoot, newRoot)
	if err != nil {
		fmt.Fprintf(stderr, "Comparison failed: %v\n", err)
		return exitIssues
	}
	for _, issue := range issues {
		fmt.Fprintln(stdout, issue.String())
	}
	if len(issues) > 0 {
		fmt.Fprintf(stdout, "%d issue(s) found.\n", len(issues))
		return exitIssues
	}
	fmt.Fprintln(stdout, "The trees are identical.")
	return exitClean
}

// regenerateTree serializes the configured object store into dir. The
// repository rules come from the configured repository.
func regenerateTree(ctx context.Context, dir string, stdout io.Writer) error {
	cfg, err := config.LoadOrDefault()
	if err != nil {
		return err
	}
	log.Setup(cfg.Log.Level, cfg.Log.Format)

	enc, err := cfg.Encoding()
	if err != nil {
		return err
	}
	textenc.SetCurrent(enc)

	catalog, err := cfg.Catalog()
	if err != nil {
		return err
	}
	rules, err := repoconfig.Load(cfg.RulesPath())
	if err != nil {
		return err
	}
	repoCfg, err := repository.NewConfig(dir, enc, rules, catalog)
	if err != nil {
		return err
	}

	db, err := storage.OpenSQLite(ctx, cfg.State.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	res, err := orchestrator.NewSerializer(repoCfg, provider.NewSQLite(db, catalog), nil).StoreAll(ctx, func(msg string) {
		fmt.Fprintln(stdout, msg)
	})
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(stdout, "warning: %s\n", w)
	}
	if res.Cancelled {
		return context.Canceled
	}
	if !res.Success {
		for _, e := range res.Errors {
			fmt.Fprintf(stdout, "error: %s\n", e)
		}
		return fmt.Errorf("serialization finished with %d error(s)", len(res.Errors))
	}
	return copyRules(cfg.RulesPath(), repoCfg.RulesPath())
}

// copyRules places the repository configuration next to the regenerated
// objects so that it does not show up as a missing file.
func copyRules(src, dst string) error {
	data, err := os.ReadFile(src)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return nil
}

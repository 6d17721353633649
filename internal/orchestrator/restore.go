package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pateepk/agilesite-ci/internal/job"
	"github.com/pateepk/agilesite-ci/internal/log"
	"github.com/pateepk/agilesite-ci/internal/model"
	"github.com/pateepk/agilesite-ci/internal/provider"
	"github.com/pateepk/agilesite-ci/internal/repository"
)

// CancelledMessage is emitted once when a restore is cancelled.
const CancelledMessage = "Restore was cancelled."

// Options tune a restore run.
type Options struct {
	Retry RetryPolicy

	// DeleteMissing removes store objects of restored types that have no
	// file in the repository.
	DeleteMissing bool

	// RunID tags log records of the run. A random id is used when empty.
	RunID string
}

// Restorer restores a repository into the store.
type Restorer struct {
	cfg      *repository.Config
	provider provider.Provider
	jobs     *job.Registries
	opts     Options
}

// NewRestorer creates a Restorer. A nil jobs uses the default registries.
func NewRestorer(cfg *repository.Config, p provider.Provider, jobs *job.Registries, opts Options) *Restorer {
	if jobs == nil {
		jobs = job.NewRegistries(p)
	}
	return &Restorer{cfg: cfg, provider: p, jobs: jobs, opts: opts}
}

// restoreRun is the state of one RestoreAll call.
type restoreRun struct {
	*run
	r      *Restorer
	logger *slog.Logger
}

// RestoreAll restores every object file of the repository. onMessage receives
// progress messages synchronously and may be nil. The returned error is set
// only for problems that prevent the run from starting; everything else is
// reported in the Result.
func (r *Restorer) RestoreAll(ctx context.Context, onMessage func(string)) (*Result, error) {
	runID := r.opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	rr := &restoreRun{
		run:    newRun(ctx, onMessage, CancelledMessage),
		r:      r,
		logger: log.WithRun(runID).With("component", "restore"),
	}
	res := rr.result

	rr.emit("Restoring objects from %s", r.cfg.Root)
	snap, err := r.cfg.Discover(ctx)
	if err != nil {
		if ctx.Err() != nil {
			rr.stopped()
			return res.finish(), nil
		}
		return nil, err
	}
	res.Warnings = append(res.Warnings, snap.Warnings...)
	for _, name := range r.cfg.Rules.UnknownTypes(r.cfg.Catalog) {
		res.warnf("%s names unknown object type %q", r.cfg.RulesPath(), name)
	}

	var infos []*model.TypeInfo
	for _, name := range snap.Types() {
		info, ok := r.cfg.Catalog.Get(name)
		if !ok {
			continue
		}
		if !info.ContinuousIntegration {
			res.warnf("object type %s does not support continuous integration, its files are skipped", name)
			continue
		}
		if !r.cfg.Rules.IsTypeIncluded(name) {
			rr.logger.Debug("object type excluded", "object_type", name)
			continue
		}
		infos = append(infos, info)
	}

	ordered, err := Order(infos)
	if err != nil {
		return nil, err
	}

	for _, info := range ordered {
		if rr.stopped() {
			break
		}
		rr.restoreType(info, snap.Files[info.Name])
	}

	res.finish()
	if !res.Cancelled {
		rr.emit("Restore finished with %d error(s)", len(res.Errors))
	}
	rr.logger.Info("restore finished", "errors", len(res.Errors), "warnings", len(res.Warnings), "cancelled", res.Cancelled)
	return res, nil
}

func (rr *restoreRun) restoreType(info *model.TypeInfo, files []*repository.File) {
	logger := rr.logger.With("object_type", info.Name)
	rr.emit("Restoring %s (%d file(s))", info.Name, len(files))

	keys := map[string]struct{}{}
	failed := false
	var deferred []*repository.File

	for _, f := range files {
		if rr.stopped() {
			return
		}
		out, err := rr.restoreFile(info, f)
		for _, k := range out.Keys {
			keys[k] = struct{}{}
		}
		switch {
		case err == nil:
			rr.emitOutcome(f, out)
		case errors.Is(err, job.ErrParentMissing):
			deferred = append(deferred, f)
		case rr.ctx.Err() != nil:
			rr.stopped()
			return
		default:
			failed = true
			rr.result.errorf("%s: %v", f.RelPath, err)
			logger.Warn("restore failed", "path", f.RelPath, "error", err)
		}
	}

	// Objects may reference parents of the same type restored later in the
	// pass. Retry until nothing changes.
	for len(deferred) > 0 {
		var still []*repository.File
		errs := map[string]error{}
		for _, f := range deferred {
			if rr.stopped() {
				return
			}
			out, err := rr.restoreFile(info, f)
			if err != nil {
				if rr.ctx.Err() != nil {
					rr.stopped()
					return
				}
				still = append(still, f)
				errs[f.RelPath] = err
				continue
			}
			rr.emitOutcome(f, out)
		}
		if len(still) == len(deferred) {
			for _, f := range still {
				failed = true
				rr.result.errorf("%s: %v", f.RelPath, errs[f.RelPath])
			}
			break
		}
		deferred = still
	}

	if rr.r.opts.DeleteMissing && !failed && !rr.result.Cancelled {
		rr.deleteMissing(info, keys)
	}
}

func (rr *restoreRun) emitOutcome(f *repository.File, out job.Outcome) {
	if out.Skipped && out.Writes == 0 {
		rr.emit("Skipped %s", f.RelPath)
		return
	}
	rr.emit("Restored %s", f.RelPath)
}

func (rr *restoreRun) restoreFile(info *model.TypeInfo, f *repository.File) (job.Outcome, error) {
	var out job.Outcome
	err := rr.r.opts.Retry.Do(rr.ctx, func() error {
		var err error
		out, err = rr.r.jobs.Restore.Get(info, rr.r.cfg).Execute(rr.ctx, info, f)
		return err
	})
	return out, err
}

func (rr *restoreRun) deleteMissing(info *model.TypeInfo, keys map[string]struct{}) {
	objs, err := rr.r.provider.List(rr.ctx, info.Name, provider.Filter{})
	if err != nil {
		rr.result.errorf("list %s: %v", info.Name, err)
		return
	}
	for _, obj := range objs {
		if rr.stopped() {
			return
		}
		if _, ok := keys[obj.Key()]; ok {
			continue
		}
		if rr.r.cfg.Rules.IsObjectExcluded(info.Name, obj.CodeName) {
			continue
		}
		err := rr.r.opts.Retry.Do(rr.ctx, func() error {
			return rr.r.provider.Delete(rr.ctx, info.Name, obj.Site, obj.CodeName)
		})
		if err != nil && !errors.Is(err, provider.ErrNotFound) {
			rr.result.errorf("delete %s %q: %v", info.Name, obj.CodeName, err)
			continue
		}
		rr.emit("Deleted %s %s", info.Name, describe(obj))
	}
}

func describe(obj *model.Object) string {
	if obj.Site == "" {
		return fmt.Sprintf("%q", obj.CodeName)
	}
	return fmt.Sprintf("%q (site %s)", obj.CodeName, obj.Site)
}

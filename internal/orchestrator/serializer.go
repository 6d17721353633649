package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/pateepk/agilesite-ci/internal/job"
	"github.com/pateepk/agilesite-ci/internal/log"
	"github.com/pateepk/agilesite-ci/internal/model"
	"github.com/pateepk/agilesite-ci/internal/provider"
	"github.com/pateepk/agilesite-ci/internal/repository"
)

// StoreCancelledMessage is emitted once when serialization is cancelled.
const StoreCancelledMessage = "Serialization was cancelled."

// Change is one object change to replay into the repository.
type Change struct {
	Kind   job.Kind
	Object *model.Object
}

// Serializer writes store content into a repository.
type Serializer struct {
	cfg      *repository.Config
	provider provider.Provider
	jobs     *job.Registries
	logger   *slog.Logger
}

// NewSerializer creates a Serializer. A nil jobs uses the default registries.
func NewSerializer(cfg *repository.Config, p provider.Provider, jobs *job.Registries) *Serializer {
	if jobs == nil {
		jobs = job.NewRegistries(p)
	}
	return &Serializer{cfg: cfg, provider: p, jobs: jobs, logger: log.WithComponent("serializer")}
}

// StoreAll writes every included object of every supported type and removes
// files the store no longer backs.
func (s *Serializer) StoreAll(ctx context.Context, onMessage func(string)) (*Result, error) {
	rn := newRun(ctx, onMessage, StoreCancelledMessage)
	res := rn.result

	var infos []*model.TypeInfo
	for _, info := range s.cfg.Catalog.Supported() {
		if s.cfg.Rules.IsTypeIncluded(info.Name) {
			infos = append(infos, info)
		}
	}
	ordered, err := Order(infos)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.cfg.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create repository root: %w", err)
	}
	snap, err := s.cfg.Discover(ctx)
	if err != nil {
		if ctx.Err() != nil {
			rn.stopped()
			return res.finish(), nil
		}
		return nil, err
	}
	res.Warnings = append(res.Warnings, snap.Warnings...)

	rn.emit("Serializing objects to %s", s.cfg.Root)
	for _, info := range ordered {
		if rn.stopped() {
			break
		}
		objs, err := s.provider.List(ctx, info.Name, provider.Filter{})
		if err != nil {
			res.errorf("list %s: %v", info.Name, err)
			continue
		}
		rn.emit("Serializing %s (%d object(s))", info.Name, len(objs))
		if info.ByType {
			s.storeBatch(rn, info, objs)
			continue
		}
		s.storeObjects(rn, info, objs, snap.Files[info.Name])
	}

	res.finish()
	s.logger.Info("serialization finished", "errors", len(res.Errors), "cancelled", res.Cancelled)
	return res, nil
}

func (s *Serializer) storeObjects(rn *run, info *model.TypeInfo, objs []*model.Object, existing []*repository.File) {
	written := map[string]struct{}{}
	for _, obj := range objs {
		if rn.stopped() {
			return
		}
		j, err := s.jobs.ObjectJob(job.KindStore, info, s.cfg)
		if err != nil {
			rn.result.errorf("%s %q: %v", info.Name, obj.CodeName, err)
			return
		}
		out, err := j.Execute(rn.ctx, info, obj)
		if err != nil {
			if rn.stopped() {
				return
			}
			rn.result.errorf("store %s %q: %v", info.Name, obj.CodeName, err)
			// Keep the old file rather than treating it as stale.
			written[repository.ObjectPath(info, obj)] = struct{}{}
			continue
		}
		for _, p := range out.Paths {
			written[p] = struct{}{}
		}
	}

	for _, f := range existing {
		if _, ok := written[f.RelPath]; ok {
			continue
		}
		if _, err := s.cfg.Remove(f.RelPath); err != nil {
			rn.result.errorf("remove stale %s: %v", f.RelPath, err)
		}
	}
}

func (s *Serializer) storeBatch(rn *run, info *model.TypeInfo, objs []*model.Object) {
	current := map[string]struct{}{}
	for _, obj := range objs {
		current[obj.Key()] = struct{}{}
	}

	var stale []*model.Object
	text, err := s.cfg.Read(repository.BatchPath(info))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		rn.result.errorf("read %s: %v", repository.BatchPath(info), err)
		return
	default:
		old, err := repository.UnmarshalBatch(text)
		if err != nil {
			rn.result.errorf("parse %s: %v", repository.BatchPath(info), err)
			return
		}
		for _, o := range old {
			if _, ok := current[o.Key()]; !ok {
				stale = append(stale, o)
			}
		}
	}

	if len(stale) > 0 {
		if err := s.runTypeJob(rn.ctx, job.KindDeleteByType, info, stale); err != nil {
			rn.result.errorf("%v", err)
			return
		}
	}
	if len(objs) > 0 {
		if err := s.runTypeJob(rn.ctx, job.KindUpsertByType, info, objs); err != nil {
			rn.result.errorf("%v", err)
		}
	}
}

func (s *Serializer) runTypeJob(ctx context.Context, kind job.Kind, info *model.TypeInfo, batch []*model.Object) error {
	j, err := s.jobs.TypeJob(kind, info, s.cfg)
	if err != nil {
		return err
	}
	if _, err := j.Execute(ctx, info, batch); err != nil {
		return fmt.Errorf("%s %s: %w", kind, info.Name, err)
	}
	return nil
}

type batchKey struct {
	objectType string
	kind       job.Kind
}

// Apply replays changes in order. Changes of by-type types are grouped by type
// and kind and applied as one batch each after the single-object changes.
func (s *Serializer) Apply(ctx context.Context, changes []Change) (*Result, error) {
	rn := newRun(ctx, nil, StoreCancelledMessage)
	res := rn.result

	var order []batchKey
	groups := map[batchKey][]*model.Object{}
	infos := map[string]*model.TypeInfo{}

	for _, ch := range changes {
		if rn.stopped() {
			return res.finish(), nil
		}
		if ch.Object == nil {
			return nil, fmt.Errorf("%w: change without object", job.ErrInvalidArgument)
		}
		info, err := s.provider.TypeInfo(ch.Object.Type)
		if err != nil {
			res.errorf("%s %q: %v", ch.Object.Type, ch.Object.CodeName, err)
			continue
		}

		if info.ByType {
			kind := ch.Kind
			switch kind {
			case job.KindStore:
				kind = job.KindUpsertByType
			case job.KindDelete:
				kind = job.KindDeleteByType
			}
			key := batchKey{objectType: info.Name, kind: kind}
			if _, ok := groups[key]; !ok {
				order = append(order, key)
			}
			groups[key] = append(groups[key], ch.Object)
			infos[info.Name] = info
			continue
		}

		j, err := s.jobs.ObjectJob(ch.Kind, info, s.cfg)
		if err != nil {
			return nil, err
		}
		if _, err := j.Execute(ctx, info, ch.Object); err != nil {
			if rn.stopped() {
				return res.finish(), nil
			}
			res.errorf("%s %s %q: %v", ch.Kind, info.Name, ch.Object.CodeName, err)
		}
	}

	for _, key := range order {
		if rn.stopped() {
			break
		}
		if err := s.runTypeJob(ctx, key.kind, infos[key.objectType], groups[key]); err != nil {
			if errors.Is(err, job.ErrInvalidArgument) {
				return nil, err
			}
			res.errorf("%v", err)
		}
	}
	return res.finish(), nil
}

package job

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/pateepk/agilesite-ci/internal/model"
	"github.com/pateepk/agilesite-ci/internal/repository"
)

// included reports whether obj passes the repository rules.
func included(cfg *repository.Config, info *model.TypeInfo, obj *model.Object) bool {
	if !cfg.Rules.IsTypeIncluded(info.Name) {
		return false
	}
	return obj == nil || !cfg.Rules.IsObjectExcluded(info.Name, obj.CodeName)
}

type storeJob struct {
	cfg *repository.Config
}

// NewStoreJob returns the default Store job.
func NewStoreJob(cfg *repository.Config) ObjectJob {
	return &storeJob{cfg: cfg}
}

func (j *storeJob) Execute(ctx context.Context, info *model.TypeInfo, obj *model.Object) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	if info.ByType {
		return NewUpsertByTypeJob(j.cfg).Execute(ctx, info, []*model.Object{obj})
	}
	if !included(j.cfg, info, obj) {
		return Outcome{Skipped: true}, nil
	}

	rel := repository.ObjectPath(info, obj)
	text, err := j.cfg.Marshal(info, obj)
	if err != nil {
		return Outcome{}, fmt.Errorf("serialize %s %q: %w", info.Name, obj.CodeName, err)
	}
	changed, err := j.cfg.Write(rel, text)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{Paths: []string{rel}}
	if changed {
		out.Writes = 1
	}
	return out, nil
}

type deleteJob struct {
	cfg *repository.Config
}

// NewDeleteJob returns the default Delete job.
func NewDeleteJob(cfg *repository.Config) ObjectJob {
	return &deleteJob{cfg: cfg}
}

func (j *deleteJob) Execute(ctx context.Context, info *model.TypeInfo, obj *model.Object) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	if info.ByType {
		return NewDeleteByTypeJob(j.cfg).Execute(ctx, info, []*model.Object{obj})
	}
	if !j.cfg.Rules.IsTypeIncluded(info.Name) {
		return Outcome{Skipped: true}, nil
	}

	rel := repository.ObjectPath(info, obj)
	removed, err := j.cfg.Remove(rel)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{Paths: []string{rel}}
	if removed {
		out.Writes = 1
	}
	return out, nil
}

// batchEditor merges changes into a by-type batch file.
type batchEditor struct {
	cfg  *repository.Config
	info *model.TypeInfo
	rel  string
}

func (e *batchEditor) load() (map[string]*model.Object, error) {
	text, err := e.cfg.Read(e.rel)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]*model.Object{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", e.rel, err)
	}
	objs, err := repository.UnmarshalBatch(text)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", e.rel, err)
	}
	m := make(map[string]*model.Object, len(objs))
	for _, o := range objs {
		m[o.Key()] = o
	}
	return m, nil
}

func (e *batchEditor) save(set map[string]*model.Object) (bool, error) {
	if len(set) == 0 {
		return e.cfg.Remove(e.rel)
	}
	objs := make([]*model.Object, 0, len(set))
	for _, o := range set {
		objs = append(objs, o)
	}
	text, err := e.cfg.MarshalBatch(e.info, objs)
	if err != nil {
		return false, fmt.Errorf("serialize %s: %w", e.rel, err)
	}
	return e.cfg.Write(e.rel, text)
}

// apply runs edit over batch. Optimized types are saved once; others once per
// object, which ends in the same content.
func (e *batchEditor) apply(ctx context.Context, batch []*model.Object, edit func(set map[string]*model.Object, obj *model.Object)) (Outcome, error) {
	set, err := e.load()
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{Paths: []string{e.rel}}
	for _, obj := range batch {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		edit(set, obj)
		if e.info.Optimize {
			continue
		}
		changed, err := e.save(set)
		if err != nil {
			return out, err
		}
		if changed {
			out.Writes++
		}
	}

	if e.info.Optimize {
		changed, err := e.save(set)
		if err != nil {
			return out, err
		}
		if changed {
			out.Writes++
		}
	}
	return out, nil
}

type upsertByTypeJob struct {
	cfg *repository.Config
}

// NewUpsertByTypeJob returns the default UpsertObjectsByType job.
func NewUpsertByTypeJob(cfg *repository.Config) TypeJob {
	return &upsertByTypeJob{cfg: cfg}
}

func (j *upsertByTypeJob) Execute(ctx context.Context, info *model.TypeInfo, batch []*model.Object) (Outcome, error) {
	kept := make([]*model.Object, 0, len(batch))
	for _, obj := range batch {
		if included(j.cfg, info, obj) {
			kept = append(kept, obj)
		}
	}
	if len(kept) == 0 {
		return Outcome{Skipped: true}, nil
	}

	e := &batchEditor{cfg: j.cfg, info: info, rel: repository.BatchPath(info)}
	return e.apply(ctx, kept, func(set map[string]*model.Object, obj *model.Object) {
		set[obj.Key()] = obj
	})
}

type deleteByTypeJob struct {
	cfg *repository.Config
}

// NewDeleteByTypeJob returns the default DeleteObjectsByType job.
func NewDeleteByTypeJob(cfg *repository.Config) TypeJob {
	return &deleteByTypeJob{cfg: cfg}
}

func (j *deleteByTypeJob) Execute(ctx context.Context, info *model.TypeInfo, batch []*model.Object) (Outcome, error) {
	if !j.cfg.Rules.IsTypeIncluded(info.Name) || len(batch) == 0 {
		return Outcome{Skipped: true}, nil
	}

	e := &batchEditor{cfg: j.cfg, info: info, rel: repository.BatchPath(info)}
	return e.apply(ctx, batch, func(set map[string]*model.Object, obj *model.Object) {
		delete(set, obj.Key())
	})
}

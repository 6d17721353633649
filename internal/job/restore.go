package job

import (
	"context"
	"errors"
	"fmt"

	"github.com/pateepk/agilesite-ci/internal/model"
	"github.com/pateepk/agilesite-ci/internal/provider"
	"github.com/pateepk/agilesite-ci/internal/repository"
)

type restoreJob struct {
	cfg      *repository.Config
	provider provider.Provider
}

// NewRestoreJob returns the default Restore job writing through p.
func NewRestoreJob(cfg *repository.Config, p provider.Provider) RestoreJob {
	return &restoreJob{cfg: cfg, provider: p}
}

func (j *restoreJob) Execute(ctx context.Context, info *model.TypeInfo, file *repository.File) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	out := Outcome{Paths: []string{file.RelPath}}
	if !j.cfg.Rules.IsTypeIncluded(info.Name) {
		out.Skipped = true
		return out, nil
	}

	raw, err := file.Content()
	if err != nil {
		return out, fmt.Errorf("read %s: %w", file.RelPath, err)
	}
	text, err := j.cfg.Decode(raw)
	if err != nil {
		return out, fmt.Errorf("decode %s: %w", file.RelPath, err)
	}

	if !info.ByType && !file.IsBatch() {
		obj, err := repository.UnmarshalObject(text)
		if err != nil {
			return out, fmt.Errorf("parse %s: %w", file.RelPath, err)
		}
		out.Keys = append(out.Keys, obj.Key())
		wrote, err := j.restoreOne(ctx, info, obj)
		if err != nil {
			return out, err
		}
		if wrote {
			out.Writes++
		} else {
			out.Skipped = true
		}
		return out, nil
	}

	objs, err := repository.UnmarshalBatch(text)
	if err != nil {
		return out, fmt.Errorf("parse %s: %w", file.RelPath, err)
	}
	for _, obj := range objs {
		out.Keys = append(out.Keys, obj.Key())
	}

	var errs []error
	for _, obj := range objs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		wrote, err := j.restoreOne(ctx, info, obj)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if wrote {
			out.Writes++
		}
	}
	return out, errors.Join(errs...)
}

// restoreOne writes obj to the store. It reports false for excluded objects.
func (j *restoreJob) restoreOne(ctx context.Context, info *model.TypeInfo, obj *model.Object) (bool, error) {
	if obj.Type != info.Name {
		return false, fmt.Errorf("%w: %s %q found in %s directory", ErrTypeMismatch, obj.Type, obj.CodeName, info.Name)
	}
	if j.cfg.Rules.IsObjectExcluded(info.Name, obj.CodeName) {
		return false, nil
	}

	if info.ParentType != "" && obj.Parent != "" {
		if err := j.checkParent(ctx, info, obj); err != nil {
			return false, err
		}
	}

	if err := j.provider.Put(ctx, obj); err != nil {
		return false, fmt.Errorf("write %s %q: %w", info.Name, obj.CodeName, err)
	}
	return true, nil
}

func (j *restoreJob) checkParent(ctx context.Context, info *model.TypeInfo, obj *model.Object) error {
	parentInfo, err := j.provider.TypeInfo(info.ParentType)
	if err != nil {
		return fmt.Errorf("resolve parent type of %s: %w", info.Name, err)
	}
	site := ""
	if parentInfo.SiteScoped {
		site = obj.Site
	}

	_, err = j.provider.Get(ctx, parentInfo.Name, site, obj.Parent)
	if errors.Is(err, provider.ErrNotFound) && site != "" {
		_, err = j.provider.Get(ctx, parentInfo.Name, "", obj.Parent)
	}
	if errors.Is(err, provider.ErrNotFound) {
		return fmt.Errorf("%w: %s %q references %s %q", ErrParentMissing, info.Name, obj.CodeName, parentInfo.Name, obj.Parent)
	}
	if err != nil {
		return fmt.Errorf("look up parent of %s %q: %w", info.Name, obj.CodeName, err)
	}
	return nil
}

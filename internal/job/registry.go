package job

import (
	"fmt"

	"github.com/pateepk/agilesite-ci/internal/model"
	"github.com/pateepk/agilesite-ci/internal/provider"
	"github.com/pateepk/agilesite-ci/internal/repository"
)

// Registries holds one factory per job kind. It is owned by the engine that
// runs jobs and passed explicitly.
type Registries struct {
	Store        *Factory[ObjectJob]
	Delete       *Factory[ObjectJob]
	UpsertByType *Factory[TypeJob]
	DeleteByType *Factory[TypeJob]
	Restore      *Factory[RestoreJob]
}

// NewRegistries creates registries populated with the default jobs. Restore
// jobs write through p.
func NewRegistries(p provider.Provider) *Registries {
	return &Registries{
		Store:        mustFactory[ObjectJob](KindStore, NewStoreJob),
		Delete:       mustFactory[ObjectJob](KindDelete, NewDeleteJob),
		UpsertByType: mustFactory[TypeJob](KindUpsertByType, NewUpsertByTypeJob),
		DeleteByType: mustFactory[TypeJob](KindDeleteByType, NewDeleteByTypeJob),
		Restore: mustFactory[RestoreJob](KindRestore, func(cfg *repository.Config) RestoreJob {
			return NewRestoreJob(cfg, p)
		}),
	}
}

// ObjectJob resolves a single-object job of kind for info.
func (r *Registries) ObjectJob(kind Kind, info *model.TypeInfo, cfg *repository.Config) (ObjectJob, error) {
	switch kind {
	case KindStore:
		return r.Store.Get(info, cfg), nil
	case KindDelete:
		return r.Delete.Get(info, cfg), nil
	default:
		return nil, fmt.Errorf("%w: %s is not a single-object job", ErrInvalidArgument, kind)
	}
}

// TypeJob resolves a by-type job of kind for info. Store and Delete map to
// their by-type counterparts.
func (r *Registries) TypeJob(kind Kind, info *model.TypeInfo, cfg *repository.Config) (TypeJob, error) {
	switch kind {
	case KindUpsertByType, KindStore:
		return r.UpsertByType.Get(info, cfg), nil
	case KindDeleteByType, KindDelete:
		return r.DeleteByType.Get(info, cfg), nil
	default:
		return nil, fmt.Errorf("%w: %s is not a by-type job", ErrInvalidArgument, kind)
	}
}

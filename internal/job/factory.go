package job

import (
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/pateepk/agilesite-ci/internal/model"
	"github.com/pateepk/agilesite-ci/internal/repository"
)

// FactoryFunc creates a job bound to cfg.
type FactoryFunc[J any] func(cfg *repository.Config) J

// Factory resolves the job implementation for an object type. Lookups try the
// type name, then the type's original type, then the default. Registrations
// and lookups are safe for concurrent use.
type Factory[J any] struct {
	kind     Kind
	jobs     *xsync.MapOf[string, FactoryFunc[J]]
	fallback FactoryFunc[J]
}

// NewFactory creates a factory for kind with a mandatory default.
func NewFactory[J any](kind Kind, fallback FactoryFunc[J]) (*Factory[J], error) {
	if fallback == nil {
		return nil, fmt.Errorf("%w: default %s job factory is nil", ErrInvalidArgument, kind)
	}
	return &Factory[J]{
		kind:     kind,
		jobs:     xsync.NewMapOf[string, FactoryFunc[J]](),
		fallback: fallback,
	}, nil
}

func mustFactory[J any](kind Kind, fallback FactoryFunc[J]) *Factory[J] {
	f, err := NewFactory(kind, fallback)
	if err != nil {
		panic(err)
	}
	return f
}

// Kind returns the job kind the factory produces.
func (f *Factory[J]) Kind() Kind {
	return f.kind
}

// Register sets the factory for objectType. The last registration wins.
func (f *Factory[J]) Register(objectType string, fn FactoryFunc[J]) error {
	key := model.NormalizeType(objectType)
	if key == "" {
		return fmt.Errorf("%w: object type is empty", ErrInvalidArgument)
	}
	if fn == nil {
		return fmt.Errorf("%w: %s job factory for %q is nil", ErrInvalidArgument, f.kind, objectType)
	}
	f.jobs.Store(key, fn)
	return nil
}

// Unregister removes the factory for objectType.
func (f *Factory[J]) Unregister(objectType string) {
	f.jobs.Delete(model.NormalizeType(objectType))
}

// Get creates the job for info bound to cfg. It never returns a nil factory
// result because the default covers every type.
func (f *Factory[J]) Get(info *model.TypeInfo, cfg *repository.Config) J {
	for _, key := range LookupKeys(info) {
		if fn, ok := f.jobs.Load(key); ok {
			return fn(cfg)
		}
	}
	return f.fallback(cfg)
}

// LookupKeys returns the registry keys tried for info, in order.
func LookupKeys(info *model.TypeInfo) []string {
	keys := []string{info.Key()}
	if orig := model.NormalizeType(info.OriginalType); orig != "" && orig != keys[0] {
		keys = append(keys, orig)
	}
	return keys
}

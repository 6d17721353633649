package job

import (
	"context"
	"errors"
	"fmt"

	"github.com/pateepk/agilesite-ci/internal/model"
	"github.com/pateepk/agilesite-ci/internal/repository"
)

var (
	// ErrInvalidArgument is returned for empty registrations.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrParentMissing is returned when a restored object references a parent
	// that is not in the store yet.
	ErrParentMissing = errors.New("parent object missing")

	// ErrTypeMismatch is returned when a file holds an object of another type.
	ErrTypeMismatch = errors.New("object type mismatch")
)

// Kind identifies a job variant.
type Kind int

const (
	KindStore Kind = iota + 1
	KindDelete
	KindUpsertByType
	KindDeleteByType
	KindRestore
)

func (k Kind) String() string {
	switch k {
	case KindStore:
		return "store"
	case KindDelete:
		return "delete"
	case KindUpsertByType:
		return "upsert-by-type"
	case KindDeleteByType:
		return "delete-by-type"
	case KindRestore:
		return "restore"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Outcome describes what a job did.
type Outcome struct {
	// Paths are the repository paths the job produced or consumed.
	Paths []string

	// Writes counts file writes, file removals and store writes that changed
	// something.
	Writes int

	// Skipped is set when inclusion rules left nothing to do.
	Skipped bool

	// Keys holds the identities of every object found in a restored file,
	// including excluded ones.
	Keys []string
}

// ObjectJob handles a single object.
type ObjectJob interface {
	Execute(ctx context.Context, info *model.TypeInfo, obj *model.Object) (Outcome, error)
}

// TypeJob handles a batch of objects of one type.
type TypeJob interface {
	Execute(ctx context.Context, info *model.TypeInfo, batch []*model.Object) (Outcome, error)
}

// RestoreJob restores the object(s) held by one repository file.
type RestoreJob interface {
	Execute(ctx context.Context, info *model.TypeInfo, file *repository.File) (Outcome, error)
}

// ObjectJobFunc adapts a function to ObjectJob.
type ObjectJobFunc func(ctx context.Context, info *model.TypeInfo, obj *model.Object) (Outcome, error)

func (f ObjectJobFunc) Execute(ctx context.Context, info *model.TypeInfo, obj *model.Object) (Outcome, error) {
	return f(ctx, info, obj)
}

// TypeJobFunc adapts a function to TypeJob.
type TypeJobFunc func(ctx context.Context, info *model.TypeInfo, batch []*model.Object) (Outcome, error)

func (f TypeJobFunc) Execute(ctx context.Context, info *model.TypeInfo, batch []*model.Object) (Outcome, error) {
	return f(ctx, info, batch)
}

// RestoreJobFunc adapts a function to RestoreJob.
type RestoreJobFunc func(ctx context.Context, info *model.TypeInfo, file *repository.File) (Outcome, error)

func (f RestoreJobFunc) Execute(ctx context.Context, info *model.TypeInfo, file *repository.File) (Outcome, error) {
	return f(ctx, info, file)
}

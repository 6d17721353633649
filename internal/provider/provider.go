// Package provider is the boundary between the synchronization engine and the
// relational store. The engine only relies on the verbs of Provider; SQLite is
// the implementation shipped with this module.
package provider

import (
	"context"
	"errors"

	"github.com/pateepk/agilesite-ci/internal/model"
)

//go:generate mockgen -destination=mocks/mock_provider.go -package=mocks github.com/pateepk/agilesite-ci/internal/provider Provider

var (
	// ErrNotFound is returned when an object does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrUnknownType is returned for object types missing from the catalog.
	ErrUnknownType = errors.New("unknown object type")
)

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Sites  []string
	Parent string
}

// Provider reads and writes configuration objects.
type Provider interface {
	// TypeInfo returns the descriptor registered for name.
	TypeInfo(name string) (*model.TypeInfo, error)

	// Get reads one object identified by type, site and code name.
	Get(ctx context.Context, objectType, site, codeName string) (*model.Object, error)

	// Put inserts or updates obj, matched by type, site and code name. It
	// fills in obj.ID and, when empty, obj.GUID.
	Put(ctx context.Context, obj *model.Object) error

	// Delete removes one object. It returns ErrNotFound when nothing was deleted.
	Delete(ctx context.Context, objectType, site, codeName string) error

	// List returns every object of objectType matching filter, ordered by
	// site and code name.
	List(ctx context.Context, objectType string, filter Filter) ([]*model.Object, error)
}

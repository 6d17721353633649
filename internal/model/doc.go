// Package model defines object type descriptors, the catalog they are
// registered in, and the generic in-memory form of a configuration object.
//
// A TypeInfo is registered once at process start and is treated as immutable
// afterwards. Type names are case-insensitive and globally unique.
package model

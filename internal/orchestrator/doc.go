// Package orchestrator drives whole-repository runs.
//
// Restorer.RestoreAll walks a repository, orders the object types it finds so
// that parents and dependencies come first, and restores every file through
// the Restore job registered for its type. Failures of single objects are
// collected and the run continues. Cancellation stops the run before the next
// type or object.
//
// A partial restore is not rolled back. Objects restored before a failure or
// a cancellation stay in the store; run a full restore again to converge.
//
// Serializer is the opposite direction: it writes store content into a
// repository, either completely (StoreAll) or as a replay of changes (Apply).
package orchestrator

// Package job translates objects into repository file operations and back.
//
// A job is created fresh for every object or batch by a Factory and is bound to
// one repository.Config. Jobs never retry; errors go back to the caller, which
// owns the retry policy.
//
// Job kinds form a closed set:
//   - Store: write one object to its canonical path
//   - Delete: remove one object's file; a missing file is not an error
//   - UpsertByType / DeleteByType: merge a batch into a type's batch file
//   - Restore: read one repository file and write its object(s) to the store
package job

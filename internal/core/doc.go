// Package core provides the business logic of the compatibility catalog.
//
// It sits between the transports (HTTP handlers in internal/web, the
// catalogctl CLI) and storage, and can be used by either without
// modification.
//
// # Imports
//
// A catalog import replaces the whole catalog:
//
//  1. [Service.PreviewImport] parses a file and reports what would be stored
//  2. [Service.CommitImport] parses it again, then deletes every record and
//     inserts the new batch in one transaction
//  3. the search snapshot is invalidated so the next search sees the new
//     catalog
//
// Imports are bounded by an [ImportLimiter]. A failed commit returns an
// [*IngestionError] and leaves the previous catalog in place.
//
// # Search and sampling
//
// [Service.Search] ranks records by approximate model name through a cached
// snapshot (see internal/search). [Service.Sample] returns random records.
//
// # Callers
//
// Mutations require an authenticated caller placed in the context with
// [WithCaller]; otherwise they fail with [ErrUnauthorized].
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each category has a code for support reference:
//
//   - IMP001-IMP003: Import errors (no valid rows, unreadable file)
//   - UPL001-UPL005: Upload errors (busy, cancelled, timeout, size)
//   - DB001-DB005: Database errors
//   - REC001, VAL001, AUTH001, RATE001
package core

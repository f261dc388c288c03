// ABOUTME: Package documentation for the content store
// ABOUTME: See store.go for the Store interface and sqlite.go for the engine

// Package store persists the Glingo content catalog and learner progress
// in an embedded SQLite database.
//
// The catalog is hierarchical: levels contain series and books, books
// contain an ordered chapter list, chapters contain ordered lesson lists,
// and each lesson may carry one quiz. Exams sit beside the book hierarchy,
// scoped only to a level. Spaced-repetition progress (card state, review
// history, daily rollups) and learner accounts share the same database.
//
// Open brings the schema to the current version with idempotent,
// transactional migrations. Contention and the self-healing reset path are
// reported through an optional warning callback rather than as errors.
// Reads treat absence as (nil, nil), deletes of absent keys succeed, and
// writes stamp createdAt/updatedAt by fetching the prior record first.
package store

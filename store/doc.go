// Package store persists crdt view snapshots to PostgreSQL so a
// replica can recover its state across restarts instead of relying
// purely on replayed sync traffic. It is grounded on the teacher's
// gorm-based PostgreSQLAuthenticator connection pattern, repurposed
// from looking up user credentials to storing and loading opaque,
// JSON-encoded view snapshots keyed by view name.
package store

// Package repositories implements SQLite persistence for tasks, channels and publishes.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// Tasks and channels support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [TaskRepository] : editing tasks and their workflow status
//   - [RevisionRepository] : uploaded cuts of a task; the newest one is published
//   - [CommentRepository] : the task audit trail
//   - [ChannelRepository] : publish destinations and their owning account
//   - [PublishRepository] : one row per publish request with its outcome
//
// Sequence numbers provide stable, human-readable ordering (e.g., task #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
// Never call it while holding a transaction: in-memory databases run on a single connection.
package repositories

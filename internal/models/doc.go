// Package models defines domain entities for the ytpub publish pipeline.
//
// The package contains two categories of types:
//
// 1. Persistent Entities: database-backed records owned by the task workflow
//   - [Task] : editing task with a workflow status
//   - [Revision] : one uploaded cut of a task's video; the newest is published
//   - [Comment] : audit trail entry on a task
//   - [Channel] : external publish destination bound to an owner account
//
// 2. Publish Values: immutable snapshots flowing through the pipeline
//   - [Metadata] and [Chapter] : what gets published
//   - [PublishRequest] : the unit of work consumed once by a worker
//   - [UploadOutcome] : terminal result, with the thumbnail tracked separately
//   - [TaskExport] : a task with its revisions, comments and publishes
//
// [PublishState] enumerates the stages of the publish state machine. Terminal states
// ([StateSucceeded], [StateFailed]) are sticky.
package models

// Package tasks runs the publish pipeline for editing tasks.
//
// # Stages
//
// A publish moves through a fixed sequence of [models.PublishState] values:
//
//  1. validating : synchronous, inside [Publisher.Submit]
//     - loads the task, its latest revision and the target channel
//     - validates metadata and renders the chapter section
//     - checks the channel's owner has a stored refresh token, without network calls
//
//  2. credential_resolving : exchanges the refresh token for an access token
//  3. uploading : streams the revision's binary with its metadata
//  4. thumbnail_attaching : best effort, never fails the publish
//  5. finalizing : records the video id, completes the task and appends an audit comment
//
// Stages 2 through 5 run on a [Pool] worker. Any failure moves the request to failed and
// records the stage it happened in on the publishes row.
//
// # Progress Reporting
//
// Callers may pass a channel in [SubmitInput]. Updates are sent with select and default,
// so a slow reader drops updates instead of stalling an upload. Use [Publisher.Wait] for
// the terminal outcome.
//
// # Scheduling
//
// [Pool] bounds concurrent uploads and paces job starts with a token bucket. Submission
// never blocks: a full queue is reported to the caller as [shared.ErrQueueFull].
package tasks

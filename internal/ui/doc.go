// Package ui renders a foreground publish in the terminal using bubbletea's Elm architecture.
//
// The [Model] shows the publish stages as a checklist, a spinner on the active stage and
// a progress bar while the binary uploads. Progress updates arrive on the channel passed
// to the publisher; the terminal outcome comes from [Waiter.Wait], so dropped updates never
// leave the view hanging.
//
// Pressing d detaches: the view exits while the publish keeps running in the worker pool.
//
// The package also exports the lipgloss palette ([Success], [Failure], [Warning], [Muted])
// used for plain CLI output.
package ui

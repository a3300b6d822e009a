package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/ytpub/internal/models"
	"github.com/desertthunder/ytpub/internal/tasks"
)

const maxBarWidth = 60

var stages = []struct {
	state models.PublishState
	label string
}{
	{models.StateCredentialResolving, "Resolve credentials"},
	{models.StateUploading, "Upload video"},
	{models.StateThumbnailAttaching, "Attach thumbnail"},
	{models.StateFinalizing, "Record outcome"},
}

// Waiter blocks until a publish is terminal. Implemented by [tasks.Publisher].
type Waiter interface {
	Wait(ctx context.Context, requestID string) (*models.UploadOutcome, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	req      *models.PublishRequest
	updates  <-chan tasks.ProgressUpdate
	waiter   Waiter
	spinner  spinner.Model
	bar      progress.Model
	help     help.Model
	keys     keyMap
	width    int
	latest   tasks.ProgressUpdate
	outcome  *models.UploadOutcome
	err      error
	done     bool
	detached bool
}

// NewModel creates a progress view for req, reading updates until waiter reports the outcome.
func NewModel(ctx context.Context, req *models.PublishRequest, updates <-chan tasks.ProgressUpdate, waiter Waiter) *Model {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.warn))

	return &Model{
		ctx:     ctx,
		req:     req,
		updates: updates,
		waiter:  waiter,
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(maxBarWidth)),
		help:    help.New(),
		keys:    newKeyMap(),
		latest:  tasks.ProgressUpdate{Phase: models.StateValidating},
	}
}

// Outcome returns the terminal outcome, or nil when the view was left early.
func (m *Model) Outcome() (*models.UploadOutcome, error) {
	return m.outcome, m.err
}

// Detached reports whether the user left the view before the publish finished.
func (m *Model) Detached() bool {
	return m.detached
}

// Init starts the spinner and both listeners.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForProgress(), m.waitForOutcome())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(max(msg.Width-4, 10), maxBarWidth)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.quit), key.Matches(msg, m.keys.detach):
			if !m.done {
				m.detached = true
			}
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		model, cmd := m.bar.Update(msg)
		m.bar = model.(progress.Model)
		return m, cmd

	case Msg:
		return m.handle(msg)
	}

	return m, nil
}

func (m *Model) handle(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgProgressUpdate:
		update := msg.data.(tasks.ProgressUpdate)
		if m.done {
			return m, nil
		}
		m.latest = update

		var cmd tea.Cmd
		if update.Phase == models.StateUploading {
			cmd = m.bar.SetPercent(update.Fraction)
		}
		return m, tea.Batch(cmd, m.waitForProgress())

	case MsgPublishComplete:
		result := msg.data.(publishResult)
		m.outcome = result.outcome
		m.err = result.err
		m.done = true
		if result.outcome != nil && result.outcome.Succeeded() {
			return m, tea.Sequence(m.bar.SetPercent(1), tea.Quit)
		}
		return m, tea.Quit
	}

	return m, nil
}

// View renders the stage checklist, the upload bar and the final outcome.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render(fmt.Sprintf("Publishing %q to %s", m.req.Metadata.Title, m.req.Channel.Name)))
	b.WriteString("\n")

	for _, st := range stages {
		b.WriteString(m.renderStage(st.state, st.label))
		b.WriteString("\n")
	}

	if m.latest.Phase == models.StateUploading && !m.done {
		b.WriteString("\n")
		b.WriteString(m.bar.View())
		b.WriteString("\n")
		b.WriteString(styles.help.Render(fmt.Sprintf("%s sent", formatBytes(m.latest.Bytes))))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case m.err != nil:
		b.WriteString(styles.err.Render(fmt.Sprintf("✗ %v", m.err)))
	case m.outcome != nil:
		b.WriteString(renderOutcome(m.outcome))
	case m.detached:
		b.WriteString(styles.warn.Render("Detached; the publish continues in the background."))
	default:
		b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	}
	b.WriteString("\n")

	return b.String()
}

func (m *Model) renderStage(state models.PublishState, label string) string {
	current := m.latest.Phase
	if m.outcome != nil {
		current = m.outcome.Stage
	}

	reached := stageIndex(current)
	idx := stageIndex(state)

	switch {
	case m.outcome != nil && m.outcome.State == models.StateFailed && idx == reached:
		return styles.err.Render("✗ " + label)
	case m.outcome != nil && m.outcome.Succeeded() && idx <= reached:
		if state == models.StateThumbnailAttaching {
			return renderThumbnail(m.outcome.Thumbnail, label)
		}
		return styles.ok.Render("✓ " + label)
	case idx < reached:
		return styles.ok.Render("✓ " + label)
	case idx == reached:
		return fmt.Sprintf("%s %s", m.spinner.View(), label)
	default:
		return styles.help.Render("· " + label)
	}
}

func renderThumbnail(state models.ThumbnailState, label string) string {
	switch state {
	case models.ThumbnailAttached:
		return styles.ok.Render("✓ " + label)
	case models.ThumbnailFailed:
		return styles.warn.Render("! " + label + " (failed)")
	case models.ThumbnailSkipped:
		return styles.help.Render("- " + label + " (skipped)")
	default:
		return styles.help.Render("- " + label + " (none)")
	}
}

func renderOutcome(o *models.UploadOutcome) string {
	if !o.Succeeded() {
		return styles.err.Render(fmt.Sprintf("✗ Failed at %s: %s", o.Stage, o.Error))
	}
	return styles.box.Render(fmt.Sprintf("%s\n%s\n%s",
		styles.ok.Render("✓ Published"),
		o.WatchURL,
		styles.help.Render("video id "+o.VideoID),
	))
}

func stageIndex(state models.PublishState) int {
	for i, st := range stages {
		if st.state == state {
			return i
		}
	}
	if state == models.StateSucceeded || state == models.StateFailed {
		return len(stages) - 1
	}
	return -1
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		if m.updates == nil {
			return nil
		}
		select {
		case update := <-m.updates:
			return progressUpdateMsg(update)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) waitForOutcome() tea.Cmd {
	return func() tea.Msg {
		outcome, err := m.waiter.Wait(m.ctx, m.req.ID)
		return publishCompleteMsg(outcome, err)
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

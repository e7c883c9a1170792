// Package tui renders batch progress in a terminal.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ternarybob/seoforge/internal/models"
)

const (
	defaultWidth  = 80
	maxBarWidth   = 72
	recentItemCap = 8
)

// ProgressMsg carries the latest run progress.
type ProgressMsg models.RunProgress

// ItemMsg reports an item that reached a terminal state.
type ItemMsg models.WorkItem

// CredentialsInvalidMsg reports that the generator rejected the API key.
type CredentialsInvalidMsg struct{}

// DoneMsg ends the program once the run has released the processor.
type DoneMsg struct {
	Progress models.RunProgress
	Err      error
}

// ProgressModel is the Bubble Tea model for a running batch.
type ProgressModel struct {
	title    string
	bar      progress.Model
	progress models.RunProgress
	recent   []models.WorkItem
	width    int

	credentialsInvalid bool
	cancelling         bool
	cancel             func()

	done bool
	err  error
}

// NewProgressModel creates the model. cancel is invoked on the first
// ctrl+c / q; a second press quits immediately.
func NewProgressModel(title string, total int, cancel func()) ProgressModel {
	return ProgressModel{
		title:    title,
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(maxBarWidth)),
		progress: models.RunProgress{Total: total, Running: true},
		width:    defaultWidth,
		cancel:   cancel,
	}
}

// Init initializes the model (Bubble Tea interface).
func (m ProgressModel) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model state (Bubble Tea interface).
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(max(msg.Width-4, 10), maxBarWidth)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if m.cancelling {
				return m, tea.Quit
			}
			m.cancelling = true
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, nil

	case ProgressMsg:
		// Progress can arrive out of order; completed never moves backwards
		if msg.Completed >= m.progress.Completed {
			m.progress = models.RunProgress(msg)
		}
		return m, nil

	case ItemMsg:
		m.recent = append(m.recent, models.WorkItem(msg))
		if len(m.recent) > recentItemCap {
			m.recent = m.recent[len(m.recent)-recentItemCap:]
		}
		return m, nil

	case CredentialsInvalidMsg:
		m.credentialsInvalid = true
		return m, nil

	case DoneMsg:
		m.done = true
		m.err = msg.Err
		if msg.Progress.RunID != "" || msg.Progress.Total > 0 {
			m.progress = msg.Progress
		}
		return m, tea.Quit
	}

	return m, nil
}

// View renders the model (Bubble Tea interface).
func (m ProgressModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")

	p := m.progress
	b.WriteString(m.bar.ViewAs(float64(p.Percent) / 100))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s   %s %s   %s %s\n",
		labelStyle.Render("done"), valueStyle.Render(fmt.Sprintf("%d/%d", p.Completed, p.Total)),
		labelStyle.Render("ok"), successStyle.Render(fmt.Sprint(p.Succeeded)),
		labelStyle.Render("failed"), errorStyle.Render(fmt.Sprint(p.Failed)),
	)

	if len(m.recent) > 0 {
		b.WriteString("\n")
		for _, item := range m.recent {
			b.WriteString(m.itemLine(item))
			b.WriteString("\n")
		}
	}

	if m.credentialsInvalid {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("API key rejected by the generator. Update it and rerun the failed rows."))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case m.done:
	case m.cancelling:
		b.WriteString(warningStyle.Render("Cancelling: waiting for in-flight items (press again to quit)"))
	default:
		b.WriteString(helpStyle.Render("q / ctrl+c: stop after in-flight items"))
	}
	b.WriteString("\n")

	return b.String()
}

func (m ProgressModel) itemLine(item models.WorkItem) string {
	keyword := truncate(item.Keyword, max(m.width-30, 20))
	switch item.Status {
	case models.ItemStatusCompleted:
		return fmt.Sprintf("  %s #%d %s", successStyle.Render("✓"), item.Index, keyword)
	case models.ItemStatusError:
		return fmt.Sprintf("  %s #%d %s %s", errorStyle.Render("✗"), item.Index, keyword,
			labelStyle.Render(truncate(item.ErrorMessage, 60)))
	default:
		return fmt.Sprintf("  · #%d %s", item.Index, keyword)
	}
}

// Err returns the run error delivered with DoneMsg.
func (m ProgressModel) Err() error {
	return m.err
}

// Progress returns the last progress the model saw.
func (m ProgressModel) Progress() models.RunProgress {
	return m.progress
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

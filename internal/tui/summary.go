package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ternarybob/seoforge/internal/models"
)

// Summary is what a finished CLI batch reports
type Summary struct {
	Progress models.RunProgress
	Stats    models.ItemStats
	Elapsed  time.Duration
	Files    []string
	Failures []models.WorkItem
}

// RenderSummary renders the run totals, failed rows and written files
func RenderSummary(s Summary) string {
	var b strings.Builder

	status := successStyle.Render("completed")
	switch {
	case s.Progress.Cancelled:
		status = warningStyle.Render("cancelled")
	case s.Progress.Failed > 0:
		status = warningStyle.Render("completed with errors")
	}
	fmt.Fprintf(&b, "%s %s\n", titleStyle.Render("Batch run"), status)

	totals := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(labelStyle).
		Headers("Selected", "Succeeded", "Failed", "Elapsed", "Pending", "Completed (all)").
		Row(
			fmt.Sprint(s.Progress.Total),
			fmt.Sprint(s.Progress.Succeeded),
			fmt.Sprint(s.Progress.Failed),
			s.Elapsed.Round(time.Second).String(),
			fmt.Sprint(s.Stats.Pending),
			fmt.Sprint(s.Stats.Completed),
		)
	b.WriteString(totals.String())
	b.WriteString("\n")

	if len(s.Failures) > 0 {
		failures := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(labelStyle).
			Headers("#", "Keyword", "Error")
		for _, item := range s.Failures {
			failures.Row(fmt.Sprint(item.Index), truncate(item.Keyword, 40), truncate(item.ErrorMessage, 60))
		}
		b.WriteString(errorStyle.Render("Failed rows"))
		b.WriteString("\n")
		b.WriteString(failures.String())
		b.WriteString("\n")
	}

	for _, file := range s.Files {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("wrote"), valueStyle.Render(file))
	}

	return b.String()
}

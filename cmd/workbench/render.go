package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/anyme123/claude-workbench/ledger"
	"github.com/anyme123/claude-workbench/stream"
)

var (
	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	thinkingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	toolStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)
)

func renderTimeline(msgs []stream.Message) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Timeline"))
	b.WriteString("\n")

	for _, m := range msgs {
		switch m.Kind {
		case stream.KindSystemInit:
			b.WriteString(metaStyle.Render(fmt.Sprintf("session %s started (%s)", m.SessionID, m.Model)))
		case stream.KindSystemInfo:
			b.WriteString(metaStyle.Render(m.Text))
		case stream.KindSystemError:
			b.WriteString(errorStyle.Render("error: " + m.Text))
		case stream.KindUser:
			b.WriteString(userStyle.Render("> ") + m.Text)
		case stream.KindAssistant:
			b.WriteString(assistantStyle.Render(m.Text))
		case stream.KindThinking:
			b.WriteString(thinkingStyle.Render(m.Thinking))
		case stream.KindToolUse:
			label := m.ToolName
			if m.Provisional {
				label += " (running)"
			}
			b.WriteString(toolStyle.Render("⚙ " + label))
			if m.ToolResult != nil {
				b.WriteString("\n")
				b.WriteString(metaStyle.Render(fmt.Sprintf("  %v", m.ToolResult)))
			}
		case stream.KindToolResult:
			b.WriteString(metaStyle.Render(fmt.Sprintf("  → %v", m.ToolResult)))
		case stream.KindResult:
			line := "turn complete"
			if !m.Success {
				line = "turn failed"
			}
			if m.CostUSD > 0 {
				line += fmt.Sprintf(" ($%.4f)", m.CostUSD)
			}
			if m.Usage != nil {
				line += fmt.Sprintf(" [%d in / %d out]", m.Usage.InputTokens, m.Usage.OutputTokens)
			}
			b.WriteString(metaStyle.Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func renderRecords(records []ledger.Record) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Ledger"))
	b.WriteString("\n")
	if len(records) == 0 {
		b.WriteString(metaStyle.Render("no records"))
		b.WriteString("\n")
		return b.String()
	}
	for _, r := range records {
		status := "in flight"
		if r.CompletedAt != nil {
			status = "completed"
		}
		b.WriteString(fmt.Sprintf("%s %s\n",
			userStyle.Render(fmt.Sprintf("#%d", r.PromptIndex)),
			truncate(r.PromptText, 60)))
		b.WriteString(metaStyle.Render(fmt.Sprintf("   %s  %s → %s",
			status, short(r.CommitBefore), short(r.CommitAfter))))
		b.WriteString("\n")
	}
	return b.String()
}

func short(commit string) string {
	if len(commit) > 8 {
		return commit[:8]
	}
	if commit == "" {
		return "-"
	}
	return commit
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}

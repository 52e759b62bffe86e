package tui

import (
	"fmt"
	"strings"

	"arxiv_rag_go_backend/internal/mathtext"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Background(lipgloss.Color("62")).Foreground(lipgloss.Color("230")).Padding(0, 1)
	onlineStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	offlineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("124")).Padding(0, 1)
	paperStyle    = lipgloss.NewStyle().Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	mathStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("81"))
	sectionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Bold(true)
)

func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("ArXiv RAG"))
	b.WriteString("  ")
	b.WriteString(m.livenessView())
	b.WriteString("\n\n")

	b.WriteString(m.search.View())
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(m.resultsView())
	b.WriteString("\n")
	b.WriteString(m.pagerView())
	b.WriteString("\n\n")

	b.WriteString(m.question.View())
	if m.asking {
		b.WriteString(" " + m.spinner.View() + " thinking...")
	}
	b.WriteString("\n\n")
	if m.answer != nil {
		b.WriteString(m.answerVP.View())
		b.WriteString("\n")
	}

	b.WriteString(mutedStyle.Render(helpLine()))
	return b.String()
}

func (m *Model) livenessView() string {
	switch m.live {
	case livenessOnline:
		return onlineStyle.Render("● online")
	case livenessOffline:
		return offlineStyle.Render("● offline")
	default:
		return mutedStyle.Render("○ checking")
	}
}

func (m *Model) resultsView() string {
	if m.searching {
		return m.spinner.View() + " Searching..."
	}
	if m.results == nil {
		return mutedStyle.Render("Type to search arXiv.")
	}
	if len(m.results.Papers) == 0 {
		return mutedStyle.Render("No papers on this page.")
	}

	var b strings.Builder
	offset := (m.page - 1) * m.PageSize()
	for i, p := range m.results.Papers {
		fmt.Fprintf(&b, "%2d. %s\n", offset+i+1, paperStyle.Render(p.Title))
		meta := fmt.Sprintf("    %s · %s · %s", p.PaperID, p.Published, authorsLine(p.Authors, 3))
		b.WriteString(mutedStyle.Render(meta))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) pagerView() string {
	prev, next := "‹ prev", "next ›"
	if m.PrevDisabled() {
		prev = mutedStyle.Render(prev)
	}
	if m.NextDisabled() {
		next = mutedStyle.Render(next)
	}

	total, pages := 0, 0
	if m.results != nil {
		total, pages = m.results.Total, m.results.TotalPages
	}

	sizes := make([]string, len(PageSizes))
	for i, s := range PageSizes {
		if i == m.pageSizeIdx {
			sizes[i] = selectedStyle.Render(fmt.Sprintf("[%d]", s))
		} else {
			sizes[i] = fmt.Sprintf(" %d ", s)
		}
	}

	return fmt.Sprintf("%s  Page %d/%d (%d papers)  %s   Page size:%s   Sort: %s",
		prev, m.page, pages, total, next, strings.Join(sizes, ""), sortOrders[m.sortIdx])
}

// refreshAnswer lays out the answer with formulas held as placeholders and
// then typesets them, so wrapping is computed on the surrounding text.
func (m *Model) refreshAnswer() {
	if m.answer == nil {
		m.answerVP.SetContent("")
		return
	}
	width := max(m.answerVP.Width, 20)

	text, spans := mathtext.Extract(m.answer.Answer)
	wrapped := lipgloss.NewStyle().Width(width).Render(text)
	body := mathtext.Fill(wrapped, spans, func(s string) string { return mathStyle.Render(s) })

	var b strings.Builder
	b.WriteString(sectionStyle.Render("Answer"))
	b.WriteString("\n")
	b.WriteString(body)
	if len(m.answer.Citations) > 0 {
		b.WriteString("\n\n")
		b.WriteString(sectionStyle.Render("Citations"))
		b.WriteString("\n")
		for i, c := range m.answer.Citations {
			fmt.Fprintf(&b, "[%d] %s (%s, chunk %d)\n", i+1, c.Title, c.PaperID, c.ChunkIndex)
			b.WriteString(mutedStyle.Width(width).Render("    " + c.Content))
			b.WriteString("\n")
		}
	}
	m.answerVP.SetContent(b.String())
}

func authorsLine(authors []string, limit int) string {
	if len(authors) <= limit {
		return strings.Join(authors, ", ")
	}
	return strings.Join(authors[:limit], ", ") + " et al."
}

func helpLine() string {
	bindings := []struct{ key, desc string }{
		{keys.Submit.Help().Key, keys.Submit.Help().Desc},
		{keys.Focus.Help().Key, keys.Focus.Help().Desc},
		{keys.PrevPage.Help().Key, keys.PrevPage.Help().Desc},
		{keys.NextPage.Help().Key, keys.NextPage.Help().Desc},
		{keys.PageSize.Help().Key, keys.PageSize.Help().Desc},
		{keys.Sort.Help().Key, keys.Sort.Help().Desc},
		{keys.Up.Help().Key, keys.Up.Help().Desc},
		{keys.Quit.Help().Key, keys.Quit.Help().Desc},
	}
	parts := make([]string, len(bindings))
	for i, kb := range bindings {
		parts[i] = kb.key + " " + kb.desc
	}
	return strings.Join(parts, " • ")
}

package tui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"ragchat/internal/chunkview"
	"ragchat/internal/domain"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	onlineStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("10")).Padding(0, 1)
	offlineStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("9")).Padding(0, 1)
	labelStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	selectStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	activeStyle    = selectStyle.Copy().BorderForeground(lipgloss.Color("12"))
	infoStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dangerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	okStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	answerStyle    = lipgloss.NewStyle().Border(lipgloss.ThickBorder(), false, false, false, true).BorderForeground(lipgloss.Color("12")).Padding(0, 1)
	cardStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	cardFocusStyle = cardStyle.Copy().BorderForeground(lipgloss.Color("12"))
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("11"))
	bestStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

// View renders the header, controls and input above a scrolling results pane.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	return m.renderTop() + "\n" + m.viewport.View() + "\n" + m.renderFooter()
}

func (m Model) renderFooter() string {
	return mutedStyle.Render(m.status)
}

func (m Model) renderTop() string {
	var b strings.Builder
	badge := offlineStyle.Render("Backend: Offline")
	if m.health.Online() {
		badge = onlineStyle.Render("Backend: Online")
	}
	b.WriteString(titleStyle.Render("⚡ JioPay RAG Chatbot") + "  " + badge + "\n")
	b.WriteString(m.renderSelectors() + "\n")

	if m.rebuilding > 0 {
		b.WriteString(infoStyle.Render(m.spinner.View()+" Rebuilding index with selected model & pipeline...") + "\n")
	}
	b.WriteString(m.renderInput())
	if m.loading {
		b.WriteString("\n" + m.spinner.View() + " Generating answer...")
	}
	return b.String()
}

func (m Model) renderSelectors() string {
	boxes := []string{
		m.selectBox(0, "Embedding Model", domain.LabelOf(domain.EmbedModels, string(m.selection.EmbedModel))),
		m.selectBox(1, "Chunker", domain.LabelOf(domain.Chunkers, string(m.selection.Chunker))),
		m.selectBox(2, "Pipeline", domain.LabelOf(domain.Pipelines, string(m.selection.Pipeline))),
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
}

func (m Model) selectBox(i int, label, value string) string {
	style := selectStyle
	if m.focus == focusSelectors && m.selector == i {
		style = activeStyle
		value = "◂ " + value + " ▸"
	}
	return style.Render(labelStyle.Render(label) + "\n" + value)
}

func (m Model) renderInput() string {
	var b strings.Builder
	if !m.loading && m.input.Value() == "" {
		b.WriteString(warnStyle.Render("✦ Quick suggestions:") + "\n")
		for i, s := range QuickSuggestions {
			b.WriteString(mutedStyle.Render(fmt.Sprintf("  F%d ", i+1)) + s + "\n")
		}
	}
	b.WriteString(queryBoxStyle.Render(m.input.View()) + "\n")

	hint := "Enter to send • Alt+Enter for new line"
	if m.loading {
		hint = "Processing..."
	} else if m.typing {
		hint = "AI is ready to help..."
	}
	n := utf8.RuneCountInString(m.input.Value())
	counter := fmt.Sprintf("%d/%d", n, m.maxChars)
	switch {
	case n > m.maxChars*8/10:
		counter = dangerStyle.Render(counter)
	case n > m.maxChars*6/10:
		counter = warnStyle.Render(counter)
	default:
		counter = mutedStyle.Render(counter)
	}
	b.WriteString(mutedStyle.Render(hint) + "  " + counter)
	return b.String()
}

// lineSpan is a half-open range of lines; start is -1 when nothing is focused.
type lineSpan struct{ start, end int }

var noSpan = lineSpan{start: -1}

func (s lineSpan) shift(n int) lineSpan {
	if s.start < 0 {
		return s
	}
	return lineSpan{start: s.start + n, end: s.end + n}
}

// cardSpan is where card lands when appended to b after a newline.
func cardSpan(b *strings.Builder, card string) lineSpan {
	start := strings.Count(b.String(), "\n") + 1
	return lineSpan{start: start, end: start + lipgloss.Height(card)}
}

// renderBody is the scrollable part: answer, citations and retrieved chunks.
func (m Model) renderBody() string {
	body, _ := m.renderBodyAnchored()
	return body
}

// renderBodyAnchored also returns the lines taken by the focused card.
func (m Model) renderBodyAnchored() (string, lineSpan) {
	width := max(20, m.viewport.Width-2)
	var b strings.Builder
	focused := noSpan
	add := func(section string, span lineSpan) {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		if span.start >= 0 {
			focused = span.shift(strings.Count(b.String(), "\n"))
		}
		b.WriteString(section)
	}
	if m.exchange.Answer != "" {
		add(answerStyle.Width(width).Render(titleStyle.Render("Answer")+"\n"+m.exchange.Answer), noSpan)
	}
	if len(m.exchange.Citations) > 0 {
		add(m.renderCitations(width))
	}
	if len(m.chunks) > 0 {
		add(m.renderChunks(width))
	}
	if b.Len() == 0 {
		return mutedStyle.Render("No answer yet."), noSpan
	}
	return b.String(), focused
}

// renderCitations returns the section and the lines of the focused card within it.
func (m Model) renderCitations(width int) (string, lineSpan) {
	var b strings.Builder
	at := noSpan
	b.WriteString(titleStyle.Render("📚 Citations"))
	for i, c := range m.exchange.Citations {
		var body strings.Builder
		body.WriteString(infoStyle.Render(fmt.Sprintf("%d. %s", i+1, c.DisplayTitle())))
		if c.Snippet != "" {
			body.WriteString("\n" + c.Snippet)
		}
		if c.ChunkText != "" {
			open := m.citationOpen[i]
			toggle := "Show full text ▼"
			if open {
				toggle = "Hide full text ▲"
			}
			body.WriteString("\n" + mutedStyle.Render(toggle))
			if open {
				body.WriteString("\n" + highlightBestSentence(c.ChunkText, m.exchange.Query))
			}
		}
		style := cardStyle
		focused := m.focus == focusCitations && m.citationAt == i
		if focused {
			style = cardFocusStyle
		}
		card := style.Width(width).Render(body.String())
		if focused {
			at = cardSpan(&b, card)
		}
		b.WriteString("\n" + card)
	}
	return b.String(), at
}

// renderChunks returns the section and the lines of the focused card within it.
func (m Model) renderChunks(width int) (string, lineSpan) {
	items := m.visibleChunks()
	total := len(m.chunks)
	term := m.search.Value()

	var b strings.Builder
	at := noSpan
	noun := "chunks"
	if total == 1 {
		noun = "chunk"
	}
	b.WriteString(titleStyle.Render(fmt.Sprintf("Retrieved Chunks (%d unique)", total)))
	b.WriteString("  " + mutedStyle.Render(fmt.Sprintf("Found %d relevant text %s • %d shown • sort: %s", total, noun, len(items), m.sortMode)))
	if m.focus == focusSearch || term != "" {
		b.WriteString("\n" + m.search.View())
	}
	if term != "" {
		if len(items) == 0 {
			b.WriteString("\n" + warnStyle.Render(fmt.Sprintf("No chunks found matching %q. Press Esc to clear the search.", term)))
		} else {
			b.WriteString("\n" + warnStyle.Render(fmt.Sprintf("Showing %d of %d chunks matching %q", len(items), total, term)))
		}
	}
	for i, it := range items {
		focused := i == m.chunkAt && m.focus == focusChunks
		card := m.renderChunkCard(it, focused, term, width)
		if focused {
			at = cardSpan(&b, card)
		}
		b.WriteString("\n" + card)
	}
	if m.focus == focusChunks {
		b.WriteString("\n" + mutedStyle.Render("↑/↓ select • e expand • c copy • s sort • / search"))
	}
	return b.String(), at
}

func (m Model) renderChunkCard(it chunkview.Item, focused bool, term string, width int) string {
	open := m.chunkOpen[it.Index]
	header := fmt.Sprintf("# Chunk %d", it.Index+1)
	stats := fmt.Sprintf("%d words • %d characters • ~%d min read", it.Words(), it.Chars(), it.ReadMinutes())

	var body strings.Builder
	body.WriteString(labelStyle.Render(header) + "  " + mutedStyle.Render(stats) + "\n")
	for _, seg := range chunkview.Segments(it.Preview(open), term) {
		if seg.Match {
			body.WriteString(highlightStyle.Render(seg.Text))
		} else {
			body.WriteString(seg.Text)
		}
	}
	if it.Long() {
		toggle := "Show More ▼"
		if open {
			toggle = "Show Less ▲"
		}
		body.WriteString("\n" + infoStyle.Render(toggle))
	}
	if m.copied == it.Index {
		body.WriteString("\n" + okStyle.Render("✓ Copied to clipboard!"))
	}
	style := cardStyle
	if focused {
		style = cardFocusStyle
	}
	return style.Width(width).Render(body.String())
}

// highlightBestSentence emphasises the sentence sharing the most words with the query.
func highlightBestSentence(text, query string) string {
	sentences := chunkview.Sentences(text)
	if best := chunkview.BestSentence(sentences, query); best >= 0 {
		sentences[best] = bestStyle.Render(sentences[best])
	}
	return strings.Join(sentences, " ")
}

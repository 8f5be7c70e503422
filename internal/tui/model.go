package tui

import (
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ragchat/internal/chunkview"
	"ragchat/internal/domain"
	"ragchat/internal/reindex"
)

// AppPort is the TUI-facing subset of the application service.
type AppPort interface {
	Selection() domain.Configuration
	Select(cfg domain.Configuration) (bool, error)
	ReindexWith(cfg domain.Configuration) reindex.Report
	CheckHealth() domain.HealthStatus
	Ask(query string) (domain.ChatExchange, error)
}

// QuickSuggestions fill the input via F1–F4 while it is empty.
var QuickSuggestions = []string{
	"Payments with JioPay?",
	"What are JioPay business features?",
	"JioPay security features",
	"How to contact support?",
}

const (
	typingIdle   = time.Second
	copiedLinger = 2 * time.Second
)

type focusArea int

const (
	focusInput focusArea = iota
	focusSelectors
	focusCitations
	focusChunks
	focusSearch
)

// tab cycles through these; search is entered from the chunk list.
var focusOrder = []focusArea{focusInput, focusSelectors, focusCitations, focusChunks}

type (
	healthMsg      struct{ status domain.HealthStatus }
	reindexDoneMsg struct{ report reindex.Report }
	chatDoneMsg    struct {
		exchange domain.ChatExchange
		err      error
	}
	typingDoneMsg struct{ seq int }
	copiedDoneMsg struct{ seq int }
)

// Options tunes the model.
type Options struct {
	MaxQueryChars int
	// Copy defaults to the system clipboard.
	Copy func(string) error
}

// Model is the Bubble Tea model for the chat client.
type Model struct {
	app      AppPort
	copyText func(string) error

	input    textarea.Model
	search   textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	focus     focusArea
	selector  int
	selection domain.Configuration
	health    domain.HealthStatus
	// rebuilding counts in-flight reindex runs; overlapping runs are allowed.
	rebuilding int
	loading    bool

	exchange     domain.ChatExchange
	chunks       []string
	citationAt   int
	citationOpen map[int]bool
	chunkAt      int
	chunkOpen    map[int]bool
	sortMode     chunkview.SortMode

	typing    bool
	typingSeq int
	copied    int
	copiedSeq int

	maxChars      int
	width, height int
	ready         bool
	status        string
}

// New creates a new TUI model instance. Init starts the mount-time reindex, so the
// model begins with one run counted as in flight.
func New(app AppPort, opts Options) Model {
	maxChars := opts.MaxQueryChars
	if maxChars <= 0 {
		maxChars = 1000
	}
	copyFn := opts.Copy
	if copyFn == nil {
		copyFn = clipboard.WriteAll
	}

	ta := textarea.New()
	ta.Placeholder = "Ask me anything about JioPay..."
	ta.ShowLineNumbers = false
	ta.CharLimit = maxChars
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))
	ta.Focus()

	si := textinput.New()
	si.Prompt = "/ "
	si.Placeholder = "Search within chunks..."

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	return Model{
		app:          app,
		copyText:     copyFn,
		input:        ta,
		search:       si,
		viewport:     viewport.New(0, 0),
		spinner:      sp,
		selection:    app.Selection(),
		health:       domain.HealthUnknown,
		rebuilding:   1,
		citationOpen: map[int]bool{},
		chunkOpen:    map[int]bool{},
		copied:       -1,
		maxChars:     maxChars,
		status:       "Tab switches panes, Ctrl+C quits.",
	}
}

// Init checks health and runs the initial reindex.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick, m.checkHealth(), m.runReindex(m.selection))
}

func (m Model) checkHealth() tea.Cmd {
	app := m.app
	return func() tea.Msg { return healthMsg{status: app.CheckHealth()} }
}

func (m Model) runReindex(cfg domain.Configuration) tea.Cmd {
	app := m.app
	return func() tea.Msg { return reindexDoneMsg{report: app.ReindexWith(cfg)} }
}

func (m Model) ask(query string) tea.Cmd {
	app := m.app
	return func() tea.Msg {
		ex, err := app.Ask(query)
		return chatDoneMsg{exchange: ex, err: err}
	}
}

// Update handles key and window events and updates the view state. The results pane
// is resized afterwards, since the header grows and shrinks with the input state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.update(msg)
	nm := next.(Model)
	nm.layout()
	return nm, cmd
}

func (m Model) update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width, m.height = msg.Width, msg.Height
		m.input.SetWidth(max(20, msg.Width-4))
		m.search.Width = max(10, msg.Width-8)
		m.viewport.Width = max(20, msg.Width)
		m.refresh()
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case healthMsg:
		m.health = msg.status
		return m, nil
	case reindexDoneMsg:
		if m.rebuilding > 0 {
			m.rebuilding--
		}
		return m, nil
	case chatDoneMsg:
		m.loading = false
		if msg.err == nil {
			m.setExchange(msg.exchange)
		}
		var cmd tea.Cmd
		if m.focus == focusInput {
			cmd = m.input.Focus()
		}
		m.refresh()
		return m, cmd
	case typingDoneMsg:
		if msg.seq == m.typingSeq {
			m.typing = false
		}
		return m, nil
	case copiedDoneMsg:
		if msg.seq == m.copiedSeq {
			m.copied = -1
			m.refresh()
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	if m.focus == focusInput && !m.loading {
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "ctrl+d":
		return m, tea.Quit
	case "pgup":
		m.viewport.ViewUp()
		return m, nil
	case "pgdown":
		m.viewport.ViewDown()
		return m, nil
	}
	if m.focus != focusSearch {
		switch msg.String() {
		case "tab":
			return m.cycleFocus(1)
		case "shift+tab":
			return m.cycleFocus(-1)
		}
	}

	switch m.focus {
	case focusSelectors:
		return m.handleSelectorKey(msg)
	case focusCitations:
		return m.handleCitationKey(msg)
	case focusChunks:
		return m.handleChunkKey(msg)
	case focusSearch:
		return m.handleSearchKey(msg)
	}
	return m.handleInputKey(msg)
}

func (m Model) cycleFocus(delta int) (tea.Model, tea.Cmd) {
	i := 0
	for j, f := range focusOrder {
		if f == m.focus {
			i = j
		}
	}
	n := len(focusOrder)
	m.focus = focusOrder[((i+delta)%n+n)%n]
	var cmd tea.Cmd
	if m.focus == focusInput && !m.loading {
		cmd = m.input.Focus()
	} else {
		m.input.Blur()
	}
	m.refresh()
	return m, cmd
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.loading {
		return m, nil
	}
	switch msg.String() {
	case "enter":
		query := m.input.Value()
		if strings.TrimSpace(query) == "" {
			return m, nil
		}
		m.loading = true
		m.setExchange(domain.ChatExchange{Query: query})
		m.input.Reset()
		m.input.Blur()
		m.typing = false
		m.typingSeq++
		m.refresh()
		return m, m.ask(query)
	case "f1", "f2", "f3", "f4":
		if m.input.Value() != "" {
			return m, nil
		}
		idx := int(msg.String()[1] - '1')
		m.input.SetValue(QuickSuggestions[idx])
		return m, m.startTyping()
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() == before {
		return m, cmd
	}
	if m.input.Value() == "" {
		m.typing = false
		m.typingSeq++
		return m, cmd
	}
	return m, tea.Batch(cmd, m.startTyping())
}

// startTyping shows the typing indicator; only the tick of the latest keystroke clears it.
func (m *Model) startTyping() tea.Cmd {
	m.typing = true
	m.typingSeq++
	seq := m.typingSeq
	return tea.Tick(typingIdle, func(time.Time) tea.Msg { return typingDoneMsg{seq: seq} })
}

func (m Model) handleSelectorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	delta := 0
	switch msg.String() {
	case "left", "h":
		m.selector = (m.selector + 2) % 3
		return m, nil
	case "right", "l":
		m.selector = (m.selector + 1) % 3
		return m, nil
	case "up", "k":
		delta = -1
	case "down", "j", "enter", " ":
		delta = 1
	default:
		return m, nil
	}

	cfg := m.selection
	switch m.selector {
	case 0:
		cfg.EmbedModel = domain.EmbedModel(domain.Cycle(domain.EmbedModels, string(cfg.EmbedModel), delta))
	case 1:
		cfg.Chunker = domain.Chunker(domain.Cycle(domain.Chunkers, string(cfg.Chunker), delta))
	case 2:
		cfg.Pipeline = domain.Pipeline(domain.Cycle(domain.Pipelines, string(cfg.Pipeline), delta))
	}
	changed, err := m.app.Select(cfg)
	if err != nil {
		m.status = "Error: " + err.Error()
		return m, nil
	}
	if !changed {
		return m, nil
	}
	m.selection = cfg
	m.rebuilding++
	return m, m.runReindex(cfg)
}

func (m Model) handleCitationKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.exchange.Citations)
	if n == 0 {
		return m, nil
	}
	switch msg.String() {
	case "down", "j":
		m.citationAt = (m.citationAt + 1) % n
	case "up", "k":
		m.citationAt = (m.citationAt - 1 + n) % n
	case "enter", " ", "e":
		if m.exchange.Citations[m.citationAt].ChunkText != "" {
			m.citationOpen[m.citationAt] = !m.citationOpen[m.citationAt]
		}
	default:
		return m, nil
	}
	m.refresh()
	return m, nil
}

func (m Model) visibleChunks() []chunkview.Item {
	return chunkview.View(m.chunks, m.search.Value(), m.sortMode)
}

func (m Model) handleChunkKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.visibleChunks()
	switch msg.String() {
	case "/":
		m.focus = focusSearch
		cmd := m.search.Focus()
		m.refresh()
		return m, cmd
	case "esc":
		m.search.SetValue("")
		m.chunkAt = 0
	case "s":
		m.sortMode = m.sortMode.Next()
		m.chunkAt = 0
	case "down", "j":
		if len(items) > 0 {
			m.chunkAt = (m.chunkAt + 1) % len(items)
		}
	case "up", "k":
		if len(items) > 0 {
			m.chunkAt = (m.chunkAt - 1 + len(items)) % len(items)
		}
	case "enter", " ", "e":
		if m.chunkAt < len(items) {
			idx := items[m.chunkAt].Index
			m.chunkOpen[idx] = !m.chunkOpen[idx]
		}
	case "c":
		if m.chunkAt < len(items) {
			return m.copyChunk(items[m.chunkAt])
		}
	default:
		return m, nil
	}
	m.refresh()
	return m, nil
}

func (m Model) copyChunk(it chunkview.Item) (tea.Model, tea.Cmd) {
	if err := m.copyText(it.Text); err != nil {
		m.status = "Failed to copy text"
		return m, nil
	}
	m.copied = it.Index
	m.copiedSeq++
	seq := m.copiedSeq
	m.refresh()
	return m, tea.Tick(copiedLinger, func(time.Time) tea.Msg { return copiedDoneMsg{seq: seq} })
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.search.SetValue("")
		fallthrough
	case "enter", "tab":
		m.search.Blur()
		m.focus = focusChunks
		m.chunkAt = 0
		m.refresh()
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.chunkAt = 0
	m.refresh()
	return m, cmd
}

// setExchange replaces the exchange wholesale and recomputes the chunk list from it.
func (m *Model) setExchange(ex domain.ChatExchange) {
	m.exchange = ex
	m.chunks = ex.Chunks()
	m.citationAt, m.chunkAt = 0, 0
	m.citationOpen = map[int]bool{}
	m.chunkOpen = map[int]bool{}
	m.copied = -1
	m.search.SetValue("")
	m.viewport.GotoTop()
}

// layout gives the results pane whatever height the header and footer leave.
func (m *Model) layout() {
	if !m.ready {
		return
	}
	used := lipgloss.Height(m.renderTop()) + lipgloss.Height(m.renderFooter())
	m.viewport.Height = max(3, m.height-used)
}

// refresh re-renders the results pane and scrolls the focused card into view.
func (m *Model) refresh() {
	m.layout()
	body, span := m.renderBodyAnchored()
	m.viewport.SetContent(body)
	switch {
	case span.start < 0:
	case span.start < m.viewport.YOffset:
		m.viewport.SetYOffset(span.start)
	case span.end > m.viewport.YOffset+m.viewport.Height:
		// bottom-align the card, but never push its first line out of view
		m.viewport.SetYOffset(min(span.start, span.end-m.viewport.Height))
	}
}

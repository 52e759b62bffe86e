// Package tui is the terminal search and question-answering client.
package tui

import (
	"context"
	"strings"
	"time"

	"arxiv_rag_go_backend/internal/models"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	DebounceDelay = 500 * time.Millisecond
	ProbeInterval = 30 * time.Second
)

// ProbeTimeout bounds one liveness probe so the indicator turns offline
// within a polling interval even when the backend hangs.
var ProbeTimeout = ProbeInterval / 3

// PageSizes are the selectable result page sizes.
var PageSizes = []int{5, 10, 20}

var sortOrders = []string{"relevance", "date", "title"}

// API is the backend the UI talks to.
type API interface {
	Search(ctx context.Context, req models.SearchRequest) (*models.SearchResponse, error)
	Ask(ctx context.Context, req models.AskRequest) (*models.AskResponse, error)
	Probe(ctx context.Context) error
}

type Options struct {
	MaxResults int
	TopK       int
	PageSize   int
	SortBy     string
}

type focusArea int

const (
	focusSearch focusArea = iota
	focusAsk
)

type liveness int

const (
	livenessUnknown liveness = iota
	livenessOnline
	livenessOffline
)

// debounceMsg fires DebounceDelay after a keystroke. It is stale when seq
// no longer matches the model's.
type debounceMsg struct {
	seq   int
	query string
}

type searchResultMsg struct {
	resp *models.SearchResponse
	err  error
}

type askResultMsg struct {
	resp *models.AskResponse
	err  error
}

type probeResultMsg struct{ err error }

type probeTickMsg struct{}

type keyMap struct {
	Quit     key.Binding
	Submit   key.Binding
	Focus    key.Binding
	PrevPage key.Binding
	NextPage key.Binding
	PageSize key.Binding
	Sort     key.Binding
	Up       key.Binding
	Down     key.Binding
}

var keys = keyMap{
	Quit:     key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
	Submit:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "search/ask")),
	Focus:    key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "switch field")),
	PrevPage: key.NewBinding(key.WithKeys("pgup", "ctrl+p"), key.WithHelp("pgup", "prev page")),
	NextPage: key.NewBinding(key.WithKeys("pgdown", "ctrl+n"), key.WithHelp("pgdn", "next page")),
	PageSize: key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "page size")),
	Sort:     key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "sort")),
	Up:       key.NewBinding(key.WithKeys("up"), key.WithHelp("↑/↓", "scroll answer")),
	Down:     key.NewBinding(key.WithKeys("down")),
}

// Model is the Bubble Tea model of the client.
type Model struct {
	ctx  context.Context
	api  API
	opts Options

	search   textinput.Model
	question textinput.Model
	focus    focusArea
	spinner  spinner.Model
	answerVP viewport.Model

	seq         int
	lastQuery   string
	page        int
	pageSizeIdx int
	sortIdx     int

	results   *models.SearchResponse
	searching bool
	answer    *models.AskResponse
	asking    bool
	err       error
	live      liveness

	width, height int
}

func New(ctx context.Context, api API, opts Options) *Model {
	if opts.MaxResults <= 0 {
		opts.MaxResults = models.DefaultSearchMaxResults
	}
	if opts.TopK <= 0 {
		opts.TopK = models.DefaultTopK
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	search := textinput.New()
	search.Placeholder = "Search arXiv..."
	search.Prompt = "Search: "
	search.Focus()

	question := textinput.New()
	question.Placeholder = "Ask a question about the results..."
	question.Prompt = "Ask:    "

	m := &Model{
		ctx:      ctx,
		api:      api,
		opts:     opts,
		search:   search,
		question: question,
		spinner:  s,
		answerVP: viewport.New(80, 10),
		page:     1,
		width:    80,
	}
	m.pageSizeIdx = 1
	for i, size := range PageSizes {
		if size == opts.PageSize {
			m.pageSizeIdx = i
		}
	}
	for i, order := range sortOrders {
		if order == opts.SortBy {
			m.sortIdx = i
		}
	}
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.probeCmd())
}

func (m *Model) PageSize() int { return PageSizes[m.pageSizeIdx] }

func (m *Model) Page() int { return m.page }

// PrevDisabled reports whether there is no previous page.
func (m *Model) PrevDisabled() bool { return m.page <= 1 }

// NextDisabled reports whether there is no next page.
func (m *Model) NextDisabled() bool {
	return m.results == nil || m.page >= m.results.TotalPages
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.search.Width = max(msg.Width-12, 10)
		m.question.Width = max(msg.Width-12, 10)
		m.answerVP.Width = msg.Width
		m.answerVP.Height = max(msg.Height/3, 5)
		m.refreshAnswer()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case debounceMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.page = 1
		return m, m.startSearch(msg.query)

	case searchResultMsg:
		m.searching = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.results = msg.resp
		return m, nil

	case askResultMsg:
		m.asking = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.answer = msg.resp
		m.refreshAnswer()
		m.answerVP.GotoTop()
		return m, nil

	case probeResultMsg:
		if msg.err != nil {
			m.live = livenessOffline
		} else {
			m.live = livenessOnline
		}
		return m, tea.Tick(ProbeInterval, func(time.Time) tea.Msg { return probeTickMsg{} })

	case probeTickMsg:
		return m, m.probeCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	cmds = append(cmds, cmd)
	m.question, cmd = m.question.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Focus):
		if m.focus == focusSearch {
			m.focus = focusAsk
			m.search.Blur()
			return m, m.question.Focus()
		}
		m.focus = focusSearch
		m.question.Blur()
		return m, m.search.Focus()

	case key.Matches(msg, keys.Submit):
		if m.focus == focusAsk {
			return m, m.startAsk()
		}
		// Enter bypasses the debounce and invalidates a pending timer.
		m.seq++
		query := strings.TrimSpace(m.search.Value())
		if query == "" {
			m.clearResults()
			return m, nil
		}
		m.page = 1
		return m, m.startSearch(query)

	case key.Matches(msg, keys.PrevPage):
		if m.PrevDisabled() || m.lastQuery == "" {
			return m, nil
		}
		m.page--
		return m, m.startSearch(m.lastQuery)

	case key.Matches(msg, keys.NextPage):
		if m.NextDisabled() || m.lastQuery == "" {
			return m, nil
		}
		m.page++
		return m, m.startSearch(m.lastQuery)

	case key.Matches(msg, keys.PageSize):
		m.pageSizeIdx = (m.pageSizeIdx + 1) % len(PageSizes)
		m.page = 1
		if m.lastQuery == "" {
			return m, nil
		}
		return m, m.startSearch(m.lastQuery)

	case key.Matches(msg, keys.Sort):
		m.sortIdx = (m.sortIdx + 1) % len(sortOrders)
		m.page = 1
		if m.lastQuery == "" {
			return m, nil
		}
		return m, m.startSearch(m.lastQuery)

	case key.Matches(msg, keys.Up):
		m.answerVP.SetYOffset(m.answerVP.YOffset - 1)
		return m, nil

	case key.Matches(msg, keys.Down):
		m.answerVP.SetYOffset(m.answerVP.YOffset + 1)
		return m, nil
	}

	if m.focus == focusAsk {
		var cmd tea.Cmd
		m.question, cmd = m.question.Update(msg)
		return m, cmd
	}

	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() == before {
		return m, cmd
	}

	m.seq++
	query := strings.TrimSpace(m.search.Value())
	if query == "" {
		m.clearResults()
		return m, cmd
	}
	seq := m.seq
	debounce := tea.Tick(DebounceDelay, func(time.Time) tea.Msg {
		return debounceMsg{seq: seq, query: query}
	})
	return m, tea.Batch(cmd, debounce)
}

func (m *Model) clearResults() {
	m.results = nil
	m.lastQuery = ""
	m.page = 1
	m.err = nil
}

func (m *Model) startSearch(query string) tea.Cmd {
	m.lastQuery = query
	m.searching = true
	m.err = nil

	req := models.NewSearchRequest()
	req.Query = query
	req.MaxResults = m.opts.MaxResults
	req.SortBy = sortOrders[m.sortIdx]
	req.Page = m.page
	req.PageSize = m.PageSize()

	api, ctx := m.api, m.ctx
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		resp, err := api.Search(ctx, req)
		return searchResultMsg{resp: resp, err: err}
	})
}

func (m *Model) startAsk() tea.Cmd {
	question := strings.TrimSpace(m.question.Value())
	if question == "" || m.asking {
		return nil
	}
	m.asking = true
	m.err = nil

	req := models.NewAskRequest()
	req.Question = question
	req.Query = strings.TrimSpace(m.search.Value())
	req.TopK = m.opts.TopK

	api, ctx := m.api, m.ctx
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		resp, err := api.Ask(ctx, req)
		return askResultMsg{resp: resp, err: err}
	})
}

func (m *Model) probeCmd() tea.Cmd {
	api, ctx := m.api, m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
		defer cancel()
		return probeResultMsg{err: api.Probe(ctx)}
	}
}

// Run starts the UI on the terminal and blocks until the user quits.
func Run(ctx context.Context, api API, opts Options) error {
	_, err := tea.NewProgram(New(ctx, api, opts), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

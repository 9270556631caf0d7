package tui

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"navassist/internal/domain"
	"navassist/internal/prompt"
	"navassist/internal/service"
)

// Session is the TUI-facing subset of a chat session.
type Session interface {
	Ask(ctx context.Context, query string) (service.TurnResult, error)
	Reset()
	ID() string
	Transcript() []domain.Turn
}

// note is a screen-only row, such as a failure message, shown after the
// first `after` turns of the transcript.
type note struct {
	after int
	text  string
}

type answerMsg struct {
	seq   int
	res   service.TurnResult
	err   error
	turns []domain.Turn
}

type transcriptMsg struct{ turns []domain.Turn }

type resetMsg struct {
	id    string
	turns []domain.Turn
}

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	ctx      context.Context
	session  Session
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	summary  string
	status   string
	warning  string
	// turns is the latest snapshot of the session transcript
	turns   []domain.Turn
	notes   []note
	pending string
	ready   bool

	busy   bool
	seq    int
	cancel context.CancelFunc

	// matches of the last locally answered turn, browsed in the sources view
	matches     []domain.SearchResult
	lastQuery   string
	cursor      int
	showSources bool
}

// New creates the chat model. ctx bounds every question asked from it.
func New(ctx context.Context, session Session, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Pergunte e pressione Enter"
	ti.Focus()
	ti.CharLimit = 0
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(gold)
	return Model{
		ctx:      ctx,
		session:  session,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		summary:  summary,
		status:   "Pronto. Esc cancela, Ctrl+R reinicia, Tab mostra as fontes.",
	}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and pipeline events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header and summary, status, input box, spacer
		vh := msg.Height - reserved
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, vh-rh)
		m.refresh()
		return m, nil

	case answerMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.finishTurn(msg)
		return m, nil

	case resetMsg:
		m.turns = msg.turns
		m.notes = nil
		m.refresh()
		m.status = fmt.Sprintf("Nova conversa %.8s", msg.id)
		return m, nil

	case transcriptMsg:
		m.turns = msg.turns
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			m.abort()
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			return m.submit()
		case "esc":
			if m.busy {
				m.abort()
				m.status = "Pergunta cancelada."
				session := m.session
				return m, func() tea.Msg { return transcriptMsg{turns: session.Transcript()} }
			}
		case "ctrl+r":
			m.abort()
			m.turns = nil
			m.notes = nil
			m.matches = nil
			m.warning = ""
			m.showSources = false
			m.refresh()
			session := m.session
			return m, func() tea.Msg {
				session.Reset()
				return resetMsg{id: session.ID(), turns: session.Transcript()}
			}
		case "tab":
			m.showSources = !m.showSources
			m.refresh()
			return m, nil
		case "down":
			if m.showSources && len(m.matches) > 0 {
				m.cursor = (m.cursor + 1) % len(m.matches)
				m.refresh()
				return m, nil
			}
		case "up":
			if m.showSources && len(m.matches) > 0 {
				m.cursor = (m.cursor - 1 + len(m.matches)) % len(m.matches)
				m.refresh()
				return m, nil
			}
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.busy {
		m.status = "Aguarde a resposta atual ou pressione Esc."
		return m, nil
	}
	q := strings.TrimSpace(m.input.Value())
	if q == "" {
		return m, nil
	}
	m.input.Reset()
	m.pending = q
	m.lastQuery = q
	m.warning = ""
	m.busy = true
	m.seq++
	ctx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel
	m.status = "Pensando..."
	m.showSources = false
	m.refresh()

	seq, session := m.seq, m.session
	ask := func() tea.Msg {
		res, err := session.Ask(ctx, q)
		return answerMsg{seq: seq, res: res, err: err, turns: session.Transcript()}
	}
	return m, tea.Batch(m.spinner.Tick, ask)
}

func (m *Model) finishTurn(msg answerMsg) {
	m.busy = false
	m.pending = ""
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.turns = msg.turns
	if len(msg.res.Warnings) > 0 {
		m.warning = strings.Join(msg.res.Warnings, "; ")
	}
	var ge *service.GenerationError
	switch {
	case msg.err == nil:
		m.matches = msg.res.Matches
		m.cursor = 0
		m.status = "Resposta com contexto " + sourceName(msg.res.Source)
	case errors.As(msg.err, &ge):
		m.notes = append(m.notes, note{after: len(m.turns), text: ge.Error()})
		m.status = "Falha ao gerar a resposta."
	case errors.Is(msg.err, context.Canceled):
		m.status = "Pergunta cancelada."
	default:
		m.notes = append(m.notes, note{after: len(m.turns), text: "Erro: " + msg.err.Error()})
		m.status = "Falha ao processar a pergunta."
	}
	m.refresh()
}

// abort cancels the question in flight. Its late answer is ignored.
func (m *Model) abort() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.busy {
		m.busy = false
		m.pending = ""
		m.seq++
	}
}

func (m *Model) refresh() {
	if m.showSources {
		m.viewport.SetContent(m.renderCurrentMatch())
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Carregando..."
	}
	header := headerStyle.Render("NavSupply · Assistente")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	body := resultBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	if m.warning != "" {
		status += "  " + warningStyle.Render("⚠ "+m.warning)
	}
	return header + "\n" + summary + "\n" + body + "\n" + input + "\n" + status
}

func (m Model) renderTranscript() string {
	if len(m.turns) == 0 && len(m.notes) == 0 && m.pending == "" {
		return "Nenhuma mensagem ainda."
	}
	width := max(10, m.viewport.Width-4)
	wrap := lipgloss.NewStyle().Width(width)
	var blocks []string
	addNotes := func(after int) {
		for _, n := range m.notes {
			if n.after == after {
				blocks = append(blocks, errorStyle.Render(wrap.Render(n.text)))
			}
		}
	}
	addNotes(0)
	for i, t := range m.turns {
		if t.Role == domain.RoleUser {
			blocks = append(blocks, userStyle.Render("Você:")+"\n"+wrap.Render(t.Content))
		} else {
			blocks = append(blocks, assistantStyle.Render("Assistente:")+"\n"+wrap.Render(t.Content))
		}
		addNotes(i + 1)
	}
	if m.pending != "" {
		blocks = append(blocks, userStyle.Render("Você:")+"\n"+wrap.Render(m.pending))
	}
	return strings.Join(blocks, "\n\n")
}

func (m Model) renderCurrentMatch() string {
	if len(m.matches) == 0 {
		return "Sem fontes do CSV para a última resposta."
	}
	r := m.matches[m.cursor]
	title := fmt.Sprintf("Fonte %d/%d  linha=%d  score=%.3f", m.cursor+1, len(m.matches), r.Document.ID, r.Score)
	return title + "\n\n" + highlightBestLine(r.Document.Content, m.lastQuery)
}

func sourceName(s prompt.Source) string {
	if s == prompt.SourceWeb {
		return "da web"
	}
	return "do CSV"
}

var (
	navy = lipgloss.Color("#1F3A5F")
	gold = lipgloss.Color("#D4A017")

	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(gold).Background(navy).Padding(0, 1)
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(navy).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(gold).Padding(0, 1)
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(gold)
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	highlightStyle = lipgloss.NewStyle().Foreground(gold).Bold(true)
	unicodeWordRe  = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’]\p{L}+)*`)
)

// highlightBestLine emphasizes the "column: value" line sharing the most
// words with query.
func highlightBestLine(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	lines := strings.Split(text, "\n")
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return text
	}
	bestIdx := 0
	bestScore := -1
	for i, l := range lines {
		score := tokenOverlapScore(qTokens, l)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	if bestScore == 0 {
		return text
	}
	lines[bestIdx] = highlightStyle.Render(lines[bestIdx])
	return strings.Join(lines, "\n")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, line string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(line), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}

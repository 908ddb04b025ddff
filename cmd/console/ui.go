package main

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jwebster45206/story-graph/pkg/engine"
	"github.com/jwebster45206/story-graph/pkg/state"
	"github.com/jwebster45206/story-graph/pkg/wait"
)

type screen int

const (
	screenStart screen = iota
	screenPlay
	screenPause
	screenLanguage
	screenEnding
	screenFailed
)

var pauseItems = []string{"Resume", "Language", "Copy transcript", "Save & quit"}

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	ctx   context.Context
	it    *engine.Interpreter
	sched *wait.Scheduler
	lang  string        // Language for new games
	pace  time.Duration // Delay between two narrator messages
	copy  func(string) error

	save   *state.PlayerState // Loaded save offered on the start screen
	notice string             // Startup diagnostic, e.g. a discarded save

	screen   screen
	frame    engine.Frame
	selected int
	menuIdx  int
	status   string
	err      error

	chatViewport viewport.Model
	ready        bool
	width        int
	height       int
}

type advanceMsg struct{}

type waitTickMsg struct{}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingLeft(3)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")). // yellow
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	itemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	selectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

// NewConsoleUI builds the model. save is the loaded save, if any; notice is
// shown on the start screen.
func NewConsoleUI(ctx context.Context, it *engine.Interpreter, sched *wait.Scheduler, lang string, save *state.PlayerState, notice string) ConsoleUI {
	vp := viewport.New(50, 20)
	vp.MouseWheelEnabled = true

	pace := 900 * time.Millisecond
	if sched.Debug {
		pace = 150 * time.Millisecond
	}

	return ConsoleUI{
		ctx:          ctx,
		it:           it,
		sched:        sched,
		lang:         lang,
		pace:         pace,
		copy:         clipboard.WriteAll,
		save:         save,
		notice:       notice,
		screen:       screenStart,
		chatViewport: vp,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return nil
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case advanceMsg, waitTickMsg:
		if m.screen == screenPause || m.screen == screenLanguage {
			// Hold the story while the menu is open
			return m, m.nextMessage()
		}
		if m.screen != screenPlay {
			return m, nil
		}
		return m.advance()

	case tea.KeyMsg:
		if key.Matches(msg, keys.ForceQ) {
			return m, tea.Quit
		}
		switch m.screen {
		case screenStart:
			return m.updateStart(msg)
		case screenPlay:
			return m.updatePlay(msg)
		case screenPause:
			return m.updatePause(msg)
		case screenLanguage:
			return m.updateLanguage(msg)
		case screenEnding:
			return m.updateEnding(msg)
		case screenFailed:
			return m, tea.Quit
		}

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.chatViewport, cmd = m.chatViewport.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *ConsoleUI) resize() {
	chatWidth := int(float64(m.width)*0.75) - 4
	m.chatViewport.Width = max(chatWidth-2, 20)
	m.chatViewport.Height = max(m.height-10, 5)
	m.ready = true
	m.writeChatContent()
}

func (m ConsoleUI) updateStart(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.save == nil {
		if key.Matches(msg, keys.Select, keys.NewGame) {
			return m.begin(false)
		}
		if key.Matches(msg, keys.Quit, keys.Menu) {
			return m, tea.Quit
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Up, keys.Down):
		m.menuIdx = 1 - m.menuIdx
	case key.Matches(msg, keys.Continue):
		return m.begin(true)
	case key.Matches(msg, keys.NewGame):
		return m.begin(false)
	case key.Matches(msg, keys.Select):
		return m.begin(m.menuIdx == 0)
	case key.Matches(msg, keys.Quit, keys.Menu):
		return m, tea.Quit
	}
	return m, nil
}

// begin starts a new game or resumes the loaded save.
func (m ConsoleUI) begin(resume bool) (tea.Model, tea.Cmd) {
	var err error
	if resume {
		err = m.it.Begin(m.ctx, m.save)
	} else {
		if m.save != nil {
			err = m.it.Reset(m.ctx)
		}
		if err == nil {
			err = m.it.NewGame(m.ctx, m.lang)
		}
	}
	m.save = nil
	m.notice = ""
	if err != nil {
		m.err = err
		m.screen = screenFailed
		return m, nil
	}

	m.screen = screenPlay
	m.menuIdx = 0
	return m.show(m.it.CurrentFrame())
}

func (m ConsoleUI) advance() (tea.Model, tea.Cmd) {
	frame, err := m.it.Step(m.ctx)
	if err != nil && frame.Phase != engine.PhaseDeadEnd {
		m.err = err
		m.screen = screenFailed
		return m, nil
	}
	return m.show(frame)
}

// show renders a frame and schedules whatever the phase needs next.
func (m ConsoleUI) show(frame engine.Frame) (tea.Model, tea.Cmd) {
	m.frame = frame
	m.writeChatContent()

	switch frame.Phase {
	case engine.PhasePresenting, engine.PhaseBranching:
		return m, m.nextMessage()
	case engine.PhaseAwaitingChoice:
		m.selected = 0
	case engine.PhaseWaiting:
		return m, m.waitTick()
	case engine.PhaseEnding:
		m.screen = screenEnding
	case engine.PhaseDeadEnd:
		m.err = frame.Err
		m.screen = screenFailed
	}
	return m, nil
}

func (m ConsoleUI) updatePlay(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Menu):
		m.screen = screenPause
		m.menuIdx = 0
		m.status = ""
		return m, nil
	case key.Matches(msg, keys.ScrollUp, keys.ScrollDn):
		var cmd tea.Cmd
		m.chatViewport, cmd = m.chatViewport.Update(msg)
		return m, cmd
	case m.frame.Phase == engine.PhaseWaiting && key.Matches(msg, keys.Quit):
		return m.saveAndQuit()
	}

	if m.frame.Phase != engine.PhaseAwaitingChoice || len(m.frame.Choices) == 0 {
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Up):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, keys.Down):
		if m.selected < len(m.frame.Choices)-1 {
			m.selected++
		}
	case key.Matches(msg, keys.Select):
		return m.choose(m.selected)
	case key.Matches(msg, keys.Pick):
		idx := int(msg.Runes[0] - '1')
		if idx < len(m.frame.Choices) {
			return m.choose(idx)
		}
	}
	return m, nil
}

func (m ConsoleUI) choose(idx int) (tea.Model, tea.Cmd) {
	frame, err := m.it.SubmitChoice(m.ctx, idx)
	if err != nil && frame.Phase != engine.PhaseDeadEnd {
		m.err = err
		m.screen = screenFailed
		return m, nil
	}
	return m.show(frame)
}

func (m ConsoleUI) updatePause(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Menu):
		m.screen = screenPlay
	case key.Matches(msg, keys.Up):
		if m.menuIdx > 0 {
			m.menuIdx--
		}
	case key.Matches(msg, keys.Down):
		if m.menuIdx < len(pauseItems)-1 {
			m.menuIdx++
		}
	case key.Matches(msg, keys.Quit):
		return m.saveAndQuit()
	case key.Matches(msg, keys.Select):
		switch m.menuIdx {
		case 0:
			m.screen = screenPlay
		case 1:
			m.screen = screenLanguage
			m.menuIdx = 0
		case 2:
			m.status = m.copyTranscript()
		case 3:
			return m.saveAndQuit()
		}
	}
	return m, nil
}

func (m ConsoleUI) languages() []string {
	st := m.it.Story()
	if len(st.Metadata.Languages) > 0 {
		return st.Metadata.Languages
	}
	return st.Metadata.Title.Languages()
}

func (m ConsoleUI) updateLanguage(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	langs := m.languages()
	switch {
	case key.Matches(msg, keys.Menu):
		m.screen = screenPause
		m.menuIdx = 1
	case key.Matches(msg, keys.Up):
		if m.menuIdx > 0 {
			m.menuIdx--
		}
	case key.Matches(msg, keys.Down):
		if m.menuIdx < len(langs)-1 {
			m.menuIdx++
		}
	case key.Matches(msg, keys.Select):
		if m.menuIdx < len(langs) {
			if err := m.it.SetLanguage(m.ctx, langs[m.menuIdx]); err != nil {
				m.status = errorStyle.Render("Could not save language: " + err.Error())
			} else {
				m.lang = langs[m.menuIdx]
				m.status = "Language: " + langs[m.menuIdx]
			}
		}
		m.screen = screenPlay
		m.frame = m.it.CurrentFrame()
		m.writeChatContent()
	}
	return m, nil
}

func (m ConsoleUI) updateEnding(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.NewGame, keys.Select):
		if err := m.it.Reset(m.ctx); err != nil {
			m.err = err
			m.screen = screenFailed
			return m, nil
		}
		return m.begin(false)
	case key.Matches(msg, keys.Quit, keys.Menu):
		return m, tea.Quit
	}
	return m, nil
}

func (m ConsoleUI) saveAndQuit() (tea.Model, tea.Cmd) {
	if err := m.it.Persist(m.ctx); err != nil {
		m.err = err
		m.screen = screenFailed
		return m, nil
	}
	return m, tea.Quit
}

func (m ConsoleUI) copyTranscript() string {
	ps := m.it.State()
	if ps == nil {
		return "Nothing to copy yet"
	}
	title := m.it.Story().Metadata.Title.Text(ps.Language)
	if err := m.copy(transcript(title, ps.Log)); err != nil {
		return errorStyle.Render("Clipboard unavailable: " + err.Error())
	}
	return "Transcript copied to clipboard"
}

func (m ConsoleUI) nextMessage() tea.Cmd {
	return tea.Tick(m.pace, func(time.Time) tea.Msg {
		return advanceMsg{}
	})
}

func (m ConsoleUI) waitTick() tea.Cmd {
	d := time.Second
	if m.frame.Waiting != nil {
		d = m.sched.PollInterval(m.frame.Waiting.Until)
	}
	if d <= 0 {
		return func() tea.Msg { return waitTickMsg{} }
	}
	return tea.Tick(d, func(time.Time) tea.Msg {
		return waitTickMsg{}
	})
}

// writeChatContent rebuilds the chat log for the current viewport width.
func (m *ConsoleUI) writeChatContent() {
	if !m.ready {
		return
	}
	ps := m.it.State()
	if ps == nil {
		m.chatViewport.SetContent("")
		return
	}

	width := m.chatViewport.Width - 2
	var content strings.Builder
	content.WriteString(titleStyle.Render(strings.ToUpper(m.it.Story().Metadata.Title.Text(ps.Language))) + "\n\n")
	for _, e := range ps.Log {
		content.WriteString(formatEntry(e, width) + "\n\n")
	}

	m.chatViewport.SetContent(content.String())
	m.chatViewport.GotoBottom()
}

func writeMetadata(ps *state.PlayerState) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("STATUS") + "\n\n")
	if ps == nil {
		return content.String()
	}

	fmt.Fprintf(&content, "Day %d\n\n", ps.Day)
	for _, name := range []string{"trust", "health", "supplies", "morale"} {
		fmt.Fprintf(&content, "%-9s %d\n", name, ps.Stats.Get(name))
	}
	for _, name := range slices.Sorted(maps.Keys(ps.Stats.Extra)) {
		fmt.Fprintf(&content, "%-9s %d\n", name, ps.Stats.Extra[name])
	}

	content.WriteString("\nFlags:\n")
	flags := ps.SortedFlags()
	if len(flags) == 0 {
		content.WriteString("None set\n")
	}
	for _, f := range flags {
		content.WriteString("• " + f + "\n")
	}

	fmt.Fprintf(&content, "\nLanguage: %s\n", ps.Language)
	fmt.Fprintf(&content, "Session: %s\n", ps.ID.String()[:8])
	return content.String()
}

func (m ConsoleUI) View() string {
	if m.width == 0 || m.height == 0 {
		return "\n  Initializing..."
	}

	switch m.screen {
	case screenStart:
		return m.renderStart()
	case screenPause:
		return m.renderMenu("Paused", pauseItems, m.status)
	case screenLanguage:
		return m.renderMenu("Language", m.languages(), "")
	case screenEnding:
		return m.renderEnding()
	case screenFailed:
		return m.renderFailed()
	}

	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6

	chatPanel := chatPanelStyle.Width(chatWidth).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			separatorStyle.Render(strings.Repeat("─", max(chatWidth-4, 1))),
			m.renderFooter(),
		),
	)
	metaPanel := metaPanelStyle.Width(metaWidth).Render(writeMetadata(m.it.State()))

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}

// renderFooter shows the choices, the busy notice or the typing indicator.
func (m ConsoleUI) renderFooter() string {
	var b strings.Builder
	switch m.frame.Phase {
	case engine.PhaseAwaitingChoice:
		for i, c := range m.frame.Choices {
			line := fmt.Sprintf("%d. %s", i+1, c)
			if i == m.selected {
				b.WriteString(selectedItemStyle.Render("▶ "+line) + "\n")
			} else {
				b.WriteString(itemStyle.Render("  "+line) + "\n")
			}
		}
		b.WriteString(promptStyle.Render(helpLine(keys.Up, keys.Down, keys.Select, keys.Pick, keys.Menu)))

	case engine.PhaseWaiting:
		w := m.frame.Waiting
		if w != nil {
			if w.Message != "" {
				b.WriteString(systemStyle.Render(w.Message) + "\n")
			}
			fmt.Fprintf(&b, "%s is busy. Back in %s (around %s).\n", AgentName, w.RemainingLabel, w.BackAt)
		}
		b.WriteString(promptStyle.Render("Keep this open to wait, or " + helpLine(keys.Quit) + " and come back later."))

	default:
		b.WriteString(promptStyle.Render("…"))
	}
	if m.status != "" {
		b.WriteString("\n" + m.status)
	}
	return b.String()
}

func (m ConsoleUI) renderStart() string {
	var content strings.Builder
	content.WriteString(modalTitleStyle.Render(m.it.Story().Metadata.Title.Text(m.lang)))
	content.WriteString("\n\n")
	if m.notice != "" {
		content.WriteString(errorStyle.Render(m.notice) + "\n\n")
	}

	if m.save == nil {
		content.WriteString(promptStyle.Render("Press Enter to begin, q to quit"))
	} else {
		for i, item := range []string{"Continue", "New game"} {
			if i == m.menuIdx {
				content.WriteString(selectedItemStyle.Render("▶ "+item) + "\n")
			} else {
				content.WriteString(itemStyle.Render("  "+item) + "\n")
			}
		}
		content.WriteString("\n" + promptStyle.Render(helpLine(keys.Continue, keys.NewGame, keys.Quit)))
	}

	return m.place(modalStyle.Width(60).Render(content.String()))
}

func (m ConsoleUI) renderMenu(title string, items []string, status string) string {
	var content strings.Builder
	content.WriteString(modalTitleStyle.Render(title) + "\n\n")
	for i, item := range items {
		if i == m.menuIdx {
			content.WriteString(selectedItemStyle.Render("▶ "+item) + "\n")
		} else {
			content.WriteString(itemStyle.Render("  "+item) + "\n")
		}
	}
	if status != "" {
		content.WriteString("\n" + status + "\n")
	}
	content.WriteString("\n" + promptStyle.Render(helpLine(keys.Up, keys.Down, keys.Select, keys.Menu)))
	return m.place(modalStyle.Width(50).Render(content.String()))
}

func (m ConsoleUI) renderEnding() string {
	var content strings.Builder
	if e := m.frame.Ending; e != nil {
		content.WriteString(modalTitleStyle.Render(e.Title) + "\n\n")
		if e.Description != "" {
			content.WriteString(e.Description + "\n\n")
		}
		fmt.Fprintf(&content, "Day %d\n\n", e.Day)
	}
	content.WriteString(promptStyle.Render(helpLine(keys.NewGame) + " • q quit"))
	return m.place(modalStyle.Width(60).Render(content.String()))
}

func (m ConsoleUI) renderFailed() string {
	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Signal lost") + "\n\n")
	if m.err != nil {
		content.WriteString(errorStyle.Render(m.err.Error()) + "\n\n")
	}
	content.WriteString(promptStyle.Render("Your last progress was saved. Press any key to exit."))
	return m.place(modalStyle.Width(60).Render(content.String()))
}

func (m ConsoleUI) place(modal string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

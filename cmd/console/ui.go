package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/hushpath/internal/engine"
	"github.com/jwebster45206/hushpath/internal/events"
	"github.com/jwebster45206/hushpath/pkg/game"
	"github.com/jwebster45206/hushpath/pkg/prompts"
)

const PlaceHolderText = "What do you do? (1-4 picks a suggestion, /help for commands)"

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config *ConsoleConfig
	api    *apiClient
	logger *slog.Logger

	snapshot *engine.Snapshot
	entries  []logEntry
	notice   string

	storyViewport viewport.Model
	sideViewport  viewport.Model
	textarea      textarea.Model
	ready         bool
	width         int
	height        int
	loading       bool

	// Genre selection state
	showGenreModal bool
	genres         []string
	selectedGenre  int
	genre          string
	startErr       error

	// Quit confirmation state
	showQuitModal bool

	// Progress bar state
	progressTick int

	stream <-chan events.Event
}

// logEntry is one exchange in the story log.
type logEntry struct {
	action    string
	narrative string
	failed    bool
}

type snapshotMsg struct {
	snapshot *engine.Snapshot
	action   string
	restart  bool
	err      error
}

type noticeMsg struct {
	text string
	err  error
}

type progressTickMsg struct{}

// eventMsg carries one server event; ok is false once the stream ended.
type eventMsg struct {
	event events.Event
	ok    bool
}

type streamStartedMsg struct {
	ch <-chan events.Event
}

var (
	storyPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingLeft(2)

	sidePanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	artStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	captionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

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

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey
)

func NewConsoleUI(cfg *ConsoleConfig, api *apiClient, logger *slog.Logger) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 500
	ta.SetWidth(50)
	ta.SetHeight(2)
	ta.ShowLineNumbers = false

	storyVp := viewport.New(50, 20)
	storyVp.MouseWheelEnabled = true

	selected := 0
	for i, g := range prompts.Genres {
		if strings.EqualFold(g, cfg.Genre) {
			selected = i
		}
	}

	return ConsoleUI{
		config:         cfg,
		api:            api,
		logger:         logger,
		textarea:       ta,
		storyViewport:  storyVp,
		sideViewport:   viewport.New(30, 20),
		showGenreModal: true,
		genres:         prompts.Genres,
		selectedGenre:  selected,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return textarea.Blink
}

// layout sizes the panels for the current window.
func (m *ConsoleUI) layout() (storyWidth, sideWidth int) {
	storyWidth = int(float64(m.width)*0.66) - 2
	sideWidth = m.width - storyWidth - 4
	m.storyViewport.Width = storyWidth - 2
	m.storyViewport.Height = max(5, m.height-6)
	m.sideViewport.Width = sideWidth
	m.sideViewport.Height = max(5, m.height-2)
	m.textarea.SetWidth(storyWidth - 4)
	return storyWidth, sideWidth
}

func (m *ConsoleUI) refresh() {
	m.storyViewport.SetContent(m.renderStory(m.storyViewport.Width))
	m.storyViewport.GotoBottom()
	m.sideViewport.SetContent(renderSide(m.snapshot, m.sideViewport.Width))
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}
	if m.showGenreModal {
		return m.updateGenreModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		svCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.storyViewport, vpCmd = m.storyViewport.Update(msg)
		m.sideViewport, svCmd = m.sideViewport.Update(msg)
		return m, tea.Batch(vpCmd, svCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.ready = true
		m.refresh()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			m.textarea.Reset()

			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}
			if action, ok := pickSuggestion(input, m.snapshot); ok {
				input = action
			}
			if m.snapshot != nil && m.snapshot.GameOver {
				m.notice = "The story has ended. Type /new to begin again."
				m.refresh()
				return m, nil
			}
			return m.beginTurn(m.sendAction(input))
		}

	case snapshotMsg:
		m.loading = false
		m.notice = ""
		if msg.err != nil {
			m.logger.Error("Request failed", "action", msg.action, "error", msg.err)
			m.entries = append(m.entries, logEntry{action: msg.action, narrative: playerMessage(msg.err), failed: true})
		} else {
			if msg.restart {
				m.entries = nil
			}
			m.snapshot = msg.snapshot
			m.entries = append(m.entries, logEntry{action: msg.action, narrative: msg.snapshot.Narrative})
		}
		m.refresh()
		return m, nil

	case streamStartedMsg:
		m.stream = msg.ch
		return m, waitForEvent(m.stream)

	case eventMsg:
		if !msg.ok {
			m.stream = nil
			return m, nil
		}
		if m.loading {
			m.notice = progressText(msg.event)
			m.refresh()
		}
		return m, waitForEvent(m.stream)

	case noticeMsg:
		m.notice = msg.text
		if msg.err != nil {
			m.logger.Warn("Command failed", "error", msg.err)
			m.notice = "Error: " + msg.err.Error()
		}
		m.refresh()
		return m, nil

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.refresh()
			return m, progressTick()
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.storyViewport, vpCmd = m.storyViewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd)
}

func (m ConsoleUI) beginTurn(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	m.loading = true
	m.progressTick = 0
	m.notice = ""
	m.refresh()
	return m, tea.Batch(cmd, progressTick())
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	switch strings.ToLower(strings.Fields(input)[0]) {
	case "/help":
		m.notice = helpText
	case "/copy":
		if m.snapshot == nil || m.snapshot.SceneArt == "" {
			m.notice = "No scene art to copy yet."
			break
		}
		return m, copyToClipboard("Scene art copied to clipboard.", m.snapshot.SceneArt)
	case "/map":
		if m.snapshot == nil || m.snapshot.MapArt == "" {
			m.notice = "No map to copy yet."
			break
		}
		return m, copyToClipboard("Map copied to clipboard.", m.snapshot.MapArt)
	case "/pdf":
		if m.snapshot == nil {
			break
		}
		return m, m.savePDF()
	case "/new":
		return m.beginTurn(m.restart())
	case "/quit":
		m.showQuitModal = true
	default:
		m.notice = "Unknown command. Type /help."
	}
	m.refresh()
	return m, nil
}

const helpText = `Commands:
• /help - Show this help
• /copy - Copy the scene art to the clipboard
• /map  - Copy the sector map to the clipboard
• /pdf  - Save the story as a PDF
• /new  - Start over in the same genre
• /quit - Quit (or Esc)
Type an action and press Enter, or 1-4 for a suggestion.`

func (m ConsoleUI) sendAction(action string) tea.Cmd {
	id := m.snapshot.ID
	return func() tea.Msg {
		snap, err := m.api.action(context.Background(), id, action)
		return snapshotMsg{snapshot: snap, action: action, err: err}
	}
}

func (m ConsoleUI) createGame(genre string) tea.Cmd {
	return func() tea.Msg {
		snap, err := m.api.createGame(context.Background(), genre, m.config.Appearance)
		return snapshotMsg{snapshot: snap, action: prompts.StartAction, restart: true, err: err}
	}
}

func (m ConsoleUI) restart() tea.Cmd {
	id := m.snapshot.ID
	return func() tea.Msg {
		snap, err := m.api.restart(context.Background(), id, m.genre, m.config.Appearance)
		return snapshotMsg{snapshot: snap, action: prompts.StartAction, restart: true, err: err}
	}
}

func (m ConsoleUI) savePDF() tea.Cmd {
	id := m.snapshot.ID
	return func() tea.Msg {
		data, err := m.api.storyPDF(context.Background(), id)
		if err != nil {
			return noticeMsg{err: err}
		}
		name := fmt.Sprintf("hushpath-story-%s.pdf", shortID(id))
		if err := os.WriteFile(name, data, 0o644); err != nil {
			return noticeMsg{err: err}
		}
		return noticeMsg{text: "Story saved to " + name}
	}
}

// watchEvents opens the game's event stream in the background.
func (m ConsoleUI) watchEvents(id string) tea.Cmd {
	return func() tea.Msg {
		ch := make(chan events.Event, 16)
		go func() {
			defer close(ch)
			if err := m.api.listenEvents(context.Background(), id, ch); err != nil {
				m.logger.Warn("Event stream ended", "session_id", id, "error", err)
			}
		}()
		return streamStartedMsg{ch: ch}
	}
}

func waitForEvent(ch <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-ch
		return eventMsg{event: e, ok: ok}
	}
}

// progressText describes what the server is doing during a turn.
func progressText(e events.Event) string {
	switch e.Type {
	case events.EventTypeTurnStarted:
		return "The world considers your move..."
	case events.EventTypeArtResolved:
		if e.Data["slot"] == "portrait" {
			return "Your likeness takes shape..."
		}
		return "The scene is drawn..."
	case events.EventTypeTurnFailed:
		return "Something went wrong..."
	default:
		return ""
	}
}

func copyToClipboard(done, text string) tea.Cmd {
	return func() tea.Msg {
		if err := clipboard.WriteAll(text); err != nil {
			return noticeMsg{err: err}
		}
		return noticeMsg{text: done}
	}
}

// pickSuggestion maps "1".."4" onto the suggested actions.
func pickSuggestion(input string, snap *engine.Snapshot) (string, bool) {
	if snap == nil || len(input) != 1 || input[0] < '1' || input[0] > '9' {
		return "", false
	}
	i := int(input[0] - '1')
	if i >= len(snap.SuggestedActions) {
		return "", false
	}
	return snap.SuggestedActions[i], true
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (m ConsoleUI) updateGenreModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case snapshotMsg:
		m.loading = false
		if msg.err != nil {
			m.logger.Error("Failed to start game", "genre", m.genre, "error", msg.err)
			m.startErr = msg.err
			return m, nil
		}
		m.showGenreModal = false
		m.snapshot = msg.snapshot
		m.entries = []logEntry{{action: msg.action, narrative: msg.snapshot.Narrative}}
		if m.width > 0 && m.height > 0 {
			m.layout()
			m.ready = true
		}
		m.refresh()
		m.textarea.Focus()
		return m, tea.Batch(textarea.Blink, m.watchEvents(msg.snapshot.ID))

	case tea.KeyMsg:
		if m.loading {
			if msg.Type == tea.KeyCtrlC {
				return m, tea.Quit
			}
			return m, nil
		}
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyUp:
			if m.selectedGenre > 0 {
				m.selectedGenre--
			}
		case tea.KeyDown:
			if m.selectedGenre < len(m.genres)-1 {
				m.selectedGenre++
			}
		case tea.KeyEnter:
			m.genre = m.genres[m.selectedGenre]
			m.startErr = nil
			m.loading = true
			return m, m.createGame(m.genre)
		}
	}
	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, m.quit()
		default:
			switch msg.String() {
			case "y", "Y":
				return m, m.quit()
			case "n", "N":
				m.showQuitModal = false
				if m.showGenreModal {
					return m, nil
				}
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}
	return m, nil
}

// quit ends the session on the server before leaving.
func (m ConsoleUI) quit() tea.Cmd {
	if m.snapshot == nil {
		return tea.Quit
	}
	id := m.snapshot.ID
	return tea.Sequence(func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := m.api.endGame(ctx, id); err != nil {
			m.logger.Warn("Failed to end game", "session_id", id, "error", err)
		}
		return nil
	}, tea.Quit)
}

func (m ConsoleUI) renderStory(width int) string {
	width = max(20, width-2)
	var b strings.Builder
	b.WriteString(titleStyle.Render("HUSHPATH") + "\n\n")

	if s := m.snapshot; s != nil {
		if s.SceneArt != "" {
			b.WriteString(artStyle.Render(strings.TrimRight(s.SceneArt, "\n")) + "\n")
		}
		if s.SceneCaption != "" {
			b.WriteString(captionStyle.Render(wordwrap.String(s.SceneCaption, width)) + "\n")
		}
		b.WriteString(separatorStyle.Render(strings.Repeat("─", width)) + "\n\n")
	}

	for _, e := range m.entries {
		if e.action != "" && e.action != prompts.StartAction {
			b.WriteString(userStyle.Render("> ") + wordwrap.String(e.action, width-2) + "\n")
		}
		text := wordwrap.String(e.narrative, width)
		if e.failed {
			b.WriteString(errorStyle.Render(text) + "\n\n")
		} else {
			b.WriteString(narratorStyle.Render(text) + "\n\n")
		}
	}

	if m.snapshot != nil && m.snapshot.GameOver {
		b.WriteString(errorStyle.Render("GAME OVER") + "  " + promptStyle.Render("/new to begin again") + "\n\n")
	}
	if m.notice != "" {
		b.WriteString(loadingStyle.Render(m.notice) + "\n\n")
	}
	if m.loading {
		b.WriteString(renderProgressBar(width, m.progressTick))
	}
	return b.String()
}

// renderSide draws the portrait, stats, map and suggestions panel.
func renderSide(s *engine.Snapshot, width int) string {
	if s == nil {
		return ""
	}
	var b strings.Builder
	if s.PortraitArt != "" {
		b.WriteString(artStyle.Render(strings.TrimRight(s.PortraitArt, "\n")) + "\n\n")
	}
	b.WriteString(renderStats(s.PlayerState, width))
	b.WriteString("\n")
	if s.MapArt != "" {
		b.WriteString(titleStyle.Render(fmt.Sprintf("SECTOR %d,%d", s.MapCoordinates.X, s.MapCoordinates.Y)) + "\n")
		b.WriteString(s.MapArt + "\n\n")
	}
	b.WriteString(renderActions(s.SuggestedActions, s.RequiresChoice))
	return b.String()
}

func renderStats(p game.PlayerState, width int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(p.Name) + "\n")
	fmt.Fprintf(&b, "Level %d %s\n", p.Level, p.Class)
	fmt.Fprintf(&b, "HP   %s %d/%d\n", meter(p.HP, p.MaxHP, 10), p.HP, p.MaxHP)
	fmt.Fprintf(&b, "Mana %s %d/%d\n", meter(p.Mana, p.MaxMana, 10), p.Mana, p.MaxMana)
	fmt.Fprintf(&b, "XP %d  Gold %d  Turn %d\n", p.XP, p.Gold, p.Turn)
	b.WriteString("Location: " + wordwrap.String(p.Location, max(10, width-10)) + "\n")
	if len(p.Inventory) > 0 {
		b.WriteString("Inventory: " + wordwrap.String(strings.Join(p.Inventory, ", "), max(10, width-11)) + "\n")
	}
	if len(p.StatusEffects) > 0 {
		b.WriteString("Status: " + strings.Join(p.StatusEffects, ", ") + "\n")
	}
	return b.String()
}

// meter draws value/limit as a bar of n cells.
func meter(value, limit, n int) string {
	filled := 0
	if limit > 0 {
		filled = max(0, min(n, value*n/limit))
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", n-filled)
}

func renderActions(actions []string, requiresChoice bool) string {
	var b strings.Builder
	title := "SUGGESTIONS"
	if requiresChoice {
		title = "CHOOSE"
	}
	b.WriteString(titleStyle.Render(title) + "\n")
	for i, a := range actions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, a)
	}
	return b.String()
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Game?"))
	content.WriteString("\n\n")
	content.WriteString("Are you sure you want to leave this world?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderGenreModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	switch {
	case m.loading:
		content.WriteString(modalTitleStyle.Render("Entering the World..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("The " + m.genre + " world is taking shape..."))
	default:
		content.WriteString(modalTitleStyle.Render("Choose a Genre"))
		content.WriteString("\n\n")
		if m.startErr != nil {
			content.WriteString(errorStyle.Render(playerMessage(m.startErr)))
			content.WriteString("\n\n")
		}
		for i, genre := range m.genres {
			if i == m.selectedGenre {
				content.WriteString(modalSelectedItemStyle.Render("▶ " + genre))
			} else {
				content.WriteString(modalItemStyle.Render("  " + genre))
			}
			content.WriteString("\n")
		}
		content.WriteString("\n")
		content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Esc to exit"))
	}

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if m.showGenreModal {
		return m.renderGenreModal()
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	storyWidth := m.storyViewport.Width + 2
	storyPanel := storyPanelStyle.Width(storyWidth).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.storyViewport.View(),
			separatorStyle.Render(strings.Repeat("─", max(1, storyWidth-4))),
			m.textarea.View(),
		),
	)
	sidePanel := sidePanelStyle.Width(m.sideViewport.Width).Render(m.sideViewport.View())
	return lipgloss.JoinHorizontal(lipgloss.Top, storyPanel, sidePanel)
}

// renderProgressBar draws the animated waiting bar.
func renderProgressBar(width, tick int) string {
	usable := max(10, min(80, width))

	const totalFrames = 40
	frame := tick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓") // Blinking effect at the progress point
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

// progressTick creates a command that sends a progress tick message
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}

package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/genrify/internal/models"
	"github.com/desertthunder/genrify/internal/services"
	"github.com/desertthunder/genrify/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LikedListView ViewState = iota
	ConfirmView
	SortView
	ResultView
)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	spotify      services.Service
	engine       tasks.SortEngine
	opts         tasks.SortOptions
	width        int
	height       int
	trackList    list.Model
	tracks       []models.Track
	progressChan chan tasks.ProgressUpdate
	progress     tasks.ProgressUpdate
	result       *tasks.SortResult
	err          error
	help         help.Model
	keys         keyMap
}

// keyMap defines the key bindings for the TUI.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	enter   key.Binding
	back    key.Binding
	yes     key.Binding
	no      key.Binding
	restart key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "sort"),
		),
		back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		yes: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "yes"),
		),
		no: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "no"),
		),
		restart: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "restart"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter},
		{k.back, k.yes, k.no},
		{k.restart, k.quit},
	}
}

// trackItem wraps [models.Track] to implement list.Item.
type trackItem struct {
	track models.Track
}

func (i trackItem) FilterValue() string { return i.track.Title }
func (i trackItem) Title() string       { return i.track.Title }
func (i trackItem) Description() string {
	desc := i.track.Artist
	if i.track.Album != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.track.Album)
	}
	return desc
}

type likedFetchedMsg struct {
	tracks []models.Track
	err    error
}

type progressUpdateMsg tasks.ProgressUpdate

type sortCompleteMsg struct {
	result *tasks.SortResult
	err    error
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, spotify services.Service, engine tasks.SortEngine, opts tasks.SortOptions) *Model {
	return &Model{
		ctx:     ctx,
		view:    LikedListView,
		spotify: spotify,
		engine:  engine,
		opts:    opts,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init initializes the TUI by fetching liked songs from Spotify.
func (m *Model) Init() tea.Cmd {
	return m.fetchLiked()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.trackList.Width() == 0 {
			m.trackList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case LikedListView:
			return m.handleLikedListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case likedFetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.tracks = msg.tracks
		items := make([]list.Item, len(msg.tracks))
		for i, track := range msg.tracks {
			items[i] = trackItem{track: track}
		}
		m.trackList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.trackList.Title = fmt.Sprintf("Liked Songs (%d)", len(msg.tracks))
		m.trackList.SetSize(m.width-4, m.height-8)
		return m, nil

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case sortCompleteMsg:
		m.result = msg.result
		m.err = msg.err
		m.view = ResultView
		m.progressChan = nil
		return m, nil
	}

	return m.updateList(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case LikedListView:
		return m.renderLikedList()
	case ConfirmView:
		return m.renderConfirm()
	case SortView:
		return m.renderSort()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleLikedListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "enter":
		if len(m.tracks) > 0 {
			m.view = ConfirmView
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "n", "esc":
		m.view = LikedListView
		return m, nil
	case "y":
		m.view = SortView
		return m, m.startSort()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		m.view = LikedListView
		m.result = nil
		m.err = nil
		return m, m.fetchLiked()
	}
	return m, nil
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.view == LikedListView {
		m.trackList, cmd = m.trackList.Update(msg)
	}
	return m, cmd
}

func (m *Model) fetchLiked() tea.Cmd {
	return func() tea.Msg {
		tracks, err := m.spotify.LikedTracks(m.ctx, m.opts.Limit)
		return likedFetchedMsg{tracks: tracks, err: err}
	}
}

func (m *Model) startSort() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	progressChan := m.progressChan

	go func() {
		result, err := m.engine.Run(m.ctx, m.opts, progressChan)
		m.result = result
		m.err = err
		close(progressChan)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		if m.progressChan == nil {
			return sortCompleteMsg{result: m.result, err: m.err}
		}

		update, ok := <-m.progressChan
		if !ok {
			return sortCompleteMsg{result: m.result, err: m.err}
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderLikedList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.trackList.View(), helpView)
}

func (m *Model) renderConfirm() string {
	action := "Sort"
	if m.opts.DryRun {
		action = "Dry-run sort of"
	}
	title := styles.title.Render(fmt.Sprintf("%s %d liked songs into genre playlists?", action, len(m.tracks)))

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s", title, helpView)
}

func (m *Model) renderSort() string {
	title := styles.title.Render("Sorting Library")

	var phase string
	switch m.progress.Phase {
	case tasks.FetchLiked:
		phase = "Fetching liked songs..."
	case tasks.FetchFeatures:
		phase = fmt.Sprintf("Fetching audio features (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.ClassifyTracks:
		phase = fmt.Sprintf("Classifying tracks (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.EnsurePlaylists:
		phase = "Preparing genre playlists..."
	case tasks.AddTracks:
		phase = fmt.Sprintf("Adding tracks (%d/%d)", m.progress.Step, m.progress.Total)
	default:
		phase = "Processing..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, m.progress.Message)
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Sort failed: %v\n\nPress r to retry, q to quit", m.err))
	}

	if m.result == nil {
		return styles.err.Render("No result available\n\nPress r to retry, q to quit")
	}

	header := "✓ Sort Complete!"
	if m.result.DryRun {
		header = "✓ Dry Run Complete (nothing was modified)"
	}
	title := styles.ok.Render(header)

	info := fmt.Sprintf(
		"\nLiked songs: %d\nClassified: %d\nAdded: %d, skipped: %d\n",
		m.result.TotalTracks,
		m.result.ClassifiedTracks,
		m.result.AddedTracks,
		m.result.SkippedTracks,
	)

	for _, bucket := range m.result.Buckets {
		name := "(would create)"
		if bucket.Playlist != nil {
			name = bucket.Playlist.Name
		}
		info += fmt.Sprintf("\n  %s → %s (%d added)", bucket.Genre, name, len(bucket.Added))
	}

	var failed string
	if m.result.FailedTracks > 0 {
		failed = fmt.Sprintf("\n\n%s", styles.warn.Render(fmt.Sprintf("Failed to sort %d tracks:", m.result.FailedTracks)))
		for _, failure := range m.result.Failures {
			failed += fmt.Sprintf("\n  • %s - %s", failure.Track.Artist, failure.Track.Title)
		}
	}

	helpKeys := []key.Binding{m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, failed, helpView)
}

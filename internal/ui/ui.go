package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/music-downloader-hub/tunepull/internal/queue"
	"github.com/music-downloader-hub/tunepull/internal/tracker"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	QueueView ViewState = iota
	DownloadsView
)

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	view    ViewState
	store   *queue.Store
	manager *tracker.Manager

	width  int
	height int

	queueList list.Model
	listReady bool

	cursor  int
	updates map[string]tracker.Update

	spin   spinner.Model
	bar    progress.Model
	notice string
	err    error

	help help.Model
	keys keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, store *queue.Store, manager *tracker.Manager) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return &Model{
		ctx:     ctx,
		view:    QueueView,
		store:   store,
		manager: manager,
		updates: make(map[string]tracker.Update),
		spin:    sp,
		bar:     progress.New(progress.WithDefaultGradient()),
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init loads the queue and starts listening for tracker updates.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadQueue(), m.waitForUpdate(), m.spin.Tick)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.listReady {
			m.queueList.SetSize(msg.Width-4, msg.Height-8)
		}
		m.bar.Width = msg.Width - 30
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case QueueView:
			return m.handleQueueKeys(msg)
		case DownloadsView:
			return m.handleDownloadKeys(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case queueLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		items := make([]list.Item, len(msg.items))
		for i, it := range msg.items {
			items[i] = queueItem{item: it}
		}
		if !m.listReady {
			m.queueList = list.New(items, list.NewDefaultDelegate(), 0, 0)
			m.queueList.Title = "Download Queue"
			m.queueList.SetSize(m.width-4, m.height-8)
			m.listReady = true
		} else {
			m.queueList.SetItems(items)
		}
		return m, nil

	case submittedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.manager.AddAll(msg.entries)
		m.notice = fmt.Sprintf("submitted %d jobs", len(msg.entries))
		m.err = nil
		m.view = DownloadsView
		return m, nil

	case trackerUpdateMsg:
		update := tracker.Update(msg)
		m.updates[update.JobID] = update
		if update.Err != nil {
			m.err = update.Err
		}
		return m, m.waitForUpdate()

	case actionDoneMsg:
		m.notice = msg.note
		m.err = msg.err
		return m, nil
	}

	if m.view == QueueView && m.listReady {
		var cmd tea.Cmd
		m.queueList, cmd = m.queueList.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case QueueView:
		return m.renderQueue()
	case DownloadsView:
		return m.renderDownloads()
	default:
		return ""
	}
}

func (m *Model) handleQueueKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.switchV):
		m.view = DownloadsView
		return m, nil
	case key.Matches(msg, m.keys.toggle):
		if it, ok := m.selectedQueueItem(); ok {
			return m, m.toggleItem(it.item.ID)
		}
	case key.Matches(msg, m.keys.remove):
		if it, ok := m.selectedQueueItem(); ok {
			return m, m.removeItem(it.item.ID)
		}
	case key.Matches(msg, m.keys.submit):
		return m, m.submit(queue.Scope{SelectedOnly: true})
	case key.Matches(msg, m.keys.all):
		return m, m.submit(queue.Scope{})
	}

	if m.listReady {
		var cmd tea.Cmd
		m.queueList, cmd = m.queueList.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleDownloadKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	trackers := m.manager.Trackers()

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.switchV):
		m.view = QueueView
		return m, m.loadQueue()
	case key.Matches(msg, m.keys.up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case key.Matches(msg, m.keys.down):
		if m.cursor < len(trackers)-1 {
			m.cursor++
		}
		return m, nil
	case key.Matches(msg, m.keys.cancel):
		if t, ok := m.cursorTracker(trackers); ok {
			return m, m.cancelJob(t)
		}
	case key.Matches(msg, m.keys.fetch):
		if t, ok := m.cursorTracker(trackers); ok {
			return m, m.fetchJob(t)
		}
	case key.Matches(msg, m.keys.remove):
		if t, ok := m.cursorTracker(trackers); ok {
			m.manager.Remove(t.Entry().JobID)
			if m.cursor >= m.manager.Len() && m.cursor > 0 {
				m.cursor--
			}
		}
		return m, nil
	case key.Matches(msg, m.keys.clear):
		m.manager.Clear()
		m.cursor = 0
		return m, nil
	}
	return m, nil
}

func (m *Model) selectedQueueItem() (queueItem, bool) {
	if !m.listReady {
		return queueItem{}, false
	}
	it, ok := m.queueList.SelectedItem().(queueItem)
	return it, ok
}

func (m *Model) cursorTracker(trackers []*tracker.Tracker) (*tracker.Tracker, bool) {
	if m.cursor < 0 || m.cursor >= len(trackers) {
		return nil, false
	}
	return trackers[m.cursor], true
}

func (m *Model) loadQueue() tea.Cmd {
	return func() tea.Msg {
		items, err := m.store.Items()
		return queueLoadedMsg{items: items, err: err}
	}
}

func (m *Model) toggleItem(itemID string) tea.Cmd {
	return func() tea.Msg {
		if err := m.store.ToggleSelected(itemID); err != nil {
			return queueLoadedMsg{err: err}
		}
		items, err := m.store.Items()
		return queueLoadedMsg{items: items, err: err}
	}
}

func (m *Model) removeItem(itemID string) tea.Cmd {
	return func() tea.Msg {
		if err := m.store.Remove(itemID); err != nil {
			return queueLoadedMsg{err: err}
		}
		items, err := m.store.Items()
		return queueLoadedMsg{items: items, err: err}
	}
}

func (m *Model) submit(scope queue.Scope) tea.Cmd {
	return func() tea.Msg {
		entries, err := m.store.Submit(m.ctx, scope)
		return submittedMsg{entries: entries, err: err}
	}
}

func (m *Model) cancelJob(t *tracker.Tracker) tea.Cmd {
	return func() tea.Msg {
		if err := t.Cancel(m.ctx); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{note: fmt.Sprintf("cancelled %s", t.Entry().DisplayName)}
	}
}

func (m *Model) fetchJob(t *tracker.Tracker) tea.Cmd {
	return func() tea.Msg {
		path, err := t.Fetch(m.ctx)
		if err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{note: fmt.Sprintf("saved %s", path)}
	}
}

func (m *Model) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		update, ok := <-m.manager.Updates()
		if !ok {
			return nil
		}
		return trackerUpdateMsg(update)
	}
}

func (m *Model) renderQueue() string {
	if !m.listReady {
		return fmt.Sprintf("%s loading queue...", m.spin.View())
	}

	helpKeys := []key.Binding{m.keys.toggle, m.keys.submit, m.keys.all, m.keys.remove, m.keys.switchV, m.keys.quit}
	footer := m.help.ShortHelpView(helpKeys)
	if m.err != nil {
		footer = styles.err.Render(m.err.Error()) + "\n" + footer
	} else if m.notice != "" {
		footer = styles.help.Render(m.notice) + "\n" + footer
	}
	return fmt.Sprintf("%s\n\n%s", m.queueList.View(), footer)
}

func (m *Model) renderDownloads() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Downloads"))
	b.WriteString("\n\n")

	trackers := m.manager.Trackers()
	if len(trackers) == 0 {
		b.WriteString(styles.help.Render("no active downloads"))
		b.WriteString("\n")
	}

	for i, t := range trackers {
		entry := t.Entry()
		pointer := "  "
		if i == m.cursor {
			pointer = "> "
		}
		b.WriteString(fmt.Sprintf("%s%s [%s]\n", pointer, entry.DisplayName, entry.FormatLabel))
		b.WriteString(fmt.Sprintf("    %s\n", m.renderJobState(t)))
	}

	helpKeys := []key.Binding{m.keys.up, m.keys.down, m.keys.cancel, m.keys.fetch, m.keys.remove, m.keys.clear, m.keys.switchV, m.keys.quit}
	footer := m.help.ShortHelpView(helpKeys)
	if m.err != nil {
		footer = styles.err.Render(m.err.Error()) + "\n" + footer
	} else if m.notice != "" {
		footer = styles.help.Render(m.notice) + "\n" + footer
	}

	return fmt.Sprintf("%s\n%s", b.String(), footer)
}

func (m *Model) renderJobState(t *tracker.Tracker) string {
	switch t.State() {
	case tracker.StateInitializing:
		return fmt.Sprintf("%s connecting...", m.spin.View())
	case tracker.StateRunning:
		snap := t.Progress()
		if snap == nil {
			return fmt.Sprintf("%s running", m.spin.View())
		}
		phase := snap.Phase
		if phase == "" {
			phase = "downloading"
		}
		return fmt.Sprintf("%s %s %s", m.bar.ViewAs(snap.Percent/100), phase, snap.Speed)
	case tracker.StateCompleted:
		return styles.ok.Render("✓ completed")
	case tracker.StateFailed:
		return styles.err.Render("✗ failed")
	case tracker.StateCancelled:
		return styles.warn.Render("cancelled")
	default:
		return ""
	}
}

// Package ui implements the Bubble Tea progress display for batch stamp runs.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/stackvity/autoheader/internal/cli/hooks"
	"github.com/stackvity/autoheader/pkg/autoheader"
)

const listHeightMargin = 4

const (
	phaseInitializing = "Initializing..."
	phaseScanning     = "Scanning..."
	phaseStamping     = "Stamping..."
	phaseComplete     = "Complete"
)

// Model is the TUI state. Bubble Tea calls Update and View from a single
// goroutine, so the model needs no locking.
type Model struct {
	list    list.Model
	spinner spinner.Model
	version string

	width       int
	height      int
	initialized bool

	fileItems []listItem
	itemMap   map[string]int
	summary   Summary

	phaseMessage string
	fatalError   string
	quitting     bool
	done         bool

	// listDirty is set when fileItems changed since the last list refresh;
	// refreshScheduled guards against stacking refresh ticks.
	listDirty        bool
	refreshScheduled bool
}

type listItem struct {
	path     string
	status   autoheader.Status
	message  string
	duration time.Duration
}

// Summary holds the counts shown in the footer.
type Summary struct {
	TotalFilesScanned int
	Inserted          int
	Updated           int
	Unchanged         int
	Skipped           int
	Errors            int
	StartTime         time.Time
}

// NewModel creates the initial model. version is shown in the header.
func NewModel(version string) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorStatusProcessing)

	delegate := list.NewDefaultDelegate()
	delegate.SetSpacing(0)
	delegate.ShowDescription = true
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(ColorSelectedFg).
		Background(ColorSelectedBg).
		Bold(true).
		Padding(0, 0, 0, 1)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(ColorSelectedDescFg).
		Background(ColorSelectedBg).
		Padding(0, 0, 0, 1)
	delegate.Styles.NormalTitle = delegate.Styles.NormalTitle.
		Foreground(ColorNormalFg).Padding(0, 0, 0, 1)
	delegate.Styles.NormalDesc = delegate.Styles.NormalDesc.
		Foreground(ColorNormalDescFg).Padding(0, 0, 0, 1)

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowTitle(false)
	l.SetShowFilter(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	if version == "" {
		version = "dev"
	}
	return &Model{
		list:         l,
		spinner:      s,
		version:      version,
		summary:      Summary{StartTime: time.Now()},
		phaseMessage: phaseInitializing,
		fileItems:    make([]listItem, 0, 256),
		itemMap:      make(map[string]int),
	}
}

// Init starts the spinner.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles key input and stamper events.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		listHeight := m.height - listHeightMargin
		if listHeight < 1 {
			listHeight = 1
		}
		m.list.SetSize(m.width, listHeight)
		m.initialized = true

	case tea.KeyMsg:
		if m.quitting {
			return m, nil
		}
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}
		var listCmd tea.Cmd
		m.list, listCmd = m.list.Update(msg)
		cmds = append(cmds, listCmd)

	case spinner.TickMsg:
		if m.quitting || m.done {
			return m, nil
		}
		var spinnerCmd tea.Cmd
		m.spinner, spinnerCmd = m.spinner.Update(msg)
		cmds = append(cmds, spinnerCmd)

	case hooks.FileDiscoveredMsg:
		if _, exists := m.itemMap[msg.Path]; !exists {
			m.addItem(listItem{path: msg.Path, status: autoheader.StatusPending})
			cmds = append(cmds, m.scheduleRefresh())
		}
		if m.phaseMessage == phaseInitializing {
			m.phaseMessage = phaseScanning
		}

	case hooks.FileStatusUpdateMsg:
		idx, ok := m.itemMap[msg.Path]
		if !ok {
			m.addItem(listItem{path: msg.Path, status: autoheader.StatusPending})
			idx = m.itemMap[msg.Path]
		}
		item := &m.fileItems[idx]
		wasFinal := isFinalStatus(item.status)
		if isFinalStatus(msg.Status) && !wasFinal {
			m.adjustSummary(msg.Status, 1)
		} else if !isFinalStatus(msg.Status) && wasFinal {
			m.adjustSummary(item.status, -1)
		}
		item.status = msg.Status
		item.message = msg.Message
		item.duration = msg.Duration
		cmds = append(cmds, m.scheduleRefresh())
		if m.phaseMessage != phaseComplete {
			m.phaseMessage = phaseStamping
		}

	case hooks.RunCompleteMsg:
		s := msg.Report.Summary
		m.phaseMessage = phaseComplete
		m.done = true
		m.summary.TotalFilesScanned = s.TotalFilesScanned
		m.summary.Inserted = s.InsertedCount
		m.summary.Updated = s.UpdatedCount
		m.summary.Unchanged = s.UnchangedCount
		m.summary.Skipped = s.SkippedCount
		m.summary.Errors = s.ErrorCount
		if s.FatalErrorOccurred {
			m.fatalError = "Run halted due to fatal error."
			for _, e := range msg.Report.Errors {
				if e.IsFatal {
					m.fatalError = fmt.Sprintf("Fatal Error: %s (%s)", e.Error, e.Path)
					break
				}
			}
		}
		m.listDirty = true
		cmds = append(cmds, m.refreshList())

	case refreshListMsg:
		m.refreshScheduled = false
		if m.listDirty {
			cmds = append(cmds, m.refreshList())
		}
	}

	return m, tea.Batch(cmds...)
}

// View renders header, file list and footer.
func (m *Model) View() string {
	if m.quitting {
		return "Exiting...\n"
	}
	if !m.initialized {
		return phaseInitializing
	}

	headerLeft := fmt.Sprintf("autoheader v%s", m.version)
	headerRight := m.phaseMessage
	if !m.done && m.phaseMessage != phaseInitializing {
		headerRight = m.spinner.View() + " " + m.phaseMessage
	}
	header := HeaderStyle.Width(m.width).Render(spread(m.width, headerLeft, headerRight))

	elapsed := time.Since(m.summary.StartTime).Round(time.Millisecond)
	summaryText := fmt.Sprintf(
		"Inserted: %d | Updated: %d | Unchanged: %d | Skipped: %d | Failed: %d | Total Scanned: %d | Elapsed: %s",
		m.summary.Inserted,
		m.summary.Updated,
		m.summary.Unchanged,
		m.summary.Skipped,
		m.summary.Errors,
		m.summary.TotalFilesScanned,
		elapsed,
	)
	footer := FooterStyle.Width(m.width).Render(spread(m.width, summaryText, "q: quit"))

	errorView := ""
	if m.fatalError != "" {
		errorView = StatusStyleFailed.Render(m.fatalError) + "\n"
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.list.View(),
		errorView,
		footer,
	)
}

// Summary returns the current footer counts.
func (m *Model) Summary() Summary { return m.summary }

func spread(width int, left, right string) string {
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	center := ""
	if gap > 0 {
		center = lipgloss.PlaceHorizontal(gap, lipgloss.Center, " ")
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, left, center, right)
}

func (m *Model) addItem(item listItem) {
	m.fileItems = append(m.fileItems, item)
	m.itemMap[item.path] = len(m.fileItems) - 1
	m.summary.TotalFilesScanned++
}

func isFinalStatus(status autoheader.Status) bool {
	switch status {
	case autoheader.StatusInserted, autoheader.StatusUpdated, autoheader.StatusUnchanged,
		autoheader.StatusSkipped, autoheader.StatusFailed:
		return true
	}
	return false
}

func (m *Model) adjustSummary(status autoheader.Status, delta int) {
	switch status {
	case autoheader.StatusInserted:
		m.summary.Inserted += delta
	case autoheader.StatusUpdated:
		m.summary.Updated += delta
	case autoheader.StatusUnchanged:
		m.summary.Unchanged += delta
	case autoheader.StatusSkipped:
		m.summary.Skipped += delta
	case autoheader.StatusFailed:
		m.summary.Errors += delta
	}
}

// --- List refresh throttling ---

// refreshListMsg asks the model to push fileItems into the list component.
type refreshListMsg struct{}

const listRefreshInterval = 50 * time.Millisecond

// scheduleRefresh marks the list dirty and arms a single refresh tick.
func (m *Model) scheduleRefresh() tea.Cmd {
	m.listDirty = true
	if m.refreshScheduled {
		return nil
	}
	m.refreshScheduled = true
	return tea.Tick(listRefreshInterval, func(time.Time) tea.Msg { return refreshListMsg{} })
}

func (m *Model) refreshList() tea.Cmd {
	items := make([]list.Item, len(m.fileItems))
	for i, item := range m.fileItems {
		items[i] = item
	}
	m.listDirty = false
	return m.list.SetItems(items)
}

// --- list.Item ---

// FilterValue implements list.Item.
func (i listItem) FilterValue() string { return i.path }

// Title implements list.DefaultItem.
func (i listItem) Title() string { return i.path }

// Description implements list.DefaultItem.
func (i listItem) Description() string {
	var style lipgloss.Style
	icon := " "
	switch i.status {
	case autoheader.StatusInserted:
		style, icon = StatusStyleSuccess, "+"
	case autoheader.StatusUpdated:
		style, icon = StatusStyleSuccess, "✓"
	case autoheader.StatusUnchanged:
		style, icon = StatusStyleUnchanged, "="
	case autoheader.StatusFailed:
		style, icon = StatusStyleFailed, "✗"
	case autoheader.StatusSkipped:
		style, icon = StatusStyleSkipped, "S"
	case autoheader.StatusProcessing:
		style, icon = StatusStyleProcessing, "…"
	default:
		style = StatusStylePending
	}

	details := ""
	switch i.status {
	case autoheader.StatusFailed:
		details = i.message
	case autoheader.StatusSkipped:
		details = strings.TrimSpace(strings.SplitN(i.message, ":", 2)[0])
	case autoheader.StatusInserted, autoheader.StatusUpdated, autoheader.StatusUnchanged:
		details = formatDuration(i.duration)
	}
	return fmt.Sprintf("%s %s", style.Render("["+icon+"]"), details)
}

func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return ""
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

// --- Styles ---

const (
	ColorHeaderFg = lipgloss.Color("252")
	ColorHeaderBg = lipgloss.Color("62")

	ColorFooterFg = lipgloss.Color("252")
	ColorFooterBg = lipgloss.Color("56")

	ColorNormalFg     = lipgloss.Color("250")
	ColorNormalDescFg = lipgloss.Color("244")

	ColorSelectedFg     = lipgloss.Color("255")
	ColorSelectedBg     = lipgloss.Color("56")
	ColorSelectedDescFg = lipgloss.Color("248")

	ColorStatusSuccess    = lipgloss.Color("40")
	ColorStatusFailed     = lipgloss.Color("196")
	ColorStatusSkipped    = lipgloss.Color("214")
	ColorStatusUnchanged  = lipgloss.Color("39")
	ColorStatusPending    = lipgloss.Color("244")
	ColorStatusProcessing = lipgloss.Color("205")
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorHeaderFg).
			Background(ColorHeaderBg).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorFooterFg).
			Background(ColorFooterBg).
			Padding(0, 1)

	StatusStyleSuccess    = lipgloss.NewStyle().Foreground(ColorStatusSuccess)
	StatusStyleFailed     = lipgloss.NewStyle().Foreground(ColorStatusFailed)
	StatusStyleSkipped    = lipgloss.NewStyle().Foreground(ColorStatusSkipped)
	StatusStyleUnchanged  = lipgloss.NewStyle().Foreground(ColorStatusUnchanged)
	StatusStylePending    = lipgloss.NewStyle().Foreground(ColorStatusPending)
	StatusStyleProcessing = lipgloss.NewStyle().Foreground(ColorStatusProcessing)
)

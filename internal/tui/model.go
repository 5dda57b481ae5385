// Package tui renders the live violation list in a terminal.
package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"birdnest/internal/violation"
)

const maxLogLines = 200

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// FetchViews reads the violation list from url.
func FetchViews(ctx context.Context, client *http.Client, url string) ([]violation.View, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	var views []violation.View
	if err := json.NewDecoder(resp.Body).Decode(&views); err != nil {
		return nil, fmt.Errorf("decode violations: %w", err)
	}
	return views, nil
}

type tickMsg time.Time

type viewsMsg struct {
	views []violation.View
	at    time.Time
	err   error
}

// Model is the bubbletea model of the watch view.
type Model struct {
	url      string
	client   *http.Client
	interval time.Duration

	table     table.Model
	vp        viewport.Model
	views     []violation.View
	known     map[string]violation.View
	logs      []string
	err       error
	lastFetch time.Time
	width     int
	height    int
	wrap      bool
	help      bool
}

// NewModel creates a model polling url every interval.
func NewModel(url string, client *http.Client, interval time.Duration) Model {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	cols := []table.Column{
		{Title: "Serial", Width: 18},
		{Title: "Pilot", Width: 22},
		{Title: "Email", Width: 28},
		{Title: "Phone", Width: 16},
		{Title: "Closest (m)", Width: 12},
		{Title: "Last seen", Width: 10},
	}
	return Model{
		url:      url,
		client:   client,
		interval: interval,
		table:    table.New(table.WithColumns(cols), table.WithHeight(10), table.WithFocused(true)),
		vp:       viewport.New(0, 0),
		known:    make(map[string]violation.View),
		wrap:     true,
	}
}

func (m Model) fetch() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.interval+5*time.Second)
		defer cancel()
		views, err := FetchViews(ctx, m.client, m.url)
		return viewsMsg{views: views, at: time.Now(), err: err}
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return m.fetch() }

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.table.SetWidth(msg.Width)
		m.vp.Width = msg.Width
		m.layout()
		m.refreshLog()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshLog()
		case "h", "?":
			m.help = !m.help
		}
	case tickMsg:
		return m, m.fetch()
	case viewsMsg:
		m.lastFetch = msg.at
		m.err = msg.err
		if msg.err == nil {
			m.apply(msg.views, msg.at)
		}
		return m, m.tick()
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// apply replaces the table content and logs what changed since the last poll.
func (m *Model) apply(views []violation.View, at time.Time) {
	seen := make(map[string]violation.View, len(views))
	rows := make([]table.Row, 0, len(views))
	for _, v := range views {
		seen[v.SerialNumber] = v
		rows = append(rows, table.Row{
			v.SerialNumber,
			strings.TrimSpace(v.FirstName + " " + v.LastName),
			v.Email,
			v.Phone,
			fmt.Sprintf("%.0f", v.Dist/1000),
			fmt.Sprintf("%.0fs ago", at.Sub(v.LastSeenTime()).Seconds()),
		})
		old, ok := m.known[v.SerialNumber]
		switch {
		case !ok:
			m.addLog(fmt.Sprintf("%s new violation %s at %.1fm", at.Format("15:04:05"), v.SerialNumber, v.Dist/1000))
		case old.PilotID != v.PilotID:
			m.addLog(fmt.Sprintf("%s %s identified as %s %s", at.Format("15:04:05"), v.SerialNumber, v.FirstName, v.LastName))
		case v.Dist < old.Dist:
			m.addLog(fmt.Sprintf("%s %s came closer: %.1fm", at.Format("15:04:05"), v.SerialNumber, v.Dist/1000))
		}
	}
	for serial := range m.known {
		if _, ok := seen[serial]; !ok {
			m.addLog(fmt.Sprintf("%s %s expired", at.Format("15:04:05"), serial))
		}
	}
	m.known = seen
	m.views = views
	m.table.SetRows(rows)
}

func (m *Model) addLog(line string) {
	m.logs = append(m.logs, line)
	if len(m.logs) > maxLogLines {
		m.logs = m.logs[len(m.logs)-maxLogLines:]
	}
	m.refreshLog()
}

func (m *Model) refreshLog() {
	lines := m.logs
	if m.wrap && m.vp.Width > 0 {
		lines = make([]string, len(m.logs))
		for i, l := range m.logs {
			lines[i] = wordwrap.String(l, m.vp.Width)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	m.vp.GotoBottom()
}

func (m *Model) layout() {
	// title, table header, dividers, log label and status line
	avail := m.height - 6
	if avail < 4 {
		avail = 4
	}
	tableHeight := avail * 2 / 3
	m.table.SetHeight(tableHeight)
	m.vp.Height = avail - tableHeight
}

// View implements tea.Model.
func (m Model) View() string {
	if m.help {
		return strings.Join([]string{
			"Key Bindings:",
			" q  quit",
			" w  toggle wrap for change log",
			" ↑↓ move in the violation table",
			" h/? toggle this help view",
		}, "\n")
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	divider := dimStyle.Render(strings.Repeat("─", width))
	title := titleStyle.Render(fmt.Sprintf("NDZ violations (%d)", len(m.views)))
	return strings.Join([]string{
		title,
		m.table.View(),
		divider,
		"Changes:",
		m.vp.View(),
		divider,
		m.status(width),
	}, "\n")
}

func (m Model) status(width int) string {
	state := okStyle.Render("●")
	text := "waiting for first poll"
	if !m.lastFetch.IsZero() {
		text = "updated " + m.lastFetch.Format("15:04:05")
	}
	if m.err != nil {
		state = errStyle.Render("●")
		text = wordwrap.String("error: "+m.err.Error(), width-2)
	}
	return fmt.Sprintf("%s %s %s", state, text, dimStyle.Render("| "+m.url+" | h help"))
}

// Run starts the watch program and blocks until the user quits or ctx ends.
func Run(ctx context.Context, url string, client *http.Client, interval time.Duration) error {
	p := tea.NewProgram(NewModel(url, client, interval), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

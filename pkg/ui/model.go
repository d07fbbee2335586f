// Package ui renders the tracked pull requests in a terminal interface:
// one bordered group per tracked user plus a review-requested tab, with a
// status line that mirrors the tracker's progress reports.
package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/prwatch/prwatch/pkg/types"
)

// Tab identifies which list is on screen.
type Tab int

const (
	// TabTeam shows every tracked user's authored pull requests.
	TabTeam Tab = iota
	// TabRequested shows the merged review-request results.
	TabRequested
)

const (
	groupTimestampLayout = "2006.01.02. 15:04"
	createdAtLayout      = "2006 01 02"
)

var (
	titleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	emptyTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	updatingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	readyStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	draftStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	selectedStyle   = lipgloss.NewStyle().Underline(true)
	statusStyle     = lipgloss.NewStyle().Faint(true)
	tabActiveStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
)

// group holds one tracked user's displayed state.
type group struct {
	fetchedAt time.Time
	user      string
	prs       []types.PullRequest
	updating  bool
}

// Model is the bubbletea model. It is used by pointer so the command
// hooks installed after construction are visible to the running program.
type Model struct {
	start     func()
	refresh   func() tea.Msg
	openURL   func(url string) error
	title     string
	me        string
	status    string
	groups    []*group
	requested []types.PullRequest
	tab       Tab
	cursor    int
	syncing   bool
}

// New creates a model. The title line names the tracking window; me (may
// be empty) enables the own-review marker column.
func New(title, me string) *Model {
	return &Model{
		title:   title,
		me:      me,
		openURL: openInBrowser,
	}
}

// SetHooks installs the startup and refresh callbacks. start runs once
// from Init on a command goroutine (seeding plus the optional first
// cycle); refresh runs one sync cycle and returns when it finishes.
func (m *Model) SetHooks(start func(), refresh func()) {
	m.start = start
	if refresh != nil {
		m.refresh = func() tea.Msg {
			refresh()
			return syncDoneMsg{}
		}
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	if m.start == nil {
		return nil
	}
	start := m.start
	return func() tea.Msg {
		start()
		return nil
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case statusMsg:
		m.status = string(msg)
	case markAllUpdatingMsg:
		for _, g := range m.groups {
			g.updating = true
		}
	case userPRsMsg:
		for _, g := range m.groups {
			if g.user == msg.user {
				g.prs = msg.prs
				g.fetchedAt = msg.fetchedAt
				g.updating = false
			}
		}
		m.sortGroups()
		m.clampCursor()
	case reviewRequestedMsg:
		m.requested = msg.prs
		m.clampCursor()
	case addUserMsg:
		g := &group{user: msg.user}
		if msg.snap != nil {
			g.prs = msg.snap.PRs
			g.fetchedAt = msg.snap.FetchedAt
		}
		m.groups = append(m.groups, g)
		m.sortGroups()
	case syncDoneMsg:
		m.syncing = false
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		// Refresh is ignored while a cycle is in flight; the tracker
		// guards re-entry too, this just skips the no-op goroutine.
		if m.refresh != nil && !m.syncing {
			m.syncing = true
			m.status = "Refreshing..."
			return m, m.refresh
		}
	case "tab":
		if m.tab == TabTeam {
			m.tab = TabRequested
		} else {
			m.tab = TabTeam
		}
		m.cursor = 0
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.visible())-1 {
			m.cursor++
		}
	case "enter":
		items := m.visible()
		if m.cursor < len(items) {
			if err := m.openURL(items[m.cursor].URL); err != nil {
				m.status = fmt.Sprintf("Could not open browser: %v", err)
			}
		}
	}
	return m, nil
}

// visible returns the pull requests currently selectable, in render order.
func (m *Model) visible() []types.PullRequest {
	if m.tab == TabRequested {
		return m.requested
	}
	var prs []types.PullRequest
	for _, g := range m.groups {
		prs = append(prs, g.prs...)
	}
	return prs
}

// sortGroups orders busiest users first, matching how readers scan the
// screen. Sort is stable so equal-sized groups keep their configured order.
func (m *Model) sortGroups() {
	sort.SliceStable(m.groups, func(i, j int) bool {
		return len(m.groups[i].prs) > len(m.groups[j].prs)
	})
}

func (m *Model) clampCursor() {
	if n := len(m.visible()); m.cursor >= n && n > 0 {
		m.cursor = n - 1
	} else if n == 0 {
		m.cursor = 0
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(m.title))
	b.WriteString("\n")
	b.WriteString(statusStyle.Render("q - exit, r - refresh, tab - switch view, arrows - select, enter - open in browser"))
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
	}
	b.WriteString("\n\n")

	if m.tab == TabRequested {
		m.renderRequested(&b)
	} else {
		m.renderGroups(&b)
	}
	return b.String()
}

func (m *Model) renderTabs() string {
	team := "Team PRs"
	requested := "Review requested"
	if m.tab == TabTeam {
		team = tabActiveStyle.Render(team)
	} else {
		requested = tabActiveStyle.Render(requested)
	}
	return team + "   " + requested
}

func (m *Model) renderGroups(b *strings.Builder) {
	line := 0
	for _, g := range m.groups {
		b.WriteString(m.renderGroupTitle(g))
		b.WriteString("\n")
		for i := range g.prs {
			selected := line == m.cursor
			b.WriteString(m.renderPRLine(&g.prs[i], selected))
			b.WriteString("\n")
			line++
		}
	}
}

func (m *Model) renderRequested(b *strings.Builder) {
	b.WriteString(titleStyle.Render("Review requested"))
	b.WriteString("\n")
	for i := range m.requested {
		b.WriteString(m.renderPRLine(&m.requested[i], i == m.cursor))
		b.WriteString("\n")
	}
}

func (m *Model) renderGroupTitle(g *group) string {
	stamp := ""
	if !g.fetchedAt.IsZero() {
		stamp = " ── " + g.fetchedAt.Format(groupTimestampLayout)
	}
	title := g.user + stamp
	switch {
	case g.updating:
		return updatingStyle.Render("Updating - " + title)
	case len(g.prs) == 0:
		return emptyTitleStyle.Render(title)
	default:
		return titleStyle.Render(title)
	}
}

func (m *Model) renderPRLine(pr *types.PullRequest, selected bool) string {
	approvals := fmt.Sprintf("%d", pr.NumApprovals())
	if m.me != "" {
		approvals = m.myReviewMark(pr) + "|" + approvals
	}
	state := "ready"
	style := readyStyle
	if pr.Draft {
		state = "draft"
		style = draftStyle
	}
	line := fmt.Sprintf("  [%s] [%s|%s] - %s  %s", approvals, state, pr.Repo, pr.Title, pr.CreatedAt.Format(createdAtLayout))
	if selected {
		return selectedStyle.Render(style.Render(line))
	}
	return style.Render(line)
}

// myReviewMark renders the state of my most recent review on pr:
// v approved, @ commented, . pending, X changes requested, space none.
func (m *Model) myReviewMark(pr *types.PullRequest) string {
	var latest *types.Review
	for i := range pr.Reviews {
		r := &pr.Reviews[i]
		if !strings.EqualFold(r.Reviewer, m.me) || r.SubmittedAt == nil {
			continue
		}
		if latest == nil || r.SubmittedAt.After(*latest.SubmittedAt) {
			latest = r
		}
	}
	if latest == nil {
		return " "
	}
	switch latest.State {
	case types.ReviewApproved:
		return "v"
	case types.ReviewCommented:
		return "@"
	case types.ReviewPending:
		return "."
	case types.ReviewChangesRequested:
		return "X"
	default:
		return " "
	}
}

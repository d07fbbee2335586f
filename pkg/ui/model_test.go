package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/prwatch/prwatch/pkg/tracker"
	"github.com/prwatch/prwatch/pkg/types"
)

func keyMsg(s string) tea.KeyMsg {
	if s == "enter" {
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	if s == "tab" {
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func somePR(url, title string) types.PullRequest {
	return types.PullRequest{
		URL:       url,
		Title:     title,
		Repo:      "repo",
		CreatedAt: time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
	}
}

func TestUpdate_AddUserAndSetPRs(t *testing.T) {
	m := New("Team PRs", "")
	m.Update(addUserMsg{user: "alice"})
	m.Update(addUserMsg{user: "bob"})

	fetchedAt := time.Now()
	m.Update(userPRsMsg{user: "bob", prs: []types.PullRequest{somePR("u1", "One"), somePR("u2", "Two")}, fetchedAt: fetchedAt})

	// Busiest group floats to the top.
	if m.groups[0].user != "bob" {
		t.Errorf("expected bob first, got %q", m.groups[0].user)
	}
	if m.groups[0].updating {
		t.Error("delivering results must clear the group's updating flag")
	}
	view := m.View()
	if !strings.Contains(view, "One") || !strings.Contains(view, "Two") {
		t.Errorf("view missing PR titles:\n%s", view)
	}
}

func TestUpdate_SeededSnapshot(t *testing.T) {
	m := New("Team PRs", "")
	snap := &tracker.Snapshot{
		FetchedAt: time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC),
		PRs:       []types.PullRequest{somePR("u1", "Cached change")},
	}
	m.Update(addUserMsg{user: "alice", snap: snap})

	if !strings.Contains(m.View(), "Cached change") {
		t.Error("seeded results must render before the first live cycle")
	}
}

func TestUpdate_MarkAllUpdating(t *testing.T) {
	m := New("Team PRs", "")
	m.Update(addUserMsg{user: "alice"})
	m.Update(markAllUpdatingMsg{})
	if !m.groups[0].updating {
		t.Error("expected group marked as updating")
	}
	if !strings.Contains(m.View(), "Updating - alice") {
		t.Error("updating groups must be labeled in the view")
	}
}

func TestUpdate_StatusLine(t *testing.T) {
	m := New("Team PRs", "")
	m.Update(statusMsg("Fetching open prs for alice"))
	if !strings.Contains(m.View(), "Fetching open prs for alice") {
		t.Error("status text must render")
	}
	m.Update(statusMsg(""))
	if strings.Contains(m.View(), "Fetching") {
		t.Error("empty status must clear the line")
	}
}

func TestUpdate_RefreshGuard(t *testing.T) {
	calls := 0
	m := New("Team PRs", "")
	m.SetHooks(nil, func() { calls++ })

	_, cmd := m.Update(keyMsg("r"))
	if cmd == nil {
		t.Fatal("expected refresh command")
	}
	// A second press while syncing is ignored.
	if _, second := m.Update(keyMsg("r")); second != nil {
		t.Error("refresh must be ignored while a sync is in flight")
	}
	cmd() // runs the refresh and returns syncDoneMsg
	if calls != 1 {
		t.Errorf("expected one refresh call, got %d", calls)
	}
	m.Update(syncDoneMsg{})
	if _, third := m.Update(keyMsg("r")); third == nil {
		t.Error("refresh must work again after the cycle finishes")
	}
}

func TestUpdate_EnterOpensSelection(t *testing.T) {
	var opened []string
	m := New("Team PRs", "")
	m.openURL = func(url string) error {
		opened = append(opened, url)
		return nil
	}
	m.Update(addUserMsg{user: "alice"})
	m.Update(userPRsMsg{user: "alice", prs: []types.PullRequest{somePR("https://github.com/acme/repo/pull/1", "One"), somePR("https://github.com/acme/repo/pull/2", "Two")}, fetchedAt: time.Now()})

	m.Update(keyMsg("j"))
	m.Update(keyMsg("enter"))
	if len(opened) != 1 || opened[0] != "https://github.com/acme/repo/pull/2" {
		t.Errorf("expected second PR opened, got %v", opened)
	}
}

func TestUpdate_TabSwitchesToReviewRequested(t *testing.T) {
	m := New("Team PRs", "")
	m.Update(reviewRequestedMsg{prs: []types.PullRequest{somePR("u9", "Needs my review")}})

	if strings.Contains(m.View(), "Needs my review") {
		t.Error("review requests must not render on the team tab")
	}
	m.Update(keyMsg("tab"))
	if !strings.Contains(m.View(), "Needs my review") {
		t.Error("review requests must render on their tab")
	}
}

func TestMyReviewMark(t *testing.T) {
	at := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	later := at.Add(2 * time.Hour)
	m := New("Team PRs", "carol")

	pr := somePR("u1", "One")
	pr.Reviews = []types.Review{
		{Reviewer: "Carol", State: types.ReviewCommented, SubmittedAt: &at},
		{Reviewer: "carol", State: types.ReviewApproved, SubmittedAt: &later},
		{Reviewer: "bob", State: types.ReviewChangesRequested, SubmittedAt: &later},
	}
	// The latest of my reviews wins; the comparison ignores case.
	if got := m.myReviewMark(&pr); got != "v" {
		t.Errorf("expected approval mark, got %q", got)
	}

	pr.Reviews = pr.Reviews[2:]
	if got := m.myReviewMark(&pr); got != " " {
		t.Errorf("expected blank mark without my review, got %q", got)
	}
}

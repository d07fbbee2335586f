package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/prwatch/prwatch/pkg/tracker"
	"github.com/prwatch/prwatch/pkg/types"
)

// Messages delivered through the bubbletea loop. The tracker runs on its
// own goroutine; Program.Send is the only crossing point into the UI.
type (
	statusMsg          string
	markAllUpdatingMsg struct{}
	userPRsMsg         struct {
		fetchedAt time.Time
		user      string
		prs       []types.PullRequest
	}
	reviewRequestedMsg struct {
		prs []types.PullRequest
	}
	addUserMsg struct {
		snap *tracker.Snapshot
		user string
	}
	syncDoneMsg struct{}
)

// ProgramSink adapts a running bubbletea program to the tracker's Sink
// interface.
type ProgramSink struct {
	p *tea.Program
}

// NewProgramSink wraps p as a notification sink.
func NewProgramSink(p *tea.Program) ProgramSink {
	return ProgramSink{p: p}
}

// Status implements tracker.Sink and github.StatusReporter.
func (s ProgramSink) Status(text string) {
	s.p.Send(statusMsg(text))
}

// MarkAllUpdating implements tracker.Sink.
func (s ProgramSink) MarkAllUpdating() {
	s.p.Send(markAllUpdatingMsg{})
}

// SetUserPullRequests implements tracker.Sink.
func (s ProgramSink) SetUserPullRequests(user string, prs []types.PullRequest, fetchedAt time.Time) {
	s.p.Send(userPRsMsg{user: user, prs: prs, fetchedAt: fetchedAt})
}

// SetReviewRequested implements tracker.Sink.
func (s ProgramSink) SetReviewRequested(prs []types.PullRequest) {
	s.p.Send(reviewRequestedMsg{prs: prs})
}

// AddUser implements tracker.Sink.
func (s ProgramSink) AddUser(user string, snap *tracker.Snapshot) {
	s.p.Send(addUserMsg{user: user, snap: snap})
}

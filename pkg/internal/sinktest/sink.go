// Package sinktest provides a recording implementation of the tracker's
// notification sink. It lives apart from the transport test doubles:
// depending on pkg/tracker here would close an import cycle through any
// package the tracker itself uses.
package sinktest

import (
	"sync"
	"time"

	"github.com/prwatch/prwatch/pkg/tracker"
	"github.com/prwatch/prwatch/pkg/types"
)

// RecordingSink implements tracker.Sink and github.StatusReporter, keeping
// every notification for assertions.
type RecordingSink struct {
	mu             sync.Mutex
	Statuses       []string
	UpdatingMarks  int
	UserUpdates    []UserUpdate
	ReviewRequests [][]types.PullRequest
	AddedUsers     []AddedUser
}

// UserUpdate records one SetUserPullRequests call.
type UserUpdate struct {
	FetchedAt time.Time
	User      string
	PRs       []types.PullRequest
}

// AddedUser records one AddUser call.
type AddedUser struct {
	Snap *tracker.Snapshot
	User string
}

// Status implements tracker.Sink.
func (s *RecordingSink) Status(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Statuses = append(s.Statuses, text)
}

// MarkAllUpdating implements tracker.Sink.
func (s *RecordingSink) MarkAllUpdating() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UpdatingMarks++
}

// SetUserPullRequests implements tracker.Sink.
func (s *RecordingSink) SetUserPullRequests(user string, prs []types.PullRequest, fetchedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UserUpdates = append(s.UserUpdates, UserUpdate{User: user, PRs: prs, FetchedAt: fetchedAt})
}

// SetReviewRequested implements tracker.Sink.
func (s *RecordingSink) SetReviewRequested(prs []types.PullRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ReviewRequests = append(s.ReviewRequests, prs)
}

// AddUser implements tracker.Sink.
func (s *RecordingSink) AddUser(user string, snap *tracker.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AddedUsers = append(s.AddedUsers, AddedUser{User: user, Snap: snap})
}

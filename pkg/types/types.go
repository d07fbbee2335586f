// Package types contains the shared data structures used across the watcher.
//
//nolint:revive // "types" is a standard Go package name for shared data structures
package types

import "time"

// ReviewState is the state GitHub reports for a submitted review.
type ReviewState string

// Review states as they appear on the wire.
const (
	ReviewCommented        ReviewState = "COMMENTED"
	ReviewPending          ReviewState = "PENDING"
	ReviewChangesRequested ReviewState = "CHANGES_REQUESTED"
	ReviewApproved         ReviewState = "APPROVED"
)

// Review represents a single review on a pull request. SubmittedAt is nil
// for reviews that were started but never submitted.
type Review struct {
	SubmittedAt *time.Time
	Reviewer    string
	State       ReviewState
}

// Equal compares reviews by (reviewer, state, submitted-at).
func (r Review) Equal(other Review) bool {
	if r.Reviewer != other.Reviewer || r.State != other.State {
		return false
	}
	if r.SubmittedAt == nil || other.SubmittedAt == nil {
		return r.SubmittedAt == other.SubmittedAt
	}
	return r.SubmittedAt.Equal(*other.SubmittedAt)
}

// PullRequest represents a GitHub pull request. Identity is the URL alone:
// two values with the same URL describe the same pull request regardless of
// their other fields.
type PullRequest struct {
	CreatedAt time.Time
	Title     string
	Author    string
	URL       string
	Repo      string
	Reviews   []Review
	Draft     bool
}

// NumApprovals counts reviews in the APPROVED state. A pull request can
// carry more than one approval, e.g. a re-approval after new commits.
func (p *PullRequest) NumApprovals() int {
	count := 0
	for _, r := range p.Reviews {
		if r.State == ReviewApproved {
			count++
		}
	}
	return count
}

// Dedupe merges pull request lists into one, keeping the first occurrence
// of each URL. Input order is preserved.
func Dedupe(lists ...[]PullRequest) []PullRequest {
	seen := make(map[string]bool)
	var merged []PullRequest
	for _, list := range lists {
		for _, pr := range list {
			if seen[pr.URL] {
				continue
			}
			seen[pr.URL] = true
			merged = append(merged, pr)
		}
	}
	return merged
}

package github

import (
	"strings"
	"testing"
	"time"
)

var queryNow = time.Date(2026, 8, 29, 15, 30, 0, 0, time.UTC)

func TestAuthoredQuery(t *testing.T) {
	got := AuthoredQuery("alice", "", 7, queryNow)
	want := "author:alice+type:pr+is:open+created:2026-08-22..2026-08-29"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestAuthoredQuery_WithOrg(t *testing.T) {
	got := AuthoredQuery("alice", "acme", 7, queryNow)
	if !strings.Contains(got, "author:alice+org:acme+") {
		t.Errorf("org clause misplaced: %q", got)
	}
	if strings.Count(got, "+org:acme") != 1 {
		t.Errorf("org clause must appear exactly once: %q", got)
	}
}

func TestReviewRequestedQuery(t *testing.T) {
	got := ReviewRequestedQuery("alice", "acme", 7, queryNow)
	want := "is:pr+review-requested:alice+org:acme+created:2026-08-22..2026-08-29+is:open"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTeamReviewRequestedQuery(t *testing.T) {
	got := TeamReviewRequestedQuery("acme/platform", "", 30, queryNow)
	want := "is:pr+team-review-requested:acme/platform+created:2026-07-30..2026-08-29+is:open"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDateWindow_CalendarDates(t *testing.T) {
	// The window uses calendar dates, never timestamps.
	got := dateWindow(queryNow, 7)
	if strings.ContainsAny(got, "TZ:") {
		t.Errorf("window must be plain dates: %q", got)
	}
	if got != "2026-08-22..2026-08-29" {
		t.Errorf("got %q", got)
	}
}

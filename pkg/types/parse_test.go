package types

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParsePullRequests_FullPayload(t *testing.T) {
	raw := []map[string]any{{
		"title":          "Add retry budget",
		"html_url":       "https://github.com/acme/repo/pull/7",
		"draft":          true,
		"repository_url": "https://api.github.com/repos/acme/repo",
		"created_at":     "2026-08-20T09:15:00Z",
		"user":           map[string]any{"login": "alice"},
		"reviews": []map[string]any{
			{"user": map[string]any{"login": "bob"}, "state": "APPROVED", "submitted_at": "2026-08-21T10:00:00Z"},
			{"user": map[string]any{"login": "carol"}, "state": "PENDING"},
		},
	}}

	prs := ParsePullRequests(raw)
	if len(prs) != 1 {
		t.Fatalf("expected 1 PR, got %d", len(prs))
	}
	pr := prs[0]
	if pr.Title != "Add retry budget" || pr.Author != "alice" || !pr.Draft {
		t.Errorf("unexpected PR: %+v", pr)
	}
	if pr.Repo != "repo" {
		t.Errorf("repo name: got %q", pr.Repo)
	}
	if want := time.Date(2026, 8, 20, 9, 15, 0, 0, time.UTC); !pr.CreatedAt.Equal(want) {
		t.Errorf("created at: got %v", pr.CreatedAt)
	}
	if len(pr.Reviews) != 2 {
		t.Fatalf("expected 2 reviews, got %d", len(pr.Reviews))
	}
	if pr.Reviews[0].Reviewer != "bob" || pr.Reviews[0].State != ReviewApproved || pr.Reviews[0].SubmittedAt == nil {
		t.Errorf("unexpected review: %+v", pr.Reviews[0])
	}
	if pr.Reviews[1].SubmittedAt != nil {
		t.Error("pending review must have nil submitted-at")
	}
}

func TestParsePullRequests_MissingFields(t *testing.T) {
	// Parsing is total: a payload with nothing usable still yields an entity.
	prs := ParsePullRequests([]map[string]any{{}})
	if len(prs) != 1 {
		t.Fatalf("expected 1 PR, got %d", len(prs))
	}
	pr := prs[0]
	if pr.Title != "" || pr.Author != "" || pr.URL != "" || pr.Repo != "" || pr.Draft {
		t.Errorf("expected zero values, got %+v", pr)
	}
	if !pr.CreatedAt.IsZero() || len(pr.Reviews) != 0 {
		t.Errorf("expected zero values, got %+v", pr)
	}
}

func TestParsePullRequests_AfterCacheRoundTrip(t *testing.T) {
	// A JSON round trip turns []map[string]any into []any; parsing must
	// handle both shapes.
	original := []map[string]any{{
		"title":    "Cached",
		"html_url": "https://github.com/acme/repo/pull/9",
		"user":     map[string]any{"login": "alice"},
		"reviews": []map[string]any{
			{"user": map[string]any{"login": "bob"}, "state": "CHANGES_REQUESTED", "submitted_at": "2026-08-21T10:00:00Z"},
		},
	}}
	data, err := json.Marshal(original)
	if err != nil {
		t.Fatal(err)
	}
	var restored []map[string]any
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatal(err)
	}

	prs := ParsePullRequests(restored)
	if len(prs) != 1 || len(prs[0].Reviews) != 1 {
		t.Fatalf("unexpected parse of restored payload: %+v", prs)
	}
	if prs[0].Reviews[0].State != ReviewChangesRequested {
		t.Errorf("unexpected review state: %v", prs[0].Reviews[0].State)
	}
}

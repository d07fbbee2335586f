package types

import (
	"strings"
	"time"
)

// Timestamp layouts used by the GitHub API.
const (
	createdAtLayout   = "2006-01-02T15:04:05Z"
	submittedAtLayout = "2006-01-02T15:04:05Z"
)

// ParsePullRequests converts raw search payloads (as fetched from the wire,
// with the reviews sub-resource attached under "reviews") into typed
// entities. The conversion is total: missing or malformed fields degrade to
// zero values so stale cache content can never make parsing fail.
func ParsePullRequests(raw []map[string]any) []PullRequest {
	prs := make([]PullRequest, 0, len(raw))
	for _, item := range raw {
		pr := PullRequest{
			Title:  stringField(item, "title"),
			Author: loginField(item, "user"),
			URL:    stringField(item, "html_url"),
			Draft:  boolField(item, "draft"),
			Repo:   repoName(stringField(item, "repository_url")),
		}
		if t, err := time.Parse(createdAtLayout, stringField(item, "created_at")); err == nil {
			pr.CreatedAt = t
		}
		pr.Reviews = parseReviews(item["reviews"])
		prs = append(prs, pr)
	}
	return prs
}

func parseReviews(raw any) []Review {
	// Freshly fetched payloads carry []map[string]any; payloads that
	// round-tripped through the cache file come back as []any.
	var items []map[string]any
	switch v := raw.(type) {
	case []map[string]any:
		items = v
	case []any:
		for _, ri := range v {
			if m, ok := ri.(map[string]any); ok {
				items = append(items, m)
			}
		}
	default:
		return nil
	}
	reviews := make([]Review, 0, len(items))
	for _, m := range items {
		review := Review{
			Reviewer: loginField(m, "user"),
			State:    ReviewState(stringField(m, "state")),
		}
		if t, err := time.Parse(submittedAtLayout, stringField(m, "submitted_at")); err == nil {
			review.SubmittedAt = &t
		}
		reviews = append(reviews, review)
	}
	return reviews
}

// repoName extracts the repository name from a repository API URL
// (everything after the last slash).
func repoName(repositoryURL string) string {
	if repositoryURL == "" {
		return ""
	}
	parts := strings.Split(repositoryURL, "/")
	return parts[len(parts)-1]
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func boolField(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

// loginField digs out nested {"user": {"login": ...}} shapes.
func loginField(m map[string]any, key string) string {
	nested, ok := m[key].(map[string]any)
	if !ok {
		return ""
	}
	return stringField(nested, "login")
}

// Package tracker drives the synchronization cycle: for every tracked
// subject it builds a search query, fetches results through the
// rate-limited client, attaches per-PR reviews, persists the raw payloads
// to the cache, and notifies the display sink with normalized entities.
//
// Everything runs sequentially on one goroutine. The GitHub rate limit
// budget is shared process-wide, so fanning fetches out would only exhaust
// it faster without any throughput gain; keeping the cycle single-threaded
// also means the cache and aggregation state need no locking.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/prwatch/prwatch/pkg/cache"
	"github.com/prwatch/prwatch/pkg/github"
	"github.com/prwatch/prwatch/pkg/types"
)

// requestedKeyPrefix marks the synthetic cache keys for review-request
// queries. Tracked usernames must not use it.
const requestedKeyPrefix = "requested:"

// Snapshot is one subject's normalized results plus the time they were
// fetched.
type Snapshot struct {
	FetchedAt time.Time
	PRs       []types.PullRequest
}

// Sink receives update notifications. The display layer implements it.
type Sink interface {
	// Status replaces the one-line status text; empty clears it.
	Status(text string)
	// MarkAllUpdating flags every tracked subject as mid-refresh.
	MarkAllUpdating()
	// SetUserPullRequests replaces one user's results.
	SetUserPullRequests(user string, prs []types.PullRequest, fetchedAt time.Time)
	// SetReviewRequested replaces the merged review-request results.
	SetReviewRequested(prs []types.PullRequest)
	// AddUser registers a subject at startup, seeded from cache when a
	// snapshot is available.
	AddUser(user string, snap *Snapshot)
}

// Client is the subset of the GitHub client the tracker uses.
type Client interface {
	Search(ctx context.Context, query string, status github.StatusReporter) ([]map[string]any, error)
	Reviews(ctx context.Context, prAPIURL string) ([]map[string]any, error)
}

// Config holds the tracked subjects and query parameters.
type Config struct {
	Org       string
	Me        string
	Team      string
	Usernames []string
	DaysBack  int
	// Retention bounds cache entry age; zero means cache.DefaultRetention.
	Retention time.Duration
}

// Tracker sequences fetch cycles for the configured subjects.
type Tracker struct {
	client Client
	store  *cache.Store // nil disables caching
	sink   Sink
	now    func() time.Time
	cfg    Config

	mu       sync.Mutex
	updating bool
}

// New validates the subject key space and returns a tracker. A nil store
// disables caching entirely. On creation, entries older than the retention
// window are purged so the first cycle starts from a trimmed cache.
func New(client Client, store *cache.Store, sink Sink, cfg Config) (*Tracker, error) {
	seen := make(map[string]bool)
	for _, user := range cfg.Usernames {
		if strings.HasPrefix(user, requestedKeyPrefix) {
			return nil, fmt.Errorf("tracker: username %q collides with the %q key namespace", user, requestedKeyPrefix)
		}
		if seen[user] {
			return nil, fmt.Errorf("tracker: duplicate username %q", user)
		}
		seen[user] = true
	}
	if cfg.Retention == 0 {
		cfg.Retention = cache.DefaultRetention
	}
	t := &Tracker{
		client: client,
		store:  store,
		sink:   sink,
		cfg:    cfg,
		now:    time.Now,
	}
	if store != nil {
		if err := store.Cleanup(cfg.Retention); err != nil {
			slog.Warn("Cache cleanup failed", "error", err)
		}
	}
	return t, nil
}

// Seed registers every tracked user with the sink, filling in cached
// results where present, so the display has content before the first live
// cycle completes.
func (t *Tracker) Seed() {
	for _, user := range t.cfg.Usernames {
		t.sink.AddUser(user, t.cachedSnapshot(user))
	}
	if merged := types.Dedupe(t.cachedPRs(requestedKeyPrefix+t.cfg.Me), t.cachedPRs(requestedKeyPrefix+t.cfg.Team)); len(merged) > 0 {
		t.sink.SetReviewRequested(merged)
	}
}

func (t *Tracker) cachedSnapshot(user string) *Snapshot {
	if t.store == nil {
		return nil
	}
	fetchedAt, raw, ok := t.store.Load(user)
	if !ok {
		return nil
	}
	return &Snapshot{FetchedAt: fetchedAt, PRs: types.ParsePullRequests(raw)}
}

func (t *Tracker) cachedPRs(key string) []types.PullRequest {
	if t.store == nil || strings.TrimPrefix(key, requestedKeyPrefix) == "" {
		return nil
	}
	_, raw, ok := t.store.Load(key)
	if !ok {
		return nil
	}
	return types.ParsePullRequests(raw)
}

// Updating reports whether a cycle is in flight.
func (t *Tracker) Updating() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.updating
}

// Sync runs one full cycle on the calling goroutine. It returns false
// without doing anything when a cycle is already in flight: refresh
// requests are ignored mid-cycle, never queued.
func (t *Tracker) Sync(ctx context.Context) bool {
	t.mu.Lock()
	if t.updating {
		t.mu.Unlock()
		return false
	}
	t.updating = true
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.updating = false
		t.mu.Unlock()
		t.sink.Status("")
	}()

	t.sink.MarkAllUpdating()
	for _, user := range t.cfg.Usernames {
		t.syncUser(ctx, user)
	}
	t.syncReviewRequests(ctx)
	return true
}

// syncUser fetches one user's authored PRs, attaches reviews, caches the
// raw payloads and notifies the sink. A failed fetch degrades to an empty
// result for this cycle; it never aborts the remaining subjects.
func (t *Tracker) syncUser(ctx context.Context, user string) {
	t.sink.Status(fmt.Sprintf("Fetching open prs for %s", user))
	query := github.AuthoredQuery(user, t.cfg.Org, t.cfg.DaysBack, t.now())
	raw := t.fetch(ctx, user, query)
	fetchedAt := t.now()
	t.persist(user, raw, fetchedAt)
	t.sink.SetUserPullRequests(user, types.ParsePullRequests(raw), fetchedAt)
}

// syncReviewRequests fetches the optional "me" and team review-request
// queries, caches each under its synthetic key, and notifies the sink with
// the merged, URL-deduplicated set.
func (t *Tracker) syncReviewRequests(ctx context.Context) {
	if t.cfg.Me == "" && t.cfg.Team == "" {
		return
	}
	var mine, team []types.PullRequest
	if t.cfg.Me != "" {
		t.sink.Status(fmt.Sprintf("Fetching review requested prs for %s", t.cfg.Me))
		query := github.ReviewRequestedQuery(t.cfg.Me, t.cfg.Org, t.cfg.DaysBack, t.now())
		raw := t.fetch(ctx, t.cfg.Me, query)
		t.persist(requestedKeyPrefix+t.cfg.Me, raw, t.now())
		mine = types.ParsePullRequests(raw)
	}
	if t.cfg.Team != "" {
		t.sink.Status(fmt.Sprintf("Fetching review requested prs for %s", t.cfg.Team))
		query := github.TeamReviewRequestedQuery(t.cfg.Team, t.cfg.Org, t.cfg.DaysBack, t.now())
		raw := t.fetch(ctx, t.cfg.Team, query)
		t.persist(requestedKeyPrefix+t.cfg.Team, raw, t.now())
		team = types.ParsePullRequests(raw)
	}
	t.sink.SetReviewRequested(types.Dedupe(mine, team))
}

// fetch runs one search and attaches the reviews sub-resource to every
// returned item, in the order the search returned them.
func (t *Tracker) fetch(ctx context.Context, subject, query string) []map[string]any {
	raw, err := t.client.Search(ctx, query, t.sink)
	if err != nil {
		slog.Warn("Search failed, treating as empty for this cycle", "subject", subject, "error", err)
		return nil
	}
	for _, item := range raw {
		item["reviews"] = t.fetchReviews(ctx, item)
	}
	return raw
}

// fetchReviews pulls the reviews for one raw search item. Any failure
// yields an empty list: reviews are decoration, not worth failing a cycle.
func (t *Tracker) fetchReviews(ctx context.Context, item map[string]any) []map[string]any {
	pr, ok := item["pull_request"].(map[string]any)
	if !ok {
		return []map[string]any{}
	}
	prURL, ok := pr["url"].(string)
	if !ok || prURL == "" {
		return []map[string]any{}
	}
	reviews, err := t.client.Reviews(ctx, prURL)
	if err != nil {
		slog.Warn("Reviews fetch failed", "url", prURL, "error", err)
		return []map[string]any{}
	}
	if reviews == nil {
		return []map[string]any{}
	}
	return reviews
}

// persist caches raw results for key. A write failure is logged and the
// cycle continues with in-memory results only.
func (t *Tracker) persist(key string, raw []map[string]any, fetchedAt time.Time) {
	if t.store == nil {
		return
	}
	if err := t.store.Save(key, raw, fetchedAt); err != nil {
		slog.Error("Cache write failed, continuing in memory", "key", key, "error", err)
	}
}

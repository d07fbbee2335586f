package github

import "time"

// Query builders for the three search shapes the watcher uses. All three
// share the same org and calendar-date window composition; only the subject
// clause differs. The functions are pure: the reference time is a
// parameter, never read from a clock.

// AuthoredQuery matches open pull requests authored by user within the
// trailing daysBack window.
func AuthoredQuery(user, org string, daysBack int, now time.Time) string {
	return "author:" + user + orgClause(org) + "+type:pr+is:open+created:" + dateWindow(now, daysBack)
}

// ReviewRequestedQuery matches open pull requests where review was
// requested from user.
func ReviewRequestedQuery(user, org string, daysBack int, now time.Time) string {
	return "is:pr+review-requested:" + user + orgClause(org) + "+created:" + dateWindow(now, daysBack) + "+is:open"
}

// TeamReviewRequestedQuery matches open pull requests where review was
// requested from team (an org/team slug).
func TeamReviewRequestedQuery(team, org string, daysBack int, now time.Time) string {
	return "is:pr+team-review-requested:" + team + orgClause(org) + "+created:" + dateWindow(now, daysBack) + "+is:open"
}

// dateWindow renders created:<start>..<end> bounds as calendar dates, not
// timestamps: the search API treats bare dates as whole days, which keeps
// results stable within a day.
func dateWindow(now time.Time, daysBack int) string {
	start := now.AddDate(0, 0, -daysBack)
	return start.Format("2006-01-02") + ".." + now.Format("2006-01-02")
}

func orgClause(org string) string {
	if org == "" {
		return ""
	}
	return "+org:" + org
}

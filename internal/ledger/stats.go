package ledger

import (
	"sort"
	"time"

	"sitepulse/internal/pkg/referrers"
	"sitepulse/internal/visitors"
)

// Stats is the aggregate view served by the analytics API. Breakdowns are
// frequency tables keyed by the classified value; countries and referrers
// skip records where the value is unknown rather than bucketing them.
type Stats struct {
	TotalVisits    int            `json:"totalVisits"`
	TodayVisits    int            `json:"todayVisits"`
	WeekVisits     int            `json:"weekVisits"`
	MonthVisits    int            `json:"monthVisits"`
	UniqueIPs      int            `json:"uniqueIPs"`
	UniqueSessions int            `json:"uniqueSessions"`
	Devices        map[string]int `json:"devices"`
	Browsers       map[string]int `json:"browsers"`
	Systems        map[string]int `json:"operatingSystems"`
	Countries      map[string]int `json:"countries"`
	Referrers      map[string]int `json:"referrers"`
	Sources        map[string]int `json:"sources"`
	GeneratedAt    time.Time      `json:"generatedAt"`
}

// Stats aggregates the retained records as of now. Today spans from the
// UTC midnight of now; week and month are trailing 7-day and calendar-month
// windows.
func (l *Ledger) Stats(now time.Time) Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekCutoff := now.AddDate(0, 0, -7)
	monthCutoff := now.AddDate(0, -1, 0)

	stats := Stats{
		Devices:     make(map[string]int),
		Browsers:    make(map[string]int),
		Systems:     make(map[string]int),
		Countries:   make(map[string]int),
		Referrers:   make(map[string]int),
		Sources:     make(map[string]int),
		GeneratedAt: now,
	}

	for i := range l.records {
		rec := &l.records[i]
		stats.TotalVisits++

		if !rec.Timestamp.Before(startOfDay) {
			stats.TodayVisits++
		}
		if !rec.Timestamp.Before(weekCutoff) {
			stats.WeekVisits++
		}
		if !rec.Timestamp.Before(monthCutoff) {
			stats.MonthVisits++
		}

		stats.Devices[rec.DeviceType]++
		stats.Browsers[rec.Browser]++
		stats.Systems[rec.OS]++

		if rec.Country != visitors.UnknownCountry && rec.Country != "" {
			stats.Countries[rec.Country]++
		}
		if host := visitors.ReferrerHostname(rec.Referrer); host != "" {
			stats.Referrers[host]++
			stats.Sources[referrers.FriendlyName(host)]++
		}
	}

	stats.UniqueIPs = len(l.uniqueIPs)
	stats.UniqueSessions = len(l.uniqueSessions)
	return stats
}

// RecentVisitors returns up to limit records ordered newest first. Records
// are copied out so callers never hold references into the ledger's slice.
func (l *Ledger) RecentVisitors(limit int) []visitors.VisitorRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit <= 0 || limit > len(l.records) {
		limit = len(l.records)
	}

	recent := make([]visitors.VisitorRecord, len(l.records))
	copy(recent, l.records)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].Timestamp.After(recent[j].Timestamp)
	})

	return recent[:limit]
}

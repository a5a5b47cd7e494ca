package snapshot

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"sitepulse/internal/pkg/countries"
	"sitepulse/internal/visitors"
)

// CountryUnknown is the bucket used when no country could be resolved.
// Unlike the ledger, the snapshot keeps unknown visitors countable.
const CountryUnknown = "Unknown"

// topListLimit caps the page and country lists in the summary.
const topListLimit = 5

// Store tracks lifetime counters in the snapshot row. Every mutation is a
// read-modify-upsert inside one immediate transaction, so concurrent
// in-process writers serialize on the database instead of clobbering each
// other.
type Store struct {
	logger *slog.Logger
	db     *gorm.DB
}

// NewStore creates a snapshot store on the given connection.
func NewStore(logger *slog.Logger, db *gorm.DB) *Store {
	return &Store{logger: logger, db: db}
}

func (s *Store) mutate(fn func(*AnalyticsSnapshot)) error {
	return sqlite.PerformWrite(s.logger, s.db, func(tx *gorm.DB) error {
		snap, err := loadSnapshot(tx)
		if err != nil {
			return err
		}
		fn(&snap)
		return saveSnapshot(tx, &snap)
	})
}

// TrackPageView bumps the lifetime page view counters for a page path.
func (s *Store) TrackPageView(page string) error {
	if page == "" {
		page = "/"
	}
	return s.mutate(func(snap *AnalyticsSnapshot) {
		snap.TotalPageViews++
		snap.PageViews[page]++
	})
}

// TrackVisitor bumps the visitor counters plus the device and country
// buckets. Returning visitors count separately from first-time ones;
// unresolvable countries count under the Unknown bucket.
func (s *Store) TrackVisitor(deviceType, country string, returning bool) error {
	if country == "" || country == visitors.UnknownCountry {
		country = CountryUnknown
	}
	return s.mutate(func(snap *AnalyticsSnapshot) {
		snap.TotalVisitors++
		if returning {
			snap.ReturningVisitors++
		} else {
			snap.UniqueVisitors++
		}
		switch deviceType {
		case visitors.DeviceMobile:
			snap.MobileViews++
		case visitors.DeviceTablet:
			snap.TabletViews++
		default:
			snap.DesktopViews++
		}
		snap.Countries[country]++
	})
}

// TrackBlogView bumps the blog view total and, when a slug is known, the
// per-post popularity count.
func (s *Store) TrackBlogView(slug string) error {
	return s.mutate(func(snap *AnalyticsSnapshot) {
		snap.BlogViews++
		if slug != "" {
			snap.BlogPages[slug]++
		}
	})
}

// TrackPerformance folds one page load sample, in milliseconds, into the
// running average and counts client-reported errors. Non-positive samples
// are excluded from the average.
func (s *Store) TrackPerformance(loadTimeMs float64, hasError bool) error {
	if loadTimeMs <= 0 && !hasError {
		return nil
	}
	return s.mutate(func(snap *AnalyticsSnapshot) {
		if hasError {
			snap.PerfErrors++
		}
		if loadTimeMs > 0 {
			total := snap.AvgPageLoadMs*float64(snap.PerfSamples) + loadTimeMs
			snap.PerfSamples++
			snap.AvgPageLoadMs = total / float64(snap.PerfSamples)
		}
	})
}

// Reset zeroes every counter and stamps the reset time. Map keys are kept
// with zero values so the set of pages and countries ever seen remains
// visible after a reset.
func (s *Store) Reset() error {
	return s.mutate(func(snap *AnalyticsSnapshot) {
		snap.TotalVisitors = 0
		snap.UniqueVisitors = 0
		snap.ReturningVisitors = 0
		snap.TotalPageViews = 0
		snap.BlogViews = 0
		snap.DesktopViews = 0
		snap.MobileViews = 0
		snap.TabletViews = 0
		snap.AvgPageLoadMs = 0
		snap.PerfSamples = 0
		snap.PerfErrors = 0
		for page := range snap.PageViews {
			snap.PageViews[page] = 0
		}
		for slug := range snap.BlogPages {
			snap.BlogPages[slug] = 0
		}
		for country := range snap.Countries {
			snap.Countries[country] = 0
		}
		now := time.Now().UTC()
		snap.LastReset = &now
	})
}

// Current returns a copy of the snapshot row as stored.
func (s *Store) Current() (AnalyticsSnapshot, error) {
	return loadSnapshot(s.db)
}

// PageCount is one entry of the top pages list.
type PageCount struct {
	Page  string `json:"page"`
	Views int64  `json:"views"`
}

// CountryCount is one entry of the top countries list; Country is the
// human readable name, not the ISO code.
type CountryCount struct {
	Country  string `json:"country"`
	Visitors int64  `json:"visitors"`
}

// Summary is the condensed lifetime view served by the summary endpoint.
type Summary struct {
	TotalVisitors     int64            `json:"totalVisitors"`
	UniqueVisitors    int64            `json:"uniqueVisitors"`
	ReturningVisitors int64            `json:"returningVisitors"`
	TotalPageViews    int64            `json:"totalPageViews"`
	BlogPosts         int64            `json:"blogPosts"`
	BlogViews         int64            `json:"blogViews"`
	Devices           map[string]int64 `json:"devices"`
	TopPages          []PageCount      `json:"topPages"`
	TopCountries      []CountryCount   `json:"topCountries"`
	AvgPageLoadMs     float64          `json:"avgPageLoadMs"`
	PerfSamples       int64            `json:"perfSamples"`
	ErrorCount        int64            `json:"errorCount"`
	LastReset         *time.Time       `json:"lastReset,omitempty"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

// Summarize builds the top-5 lists from the stored counters. The average
// load time is rounded to one decimal for display.
func (s *Store) Summarize() (Summary, error) {
	snap, err := loadSnapshot(s.db)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{
		TotalVisitors:     snap.TotalVisitors,
		UniqueVisitors:    snap.UniqueVisitors,
		ReturningVisitors: snap.ReturningVisitors,
		TotalPageViews:    snap.TotalPageViews,
		BlogPosts:         int64(len(snap.BlogPages)),
		BlogViews:         snap.BlogViews,
		Devices: map[string]int64{
			visitors.DeviceDesktop: snap.DesktopViews,
			visitors.DeviceMobile:  snap.MobileViews,
			visitors.DeviceTablet:  snap.TabletViews,
		},
		AvgPageLoadMs: math.Round(snap.AvgPageLoadMs*10) / 10,
		PerfSamples:   snap.PerfSamples,
		ErrorCount:    snap.PerfErrors,
		LastReset:     snap.LastReset,
		UpdatedAt:     snap.UpdatedAt,
	}

	for _, page := range topKeys(snap.PageViews) {
		summary.TopPages = append(summary.TopPages, PageCount{Page: page, Views: snap.PageViews[page]})
	}
	for _, code := range topKeys(snap.Countries) {
		summary.TopCountries = append(summary.TopCountries, CountryCount{
			Country:  countries.DisplayName(code),
			Visitors: snap.Countries[code],
		})
	}
	return summary, nil
}

// topKeys returns up to topListLimit keys ordered by count descending,
// breaking ties alphabetically so the output is stable.
func topKeys(counts map[string]int64) []string {
	keys := make([]string, 0, len(counts))
	for key, count := range counts {
		if count > 0 {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > topListLimit {
		keys = keys[:topListLimit]
	}
	return keys
}

// Package snapshot persists lifetime analytics counters in a single
// database row. The in-memory ledger answers the detailed questions; the
// snapshot is what survives restarts.
package snapshot

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// snapshotRowID pins the store to one row; every write targets it.
const snapshotRowID = 1

// AnalyticsSnapshot is the persisted counter row. The map columns are
// stored as JSON text; counts use int64 so the row never wraps.
type AnalyticsSnapshot struct {
	ID uint `gorm:"primarykey" json:"-"`

	TotalVisitors     int64 `json:"totalVisitors"`
	UniqueVisitors    int64 `json:"uniqueVisitors"`
	ReturningVisitors int64 `json:"returningVisitors"`
	TotalPageViews    int64 `json:"totalPageViews"`
	BlogViews         int64 `json:"blogViews"`

	DesktopViews int64 `json:"desktopViews"`
	MobileViews  int64 `json:"mobileViews"`
	TabletViews  int64 `json:"tabletViews"`

	// Page load running average in milliseconds plus the sample and error
	// counts needed to extend it.
	AvgPageLoadMs float64 `json:"avgPageLoadMs"`
	PerfSamples   int64   `json:"perfSamples"`
	PerfErrors    int64   `json:"perfErrors"`

	PageViews map[string]int64 `gorm:"serializer:json" json:"pageViews"`
	BlogPages map[string]int64 `gorm:"serializer:json" json:"blogPages"`
	Countries map[string]int64 `gorm:"serializer:json" json:"countries"`

	LastReset *time.Time `json:"lastReset,omitempty"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func emptySnapshot() AnalyticsSnapshot {
	return AnalyticsSnapshot{
		ID:        snapshotRowID,
		PageViews: make(map[string]int64),
		BlogPages: make(map[string]int64),
		Countries: make(map[string]int64),
	}
}

// loadSnapshot reads the singleton row, returning an empty snapshot when
// it does not exist yet. Pure reads do not persist the synthesized row;
// it first reaches the database with the first counter write, which keeps
// read paths free of write transactions.
func loadSnapshot(tx *gorm.DB) (AnalyticsSnapshot, error) {
	var snap AnalyticsSnapshot
	err := tx.First(&snap, snapshotRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return emptySnapshot(), nil
	}
	if err != nil {
		return AnalyticsSnapshot{}, err
	}
	if snap.PageViews == nil {
		snap.PageViews = make(map[string]int64)
	}
	if snap.BlogPages == nil {
		snap.BlogPages = make(map[string]int64)
	}
	if snap.Countries == nil {
		snap.Countries = make(map[string]int64)
	}
	return snap, nil
}

// saveSnapshot writes the whole row back with an upsert, so the first
// write after a fresh migration creates it.
func saveSnapshot(tx *gorm.DB, snap *AnalyticsSnapshot) error {
	snap.ID = snapshotRowID
	snap.UpdatedAt = time.Now().UTC()
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(snap).Error
}

// Package visitors turns raw request data into classified visitor records.
package visitors

import (
	"time"

	"github.com/google/uuid"
)

// Default values used when a field cannot be derived from the request.
const (
	UnknownIP      = "unknown"
	UnknownBrowser = "Unknown"
	UnknownOS      = "Unknown"
	UnknownCountry = "unknown"

	DefaultUserAgent = "Unknown User Agent"
)

// Device types
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
)

// UTMParams holds campaign attribution parsed from the referrer query string.
type UTMParams struct {
	Source   string `json:"source,omitempty"`
	Medium   string `json:"medium,omitempty"`
	Campaign string `json:"campaign,omitempty"`
	Term     string `json:"term,omitempty"`
	Content  string `json:"content,omitempty"`
}

// IsZero reports whether no UTM parameter was present.
func (u UTMParams) IsZero() bool {
	return u == UTMParams{}
}

// VisitorRecord represents one tracked page view.
type VisitorRecord struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	IP        string    `json:"-"`
	Timestamp time.Time `json:"timestamp"`

	Page      string `json:"page"`
	Referrer  string `json:"referrer,omitempty"`
	UserAgent string `json:"-"`

	DeviceType     string `json:"deviceType"`
	Browser        string `json:"browser"`
	BrowserVersion string `json:"browserVersion,omitempty"`
	OS             string `json:"os"`
	OSVersion      string `json:"osVersion,omitempty"`
	Language       string `json:"language,omitempty"`
	Timezone       string `json:"timezone,omitempty"`
	Country        string `json:"country,omitempty"`

	IsFirstVisit bool `json:"isFirstVisit"`
	VisitCount   int  `json:"visitCount"`

	UTM UTMParams `json:"utm,omitzero"`
}

// ParseInput carries the request-derived fields used to build a record.
// Language, Timezone and Country are client- or caller-supplied; everything
// else comes from headers.
type ParseInput struct {
	IP        string
	UserAgent string
	Page      string
	Referrer  string
	Language  string
	Timezone  string
	Country   string
	Timestamp time.Time
}

// NewRecord builds a VisitorRecord from request data. It never fails: every
// field that cannot be derived degrades to its default value.
// VisitCount and IsFirstVisit are owned by the ledger and set on append.
func NewRecord(in ParseInput) VisitorRecord {
	if in.IP == "" {
		in.IP = UnknownIP
	}
	if in.UserAgent == "" {
		in.UserAgent = DefaultUserAgent
	}
	if in.Page == "" {
		in.Page = "/"
	}
	ts := in.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	cls := Classify(in.UserAgent)

	return VisitorRecord{
		ID:             uuid.NewString(),
		SessionID:      SessionID(in.IP, in.UserAgent),
		IP:             in.IP,
		Timestamp:      ts,
		Page:           in.Page,
		Referrer:       in.Referrer,
		UserAgent:      in.UserAgent,
		DeviceType:     cls.DeviceType,
		Browser:        cls.Browser,
		BrowserVersion: cls.BrowserVersion,
		OS:             cls.OS,
		OSVersion:      cls.OSVersion,
		Language:       in.Language,
		Timezone:       in.Timezone,
		Country:        in.Country,
		UTM:            ParseUTM(in.Referrer),
	}
}

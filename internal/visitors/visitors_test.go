package visitors_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"sitepulse/internal/visitors"
)

const (
	uaChromeWindows = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	uaSafariIPhone  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	uaSafariIPad    = "Mozilla/5.0 (iPad; CPU OS 16_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.6 Mobile/15E148 Safari/604.1"
	uaChromeAndroid = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"
	uaFirefoxLinux  = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
	uaSafariMac     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15"
)

func TestSessionID(t *testing.T) {
	t.Run("is deterministic for the same ip and user agent", func(t *testing.T) {
		first := visitors.SessionID("203.0.113.7", uaChromeWindows)
		second := visitors.SessionID("203.0.113.7", uaChromeWindows)
		assert.Equal(t, first, second)
		assert.NotEmpty(t, first)
	})

	t.Run("differs when either input changes", func(t *testing.T) {
		base := visitors.SessionID("203.0.113.7", uaChromeWindows)
		assert.NotEqual(t, base, visitors.SessionID("203.0.113.8", uaChromeWindows))
		assert.NotEqual(t, base, visitors.SessionID("203.0.113.7", uaFirefoxLinux))
	})

	t.Run("is capped at 16 characters", func(t *testing.T) {
		id := visitors.SessionID("2001:db8:85a3::8a2e:370:7334", uaChromeWindows)
		assert.Len(t, id, 16)
	})
}

func TestClassify(t *testing.T) {
	t.Run("chrome on windows desktop", func(t *testing.T) {
		cls := visitors.Classify(uaChromeWindows)
		assert.Equal(t, visitors.DeviceDesktop, cls.DeviceType)
		assert.Equal(t, "chrome", cls.Browser)
		assert.Equal(t, "120.0.0.0", cls.BrowserVersion)
		assert.Equal(t, "Windows", cls.OS)
		assert.Equal(t, "10.0", cls.OSVersion)
	})

	t.Run("safari on iphone is mobile", func(t *testing.T) {
		cls := visitors.Classify(uaSafariIPhone)
		assert.Equal(t, visitors.DeviceMobile, cls.DeviceType)
		assert.Equal(t, "safari", cls.Browser)
		assert.Equal(t, "iOS", cls.OS)
		assert.Equal(t, "17.0", cls.OSVersion)
	})

	t.Run("ipad is tablet even though the ua matches mobile markers", func(t *testing.T) {
		cls := visitors.Classify(uaSafariIPad)
		assert.Equal(t, visitors.DeviceTablet, cls.DeviceType)
		assert.Equal(t, "iOS", cls.OS)
	})

	t.Run("chrome on android is mobile, not linux", func(t *testing.T) {
		cls := visitors.Classify(uaChromeAndroid)
		assert.Equal(t, visitors.DeviceMobile, cls.DeviceType)
		assert.Equal(t, "chrome", cls.Browser)
		assert.Equal(t, "Android", cls.OS)
	})

	t.Run("safari is only reported when chrome is absent", func(t *testing.T) {
		// Chrome user agents contain "safari" as well
		assert.Equal(t, "chrome", visitors.Classify(uaChromeWindows).Browser)
		assert.Equal(t, "safari", visitors.Classify(uaSafariMac).Browser)
	})

	t.Run("firefox on linux", func(t *testing.T) {
		cls := visitors.Classify(uaFirefoxLinux)
		assert.Equal(t, visitors.DeviceDesktop, cls.DeviceType)
		assert.Equal(t, "firefox", cls.Browser)
		assert.Equal(t, "121.0", cls.BrowserVersion)
		assert.Equal(t, "Linux", cls.OS)
	})

	t.Run("unrecognized agent degrades to defaults", func(t *testing.T) {
		cls := visitors.Classify("curl/8.4.0")
		assert.Equal(t, visitors.DeviceDesktop, cls.DeviceType)
		assert.Equal(t, visitors.UnknownBrowser, cls.Browser)
		assert.Equal(t, visitors.UnknownOS, cls.OS)
	})
}

func TestParseUTM(t *testing.T) {
	t.Run("extracts campaign parameters", func(t *testing.T) {
		utm := visitors.ParseUTM("https://example.com/?utm_source=newsletter&utm_medium=email&utm_campaign=launch")
		assert.Equal(t, "newsletter", utm.Source)
		assert.Equal(t, "email", utm.Medium)
		assert.Equal(t, "launch", utm.Campaign)
		assert.False(t, utm.IsZero())
	})

	t.Run("malformed referrer yields zero params", func(t *testing.T) {
		assert.True(t, visitors.ParseUTM("not a url").IsZero())
		assert.True(t, visitors.ParseUTM("").IsZero())
		assert.True(t, visitors.ParseUTM("://bad").IsZero())
	})
}

func TestReferrerHostname(t *testing.T) {
	assert.Equal(t, "news.ycombinator.com", visitors.ReferrerHostname("https://news.ycombinator.com/item?id=1"))
	assert.Equal(t, "", visitors.ReferrerHostname(""))
	assert.Equal(t, "", visitors.ReferrerHostname("://bad"))
}

func TestNewRecord(t *testing.T) {
	t.Run("fills defaults for missing fields", func(t *testing.T) {
		rec := visitors.NewRecord(visitors.ParseInput{})
		assert.Equal(t, visitors.UnknownIP, rec.IP)
		assert.Equal(t, visitors.DefaultUserAgent, rec.UserAgent)
		assert.Equal(t, "/", rec.Page)
		assert.NotEmpty(t, rec.ID)
		assert.NotEmpty(t, rec.SessionID)
		assert.False(t, rec.Timestamp.IsZero())
	})

	t.Run("classifies and attributes the visit", func(t *testing.T) {
		ts := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
		rec := visitors.NewRecord(visitors.ParseInput{
			IP:        "203.0.113.7",
			UserAgent: uaChromeWindows,
			Page:      "/blog/hello",
			Referrer:  "https://news.ycombinator.com/?utm_source=hn",
			Country:   "ES",
			Timestamp: ts,
		})
		assert.Equal(t, "chrome", rec.Browser)
		assert.Equal(t, "ES", rec.Country)
		assert.Equal(t, ts, rec.Timestamp)
		assert.Equal(t, "hn", rec.UTM.Source)
		assert.Equal(t, rec.SessionID, visitors.SessionID("203.0.113.7", uaChromeWindows))
	})
}

func TestAlias(t *testing.T) {
	t.Run("is stable for the same session id", func(t *testing.T) {
		assert.Equal(t, visitors.Alias("abc"), visitors.Alias("abc"))
		assert.NotEmpty(t, visitors.Alias("abc"))
	})

	t.Run("has adjective animal format", func(t *testing.T) {
		assert.Regexp(t, `^[A-Z][a-z]+ [A-Z][a-z]+$`, visitors.Alias("some-session"))
	})
}

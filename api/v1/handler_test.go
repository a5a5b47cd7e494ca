// Package v1_test contains tests for the API v1 handlers
package v1_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitepulse/internal/testsupport"
)

const uaChromeWindows = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func trackRequest(t *testing.T, body map[string]any, ip string) *http.Request {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/x/api/v1/track", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", uaChromeWindows)
	if ip != "" {
		req.Header.Set("X-Forwarded-For", ip)
	}
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func TestTrackEventHandler(t *testing.T) {
	t.Run("accepts a page view and records it", func(t *testing.T) {
		db := testsupport.SetupTestDB(t)
		app := testsupport.CreateTestApp(t, db)

		req := trackRequest(t, map[string]any{
			"type": "pageView",
			"data": map[string]any{"page": "/about", "referrer": "https://news.ycombinator.com/"},
		}, "203.0.113.7")

		resp, err := app.App.Test(req, 30000)
		require.NoError(t, err)
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, "Event tracked successfully", body["message"])

		assert.Equal(t, 1, app.Ledger.Len())

		snap, err := app.Store.Current()
		require.NoError(t, err)
		assert.Equal(t, int64(1), snap.TotalPageViews)
		assert.Equal(t, int64(1), snap.PageViews["/about"])
	})

	t.Run("repeated blog views accumulate everywhere", func(t *testing.T) {
		db := testsupport.SetupTestDB(t)
		app := testsupport.CreateTestApp(t, db)

		before, err := app.Store.Current()
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			req := trackRequest(t, map[string]any{
				"type": "pageView",
				"data": map[string]any{"page": "/blog"},
			}, "203.0.113.7")
			resp, err := app.App.Test(req, 30000)
			require.NoError(t, err)
			require.Equal(t, http.StatusAccepted, resp.StatusCode)
		}

		snap, err := app.Store.Current()
		require.NoError(t, err)
		assert.Equal(t, int64(3), snap.PageViews["/blog"])
		assert.Equal(t, int64(3), snap.BlogViews)
		// Only the first page view of a session counts as a new visitor
		assert.Equal(t, before.TotalVisitors+1, snap.TotalVisitors)

		recent := app.Ledger.RecentVisitors(1)
		require.Len(t, recent, 1)
		assert.Equal(t, 3, recent[0].VisitCount)
		assert.False(t, recent[0].IsFirstVisit)
	})

	t.Run("rejects a malformed body", func(t *testing.T) {
		db := testsupport.SetupTestDB(t)
		app := testsupport.CreateTestApp(t, db)

		req := httptest.NewRequest("POST", "/x/api/v1/track", bytes.NewReader([]byte("{not json")))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", uaChromeWindows)

		resp, err := app.App.Test(req, 30000)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, "INVALID_BODY", body["code"])
	})

	t.Run("rejects an unknown event type", func(t *testing.T) {
		db := testsupport.SetupTestDB(t)
		app := testsupport.CreateTestApp(t, db)

		req := trackRequest(t, map[string]any{"type": "selfDestruct"}, "203.0.113.7")
		resp, err := app.App.Test(req, 30000)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, "UNKNOWN_EVENT_TYPE", body["code"])
	})

	t.Run("a blog-prefixed page is not blog content", func(t *testing.T) {
		db := testsupport.SetupTestDB(t)
		app := testsupport.CreateTestApp(t, db)

		before, err := app.Store.Current()
		require.NoError(t, err)

		req := trackRequest(t, map[string]any{
			"type": "pageView",
			"data": map[string]any{"page": "/blogging-tips"},
		}, "203.0.113.7")
		resp, err := app.App.Test(req, 30000)
		require.NoError(t, err)
		require.Equal(t, http.StatusAccepted, resp.StatusCode)

		snap, err := app.Store.Current()
		require.NoError(t, err)
		assert.Equal(t, before.TotalPageViews+1, snap.TotalPageViews)
		assert.Equal(t, int64(1), snap.PageViews["/blogging-tips"])
		assert.Equal(t, before.BlogViews, snap.BlogViews)
		assert.NotContains(t, snap.BlogPages, "ging-tips")
	})

	t.Run("distinguishes new and returning visitors", func(t *testing.T) {
		db := testsupport.SetupTestDB(t)
		app := testsupport.CreateTestApp(t, db)

		before, err := app.Store.Current()
		require.NoError(t, err)

		// First a page view establishes the session, then an explicit
		// visitor event from the same IP and user agent counts as returning
		req := trackRequest(t, map[string]any{
			"type": "pageView",
			"data": map[string]any{"page": "/"},
		}, "198.51.100.9")
		resp, err := app.App.Test(req, 30000)
		require.NoError(t, err)
		require.Equal(t, http.StatusAccepted, resp.StatusCode)

		req = trackRequest(t, map[string]any{"type": "visitor"}, "198.51.100.9")
		resp, err = app.App.Test(req, 30000)
		require.NoError(t, err)
		require.Equal(t, http.StatusAccepted, resp.StatusCode)

		snap, err := app.Store.Current()
		require.NoError(t, err)
		assert.Equal(t, before.ReturningVisitors+1, snap.ReturningVisitors)
		assert.Equal(t, before.UniqueVisitors+1, snap.UniqueVisitors)
	})

	t.Run("tracks performance samples", func(t *testing.T) {
		db := testsupport.SetupTestDB(t)
		app := testsupport.CreateTestApp(t, db)

		req := trackRequest(t, map[string]any{
			"type": "performance",
			"data": map[string]any{"loadTimeMs": 250.0},
		}, "203.0.113.7")
		resp, err := app.App.Test(req, 30000)
		require.NoError(t, err)
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)

		snap, err := app.Store.Current()
		require.NoError(t, err)
		assert.Equal(t, int64(1), snap.PerfSamples)
		assert.InDelta(t, 250.0, snap.AvgPageLoadMs, 0.001)
	})
}

func TestTrackEventBeaconHandler(t *testing.T) {
	t.Run("accepts a beacon event", func(t *testing.T) {
		db := testsupport.SetupTestDB(t)
		app := testsupport.CreateTestApp(t, db)

		payload, err := json.Marshal(map[string]any{
			"type": "blogView",
		})
		require.NoError(t, err)

		// sendBeacon posts text/plain
		req := httptest.NewRequest("POST", "/x/api/v1/track/beacon", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "text/plain")
		req.Header.Set("User-Agent", uaChromeWindows)

		resp, err := app.App.Test(req, 30000)
		require.NoError(t, err)
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)

		snap, err := app.Store.Current()
		require.NoError(t, err)
		assert.Equal(t, int64(1), snap.BlogViews)
	})

	t.Run("answers 202 even for garbage", func(t *testing.T) {
		db := testsupport.SetupTestDB(t)
		app := testsupport.CreateTestApp(t, db)

		req := httptest.NewRequest("POST", "/x/api/v1/track/beacon", bytes.NewReader([]byte("garbage")))
		req.Header.Set("Content-Type", "text/plain")
		req.Header.Set("User-Agent", uaChromeWindows)

		resp, err := app.App.Test(req, 30000)
		require.NoError(t, err)
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	})
}

func TestGetStatsHandler(t *testing.T) {
	t.Run("serves the live aggregate view", func(t *testing.T) {
		db := testsupport.SetupTestDB(t)
		app := testsupport.CreateTestApp(t, db)

		for _, page := range []string{"/", "/blog", "/blog"} {
			req := trackRequest(t, map[string]any{
				"type": "pageView",
				"data": map[string]any{"page": page},
			}, "203.0.113.7")
			resp, err := app.App.Test(req, 30000)
			require.NoError(t, err)
			require.Equal(t, http.StatusAccepted, resp.StatusCode)
		}

		req := httptest.NewRequest("GET", "/x/api/v1/analytics", nil)
		req.Header.Set("User-Agent", uaChromeWindows)
		resp, err := app.App.Test(req, 30000)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, float64(3), body["totalVisits"])
		assert.Equal(t, float64(3), body["todayVisits"])
		assert.Equal(t, float64(1), body["uniqueSessions"])

		browsers := body["browsers"].(map[string]any)
		assert.Equal(t, float64(3), browsers["chrome"])
	})

	t.Run("serves recent visitors with a capped limit", func(t *testing.T) {
		db := testsupport.SetupTestDB(t)
		app := testsupport.CreateTestApp(t, db)

		for i := 0; i < 5; i++ {
			req := trackRequest(t, map[string]any{
				"type": "pageView",
				"data": map[string]any{"page": "/"},
			}, "203.0.113.7")
			resp, err := app.App.Test(req, 30000)
			require.NoError(t, err)
			require.Equal(t, http.StatusAccepted, resp.StatusCode)
		}

		req := httptest.NewRequest("GET", "/x/api/v1/analytics?type=recent&limit=2", nil)
		req.Header.Set("User-Agent", uaChromeWindows)
		resp, err := app.App.Test(req, 30000)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		visitors := body["visitors"].([]any)
		assert.Len(t, visitors, 2)

		// Visitor records never expose the raw IP or user agent
		first := visitors[0].(map[string]any)
		assert.NotContains(t, first, "IP")
		assert.NotContains(t, first, "userAgent")
		assert.NotEmpty(t, first["sessionId"])
	})

	t.Run("rejects an invalid limit", func(t *testing.T) {
		db := testsupport.SetupTestDB(t)
		app := testsupport.CreateTestApp(t, db)

		req := httptest.NewRequest("GET", "/x/api/v1/analytics?type=recent&limit=zero", nil)
		req.Header.Set("User-Agent", uaChromeWindows)
		resp, err := app.App.Test(req, 30000)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestGetSummaryHandler(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateTestApp(t, db)

	require.NoError(t, app.Store.TrackPageView("/blog"))
	require.NoError(t, app.Store.TrackVisitor("desktop", "ES", false))

	req := httptest.NewRequest("GET", "/x/api/v1/analytics/summary", nil)
	req.Header.Set("User-Agent", uaChromeWindows)
	resp, err := app.App.Test(req, 30000)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, float64(1), body["totalPageViews"])
	assert.Equal(t, float64(1), body["totalVisitors"])

	topCountries := body["topCountries"].([]any)
	require.Len(t, topCountries, 1)
	assert.Equal(t, "Spain", topCountries[0].(map[string]any)["country"])
}

func TestGetOverviewHandler(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateTestApp(t, db)

	require.NoError(t, app.Store.TrackPageView("/"))

	req := httptest.NewRequest("GET", "/x/api/v1/analytics/overview", nil)
	req.Header.Set("User-Agent", uaChromeWindows)
	resp, err := app.App.Test(req, 30000)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Contains(t, body, "live")
	assert.Contains(t, body, "lifetime")
}

func TestGetVisitorInfoHandler(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateTestApp(t, db)

	req := httptest.NewRequest("GET", "/x/api/v1/me", nil)
	req.Header.Set("User-Agent", uaChromeWindows)
	req.Header.Set("X-Forwarded-For", "203.0.113.7")

	resp, err := app.App.Test(req, 30000)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.NotEmpty(t, body["sessionId"])
	assert.NotEmpty(t, body["alias"])
	assert.Equal(t, "chrome", body["browser"])
	assert.Equal(t, "desktop", body["deviceType"])
}

func TestResetAnalyticsHandler(t *testing.T) {
	t.Run("rejects invalid credentials", func(t *testing.T) {
		db := testsupport.SetupTestDB(t)
		app := testsupport.CreateTestApp(t, db)

		payload, _ := json.Marshal(map[string]any{"email": "admin@example.com", "password": "wrong"})
		req := httptest.NewRequest("POST", "/admin/api/v1/reset", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", uaChromeWindows)

		resp, err := app.App.Test(req, 30000)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("resets counters with valid credentials", func(t *testing.T) {
		db := testsupport.SetupTestDB(t)
		app := testsupport.CreateTestApp(t, db)
		testsupport.CreateTestUserForAuth(t, db, "admin@example.com", "hunter2secret")

		require.NoError(t, app.Store.TrackPageView("/blog"))

		payload, _ := json.Marshal(map[string]any{"email": "admin@example.com", "password": "hunter2secret"})
		req := httptest.NewRequest("POST", "/admin/api/v1/reset", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", uaChromeWindows)

		resp, err := app.App.Test(req, 30000)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		snap, err := app.Store.Current()
		require.NoError(t, err)
		assert.Equal(t, int64(0), snap.TotalPageViews)
		assert.Contains(t, snap.PageViews, "/blog")
	})
}

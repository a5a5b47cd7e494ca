package visitors

import "net/url"

// ParseUTM extracts utm_* campaign parameters from the referrer's query
// string. A missing or malformed referrer yields zero-value params; this
// function never fails.
func ParseUTM(referrer string) UTMParams {
	if referrer == "" {
		return UTMParams{}
	}

	parsed, err := url.Parse(referrer)
	if err != nil || parsed.Host == "" {
		return UTMParams{}
	}

	query := parsed.Query()
	return UTMParams{
		Source:   query.Get("utm_source"),
		Medium:   query.Get("utm_medium"),
		Campaign: query.Get("utm_campaign"),
		Term:     query.Get("utm_term"),
		Content:  query.Get("utm_content"),
	}
}

// ReferrerHostname returns the hostname of a referrer URL, or "" when the
// referrer is absent or not a well-formed URL. Parse failures are silently
// excluded from referrer breakdowns rather than bucketed.
func ReferrerHostname(referrer string) string {
	if referrer == "" {
		return ""
	}
	parsed, err := url.Parse(referrer)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}

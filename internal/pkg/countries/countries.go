// Package countries maps ISO country codes to display names.
package countries

import (
	"sync"

	"github.com/pariz/gountries"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	query     *gountries.Query
	caser     cases.Caser
	setupOnce sync.Once
)

func setup() {
	query = gountries.New()
	caser = cases.Upper(language.AmericanEnglish)
}

// DisplayName resolves an ISO alpha-2/alpha-3 code to the country's common
// name. Codes that cannot be resolved come back upper-cased, and the
// Unknown bucket passes through untouched.
func DisplayName(code string) string {
	setupOnce.Do(setup)

	if code == "" || code == "Unknown" {
		return "Unknown"
	}
	country, err := query.FindCountryByAlpha(code)
	if err != nil {
		return caser.String(code)
	}
	return country.Name.Common
}

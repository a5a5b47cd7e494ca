package visitors

import (
	"embed"
	"strings"
	"sync"

	"go.elara.ws/pcre"
	"gopkg.in/yaml.v3"
)

// Classification is the derived device/browser/OS view of a user agent.
type Classification struct {
	DeviceType     string
	Browser        string
	BrowserVersion string
	OS             string
	OSVersion      string
}

//go:embed rules/classifiers.yml
var ruleFiles embed.FS

// matcherRule is one ordered browser/OS matcher from the rules file.
type matcherRule struct {
	Name    string `yaml:"name"`
	Token   string `yaml:"token"`
	Exclude string `yaml:"exclude"`
	Version string `yaml:"version"`
}

type classifierRules struct {
	Tablet   []string      `yaml:"tablet"`
	Mobile   []string      `yaml:"mobile"`
	Browsers []matcherRule `yaml:"browsers"`
	Systems  []matcherRule `yaml:"systems"`
}

// regexCache compiles version-extraction patterns once and reuses them.
type regexCache struct {
	compiled map[string]*pcre.Regexp
	mutex    sync.RWMutex
}

func newRegexCache() *regexCache {
	return &regexCache{
		compiled: make(map[string]*pcre.Regexp),
	}
}

func (rc *regexCache) get(pattern string) (*pcre.Regexp, error) {
	rc.mutex.RLock()
	if regex, exists := rc.compiled[pattern]; exists {
		rc.mutex.RUnlock()
		return regex, nil
	}
	rc.mutex.RUnlock()

	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	// Double-check pattern
	if regex, exists := rc.compiled[pattern]; exists {
		return regex, nil
	}

	regex, err := pcre.Compile(pattern)
	if err != nil {
		return nil, err
	}
	rc.compiled[pattern] = regex
	return regex, nil
}

var (
	classifier     *uaClassifier
	classifierOnce sync.Once
)

type uaClassifier struct {
	rules classifierRules
	cache *regexCache
}

func getClassifier() *uaClassifier {
	classifierOnce.Do(func() {
		classifier = &uaClassifier{cache: newRegexCache()}
		if data, err := ruleFiles.ReadFile("rules/classifiers.yml"); err == nil {
			// A broken rules file leaves empty rule lists; every lookup
			// then degrades to the default values instead of failing.
			_ = yaml.Unmarshal(data, &classifier.rules)
		}
	})
	return classifier
}

// Classify derives device type, browser and OS from a user agent string.
// All matching is against the lower-cased input; anything unmatched
// degrades to the Unknown defaults.
func Classify(userAgent string) Classification {
	c := getClassifier()
	ua := strings.ToLower(userAgent)

	browser, browserVersion := c.match(ua, c.rules.Browsers)
	if browser == "" {
		browser = UnknownBrowser
	}
	os, osVersion := c.match(ua, c.rules.Systems)
	if os == "" {
		os = UnknownOS
	}

	return Classification{
		DeviceType:     c.deviceType(ua),
		Browser:        browser,
		BrowserVersion: browserVersion,
		OS:             os,
		OSVersion:      osVersion,
	}
}

// deviceType checks tablet markers before mobile markers: tablet user agents
// routinely contain "mobile" as well, and an iPad must never count as mobile.
func (c *uaClassifier) deviceType(ua string) string {
	for _, marker := range c.rules.Tablet {
		if strings.Contains(ua, marker) {
			return DeviceTablet
		}
	}
	for _, marker := range c.rules.Mobile {
		if strings.Contains(ua, marker) {
			return DeviceMobile
		}
	}
	return DeviceDesktop
}

// match runs the ordered rule list and returns name plus extracted version.
func (c *uaClassifier) match(ua string, rules []matcherRule) (string, string) {
	for _, rule := range rules {
		if !strings.Contains(ua, rule.Token) {
			continue
		}
		if rule.Exclude != "" && strings.Contains(ua, rule.Exclude) {
			continue
		}
		return rule.Name, c.extractVersion(ua, rule.Version)
	}
	return "", ""
}

func (c *uaClassifier) extractVersion(ua, pattern string) string {
	if pattern == "" {
		return ""
	}
	regex, err := c.cache.get(pattern)
	if err != nil {
		return ""
	}
	matches := regex.FindStringSubmatch(ua)
	if len(matches) < 2 {
		return ""
	}
	// iOS-style versions use underscores
	return strings.ReplaceAll(matches[1], "_", ".")
}

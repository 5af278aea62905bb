// Package classify derives coarse client categories from user agents and referrers.
//
// All functions are pure. Matching is substring based and the first match
// in priority order wins.
package classify

import (
	"regexp"
	"strings"
)

// Category labels.
const (
	Unknown = "Unknown"

	Desktop = "Desktop"
	Mobile  = "Mobile"
	Tablet  = "Tablet"

	Direct   = "Direct"
	Search   = "Search"
	Social   = "Social"
	Referral = "Referral"
)

type rule struct {
	needles []string
	label   string
}

// Chrome precedes Safari and Edge because their UA strings embed "Chrome"/"Safari".
var browserRules = []rule{
	{needles: []string{"Chrome"}, label: "Chrome"},
	{needles: []string{"Firefox"}, label: "Firefox"},
	{needles: []string{"Safari"}, label: "Safari"},
	{needles: []string{"Edge"}, label: "Edge"},
	{needles: []string{"MSIE", "Trident/"}, label: "Internet Explorer"},
}

var osRules = []rule{
	{needles: []string{"Windows"}, label: "Windows"},
	{needles: []string{"Mac"}, label: "MacOS"},
	{needles: []string{"Linux"}, label: "Linux"},
	{needles: []string{"Android"}, label: "Android"},
	{needles: []string{"iOS"}, label: "iOS"},
}

var (
	mobilePattern = regexp.MustCompile(`(?i)Mobile|Android|iPhone|iPad|iPod`)
	tabletPattern = regexp.MustCompile(`(?i)Tablet|iPad`)
)

func match(rules []rule, s string) string {
	for _, r := range rules {
		for _, n := range r.needles {
			if strings.Contains(s, n) {
				return r.label
			}
		}
	}
	return Unknown
}

// Browser names the browser family of a user agent.
func Browser(userAgent string) string {
	return match(browserRules, userAgent)
}

// OS names the operating system of a user agent.
func OS(userAgent string) string {
	return match(osRules, userAgent)
}

// Device returns Mobile, Tablet or Desktop.
// iPad matches the mobile pattern first, so it reports Mobile.
func Device(userAgent string) string {
	switch {
	case mobilePattern.MatchString(userAgent):
		return Mobile
	case tabletPattern.MatchString(userAgent):
		return Tablet
	default:
		return Desktop
	}
}

// TrafficSource buckets a referrer into Direct, Search, Social or Referral.
func TrafficSource(referrer string) string {
	switch {
	case referrer == "":
		return Direct
	case strings.Contains(referrer, "google"):
		return Search
	case strings.Contains(referrer, "facebook"), strings.Contains(referrer, "twitter"):
		return Social
	default:
		return Referral
	}
}

// Client bundles the three user-agent derived labels.
type Client struct {
	Browser string
	OS      string
	Device  string
}

// UserAgent classifies a user agent in one call.
func UserAgent(userAgent string) Client {
	return Client{
		Browser: Browser(userAgent),
		OS:      OS(userAgent),
		Device:  Device(userAgent),
	}
}

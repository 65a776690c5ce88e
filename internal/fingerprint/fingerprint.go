// Package fingerprint manages the persisted device-identity profile a
// browser session presents to the search engine: device profile, locale,
// timezone, color scheme and motion/contrast preferences, plus the chosen
// search domain. The profile is created once per fresh session and reused
// across runs so the site sees a stable identity.
package fingerprint

import (
	"math/rand"
	"os"
	"strings"
	"time"
)

// Config is the device-identity profile presented to the target site.
// It is immutable for the lifetime of a session and persisted at session end.
type Config struct {
	DeviceName    string `json:"device_name"`
	Locale        string `json:"locale"`
	TimezoneID    string `json:"timezone_id"`
	ColorScheme   string `json:"color_scheme"`
	ReducedMotion string `json:"reduced_motion"`
	ForcedColors  string `json:"forced_colors"`
}

// State holds the fingerprint and search-domain choices that outlive a
// single search. It is owned by exactly one orchestration run at a time.
type State struct {
	Fingerprint  *Config `json:"fingerprint"`
	GoogleDomain string  `json:"google_domain,omitempty"`
}

// DeviceProfile describes a known desktop browser configuration.
type DeviceProfile struct {
	Name             string
	UserAgent        string
	ViewportWidth    int
	ViewportHeight   int
	DeviceScaleFactor float64
}

// Desktop profiles only: mobile presentation changes the result markup and
// triggers different verification flows.
var deviceProfiles = map[string]DeviceProfile{
	"Desktop Chrome": {
		Name:              "Desktop Chrome",
		UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ViewportWidth:     1920,
		ViewportHeight:    1080,
		DeviceScaleFactor: 1,
	},
	"Desktop Edge": {
		Name:              "Desktop Edge",
		UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
		ViewportWidth:     1920,
		ViewportHeight:    1080,
		DeviceScaleFactor: 1,
	},
	"Desktop Firefox": {
		Name:              "Desktop Firefox",
		UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:120.0) Gecko/20100101 Firefox/120.0",
		ViewportWidth:     1920,
		ViewportHeight:    1080,
		DeviceScaleFactor: 1,
	},
	"Desktop Safari": {
		Name:              "Desktop Safari",
		UserAgent:         "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
		ViewportWidth:     1920,
		ViewportHeight:    1080,
		DeviceScaleFactor: 1,
	},
}

var deviceNames = []string{
	"Desktop Chrome",
	"Desktop Edge",
	"Desktop Firefox",
	"Desktop Safari",
}

// SearchDomains are the regional search-engine entry points a session may
// be pinned to. Using one domain consistently looks less automated than
// rotating per request.
var SearchDomains = []string{
	"https://www.google.com",
	"https://www.google.co.uk",
	"https://www.google.ca",
	"https://www.google.com.au",
}

// ChooseDevice returns the saved device profile when the state carries a
// known one, otherwise picks a desktop profile at random and records the
// choice for later persistence.
func ChooseDevice(state *State) DeviceProfile {
	if state.Fingerprint != nil {
		if p, ok := deviceProfiles[state.Fingerprint.DeviceName]; ok {
			return p
		}
	}
	return deviceProfiles[deviceNames[rand.Intn(len(deviceNames))]]
}

// ChooseDomain returns the saved search domain when the state carries one,
// otherwise picks one at random and records the choice.
func ChooseDomain(state *State) string {
	if state.GoogleDomain != "" {
		return state.GoogleDomain
	}
	domain := SearchDomains[rand.Intn(len(SearchDomains))]
	state.GoogleDomain = domain
	return domain
}

// Profile looks up a device profile by name. The second return is false
// for unknown names.
func Profile(name string) (DeviceProfile, bool) {
	p, ok := deviceProfiles[name]
	return p, ok
}

// HostConfig derives a fingerprint from the host environment: locale from
// the given override or $LANG, timezone from the host UTC offset bucketed
// into a fixed set of zone identifiers, and color scheme from the local
// hour (dark outside 07:00-19:00).
func HostConfig(localeOverride string) Config {
	return hostConfigAt(localeOverride, time.Now())
}

func hostConfigAt(localeOverride string, now time.Time) Config {
	locale := localeOverride
	if locale == "" {
		locale = localeFromEnv()
	}

	_, offsetSec := now.Zone()
	tz := timezoneForOffset(offsetSec / 60)

	colorScheme := "light"
	if h := now.Hour(); h >= 19 || h < 7 {
		colorScheme = "dark"
	}

	return Config{
		DeviceName:    "Desktop Chrome",
		Locale:        locale,
		TimezoneID:    tz,
		ColorScheme:   colorScheme,
		ReducedMotion: "no-preference",
		ForcedColors:  "none",
	}
}

func localeFromEnv() string {
	lang := os.Getenv("LANG")
	if lang == "" {
		return "en-US"
	}
	// LANG values look like "en_US.UTF-8".
	if i := strings.IndexByte(lang, '.'); i >= 0 {
		lang = lang[:i]
	}
	return strings.ReplaceAll(lang, "_", "-")
}

// timezoneForOffset buckets a UTC offset in minutes (east positive) into a
// fixed set of plausible zone identifiers.
func timezoneForOffset(offsetMin int) string {
	switch {
	case offsetMin >= 540:
		return "Asia/Tokyo"
	case offsetMin >= 480:
		return "Asia/Shanghai"
	case offsetMin >= 420:
		return "Asia/Bangkok"
	case offsetMin >= 60:
		return "Europe/Berlin"
	case offsetMin >= 0:
		return "Europe/London"
	case offsetMin >= -300:
		return "America/New_York"
	default:
		return "America/Los_Angeles"
	}
}

// RandomDelay returns a uniformly random duration in [min, max] milliseconds,
// used to pace keystrokes and pauses like a human operator.
func RandomDelay(minMs, maxMs int) time.Duration {
	if maxMs <= minMs {
		return time.Duration(minMs) * time.Millisecond
	}
	return time.Duration(minMs+rand.Intn(maxMs-minMs+1)) * time.Millisecond
}

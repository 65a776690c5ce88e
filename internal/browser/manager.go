// Package browser owns browser-engine lifecycle for serpforge: launching a
// hardened Chrome instance through chromedp, building pages configured with
// a device fingerprint and anti-detection overrides, and persisting session
// storage state across runs.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"

	"github.com/serpforge/serpforge/internal/fingerprint"
	"github.com/serpforge/serpforge/internal/logger"
)

// Manager launches browser instances and creates configured pages.
type Manager struct{}

// NewManager creates a session manager.
func NewManager() *Manager {
	return &Manager{}
}

// Session is a running browser instance. A session owned by the caller
// (External) is never closed by the orchestrator.
type Session struct {
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc

	Headless bool
	External bool
}

// Page is a browsing context with the fingerprint and anti-detection
// overrides applied. In chromedp a page carries its own target context.
type Page struct {
	Ctx     context.Context
	cancel  context.CancelFunc
	Profile fingerprint.DeviceProfile
}

// Launch starts a browser instance with the hardened argument set. The
// engine gets twice the caller's timeout budget to come up, since cold
// starts on loaded machines routinely exceed a single search budget.
func (m *Manager) Launch(ctx context.Context, headless bool, timeout time.Duration) (*Session, error) {
	mode := "headful"
	if headless {
		mode = "headless"
	}
	logger.Info("launching browser", "mode", mode)

	opts := append(chromedp.DefaultExecAllocatorOptions[:], hardenedAllocatorOptions(headless)...)
	if path := findChromePath(); path != "" {
		opts = append(opts, chromedp.ExecPath(path))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		logger.Debug("chromedp", "msg", fmt.Sprintf(format, args...))
	}))

	launchCtx, cancel := context.WithTimeout(browserCtx, 2*timeout)
	defer cancel()
	if err := chromedp.Run(launchCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	logger.Info("browser launched", "mode", mode)
	return &Session{
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
		Headless:      headless,
	}, nil
}

// WrapSession adapts an externally supplied chromedp browser context into
// a session the orchestrator will reuse but never close.
func WrapSession(browserCtx context.Context) *Session {
	return &Session{browserCtx: browserCtx, External: true}
}

// NewPage opens a page configured with the session fingerprint: device
// profile emulation, locale/timezone/media overrides, the anti-detection
// init scripts, and cookies restored from a previous run when a
// storage-state file is given.
//
// When the state carries no saved fingerprint, one is derived from the
// host environment and written back into state for later persistence.
// Presentation is forced to desktop (no touch, not mobile) regardless of
// profile.
func (m *Manager) NewPage(sess *Session, state *fingerprint.State, storageState, locale string) (*Page, error) {
	profile := fingerprint.ChooseDevice(state)

	var cfg fingerprint.Config
	if state.Fingerprint != nil {
		cfg = *state.Fingerprint
		logger.Info("using saved browser fingerprint",
			"device", cfg.DeviceName, "locale", cfg.Locale, "timezone", cfg.TimezoneID)
	} else {
		cfg = fingerprint.HostConfig(locale)
		if cfg.DeviceName != profile.Name {
			if p, ok := fingerprint.Profile(cfg.DeviceName); ok {
				profile = p
			}
		}
		cfg.DeviceName = profile.Name
		state.Fingerprint = &cfg
		logger.Info("derived new browser fingerprint from host",
			"device", cfg.DeviceName, "locale", cfg.Locale,
			"timezone", cfg.TimezoneID, "color_scheme", cfg.ColorScheme)
	}

	pageCtx, cancel := chromedp.NewContext(sess.browserCtx)

	actions := []chromedp.Action{
		emulation.SetUserAgentOverride(profile.UserAgent),
		emulation.SetDeviceMetricsOverride(
			int64(profile.ViewportWidth), int64(profile.ViewportHeight),
			profile.DeviceScaleFactor, false),
		emulation.SetTouchEmulationEnabled(false),
		emulation.SetLocaleOverride().WithLocale(cfg.Locale),
		emulation.SetTimezoneOverride(cfg.TimezoneID),
		emulation.SetEmulatedMedia().WithFeatures([]*emulation.MediaFeature{
			{Name: "prefers-color-scheme", Value: cfg.ColorScheme},
			{Name: "prefers-reduced-motion", Value: cfg.ReducedMotion},
			{Name: "forced-colors", Value: cfg.ForcedColors},
		}),
	}
	for _, script := range contextScripts {
		actions = append(actions, addInitScript(script))
	}
	actions = append(actions, addInitScript(screenScript))
	if storageState != "" {
		actions = append(actions, restoreStorageState(storageState))
	}

	if err := chromedp.Run(pageCtx, actions...); err != nil {
		cancel()
		return nil, fmt.Errorf("configure browsing context: %w", err)
	}

	return &Page{Ctx: pageCtx, cancel: cancel, Profile: profile}, nil
}

// storageStateFile is the on-disk session state: cookies serialized from
// the browsing context. Local storage does not survive restarts here;
// cookies carry the consent and preference state that matters for the
// verification heuristics.
type storageStateFile struct {
	Cookies []*network.Cookie `json:"cookies"`
	SavedAt time.Time         `json:"saved_at"`
}

// SaveStorageState serializes the page's cookies to path, creating parent
// directories as needed.
func (m *Manager) SaveStorageState(page *Page, path string) error {
	var cookies []*network.Cookie
	err := chromedp.Run(page.Ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = storage.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return fmt.Errorf("read cookies: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(storageStateFile{Cookies: cookies, SavedAt: time.Now().UTC()}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal storage state: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write storage state: %w", err)
	}

	logger.Info("browser storage state saved", "path", path, "cookies", len(cookies))
	return nil
}

// restoreStorageState returns an action that loads cookies from a previous
// run into the browsing context. A missing or unreadable file is not an
// error: the session simply starts cold.
func restoreStorageState(path string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Debug("no storage state to restore", "path", path, "error", err)
			return nil
		}
		var state storageStateFile
		if err := json.Unmarshal(data, &state); err != nil {
			logger.Warn("could not parse storage state file, starting cold", "path", path, "error", err)
			return nil
		}
		if len(state.Cookies) == 0 {
			return nil
		}

		params := make([]*network.CookieParam, 0, len(state.Cookies))
		for _, c := range state.Cookies {
			p := &network.CookieParam{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				Secure:   c.Secure,
				HTTPOnly: c.HTTPOnly,
				SameSite: c.SameSite,
			}
			if c.Expires > 0 {
				expires := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
				p.Expires = &expires
			}
			params = append(params, p)
		}
		if err := network.SetCookies(params).Do(ctx); err != nil {
			return fmt.Errorf("restore cookies: %w", err)
		}
		logger.Info("restored browser storage state", "path", path, "cookies", len(params))
		return nil
	})
}

// ClosePage tears down a single page, leaving the session running.
func (m *Manager) ClosePage(page *Page) {
	if page == nil {
		return
	}
	if err := chromedp.Cancel(page.Ctx); err != nil {
		logTeardown("page", err)
	}
	page.cancel()
}

// CloseSafely tears down the browser unless it was supplied by the
// caller. Platform-specific pipe and descriptor errors observed during
// process exit are downgraded to debug logging.
func (m *Manager) CloseSafely(sess *Session) {
	if sess == nil || sess.External {
		return
	}
	if err := chromedp.Cancel(sess.browserCtx); err != nil {
		logTeardown("browser", err)
	}
	if sess.browserCancel != nil {
		sess.browserCancel()
	}
	if sess.allocCancel != nil {
		sess.allocCancel()
	}
	logger.Info("browser closed")
}

func logTeardown(what string, err error) {
	if ExpectedTeardownError(err) {
		logger.Debug("expected teardown error", "target", what, "error", err)
		return
	}
	logger.Warn("error closing "+what, "error", err)
}

// BrowserContext exposes the underlying chromedp browser context so
// embedders can hand a running instance back in through WrapSession.
func (s *Session) BrowserContext() context.Context {
	return s.browserCtx
}

package browser

import (
	"context"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// The anti-detection overrides are static script payloads handed to the
// engine's initialization-script capability, grouped by concern. They run
// before any page script on every navigation.

// identityScript masks the automation-specific navigator surface: the
// webdriver flag, empty plugin/language lists and the missing
// window.chrome object are the classic headless giveaways.
const identityScript = `
(function() {
    'use strict';

    Object.defineProperty(navigator, 'webdriver', {
        get: () => false,
        configurable: true
    });
    delete Object.getPrototypeOf(navigator).webdriver;

    Object.defineProperty(navigator, 'plugins', {
        get: () => [1, 2, 3, 4, 5],
        configurable: true
    });
    Object.defineProperty(navigator, 'languages', {
        get: () => Object.freeze(['en-US', 'en']),
        configurable: true
    });
    Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => 8 });
    Object.defineProperty(navigator, 'deviceMemory', { get: () => 8 });
    Object.defineProperty(navigator, 'maxTouchPoints', { get: () => 0 });
    Object.defineProperty(navigator, 'vendor', { get: () => 'Google Inc.' });
    Object.defineProperty(navigator, 'doNotTrack', { get: () => null });

    if (!window.chrome) {
        window.chrome = {};
    }
    if (!window.chrome.runtime) {
        window.chrome.runtime = {
            connect: function() {},
            sendMessage: function() {},
            getManifest: function() { return {}; },
            getURL: function() { return ''; },
            get id() { return undefined; }
        };
    }
    window.chrome.loadTimes = window.chrome.loadTimes || function() {};
    window.chrome.csi = window.chrome.csi || function() {};
    window.chrome.app = window.chrome.app || {};

    Object.defineProperty(document, 'hidden', { get: () => false });
    Object.defineProperty(document, 'visibilityState', { get: () => 'visible' });
})();
`

// webglScript pins the unmasked WebGL vendor/renderer strings that headless
// builds otherwise report as SwiftShader.
const webglScript = `
(function() {
    'use strict';

    const patch = (proto) => {
        const getParameter = proto.getParameter;
        proto.getParameter = function(parameter) {
            // UNMASKED_VENDOR_WEBGL
            if (parameter === 37445) {
                return 'Intel Inc.';
            }
            // UNMASKED_RENDERER_WEBGL
            if (parameter === 37446) {
                return 'Intel Iris OpenGL Engine';
            }
            return getParameter.call(this, parameter);
        };
    };

    try { patch(WebGLRenderingContext.prototype); } catch (e) {}
    try { patch(WebGL2RenderingContext.prototype); } catch (e) {}
})();
`

// permissionsScript answers permission queries the way an interactive
// profile would instead of the headless default of "denied".
const permissionsScript = `
(function() {
    'use strict';

    if (navigator.permissions && navigator.permissions.query) {
        navigator.permissions.query = function() {
            return Promise.resolve({ state: 'granted' });
        };
    }
    if (window.Notification) {
        Object.defineProperty(window.Notification, 'permission', {
            get: () => 'granted'
        });
    }
})();
`

// screenScript is applied per page: realistic screen geometry and color
// depth for a 1080p desktop display.
const screenScript = `
(function() {
    'use strict';

    Object.defineProperty(window.screen, 'width', { get: () => 1920 });
    Object.defineProperty(window.screen, 'height', { get: () => 1080 });
    Object.defineProperty(window.screen, 'colorDepth', { get: () => 24 });
    Object.defineProperty(window.screen, 'pixelDepth', { get: () => 24 });
})();
`

// contextScripts are the overrides applied once per browsing context.
var contextScripts = []string{identityScript, webglScript, permissionsScript}

// hardenedAllocatorOptions returns the Chrome launch flags used for every
// session: automation indicators off, background throttling off, sandbox
// relaxed for containerized deployments.
func hardenedAllocatorOptions(headless bool) []chromedp.ExecAllocatorOption {
	return []chromedp.ExecAllocatorOption{
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),

		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-features", "IsolateOrigins,site-per-process,TranslateUI"),
		chromedp.Flag("disable-site-isolation-trials", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-component-extensions-with-background-pages", true),

		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-ipc-flooding-protection", true),
		chromedp.Flag("enable-features", "NetworkService,NetworkServiceInProcess"),

		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-zygote", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-breakpad", true),
		chromedp.Flag("disable-accelerated-2d-canvas", true),
		chromedp.Flag("force-color-profile", "srgb"),
		chromedp.Flag("metrics-recording-only", true),

		chromedp.WindowSize(1920, 1080),
	}
}

// addInitScript returns an action that registers a script to run on every
// new document before page scripts execute.
func addInitScript(script string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx)
		return err
	})
}

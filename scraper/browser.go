// Package scraper renders listing pages in a pooled headless Chromium.
package scraper

import (
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	"github.com/use-agent/stayscan/config"
	"github.com/use-agent/stayscan/models"
)

// Browser manages the global browser lifecycle and the tab pool.
// It is safe for concurrent use.
type Browser struct {
	browser    *rod.Browser
	tabs       *tabPool[*rod.Page]
	browserCfg config.BrowserConfig
	scraperCfg config.ScraperConfig
	pid        int
	startTime  time.Time
}

// NewBrowser launches a headless browser and initialises the tab pool.
func NewBrowser(browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig) (*Browser, error) {
	l := launcher.New().
		Headless(browserCfg.Headless).
		NoSandbox(browserCfg.NoSandbox)

	if browserCfg.BrowserBin != "" {
		l = l.Bin(browserCfg.BrowserBin)
	}
	if browserCfg.DefaultProxy != "" {
		l = l.Proxy(browserCfg.DefaultProxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))
	// Lazy galleries only load photos inside a realistic viewport.
	l.Set(flags.Flag("window-size"), "1366,900")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}

	b := &Browser{
		browser:    browser,
		browserCfg: browserCfg,
		scraperCfg: scraperCfg,
		pid:        l.PID(),
		startTime:  time.Now(),
	}
	b.tabs = newTabPool(browserCfg.MaxPages,
		func() (*rod.Page, error) {
			return browser.Page(proto.TargetCreateTarget{})
		},
		func(p *rod.Page) {
			_ = p.Close()
		},
	)
	slog.Info("tab pool created", "maxPages", browserCfg.MaxPages)
	return b, nil
}

// Stats returns a snapshot of the pool's current state.
func (b *Browser) Stats() models.PoolStats {
	return models.PoolStats{
		MaxPages:    b.browserCfg.MaxPages,
		ActivePages: b.tabs.Active(),
		BrowserPID:  b.pid,
	}
}

// Close drains the tab pool and kills the browser process.
// Call this on graceful shutdown to prevent zombie Chrome processes.
func (b *Browser) Close() {
	slog.Info("browser shutting down: draining tab pool")
	b.tabs.Close()
	slog.Info("browser shutting down: closing browser")
	if err := b.browser.Close(); err != nil {
		slog.Warn("browser close failed", "error", err)
	}
	slog.Info("browser shutdown complete")
}

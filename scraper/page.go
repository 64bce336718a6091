package scraper

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/use-agent/stayscan/engine"
	"github.com/use-agent/stayscan/models"
)

// Fetch renders a listing page and returns its hydrated HTML. It matches
// engine.BrowserFetchFunc.
//
// Lifecycle (numbered steps match the inline comments):
//
//  1. Timeout guard       – hard deadline on the entire operation
//  2. Acquire tab         – borrow a tab from the pool (or create one)
//  3. DEFER: cleanup      – about:blank + return to pool (leak prevention)
//  4. Stealth injection   – mask navigator.webdriver etc. (before navigation!)
//  5. Hijack mount        – block CSS/fonts/media + trackers (before navigation!)
//  6. Navigate            – bounded by the navigation timeout
//  7. Wait                – DOM stable
//  8. Hydrate             – dismiss overlays, scroll, open the photo tour
//  9. Extract             – page.HTML() + title + final URL + status
//
// Steps 4-5 MUST happen before step 6: stealth JS and resource blocking only
// take effect for navigations that happen after they are installed.
// Step 3's about:blank uses the ORIGINAL page reference (without request
// context), so cleanup succeeds even if the request context has expired.
func (b *Browser) Fetch(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
	// ── 1. Timeout guard ──────────────────────────────────────────────
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	// ── 2. Acquire tab from pool ──────────────────────────────────────
	t, err := b.tabs.Get(ctx)
	if err != nil {
		return nil, categorizeError(err, "failed to acquire browser tab")
	}
	page := t.val
	ok := false

	// ── 3. CRITICAL DEFER: prevent DOM memory leak + guarantee pool return
	defer func() {
		if navErr := page.Navigate("about:blank"); navErr != nil {
			slog.Warn("cleanup: failed to navigate to about:blank", "error", navErr)
			ok = false
		}
		b.tabs.Put(t, ok)
	}()

	// ── 4. Stealth injection ──────────────────────────────────────────
	if req.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
		}
	}

	// ── 4b. Extra headers (custom + search Referer) ───────────────────
	extraHeaders := make(map[string]string, len(req.Headers)+1)
	if u, parseErr := url.Parse(req.URL); parseErr == nil {
		extraHeaders["Referer"] = "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname())
	}
	for k, v := range req.Headers {
		extraHeaders[k] = v
	}
	_ = proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(extraHeaders)}.Call(page)

	// ── 5. Mount hijack router ────────────────────────────────────────
	if router := setupHijack(page, b.scraperCfg.BlockedResourceTypes); router != nil {
		defer func() { _ = router.Stop() }()
	}

	p := page.Context(ctx)

	// ── 6. Navigate ───────────────────────────────────────────────────
	navPage := p
	if b.scraperCfg.NavigationTimeout > 0 {
		navPage = p.Timeout(b.scraperCfg.NavigationTimeout)
	}
	if navErr := navPage.Navigate(req.URL); navErr != nil {
		return nil, categorizeError(
			models.NewScrapeError(models.ErrCodeNavigation, "navigation to listing failed", navErr),
			"navigating to listing")
	}

	// ── 7. Wait for the SPA to settle ─────────────────────────────────
	if stableErr := p.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", stableErr)
	}

	// ── 8. Hydrate lazy content ───────────────────────────────────────
	removeOverlays(p)
	if err := scrollPage(p, b.scraperCfg.ScrollPasses); err != nil {
		slog.Debug("scrolling stopped early", "url", req.URL, "error", err)
	}
	openPhotoTour(p)

	// ── 9. Extract rendered HTML ──────────────────────────────────────
	rawHTML, htmlErr := p.HTML()
	if htmlErr != nil {
		return nil, categorizeError(htmlErr, "failed to extract page HTML")
	}

	// performance entries carry the status without a Network listener,
	// which would conflict with the hijack router's Fetch domain.
	statusCode := 0
	if res, evalErr := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`); evalErr == nil {
		statusCode = res.Value.Int()
	}

	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = req.URL
	}

	ok = true
	return &engine.FetchResult{
		HTML:       rawHTML,
		Title:      evalStringOrEmpty(p, `() => document.title`),
		StatusCode: statusCode,
		FinalURL:   finalURL,
	}, nil
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional metadata extraction).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeError maps browser failures onto fetch errors. Every browser
// failure is transient: a crashed tab or a slow render says nothing about
// whether the listing exists.
func categorizeError(err error, msg string) *engine.FetchError {
	switch {
	case errors.Is(err, context.Canceled):
		return engine.Transient("browser", "request canceled", err)
	case errors.Is(err, errPoolClosed):
		return engine.Transient("browser", "browser is shutting down", err)
	default:
		return engine.Transient("browser", msg, err)
	}
}

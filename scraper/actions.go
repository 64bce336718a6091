package scraper

import (
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// photoTourTimeout bounds the optional "Show all photos" interaction.
const photoTourTimeout = 5 * time.Second

// photoTourSelectors open the full photo grid, which renders every gallery
// image into the DOM instead of the first five.
var photoTourSelectors = []string{
	`button[data-testid="pdp-show-all-photos-button"]`,
	`[data-section-id="HERO_DEFAULT"] button`,
}

// scrollPage scrolls down one viewport per pass so lazy loaders swap real
// photo URLs into src, then returns to the top.
func scrollPage(p *rod.Page, passes int) error {
	if passes <= 0 {
		return nil
	}
	res, err := p.Eval(`() => window.innerHeight`)
	if err != nil {
		return fmt.Errorf("failed to get viewport height: %w", err)
	}
	viewportHeight := res.Value.Int()
	if viewportHeight <= 0 {
		viewportHeight = 900
	}

	for i := 0; i < passes; i++ {
		if err := p.Mouse.Scroll(0, float64(viewportHeight), 0); err != nil {
			return fmt.Errorf("scroll step %d failed: %w", i, err)
		}
		// Brief pause between scroll steps to let lazy-loaded content trigger.
		select {
		case <-time.After(150 * time.Millisecond):
		case <-p.GetContext().Done():
			return p.GetContext().Err()
		}
	}
	_, _ = p.Eval(`() => window.scrollTo(0, 0)`)
	return nil
}

// openPhotoTour clicks the first photo-grid button found and waits for the
// grid to render. It is best-effort: listings with few photos have no button.
func openPhotoTour(p *rod.Page) {
	tp := p.Timeout(photoTourTimeout)
	defer tp.CancelTimeout()

	for _, sel := range photoTourSelectors {
		has, el, err := tp.Has(sel)
		if err != nil || !has {
			continue
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			continue
		}
		_ = tp.WaitDOMStable(300*time.Millisecond, 0.1)
		return
	}
}

// removeOverlays removes fixed/sticky positioned elements with high
// z-index, which are typically cookie consent banners and translation
// prompts covering the listing.
func removeOverlays(p *rod.Page) {
	const js = `() => {
		const els = document.querySelectorAll('*');
		for (const el of els) {
			const style = window.getComputedStyle(el);
			const pos = style.position;
			if (pos === 'fixed' || pos === 'sticky') {
				const z = parseInt(style.zIndex, 10);
				if (z >= 900) {
					el.remove();
				}
			}
		}
		const selectors = [
			'[class*="cookie"]', '[class*="consent"]', '[id*="cookie"]', '[id*="consent"]',
			'[role="dialog"][aria-label*="ranslat"]',
		];
		for (const sel of selectors) {
			document.querySelectorAll(sel).forEach(el => {
				const style = window.getComputedStyle(el);
				if (style.position === 'fixed' || style.position === 'sticky' || style.position === 'absolute') {
					el.remove();
				}
			});
		}
		// Remove any overflow:hidden on body/html (often set by modals).
		document.documentElement.style.overflow = '';
		document.body.style.overflow = '';
	}`
	_, _ = p.Eval(js)
}

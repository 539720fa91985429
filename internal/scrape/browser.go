package scrape

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"foiadir/internal/config"
)

// revealLookup bounds the search for the contact tab. Pages without the
// tab render contact details inline, so a miss here is routine.
const revealLookup = 2 * time.Second

// Browser owns one headless Chrome process and the worker pages cut from
// it. All worker pages share a single incognito context.
type Browser struct {
	browser   *rod.Browser
	incognito *rod.Browser
	pages     []*rod.Page
	cfg       *config.Config
	log       *zap.Logger
}

// Launch starts Chrome and opens one blank worker page per configured
// concurrency slot.
func Launch(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Browser, error) {
	controlURL, err := launcher.New().Headless(cfg.Scrape.Headless).Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	incognito, err := browser.Incognito()
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("incognito context: %w", err)
	}

	b := &Browser{
		browser:   browser,
		incognito: incognito,
		cfg:       cfg,
		log:       log,
	}

	for i := 0; i < cfg.Scrape.Concurrency; i++ {
		page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("create worker page %d: %w", i, err)
		}

		if err := (proto.EmulationSetDeviceMetricsOverride{
			Width:             1366,
			Height:            900,
			DeviceScaleFactor: 1.0,
			Mobile:            false,
		}).Call(page); err != nil {
			log.Debug("failed to set viewport", zap.Int("worker", i), zap.Error(err))
		}

		if ua := cfg.Scrape.UserAgent; ua != "" {
			if err := (proto.NetworkSetUserAgentOverride{UserAgent: ua}).Call(page); err != nil {
				log.Debug("failed to set user agent", zap.Int("worker", i), zap.Error(err))
			}
		}

		b.pages = append(b.pages, page)
	}

	log.Info("browser ready", zap.Int("workers", len(b.pages)))
	return b, nil
}

// Visitors wraps each worker page for the pool. The returned visitors stay
// valid until Close.
func (b *Browser) Visitors() []Visitor {
	visitors := make([]Visitor, 0, len(b.pages))
	for _, page := range b.pages {
		visitors = append(visitors, &pageVisitor{
			page:        page,
			urlTemplate: b.cfg.Scrape.UnitURLTemplate,
			revealLabel: b.cfg.Scrape.RevealLabel,
			navTimeout:  b.cfg.GetNavigationTimeout(),
			settleWait:  b.cfg.GetSettleWait(),
		})
	}
	return visitors
}

// Close shuts down the worker pages and the browser process.
func (b *Browser) Close() error {
	for _, page := range b.pages {
		_ = page.Close()
	}
	b.pages = nil

	var err error
	if b.browser != nil {
		err = b.browser.Close()
		b.browser = nil
	}
	return err
}

// pageVisitor drives one reusable rod page through the visit sequence:
// navigate, reveal the contact tab when present, settle, capture HTML.
type pageVisitor struct {
	page        *rod.Page
	urlTemplate string
	revealLabel string
	navTimeout  time.Duration
	settleWait  time.Duration
}

func (v *pageVisitor) Visit(ctx context.Context, unitID string) (Capture, error) {
	target := fmt.Sprintf(v.urlTemplate, url.QueryEscape(unitID))
	capture := Capture{UnitID: unitID, URL: target}

	page := v.page.Context(ctx)
	if err := page.Timeout(v.navTimeout).Navigate(target); err != nil {
		return capture, fmt.Errorf("navigate %s: %w", target, err)
	}
	if err := page.Timeout(v.navTimeout).WaitLoad(); err != nil {
		return capture, fmt.Errorf("load %s: %w", target, err)
	}

	v.reveal(page)
	settle(ctx, v.settleWait)

	markup, err := page.HTML()
	if err != nil {
		return capture, fmt.Errorf("capture %s: %w", target, err)
	}
	capture.HTML = markup
	return capture, nil
}

// reveal clicks the contact-information tab if the page has one.
func (v *pageVisitor) reveal(page *rod.Page) {
	if v.revealLabel == "" {
		return
	}
	el, err := page.Timeout(revealLookup).ElementR(`a, button, [role="tab"]`, v.revealLabel)
	if err != nil {
		return
	}
	_ = el.Click(proto.InputMouseButtonLeft, 1)
}

// settle waits the fixed post-navigation interval, honoring cancellation.
func settle(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

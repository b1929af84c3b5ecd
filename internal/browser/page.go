package browser

import (
	"context"
	"errors"
	"sync"
	"time"

	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/verity-cli/internal/config"
	"github.com/xkilldash9x/verity-cli/internal/locator"
	"github.com/xkilldash9x/verity-cli/internal/retry"
	"github.com/xkilldash9x/verity-cli/internal/verr"
)

// Page is a single browser tab. Element operations parse their locator,
// apply the configured per-call timeout, and retry transient failures with
// exponential backoff before giving up.
type Page struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    *config.Config
	logger *zap.Logger

	closeOnce sync.Once
	onClose   func()
}

// Context exposes the underlying chromedp tab context, primarily so the
// session manager can capture page state when saving.
func (p *Page) Context() context.Context { return p.ctx }

// Close releases the tab. Idempotent; safe to call after Shutdown started.
func (p *Page) Close() {
	p.closeOnce.Do(func() {
		p.cancel()
		if p.onClose != nil {
			p.onClose()
		}
	})
}

// combineContext derives a context cancelled when either parent is done.
// chromedp actions need the tab context's values, while the caller's context
// carries the operation deadline.
func combineContext(parent, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-secondary.Done():
			cancel()
		case <-combined.Done():
		}
	}()
	return combined, cancel
}

func (p *Page) retryOpts() []retry.Option {
	return []retry.Option{
		retry.WithMaxAttempts(p.cfg.Retry.MaxAttempts),
		retry.WithInitialDelay(p.cfg.Retry.InitialDelay),
		retry.WithMaxDelay(p.cfg.Retry.MaxDelay),
		retry.WithOnRetry(func(attempt int, delay time.Duration, err error) {
			p.logger.Debug("Retrying page action",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err),
			)
		}),
	}
}

// run executes actions against the tab under the given timeout budget.
func (p *Page) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	opCtx, cancelOp := combineContext(p.ctx, ctx)
	defer cancelOp()

	if timeout > 0 {
		var cancelTimeout context.CancelFunc
		opCtx, cancelTimeout = context.WithTimeout(opCtx, timeout)
		defer cancelTimeout()
	}
	return chromedp.Run(opCtx, actions...)
}

// queryOption maps a parsed locator to the chromedp query mode.
func queryOption(isXPath bool) chromedp.QueryOption {
	if isXPath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

// classify turns a raw chromedp error into the framework taxonomy: deadline
// expiry is a timeout, anything else on an element operation means the
// element never became actionable.
func classify(err error, op, loc string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return verr.Timeout(op, err).With("locator", loc)
	}
	return verr.ElementNotFound(loc, err)
}

// Navigate loads the URL and waits for the load event, then the configured
// post-load settle time.
func (p *Page) Navigate(ctx context.Context, url string) error {
	p.logger.Debug("Navigating", zap.String("url", url))

	err := retry.Do(ctx, func(ctx context.Context) error {
		actions := []chromedp.Action{chromedp.Navigate(url)}
		if wait := p.cfg.Network.PostLoadWait; wait > 0 {
			actions = append(actions, chromedp.Sleep(wait))
		}
		if err := p.run(ctx, p.cfg.Network.NavigationTimeout, actions...); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return verr.Timeout("navigation", err).With("url", url)
			}
			return verr.Wrap(verr.KindTimeout, "navigation failed", err).With("url", url)
		}
		return nil
	}, p.retryOpts()...)
	return err
}

// Click parses the locator, waits for visibility, and clicks.
func (p *Page) Click(ctx context.Context, rawLocator string) error {
	loc, err := locator.Parse(rawLocator, p.logger)
	if err != nil {
		return err
	}
	sel, isXPath := loc.Selector()
	opt := queryOption(isXPath)

	return retry.Do(ctx, func(ctx context.Context) error {
		err := p.run(ctx, p.cfg.Network.ActionTimeout,
			chromedp.WaitVisible(sel, opt),
			chromedp.Click(sel, opt),
		)
		if err != nil {
			return classify(err, "click", rawLocator)
		}
		return nil
	}, p.retryOpts()...)
}

// Fill clears the field and types the value.
func (p *Page) Fill(ctx context.Context, rawLocator, value string) error {
	loc, err := locator.Parse(rawLocator, p.logger)
	if err != nil {
		return err
	}
	sel, isXPath := loc.Selector()
	opt := queryOption(isXPath)

	return retry.Do(ctx, func(ctx context.Context) error {
		err := p.run(ctx, p.cfg.Network.ActionTimeout,
			chromedp.WaitVisible(sel, opt),
			chromedp.Clear(sel, opt),
			chromedp.SendKeys(sel, value, opt),
		)
		if err != nil {
			return classify(err, "fill", rawLocator)
		}
		return nil
	}, p.retryOpts()...)
}

// WaitVisible blocks until the element is rendered and visible.
func (p *Page) WaitVisible(ctx context.Context, rawLocator string) error {
	loc, err := locator.Parse(rawLocator, p.logger)
	if err != nil {
		return err
	}
	sel, isXPath := loc.Selector()

	return retry.Do(ctx, func(ctx context.Context) error {
		if err := p.run(ctx, p.cfg.Network.ActionTimeout, chromedp.WaitVisible(sel, queryOption(isXPath))); err != nil {
			return classify(err, "wait_visible", rawLocator)
		}
		return nil
	}, p.retryOpts()...)
}

// Text returns the element's rendered text content.
func (p *Page) Text(ctx context.Context, rawLocator string) (string, error) {
	loc, err := locator.Parse(rawLocator, p.logger)
	if err != nil {
		return "", err
	}
	sel, isXPath := loc.Selector()

	return retry.DoValue(ctx, func(ctx context.Context) (string, error) {
		var text string
		if err := p.run(ctx, p.cfg.Network.ActionTimeout, chromedp.Text(sel, &text, queryOption(isXPath))); err != nil {
			return "", classify(err, "text", rawLocator)
		}
		return text, nil
	}, p.retryOpts()...)
}

// Screenshot captures the full viewport as PNG, for attaching to failed
// cases.
func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := p.run(ctx, p.cfg.Network.ActionTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = cdppage.CaptureScreenshot().
			WithFormat(cdppage.CaptureScreenshotFormatPng).
			Do(ctx)
		return err
	}))
	if err != nil {
		return nil, verr.Timeout("capturing screenshot", err)
	}
	return buf, nil
}

// Title returns the current document title.
func (p *Page) Title(ctx context.Context) (string, error) {
	var title string
	if err := p.run(ctx, p.cfg.Network.ActionTimeout, chromedp.Title(&title)); err != nil {
		return "", verr.Timeout("reading title", err)
	}
	return title, nil
}

// URL returns the current page location.
func (p *Page) URL(ctx context.Context) (string, error) {
	var url string
	if err := p.run(ctx, p.cfg.Network.ActionTimeout, chromedp.Location(&url)); err != nil {
		return "", verr.Timeout("reading location", err)
	}
	return url, nil
}

package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/imishinist/fe-bench/internal/models"
	"github.com/imishinist/fe-bench/internal/poll"
)

var _ models.Page = (*Page)(nil)

// bufferBootstrap creates the in-page metrics buffer before application code
// runs. Applications append to buffer and webVitals; getAndReset drains both.
const bufferBootstrap = `(() => {
  if (window.__appMetrics) return;
  const buffer = [];
  const webVitals = {};
  window.__appMetrics = {
    buffer,
    webVitals,
    getAndReset() {
      const snapshot = { metrics: buffer.slice(), webVitals: Object.assign({}, webVitals) };
      buffer.splice(0, buffer.length);
      for (const key of Object.keys(webVitals)) delete webVitals[key];
      return snapshot;
    },
  };
})();`

// setControl assigns a form control through the native setter so framework
// bindings observe input and change events.
const setControl = `((selector, mode, value) => {
  const el = document.querySelector(selector);
  if (!el) throw new Error('no element matches ' + selector);
  if (mode === 'index') {
    el.selectedIndex = value;
  } else {
    const desc = Object.getOwnPropertyDescriptor(Object.getPrototypeOf(el), 'value');
    desc.set.call(el, value);
  }
  el.dispatchEvent(new Event('input', { bubbles: true }));
  el.dispatchEvent(new Event('change', { bubbles: true }));
  return true;
})`

// Page implements models.Page over one chromedp tab.
type Page struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   Options
}

// run executes actions on the tab while honouring ctx's deadline.
func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func by(selector string) chromedp.QueryOption {
	if strings.HasPrefix(selector, "/") || strings.HasPrefix(selector, "(") {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

func (p *Page) Evaluate(ctx context.Context, expression string, out any) error {
	if err := p.run(ctx, chromedp.Evaluate(expression, out)); err != nil {
		return fmt.Errorf("failed to evaluate script: %w", err)
	}
	return nil
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := p.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (p *Page) WaitVisible(ctx context.Context, selector string) error {
	if err := p.run(ctx, chromedp.WaitVisible(selector, by(selector))); err != nil {
		return fmt.Errorf("waiting for %s: %w", selector, err)
	}
	return nil
}

func (p *Page) Click(ctx context.Context, selector string) error {
	if err := p.run(ctx, chromedp.Click(selector, by(selector), chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("failed to click %s: %w", selector, err)
	}
	return nil
}

func (p *Page) Fill(ctx context.Context, selector, value string) error {
	return p.setControl(ctx, selector, "value", value)
}

func (p *Page) SelectIndex(ctx context.Context, selector string, index int) error {
	return p.setControl(ctx, selector, "index", index)
}

func (p *Page) SelectValue(ctx context.Context, selector, value string) error {
	return p.setControl(ctx, selector, "value", value)
}

func (p *Page) setControl(ctx context.Context, selector, mode string, value any) error {
	args, err := json.Marshal([]any{selector, mode, value})
	if err != nil {
		return err
	}
	expr := fmt.Sprintf("%s(...%s)", setControl, args)

	var ok bool
	if err := p.run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Evaluate(expr, &ok),
	); err != nil {
		return fmt.Errorf("failed to set %s: %w", selector, err)
	}
	return nil
}

func (p *Page) Location(ctx context.Context) (string, error) {
	var loc string
	if err := p.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

// WaitForMetric polls the metrics buffer until an entry called name shows up.
func (p *Page) WaitForMetric(ctx context.Context, name string) error {
	quoted, err := json.Marshal(name)
	if err != nil {
		return err
	}
	expr := fmt.Sprintf("(window.__appMetrics?.buffer ?? []).some((e) => e.name === %s)", quoted)

	return poll.Until(ctx, poll.Options{
		What:     "metric " + name,
		Interval: p.opts.MetricInterval,
		Timeout:  p.opts.MetricTimeout,
	}, func(ctx context.Context) (bool, error) {
		var found bool
		if err := p.Evaluate(ctx, expr, &found); err != nil {
			return false, err
		}
		return found, nil
	})
}

// Settle waits d, for render completions that emit no mark.
func (p *Page) Settle(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Close disposes the tab and its browser context.
func (p *Page) Close() error {
	p.cancel()
	return nil
}

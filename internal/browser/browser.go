// Package browser drives a headless Chrome through chromedp.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

type Options struct {
	Headless bool
	ExecPath string
	// MetricTimeout and MetricInterval bound WaitForMetric.
	MetricTimeout  time.Duration
	MetricInterval time.Duration
}

// Browser is one Chrome process. Pages opened from it live in their own
// browser context and share no storage.
type Browser struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	opts        Options
	log         *logrus.Entry
}

func Launch(ctx context.Context, opts Options, log *logrus.Entry) (*Browser, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(log.Debugf))

	// the first Run starts the browser process
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &Browser{
		ctx:         browserCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		opts:        opts,
		log:         log,
	}, nil
}

// NewPage opens a tab in a fresh incognito browser context with the metrics
// buffer bootstrap installed.
func (b *Browser) NewPage(ctx context.Context) (*Page, error) {
	tabCtx, cancel := chromedp.NewContext(b.ctx, chromedp.WithNewBrowserContext())

	// The first Run allocates the tab and binds it to tabCtx, so it must not
	// use a derived context.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	err := chromedp.Run(tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(bufferBootstrap).Do(ctx)
		return err
	}))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	return &Page{ctx: tabCtx, cancel: cancel, opts: b.opts}, nil
}

func (b *Browser) Close() error {
	b.cancel()
	b.allocCancel()
	return nil
}

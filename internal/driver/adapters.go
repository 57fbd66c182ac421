package driver

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/imishinist/fe-bench/internal/browser"
	"github.com/imishinist/fe-bench/internal/launcher"
	"github.com/imishinist/fe-bench/internal/models"
)

type processLauncher struct {
	l *launcher.Launcher
}

// ProcessLauncher runs real build and preview processes.
func ProcessLauncher(l *launcher.Launcher) Launcher {
	return processLauncher{l: l}
}

func (p processLauncher) Build(ctx context.Context, target models.AppTarget) error {
	return p.l.Build(ctx, target)
}

func (p processLauncher) Start(ctx context.Context, target models.AppTarget) (Server, error) {
	preview, err := p.l.LaunchPreview(ctx, target)
	if err != nil {
		return nil, err
	}
	return preview, nil
}

type chromeFactory struct {
	opts browser.Options
	log  *logrus.Entry
}

// ChromeBrowsers launches one headless Chrome per Open call.
func ChromeBrowsers(opts browser.Options, log *logrus.Entry) BrowserFactory {
	return chromeFactory{opts: opts, log: log}
}

func (c chromeFactory) Open(ctx context.Context) (Session, error) {
	b, err := browser.Launch(ctx, c.opts, c.log)
	if err != nil {
		return nil, err
	}
	return chromeSession{b: b}, nil
}

type chromeSession struct {
	b *browser.Browser
}

func (s chromeSession) NewPage(ctx context.Context) (PageHandle, error) {
	page, err := s.b.NewPage(ctx)
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (s chromeSession) Close() error { return s.b.Close() }

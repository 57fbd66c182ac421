// Package launcher builds candidate applications and runs their preview
// servers.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/imishinist/fe-bench/internal/models"
	"github.com/imishinist/fe-bench/internal/poll"
)

// BuildError is returned when installing or building an application fails.
type BuildError struct {
	Tech  string
	Stage string
	Err   error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Tech, e.Stage, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// NotReadyError is returned when a preview server never answered with 2xx.
type NotReadyError struct {
	Tech string
	URL  string
	Err  error
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("%s: preview server at %s not ready: %v", e.Tech, e.URL, e.Err)
}

func (e *NotReadyError) Unwrap() error { return e.Err }

type Options struct {
	ReadyTimeout  time.Duration
	ReadyInterval time.Duration
	CloseGrace    time.Duration
	// Client is used for readiness probes; http.DefaultClient when nil.
	Client *http.Client
}

type Launcher struct {
	opts Options
	log  *logrus.Entry
}

func New(opts Options, log *logrus.Entry) *Launcher {
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Launcher{opts: opts, log: log}
}

// Build installs dependencies when node_modules is absent, then runs the
// build command inside the application directory.
func (l *Launcher) Build(ctx context.Context, target models.AppTarget) error {
	log := l.log.WithField("tech", target.Tech)

	if _, err := os.Stat(filepath.Join(target.Dir, "node_modules")); errors.Is(err, os.ErrNotExist) && len(target.InstallCommand) > 0 {
		log.WithField("stage", "install").Info("installing dependencies")
		if err := runCommand(ctx, target.Dir, target.InstallCommand, log.WithField("stage", "install")); err != nil {
			return &BuildError{Tech: target.Tech, Stage: "install", Err: err}
		}
	}

	log.WithField("stage", "build").Info("building project")
	if err := runCommand(ctx, target.Dir, target.BuildCommand, log.WithField("stage", "build")); err != nil {
		return &BuildError{Tech: target.Tech, Stage: "build", Err: err}
	}
	return nil
}

func runCommand(ctx context.Context, dir string, argv []string, log *logrus.Entry) error {
	if len(argv) == 0 {
		return fmt.Errorf("empty command")
	}
	out := log.WriterLevel(logrus.DebugLevel)
	defer out.Close()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Stdout = out
	cmd.Stderr = out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", strings.Join(argv, " "), err)
	}
	return nil
}

// Preview is a running preview server. Close must always be called.
type Preview struct {
	BaseURL string

	cmd     *exec.Cmd
	out     io.Closer
	grace   time.Duration
	done    chan struct{}
	waitErr error
	once    sync.Once
	log     *logrus.Entry
}

// LaunchPreview starts the preview command on the target's port and waits
// until the base URL answers with a 2xx status.
func (l *Launcher) LaunchPreview(ctx context.Context, target models.AppTarget) (*Preview, error) {
	log := l.log.WithFields(logrus.Fields{"tech": target.Tech, "stage": "preview"})
	argv := target.ResolvePreviewCommand()
	out := log.WriterLevel(logrus.DebugLevel)

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = target.Dir
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.WaitDelay = l.opts.CloseGrace
	setProcessGroup(cmd)

	log.WithField("port", target.Port).Info("starting preview server")
	if err := cmd.Start(); err != nil {
		out.Close()
		return nil, &NotReadyError{Tech: target.Tech, URL: target.BaseURL(), Err: err}
	}

	p := &Preview{
		BaseURL: target.BaseURL(),
		cmd:     cmd,
		out:     out,
		grace:   l.opts.CloseGrace,
		done:    make(chan struct{}),
		log:     log,
	}
	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()

	err := poll.Until(ctx, poll.Options{
		What:     "preview server " + p.BaseURL,
		Interval: l.opts.ReadyInterval,
		Timeout:  l.opts.ReadyTimeout,
	}, func(ctx context.Context) (bool, error) {
		select {
		case <-p.done:
			return false, poll.Permanent(fmt.Errorf("preview process exited: %v", p.waitErr))
		default:
		}
		return probe(ctx, l.opts.Client, p.BaseURL)
	})
	if err != nil {
		p.Close()
		return nil, &NotReadyError{Tech: target.Tech, URL: p.BaseURL, Err: err}
	}

	log.WithField("url", p.BaseURL).Info("preview server ready")
	return p, nil
}

func probe(ctx context.Context, client *http.Client, url string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, poll.Permanent(err)
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return true, nil
	}
	return false, fmt.Errorf("unexpected status %d", resp.StatusCode)
}

// Close terminates the server process group and waits up to the grace
// period before killing it. Safe to call more than once.
func (p *Preview) Close() error {
	p.once.Do(func() {
		defer p.out.Close()

		select {
		case <-p.done:
			return
		default:
		}

		if err := terminate(p.cmd); err != nil {
			p.log.WithError(err).Debug("failed to signal preview server")
		}
		select {
		case <-p.done:
		case <-time.After(p.grace):
			if err := kill(p.cmd); err != nil {
				p.log.WithError(err).Warn("failed to kill preview server")
			}
			<-p.done
		}
		p.log.Info("preview server stopped")
	})
	return nil
}

func (p *Preview) URL() string { return p.BaseURL }

// Done is closed once the server process has exited.
func (p *Preview) Done() <-chan struct{} { return p.done }

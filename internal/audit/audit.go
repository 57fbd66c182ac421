// Package audit runs a performance-only Lighthouse pass against a URL.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrTimeout is returned by RunWithTimeout when the audit lost the race.
var ErrTimeout = errors.New("audit timed out")

// MetricKeys maps reported metric names to Lighthouse audit ids.
var MetricKeys = map[string]string{
	"FCP":        "first-contentful-paint",
	"LCP":        "largest-contentful-paint",
	"TTI":        "interactive",
	"TBT":        "total-blocking-time",
	"CLS":        "cumulative-layout-shift",
	"SpeedIndex": "speed-index",
}

// Auditor produces audit metrics for one URL.
type Auditor interface {
	Audit(ctx context.Context, url string) (map[string]float64, error)
}

// Lighthouse shells out to the Lighthouse CLI. Each call launches and tears
// down its own Chrome.
type Lighthouse struct {
	Command     []string
	ChromeFlags []string
	ChromePath  string
	log         *logrus.Entry
}

func NewLighthouse(command, chromeFlags []string, chromePath string, log *logrus.Entry) *Lighthouse {
	return &Lighthouse{Command: command, ChromeFlags: chromeFlags, ChromePath: chromePath, log: log}
}

func (l *Lighthouse) args(url string) []string {
	args := append([]string{}, l.Command[1:]...)
	args = append(args,
		url,
		"--output=json",
		"--output-path=stdout",
		"--quiet",
		"--only-categories=performance",
	)
	if len(l.ChromeFlags) > 0 {
		args = append(args, "--chrome-flags="+strings.Join(l.ChromeFlags, " "))
	}
	return args
}

func (l *Lighthouse) Audit(ctx context.Context, url string) (map[string]float64, error) {
	if len(l.Command) == 0 {
		return nil, fmt.Errorf("audit command is empty")
	}

	var stdout bytes.Buffer
	stderr := l.log.WithField("stage", "audit").WriterLevel(logrus.DebugLevel)
	defer stderr.Close()

	cmd := exec.CommandContext(ctx, l.Command[0], l.args(url)...)
	cmd.Stdout = &stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = time.Second
	if l.ChromePath != "" {
		cmd.Env = append(cmd.Environ(), "CHROME_PATH="+l.ChromePath)
	}
	setProcessGroup(cmd)

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("lighthouse failed: %w", err)
	}
	return ParseResult(&stdout)
}

type lighthouseResult struct {
	Audits map[string]struct {
		NumericValue *float64 `json:"numericValue"`
	} `json:"audits"`
}

// ParseResult extracts MetricKeys from a Lighthouse JSON report. Audits
// without a numeric value are left out.
func ParseResult(r io.Reader) (map[string]float64, error) {
	var lhr lighthouseResult
	if err := json.NewDecoder(r).Decode(&lhr); err != nil {
		return nil, fmt.Errorf("failed to parse lighthouse result: %w", err)
	}
	if lhr.Audits == nil {
		return nil, fmt.Errorf("lighthouse result has no audits")
	}

	metrics := make(map[string]float64)
	for label, key := range MetricKeys {
		if a, ok := lhr.Audits[key]; ok && a.NumericValue != nil {
			metrics[label] = *a.NumericValue
		}
	}
	return metrics, nil
}

// RunWithTimeout races the audit against a timer. Whichever finishes first
// wins; the loser's context is cancelled so its process is torn down.
func RunWithTimeout(ctx context.Context, a Auditor, url string, timeout time.Duration) (map[string]float64, error) {
	auditCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		metrics map[string]float64
		err     error
	}
	done := make(chan result, 1)
	go func() {
		m, err := a.Audit(auditCtx, url)
		done <- result{m, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		return r.metrics, r.err
	case <-timer.C:
		return nil, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

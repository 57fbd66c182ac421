// Package flows holds the scripted user journeys run against every
// candidate application.
package flows

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/imishinist/fe-bench/internal/models"
	"github.com/imishinist/fe-bench/internal/poll"
)

const (
	settleDelay       = 500 * time.Millisecond
	stressSettleDelay = time.Second
	// the stress button emits stress_update_0 .. stress_update_19
	lastStressMark = "stress_update_19"
)

const (
	itemsHeading    = "//h1[normalize-space()='Items']"
	editHeading     = "//h1[normalize-space()='Edit item']"
	firstEditButton = "(//button[normalize-space()='Edit'])[1]"
	stressButton    = "//button[normalize-space()='Stress test']"
)

var (
	editURL  = regexp.MustCompile(`/items/\d+/edit$`)
	itemsURL = regexp.MustCompile(`/items$`)
)

type Options struct {
	// URLTimeout and URLInterval bound waits for client-side navigation.
	URLTimeout  time.Duration
	URLInterval time.Duration
}

// Registry maps script names used in the suite file to implementations.
type Registry struct {
	opts    Options
	scripts map[string]models.FlowScript
}

func NewRegistry(opts Options) *Registry {
	r := &Registry{opts: opts}
	r.scripts = map[string]models.FlowScript{
		"cold-start":      coldStart,
		"items-browse":    itemsBrowse,
		"search-and-edit": r.searchAndEdit,
		"stress":          stress,
	}
	return r
}

func (r *Registry) Lookup(name string) (models.FlowScript, bool) {
	script, ok := r.scripts[name]
	return script, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.scripts))
	for name := range r.scripts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// step is one page interaction; a journey is a sequence of them.
type step func(ctx context.Context, page models.Page) error

func runSteps(ctx context.Context, page models.Page, steps ...step) error {
	for _, s := range steps {
		if err := s(ctx, page); err != nil {
			return err
		}
	}
	return nil
}

func navigate(url string) step {
	return func(ctx context.Context, page models.Page) error { return page.Navigate(ctx, url) }
}

func visible(selector string) step {
	return func(ctx context.Context, page models.Page) error { return page.WaitVisible(ctx, selector) }
}

func click(selector string) step {
	return func(ctx context.Context, page models.Page) error { return page.Click(ctx, selector) }
}

func fill(selector, value string) step {
	return func(ctx context.Context, page models.Page) error { return page.Fill(ctx, selector, value) }
}

func selectIndex(selector string, index int) step {
	return func(ctx context.Context, page models.Page) error { return page.SelectIndex(ctx, selector, index) }
}

func selectValue(selector, value string) step {
	return func(ctx context.Context, page models.Page) error { return page.SelectValue(ctx, selector, value) }
}

func metric(name string) step {
	return func(ctx context.Context, page models.Page) error { return page.WaitForMetric(ctx, name) }
}

func settle(d time.Duration) step {
	return func(ctx context.Context, page models.Page) error { return page.Settle(ctx, d) }
}

func (r *Registry) url(pattern *regexp.Regexp) step {
	return func(ctx context.Context, page models.Page) error {
		return poll.Until(ctx, poll.Options{
			What:     fmt.Sprintf("url matching %s", pattern),
			Interval: r.opts.URLInterval,
			Timeout:  r.opts.URLTimeout,
		}, func(ctx context.Context) (bool, error) {
			loc, err := page.Location(ctx)
			if err != nil {
				return false, err
			}
			return pattern.MatchString(loc), nil
		})
	}
}

func coldStart(ctx context.Context, page models.Page, baseURL string) error {
	return runSteps(ctx, page,
		navigate(baseURL+"/"),
		metric("first_route_mounted"),
		settle(settleDelay),
	)
}

func itemsBrowse(ctx context.Context, page models.Page, baseURL string) error {
	return runSteps(ctx, page,
		navigate(baseURL+"/items"),
		visible(itemsHeading),
		visible("table"),
		visible("#category"),
		fill("#search", "Monitor"),
		metric("filter_applied"),
		selectIndex("#category", 1),
		metric("filter_applied"),
		selectValue("#sort-field", "price"),
		metric("sort_applied"),
		selectValue("#sort-direction", "desc"),
		metric("sort_applied"),
		click("//button[normalize-space()='2']"),
		metric("page_changed"),
		click("//button[normalize-space()='5']"),
		metric("page_changed"),
		settle(settleDelay),
	)
}

func (r *Registry) searchAndEdit(ctx context.Context, page models.Page, baseURL string) error {
	return runSteps(ctx, page,
		navigate(baseURL+"/items"),
		visible(itemsHeading),
		metric("items_table_first_paint"),
		fill("#search", "Laptop"),
		metric("filter_applied"),
		click(firstEditButton),
		r.url(editURL),
		visible(editHeading),
		fill("#price", "999.99"),
		fill("#stock", "25"),
		click(`button[type="submit"]`),
		metric("form_submit_success"),
		r.url(itemsURL),
		metric("items_table_first_paint"),
		settle(settleDelay),
	)
}

func stress(ctx context.Context, page models.Page, baseURL string) error {
	return runSteps(ctx, page,
		navigate(baseURL+"/items"),
		visible(itemsHeading),
		settle(settleDelay),
		click(stressButton),
		metric(lastStressMark),
		settle(stressSettleDelay),
	)
}

package flows

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imishinist/fe-bench/internal/poll"
)

// recordingPage logs every interaction as "verb arg".
type recordingPage struct {
	calls     []string
	locations []string
	failOn    string
}

func (p *recordingPage) record(call string) error {
	p.calls = append(p.calls, call)
	if call == p.failOn {
		return errors.New("boom")
	}
	return nil
}

func (p *recordingPage) Evaluate(context.Context, string, any) error { return nil }
func (p *recordingPage) Navigate(_ context.Context, url string) error {
	return p.record("navigate " + url)
}
func (p *recordingPage) WaitVisible(_ context.Context, s string) error {
	return p.record("visible " + s)
}
func (p *recordingPage) Click(_ context.Context, s string) error { return p.record("click " + s) }
func (p *recordingPage) Fill(_ context.Context, s, v string) error {
	return p.record(fmt.Sprintf("fill %s=%s", s, v))
}
func (p *recordingPage) SelectIndex(_ context.Context, s string, i int) error {
	return p.record(fmt.Sprintf("select %s#%d", s, i))
}
func (p *recordingPage) SelectValue(_ context.Context, s, v string) error {
	return p.record(fmt.Sprintf("select %s=%s", s, v))
}
func (p *recordingPage) Location(context.Context) (string, error) {
	if len(p.locations) == 0 {
		return "", errors.New("no location")
	}
	loc := p.locations[0]
	if len(p.locations) > 1 {
		p.locations = p.locations[1:]
	}
	return loc, nil
}
func (p *recordingPage) WaitForMetric(_ context.Context, name string) error {
	return p.record("metric " + name)
}
func (p *recordingPage) Settle(context.Context, time.Duration) error { return p.record("settle") }

func newRegistry() *Registry {
	return NewRegistry(Options{URLTimeout: 200 * time.Millisecond, URLInterval: 5 * time.Millisecond})
}

func TestRegistry(t *testing.T) {
	r := newRegistry()
	assert.Equal(t, []string{"cold-start", "items-browse", "search-and-edit", "stress"}, r.Names())
	_, ok := r.Lookup("cold-start")
	assert.True(t, ok)
	_, ok = r.Lookup("unknown")
	assert.False(t, ok)
}

func TestColdStart(t *testing.T) {
	page := &recordingPage{}
	script, _ := newRegistry().Lookup("cold-start")
	require.NoError(t, script(context.Background(), page, "http://127.0.0.1:5173"))
	assert.Equal(t, []string{
		"navigate http://127.0.0.1:5173/",
		"metric first_route_mounted",
		"settle",
	}, page.calls)
}

func TestStressWaitsForLastUpdate(t *testing.T) {
	page := &recordingPage{}
	script, _ := newRegistry().Lookup("stress")
	require.NoError(t, script(context.Background(), page, "http://x"))
	assert.Contains(t, page.calls, "click "+stressButton)
	assert.Contains(t, page.calls, "metric stress_update_19")
}

func TestItemsBrowseStopsAtFirstFailure(t *testing.T) {
	page := &recordingPage{failOn: "metric sort_applied"}
	script, _ := newRegistry().Lookup("items-browse")
	err := script(context.Background(), page, "http://x")
	require.Error(t, err)
	assert.Equal(t, "metric sort_applied", page.calls[len(page.calls)-1])
	assert.NotContains(t, page.calls, "metric page_changed")
}

func TestSearchAndEditFollowsNavigation(t *testing.T) {
	page := &recordingPage{locations: []string{
		"http://x/items",
		"http://x/items/42/edit",
		"http://x/items",
	}}
	script, _ := newRegistry().Lookup("search-and-edit")
	require.NoError(t, script(context.Background(), page, "http://x"))
	assert.Contains(t, page.calls, "fill #price=999.99")
	assert.Contains(t, page.calls, "metric form_submit_success")
}

func TestSearchAndEditTimesOutWithoutEditPage(t *testing.T) {
	page := &recordingPage{locations: []string{"http://x/items"}}
	script, _ := newRegistry().Lookup("search-and-edit")
	err := script(context.Background(), page, "http://x")
	require.ErrorIs(t, err, poll.ErrTimeout)
	assert.NotContains(t, page.calls, "fill #price=999.99")
}

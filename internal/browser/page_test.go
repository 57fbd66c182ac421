package browser

import (
	"context"
	"reflect"
	"runtime"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func funcName(opt chromedp.QueryOption) string {
	return runtime.FuncForPC(reflect.ValueOf(opt).Pointer()).Name()
}

func TestBy(t *testing.T) {
	assert.Equal(t, funcName(chromedp.ByQuery), funcName(by("#search")))
	assert.Equal(t, funcName(chromedp.BySearch), funcName(by("//button[normalize-space()='2']")))
	assert.Equal(t, funcName(chromedp.BySearch), funcName(by("(//button[normalize-space()='Edit'])[1]")))
}

func TestSettle(t *testing.T) {
	p := &Page{}

	start := time.Now()
	require.NoError(t, p.Settle(context.Background(), 20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, p.Settle(ctx, time.Minute), context.Canceled)
}

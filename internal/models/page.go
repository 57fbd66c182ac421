package models

import (
	"context"
	"time"
)

// Evaluator runs a JavaScript expression in the page and decodes its result.
type Evaluator interface {
	Evaluate(ctx context.Context, expression string, out any) error
}

// Page is the browser page handle handed to flow scripts.
type Page interface {
	Evaluator
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string) error
	Click(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector, value string) error
	SelectIndex(ctx context.Context, selector string, index int) error
	SelectValue(ctx context.Context, selector, value string) error
	Location(ctx context.Context) (string, error)
	WaitForMetric(ctx context.Context, name string) error
	Settle(ctx context.Context, d time.Duration) error
}

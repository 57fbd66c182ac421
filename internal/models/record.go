package models

import "time"

// MetricEntry is one item of the in-page metrics buffer.
type MetricEntry struct {
	Name      string         `json:"name"`
	Duration  float64        `json:"duration"`
	Timestamp float64        `json:"timestamp"`
	Detail    map[string]any `json:"detail,omitempty"`
}

// BufferSnapshot is what a drain of the in-page buffer returns.
type BufferSnapshot struct {
	Metrics   []MetricEntry      `json:"metrics"`
	WebVitals map[string]float64 `json:"webVitals"`
}

// TimingEntry is a performance timeline entry read straight from the page.
type TimingEntry struct {
	Duration  float64 `json:"duration"`
	StartTime float64 `json:"startTime"`
}

// SeriesPoint is one value of an auxiliary ordered series.
type SeriesPoint struct {
	Name     string  `json:"name"`
	Duration float64 `json:"duration"`
}

// HostInfo fingerprints the machine a record was measured on.
type HostInfo struct {
	Hostname string  `json:"hostname,omitempty"`
	OS       string  `json:"os,omitempty"`
	Platform string  `json:"platform,omitempty"`
	CPUModel string  `json:"cpu_model,omitempty"`
	CPUCores int     `json:"cpu_cores,omitempty"`
	MemoryMB float64 `json:"memory_mb,omitempty"`
}

// RunRecord is one execution of one flow against one technology.
type RunRecord struct {
	Timestamp          time.Time                `json:"timestamp"`
	InvocationID       string                   `json:"invocation_id"`
	Tech               string                   `json:"tech"`
	Flow               string                   `json:"flow"`
	Run                int                      `json:"run"`
	CustomMetrics      map[string]float64       `json:"custom_metrics"`
	WebVitals          map[string]float64       `json:"web_vitals"`
	PerformanceEntries map[string]TimingEntry   `json:"performance_entries"`
	Audit              map[string]float64       `json:"audit"`
	ExtraMetrics       map[string][]SeriesPoint `json:"extra_metrics"`
	Host               *HostInfo                `json:"host,omitempty"`
}

// Collected is the output of one metric extraction pass.
type Collected struct {
	CustomMetrics      map[string]float64
	WebVitals          map[string]float64
	PerformanceEntries map[string]TimingEntry
	ExtraMetrics       map[string][]SeriesPoint
}

package models

import "time"

// DefaultFlow labels rows that carry no flow information at all.
const DefaultFlow = "default"

// TechValues holds the canonical-unit statistics of one technology.
type TechValues struct {
	Average *float64 `json:"average"`
	P95     *float64 `json:"p95"`
}

// MetricAnalysis compares one metric of one flow across technologies.
type MetricAnalysis struct {
	Metric       string                `json:"metric"`
	DisplayUnit  string                `json:"displayUnit"`
	IsDuration   bool                  `json:"isDuration"`
	Technologies map[string]TechValues `json:"technologies"`
	Order        []string              `json:"order"`
}

// FlowAnalysis groups the metrics of one flow.
type FlowAnalysis struct {
	Metrics map[string]*MetricAnalysis `json:"metrics"`
}

// AnalysisDocument is the merged cross-technology comparison.
type AnalysisDocument struct {
	GeneratedAt time.Time                `json:"generatedAt"`
	Flows       map[string]*FlowAnalysis `json:"flows"`
}

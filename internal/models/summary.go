package models

// Source is the category a summarized metric came from.
type Source string

const (
	SourceAudit     Source = "audit"
	SourceCustom    Source = "custom"
	SourceWebVitals Source = "web-vitals"
	SourceAuxiliary Source = "auxiliary"
)

const (
	UnitMilliseconds = "ms"
	UnitSeconds      = "s"
	UnitScore        = "score"
)

// Stats is the aggregate of a non-empty sample set.
type Stats struct {
	Mean   float64
	P95    float64
	StdDev float64
	Count  int
}

// SummaryRow is one aggregated metric of one (technology, flow) pair.
type SummaryRow struct {
	Metric string
	Source Source
	Unit   string
	Stats
}

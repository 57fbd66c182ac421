package analysis

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// metricAliases collapses known synonyms onto one canonical metric name.
var metricAliases = map[string][]string{
	"FCP": {"first contentful paint", "fcp"},
	"LCP": {"largest contentful paint", "lcp"},
	"TTI": {"time to interactive", "tti"},
	"TBT": {"total blocking time", "tbt"},
	"CLS": {"cumulative layout shift", "cls"},
	"SI":  {"speed index", "si", "speedindex"},
}

const (
	StatAverage = "average"
	StatP95     = "p95"
	// statP99 is recognised and then dropped; p99 is not supported yet.
	statP99 = "p99"
)

var statAliases = map[string][]string{
	StatAverage: {"average", "avg", "mean", "median"},
	StatP95:     {"p95", "p_95", "p95ms", "percentile95", "95th"},
	statP99:     {"p99", "percentile99"},
}

var (
	metricLookup = invert(metricAliases)
	statLookup   = invert(statAliases)

	markPrefix = regexp.MustCompile(`(?i)^mark[:\s_-]*`)
	separators = regexp.MustCompile(`[_-]+`)
)

func invert(aliases map[string][]string) map[string]string {
	lookup := make(map[string]string)
	for canonical, synonyms := range aliases {
		lookup[strings.ToLower(canonical)] = canonical
		for _, s := range synonyms {
			lookup[s] = canonical
		}
	}
	return lookup
}

// CanonicalMetric maps a metric label to its canonical name. Known synonyms
// collapse via the alias table, names starting with "mark" become
// "Mark: Title Case", and anything else is title-cased.
func CanonicalMetric(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "Unknown Metric"
	}
	if canonical, ok := metricLookup[strings.ToLower(trimmed)]; ok {
		return canonical
	}
	if canonical, ok := metricLookup[strings.ToLower(separators.ReplaceAllString(trimmed, " "))]; ok {
		return canonical
	}
	if markPrefix.MatchString(trimmed) {
		rest := titleCase(separators.ReplaceAllString(markPrefix.ReplaceAllString(trimmed, ""), " "))
		if rest == "" {
			return "Custom Mark"
		}
		return "Mark: " + rest
	}
	return titleCase(separators.ReplaceAllString(trimmed, " "))
}

// CanonicalStat maps a statistic label to StatAverage or StatP95. Unknown
// and unsupported kinds return "".
func CanonicalStat(name string) string {
	stat := statLookup[strings.ToLower(strings.TrimSpace(name))]
	if stat == statP99 {
		return ""
	}
	return stat
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}

// IsDuration reports whether a canonical metric is measured in time.
func IsDuration(metric string) bool {
	lower := strings.ToLower(metric)
	return lower != "cls" && !strings.HasSuffix(lower, ": cls") && !strings.Contains(lower, "score")
}

package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSVTable(t *testing.T) {
	input := "\ufeffMetric, Source ,Mean\nFCP,audit,\"1,200.00\"\n\n LCP ,audit\n"
	table, err := ParseCSVTable(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"metric", "source", "mean"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "1,200.00", table.Rows[0]["mean"])
	assert.Equal(t, "LCP", table.Rows[1]["metric"])
	_, ok := table.Rows[1]["mean"]
	assert.False(t, ok)
}

func TestParseCSVTable_Empty(t *testing.T) {
	table, err := ParseCSVTable(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, table.Rows)
}

func TestParseJSONAnalysis(t *testing.T) {
	doc, err := ParseJSONAnalysis(strings.NewReader(`{
  "generatedAt": "2024-05-01T10:00:00Z",
  "flows": {
    "browse": {"metrics": {"FCP": {
      "metric": "FCP", "displayUnit": "ms", "isDuration": true,
      "technologies": {"beta": {"average": 900, "p95": null}},
      "order": ["beta"]
    }}}
  }
}`))
	require.NoError(t, err)

	fcp := doc.Flows["browse"].Metrics["FCP"]
	require.NotNil(t, fcp)
	require.NotNil(t, fcp.Technologies["beta"].Average)
	assert.Equal(t, 900.0, *fcp.Technologies["beta"].Average)
	assert.Nil(t, fcp.Technologies["beta"].P95)
	assert.Equal(t, []string{"beta"}, fcp.Order)
}

func TestParseJSONAnalysis_NoFlows(t *testing.T) {
	doc, err := ParseJSONAnalysis(strings.NewReader(`{"generatedAt": "2024-05-01T10:00:00Z"}`))
	require.NoError(t, err)
	assert.NotNil(t, doc.Flows)
}

func TestParseYAMLStrict(t *testing.T) {
	type settings struct {
		Name string `yaml:"name"`
		Runs int    `yaml:"runs"`
	}

	s := settings{Name: "default", Runs: 3}
	require.NoError(t, ParseYAMLStrict(strings.NewReader("runs: 5\n"), &s))
	assert.Equal(t, settings{Name: "default", Runs: 5}, s)

	require.NoError(t, ParseYAMLStrict(strings.NewReader(""), &s))
	assert.Equal(t, 5, s.Runs)

	require.Error(t, ParseYAMLStrict(strings.NewReader("unknown: 1\n"), &s))
}

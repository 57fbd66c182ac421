package parser

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/imishinist/fe-bench/internal/models"
)

func ParseJSONAnalysis(reader io.Reader) (*models.AnalysisDocument, error) {
	var data models.AnalysisDocument
	decoder := json.NewDecoder(reader)

	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON analysis: %w", err)
	}
	if data.Flows == nil {
		data.Flows = make(map[string]*models.FlowAnalysis)
	}

	return &data, nil
}

func ParseJSONRecord(reader io.Reader) (*models.RunRecord, error) {
	var data models.RunRecord
	decoder := json.NewDecoder(reader)

	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON run record: %w", err)
	}

	return &data, nil
}

package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/enrich-cli/internal/enrich"
	"github.com/sells-group/enrich-cli/internal/model"
)

func sampleResult() *enrich.Result {
	return &enrich.Result{
		AttemptID:      "att-1",
		Person:         model.Person{ID: "p1", Name: "Jane Doe"},
		StorageSuccess: true,
		RecordID:       "rec-1",
		Record: &model.EnrichmentRecord{
			PersonID:          "p1",
			PersonName:        "Jane Doe",
			CompletenessScore: 50,
			Confidence:        model.ConfidenceMedium,
			Status:            model.StatusPartial,
			CreatedAt:         time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		Providers: map[model.Provider]model.ProviderOutcome{
			model.ProviderApollo: {Dispatched: true, HasData: true},
		},
	}
}

func TestWriteResult_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, sampleResult(), "json"))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "att-1", got["attempt_id"])
	assert.Equal(t, "rec-1", got["record_id"])
	assert.Contains(t, buf.String(), "\n  \"")
}

func TestWriteResult_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, sampleResult(), "YAML"))

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "att-1", got["attempt_id"])
	assert.Equal(t, true, got["storage_success"])
	record, ok := got["record"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Partial", record["status"])
}

func TestWriteResult_UnknownFormat(t *testing.T) {
	err := writeResult(&bytes.Buffer{}, sampleResult(), "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown output format "xml"`)
}

package output

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixrun/fixrun/packages/core/model"
	"github.com/fixrun/fixrun/packages/core/runner"
)

func TestJSONFormatter_Document(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(JSONWithWriter(&buf))

	f.FormatHeader("1.0.0")
	f.FormatResult(&model.RunResult{
		UnitID:  "tests/test_a::test_ok",
		Index:   0,
		Outcome: model.OutcomePass,
		Elapsed: 25 * time.Millisecond,
	})
	f.FormatResult(&model.RunResult{
		UnitID:  "tests/test_a::test_bad",
		Index:   1,
		Outcome: model.OutcomeFail,
		Retries: 1,
		Detail:  &model.FailureDetail{Message: "exit status 1", FixtureName: "db"},
	})

	f.FormatSummary(&runner.Report{
		Results: []*model.RunResult{
			{Outcome: model.OutcomePass},
			{Outcome: model.OutcomeFail},
		},
		Total:   3,
		NotRun:  1,
		Elapsed: 2 * time.Second,
	})

	var doc struct {
		Results []struct {
			ID         string  `json:"id"`
			Outcome    string  `json:"outcome"`
			DurationMs float64 `json:"durationMs"`
			Retries    int     `json:"retries"`
			Message    string  `json:"message"`
			Fixture    string  `json:"fixture"`
		} `json:"results"`
		Summary struct {
			Passed     int     `json:"passed"`
			Failed     int     `json:"failed"`
			NotRun     int     `json:"notRun"`
			DurationMs float64 `json:"durationMs"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	require.Len(t, doc.Results, 2)
	assert.Equal(t, "tests/test_a::test_ok", doc.Results[0].ID)
	assert.Equal(t, "pass", doc.Results[0].Outcome)
	assert.Equal(t, 25.0, doc.Results[0].DurationMs)
	assert.Equal(t, "fail", doc.Results[1].Outcome)
	assert.Equal(t, 1, doc.Results[1].Retries)
	assert.Equal(t, "exit status 1", doc.Results[1].Message)
	assert.Equal(t, "db", doc.Results[1].Fixture)

	assert.Equal(t, 1, doc.Summary.Passed)
	assert.Equal(t, 1, doc.Summary.Failed)
	assert.Equal(t, 1, doc.Summary.NotRun)
	assert.Equal(t, 2000.0, doc.Summary.DurationMs)
}

func TestJSONFormatter_EmptyRun(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(JSONWithWriter(&buf))
	f.FormatSummary(&runner.Report{})

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, []any{}, doc["results"])
}

package ingest

import (
	"testing"

	"github.com/openziti/modelctl/kernel/model"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inferencePipeline(id, modelId string) model.PipelineConfig {
	return model.PipelineConfig{
		Id: id,
		Config: map[string]interface{}{
			"processors": processors(
				step("inference", map[string]interface{}{"model_id": modelId}),
			),
		},
	}
}

func TestScanner_Scan(t *testing.T) {
	logger, _ := test.NewNullLogger()
	scanner := NewScanner(DefaultRegistry, logger)

	pipelines := map[string]model.PipelineConfig{
		"p1": inferencePipeline("p1", "m1"),
		"p2": inferencePipeline("p2", "prod"),
		"p3": inferencePipeline("p3", "m1"),
		"p4": {Id: "p4", Config: map[string]interface{}{
			"processors": processors(step("set", map[string]interface{}{"field": "m1", "value": "m1"})),
		}},
	}

	refs := scanner.Scan(pipelines)

	assert.True(t, refs.Contains("m1"))
	assert.True(t, refs.Contains("prod"))
	assert.False(t, refs.Contains("m2"))
	assert.Equal(t, []string{"p1", "p3"}, refs.Pipelines("m1"))
	assert.Len(t, refs, 2)
}

func TestScanner_SkipsBrokenPipelines(t *testing.T) {
	logger, hook := test.NewNullLogger()
	scanner := NewScanner(DefaultRegistry, logger)

	pipelines := map[string]model.PipelineConfig{
		"good": inferencePipeline("good", "m1"),
		"broken": {Id: "broken", Config: map[string]interface{}{
			"processors": processors(
				step("inference", map[string]interface{}{"model_id": "m2"}),
				step("not-a-step", map[string]interface{}{}),
			),
		}},
	}

	refs := scanner.Scan(pipelines)

	assert.True(t, refs.Contains("m1"))
	assert.False(t, refs.Contains("m2"), "a pipeline that fails to build must not contribute references")

	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "broken", entry.Data["pipelineId"])
}

func TestScanner_NestedReferences(t *testing.T) {
	scanner := NewScanner(nil, nil)

	pipelines := map[string]model.PipelineConfig{
		"p1": {Id: "p1", Config: map[string]interface{}{
			"processors": processors(
				step("foreach", map[string]interface{}{
					"field":     "docs",
					"processor": step("inference", map[string]interface{}{"model_id": "m1"}),
				}),
			),
			"on_failure": processors(
				step("inference", map[string]interface{}{"model_id": "m2"}),
			),
		}},
	}

	refs := scanner.Scan(pipelines)
	assert.True(t, refs.Contains("m1"))
	assert.True(t, refs.Contains("m2"))
}

func TestScanner_CommonOptions(t *testing.T) {
	logger, hook := test.NewNullLogger()
	scanner := NewScanner(DefaultRegistry, logger)

	pipelines := map[string]model.PipelineConfig{
		"p1": {Id: "p1", Config: map[string]interface{}{
			"processors": processors(
				step("inference", map[string]interface{}{
					"model_id":       "m1",
					"description":    "classify incoming documents",
					"tag":            "classify",
					"if":             "ctx.lang == 'en'",
					"ignore_failure": true,
				}),
			),
		}},
	}

	refs := scanner.Scan(pipelines)
	assert.True(t, refs.Contains("m1"))
	assert.Equal(t, []string{"p1"}, refs.Pipelines("m1"))
	assert.Empty(t, hook.AllEntries(), "a step using only the shared options must build")
}

func TestScanner_Empty(t *testing.T) {
	refs := NewScanner(nil, nil).Scan(nil)
	assert.Empty(t, refs)
}

type customReferencer struct {
	Common
	model string
}

func (c *customReferencer) Type() string    { return "custom" }
func (c *customReferencer) ModelId() string { return c.model }

func TestScanner_CustomReferencer(t *testing.T) {
	registry := NewRegistry()
	registry.Register("custom", func(_ *Registry, common Common, config map[string]interface{}) (Step, error) {
		cfg := newStepConfig("custom", config)
		id, err := cfg.requiredString("model")
		if err != nil {
			return nil, err
		}
		return &customReferencer{Common: common, model: id}, cfg.checkUnused()
	})

	pipelines := map[string]model.PipelineConfig{
		"p1": {Id: "p1", Config: map[string]interface{}{
			"processors": processors(step("custom", map[string]interface{}{"model": "m9"})),
		}},
	}

	assert.True(t, NewScanner(registry, nil).Scan(pipelines).Contains("m9"))
	assert.False(t, NewScanner(DefaultRegistry, nil).Scan(pipelines).Contains("m9"))
}

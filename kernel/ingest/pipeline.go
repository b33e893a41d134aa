package ingest

import (
	"github.com/pkg/errors"
)

// Pipeline is the in-memory graph of a pipeline config.
type Pipeline struct {
	Id          string
	Description string
	Version     int
	Steps       []Step
	OnFailure   []Step
}

var pipelineKeys = map[string]bool{
	"description": true,
	"processors":  true,
	"on_failure":  true,
	"version":     true,
	"_meta":       true,
}

// NewPipeline builds a pipeline from its config using the step factories of registry.
func NewPipeline(id string, config map[string]interface{}, registry *Registry) (*Pipeline, error) {
	if config == nil {
		return nil, errors.Errorf("pipeline [%s] has no config", id)
	}
	for k := range config {
		if !pipelineKeys[k] {
			return nil, errors.Errorf("pipeline [%s] has unknown property '%s'", id, k)
		}
	}

	p := &Pipeline{Id: id}

	if raw, ok := config["description"]; ok && raw != nil {
		description, ok := raw.(string)
		if !ok {
			return nil, errors.Errorf("pipeline [%s] description must be a string", id)
		}
		p.Description = description
	}

	if raw, ok := config["version"]; ok && raw != nil {
		version, err := toInt(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "pipeline [%s] version", id)
		}
		p.Version = version
	}

	raw, ok := config["processors"]
	if !ok || raw == nil {
		return nil, errors.Errorf("pipeline [%s] is missing required property 'processors'", id)
	}
	steps, err := buildSteps(registry, raw, "processors")
	if err != nil {
		return nil, errors.Wrapf(err, "pipeline [%s]", id)
	}
	p.Steps = steps

	if raw, ok := config["on_failure"]; ok && raw != nil {
		handlers, err := buildSteps(registry, raw, "on_failure")
		if err != nil {
			return nil, errors.Wrapf(err, "pipeline [%s]", id)
		}
		if len(handlers) == 0 {
			return nil, errors.Errorf("pipeline [%s] on_failure must not be empty", id)
		}
		p.OnFailure = handlers
	}

	return p, nil
}

// Walk visits every step depth-first: each step, then the steps it wraps, then its failure
// handlers. Pipeline level failure handlers come last.
func (p *Pipeline) Walk(fn func(Step)) {
	walkSteps(p.Steps, fn)
	walkSteps(p.OnFailure, fn)
}

func walkSteps(steps []Step, fn func(Step)) {
	for _, step := range steps {
		if step == nil {
			continue
		}
		fn(step)
		if container, ok := step.(StepContainer); ok {
			walkSteps(container.Steps(), fn)
		}
		if handler, ok := step.(FailureHandler); ok {
			walkSteps(handler.OnFailure(), fn)
		}
	}
}

func toInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, errors.Errorf("%v is not an integer", n)
		}
		return int(n), nil
	}
	return 0, errors.Errorf("%v is not a number", v)
}

package ingest

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
)

// Step is one processing step of a pipeline.
type Step interface {
	Type() string
	Tag() string
}

// ModelReferencer is implemented by steps that run a model. The id is used verbatim and may be an
// alias name.
type ModelReferencer interface {
	ModelId() string
}

// StepContainer is implemented by steps that wrap other steps.
type StepContainer interface {
	Steps() []Step
}

// FailureHandler is implemented by steps carrying their own on_failure steps.
type FailureHandler interface {
	OnFailure() []Step
}

// Common holds the settings every step type accepts.
type Common struct {
	StepTag       string
	Description   string
	Condition     string
	IgnoreFailure bool
	Handlers      []Step
}

func (c Common) Tag() string {
	return c.StepTag
}

func (c Common) OnFailure() []Step {
	return c.Handlers
}

// stepConfig tracks which keys a factory consumed so leftovers can be reported.
type stepConfig struct {
	typeName string
	values   map[string]interface{}
	used     map[string]bool
}

func newStepConfig(typeName string, values map[string]interface{}) *stepConfig {
	return &stepConfig{typeName: typeName, values: values, used: make(map[string]bool)}
}

func (c *stepConfig) optional(key string) (interface{}, bool) {
	c.used[key] = true
	v, ok := c.values[key]
	return v, ok && v != nil
}

func (c *stepConfig) required(key string) (interface{}, error) {
	v, ok := c.optional(key)
	if !ok {
		return nil, errors.Errorf("[%s] required property '%s' is missing", c.typeName, key)
	}
	return v, nil
}

func (c *stepConfig) requiredString(key string) (string, error) {
	v, err := c.required(key)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", errors.Errorf("[%s] property '%s' must be a non-empty string", c.typeName, key)
	}
	return s, nil
}

func (c *stepConfig) optionalString(key, defaultValue string) (string, error) {
	v, ok := c.optional(key)
	if !ok {
		return defaultValue, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.Errorf("[%s] property '%s' must be a string", c.typeName, key)
	}
	return s, nil
}

func (c *stepConfig) optionalBool(key string, defaultValue bool) (bool, error) {
	v, ok := c.optional(key)
	if !ok {
		return defaultValue, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, errors.Errorf("[%s] property '%s' must be a boolean", c.typeName, key)
	}
	return b, nil
}

func (c *stepConfig) optionalMap(key string) (map[string]interface{}, error) {
	v, ok := c.optional(key)
	if !ok {
		return nil, nil
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, errors.Errorf("[%s] property '%s' must be an object", c.typeName, key)
	}
	return m, nil
}

func (c *stepConfig) checkUnused() error {
	var unknown []string
	for k := range c.values {
		if !c.used[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return errors.Errorf("[%s] unknown properties %v", c.typeName, unknown)
	}
	return nil
}

func errorf(typeName, format string, args ...interface{}) error {
	return errors.Errorf("[%s] %s", typeName, fmt.Sprintf(format, args...))
}

// buildStep builds a single `{<type>: {...}}` processor definition.
func buildStep(registry *Registry, definition interface{}) (Step, error) {
	entry, ok := definition.(map[string]interface{})
	if !ok || len(entry) != 1 {
		return nil, errors.New("processor definition must be an object with exactly one step type")
	}

	var typeName string
	var raw interface{}
	for k, v := range entry {
		typeName, raw = k, v
	}

	values, ok := raw.(map[string]interface{})
	if !ok {
		return nil, errors.Errorf("[%s] step config must be an object", typeName)
	}

	factory, err := registry.Factory(typeName)
	if err != nil {
		return nil, err
	}

	cfg := newStepConfig(typeName, values)
	common, err := buildCommon(registry, cfg)
	if err != nil {
		return nil, err
	}

	remaining := make(map[string]interface{}, len(values))
	for k, v := range values {
		if !cfg.used[k] {
			remaining[k] = v
		}
	}
	return factory(registry, common, remaining)
}

func buildCommon(registry *Registry, cfg *stepConfig) (Common, error) {
	var err error
	common := Common{}
	if common.StepTag, err = cfg.optionalString("tag", ""); err != nil {
		return common, err
	}
	if common.Description, err = cfg.optionalString("description", ""); err != nil {
		return common, err
	}
	if common.Condition, err = cfg.optionalString("if", ""); err != nil {
		return common, err
	}
	if common.IgnoreFailure, err = cfg.optionalBool("ignore_failure", false); err != nil {
		return common, err
	}
	if raw, ok := cfg.optional("on_failure"); ok {
		if common.Handlers, err = buildSteps(registry, raw, cfg.typeName+".on_failure"); err != nil {
			return common, err
		}
	}
	return common, nil
}

func buildSteps(registry *Registry, raw interface{}, location string) ([]Step, error) {
	definitions, ok := raw.([]interface{})
	if !ok {
		return nil, errors.Errorf("[%s] must be a list of processors", location)
	}
	steps := make([]Step, 0, len(definitions))
	for i, definition := range definitions {
		step, err := buildStep(registry, definition)
		if err != nil {
			return nil, errors.Wrapf(err, "%s[%d]", location, i)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

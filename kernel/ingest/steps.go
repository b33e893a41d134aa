package ingest

// InferenceStep runs a model against each document.
type InferenceStep struct {
	Common
	Model           string
	TargetField     string
	FieldMap        map[string]interface{}
	InferenceConfig map[string]interface{}
}

func (s *InferenceStep) Type() string {
	return "inference"
}

func (s *InferenceStep) ModelId() string {
	return s.Model
}

func newInferenceStep(_ *Registry, common Common, config map[string]interface{}) (Step, error) {
	cfg := newStepConfig("inference", config)
	step := &InferenceStep{Common: common}
	var err error
	if step.Model, err = cfg.requiredString("model_id"); err != nil {
		return nil, err
	}
	if step.TargetField, err = cfg.optionalString("target_field", "ml.inference."+step.Model); err != nil {
		return nil, err
	}
	if step.FieldMap, err = cfg.optionalMap("field_map"); err != nil {
		return nil, err
	}
	if step.InferenceConfig, err = cfg.optionalMap("inference_config"); err != nil {
		return nil, err
	}
	return step, cfg.checkUnused()
}

type SetStep struct {
	Common
	Field    string
	Value    interface{}
	Override bool
}

func (s *SetStep) Type() string {
	return "set"
}

func newSetStep(_ *Registry, common Common, config map[string]interface{}) (Step, error) {
	cfg := newStepConfig("set", config)
	step := &SetStep{Common: common}
	var err error
	if step.Field, err = cfg.requiredString("field"); err != nil {
		return nil, err
	}
	if step.Value, err = cfg.required("value"); err != nil {
		return nil, err
	}
	if step.Override, err = cfg.optionalBool("override", true); err != nil {
		return nil, err
	}
	return step, cfg.checkUnused()
}

type RemoveStep struct {
	Common
	Fields        []string
	IgnoreMissing bool
}

func (s *RemoveStep) Type() string {
	return "remove"
}

func newRemoveStep(_ *Registry, common Common, config map[string]interface{}) (Step, error) {
	cfg := newStepConfig("remove", config)
	step := &RemoveStep{Common: common}
	raw, err := cfg.required("field")
	if err != nil {
		return nil, err
	}
	switch field := raw.(type) {
	case string:
		step.Fields = []string{field}
	case []interface{}:
		for _, f := range field {
			s, ok := f.(string)
			if !ok {
				return nil, errorf("remove", "property 'field' must contain only strings")
			}
			step.Fields = append(step.Fields, s)
		}
	default:
		return nil, errorf("remove", "property 'field' must be a string or a list of strings")
	}
	if step.IgnoreMissing, err = cfg.optionalBool("ignore_missing", false); err != nil {
		return nil, err
	}
	return step, cfg.checkUnused()
}

type RenameStep struct {
	Common
	Field         string
	TargetField   string
	IgnoreMissing bool
}

func (s *RenameStep) Type() string {
	return "rename"
}

func newRenameStep(_ *Registry, common Common, config map[string]interface{}) (Step, error) {
	cfg := newStepConfig("rename", config)
	step := &RenameStep{Common: common}
	var err error
	if step.Field, err = cfg.requiredString("field"); err != nil {
		return nil, err
	}
	if step.TargetField, err = cfg.requiredString("target_field"); err != nil {
		return nil, err
	}
	if step.IgnoreMissing, err = cfg.optionalBool("ignore_missing", false); err != nil {
		return nil, err
	}
	return step, cfg.checkUnused()
}

// ForeachStep applies a single wrapped step to every element of an array field.
type ForeachStep struct {
	Common
	Field     string
	Processor Step
}

func (s *ForeachStep) Type() string {
	return "foreach"
}

func (s *ForeachStep) Steps() []Step {
	return []Step{s.Processor}
}

func newForeachStep(registry *Registry, common Common, config map[string]interface{}) (Step, error) {
	cfg := newStepConfig("foreach", config)
	step := &ForeachStep{Common: common}
	var err error
	if step.Field, err = cfg.requiredString("field"); err != nil {
		return nil, err
	}
	raw, err := cfg.required("processor")
	if err != nil {
		return nil, err
	}
	if step.Processor, err = buildStep(registry, raw); err != nil {
		return nil, errorf("foreach", "invalid processor: %v", err)
	}
	return step, cfg.checkUnused()
}

// PipelineStep hands the document to another pipeline. It names a pipeline, never a model.
type PipelineStep struct {
	Common
	Name string
}

func (s *PipelineStep) Type() string {
	return "pipeline"
}

func newPipelineStep(_ *Registry, common Common, config map[string]interface{}) (Step, error) {
	cfg := newStepConfig("pipeline", config)
	step := &PipelineStep{Common: common}
	var err error
	if step.Name, err = cfg.requiredString("name"); err != nil {
		return nil, err
	}
	return step, cfg.checkUnused()
}

func init() {
	RegisterStepType("inference", newInferenceStep)
	RegisterStepType("set", newSetStep)
	RegisterStepType("remove", newRemoveStep)
	RegisterStepType("rename", newRenameStep)
	RegisterStepType("foreach", newForeachStep)
	RegisterStepType("pipeline", newPipelineStep)
}

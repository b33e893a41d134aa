package ingest

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// StepFactory builds a step of one type from its type-specific config. The settings shared by all
// step types are already parsed into common. The registry is passed in so that container steps
// can build the steps they wrap.
type StepFactory func(registry *Registry, common Common, config map[string]interface{}) (Step, error)

// Registry holds the step factories used to turn pipeline configs into pipelines. Scanning uses
// the same registry the execution engine does, so a reference is recognized the same way.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]StepFactory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]StepFactory)}
}

// DefaultRegistry carries the built-in step types.
var DefaultRegistry = NewRegistry()

// RegisterStepType registers a factory on the DefaultRegistry.
// e.g. RegisterStepType("inference", newInferenceStep)
func RegisterStepType(typeName string, factory StepFactory) {
	DefaultRegistry.Register(typeName, factory)
}

func (r *Registry) Register(typeName string, factory StepFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.factories[typeName]; dup {
		panic("Register called twice for step type " + typeName)
	}
	r.factories[typeName] = factory
}

func (r *Registry) Factory(typeName string) (StepFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.factories[typeName]
	if !ok {
		return nil, errors.Errorf("step type '%s' not found in registry", typeName)
	}
	return factory, nil
}

func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.factories))
	for k := range r.factories {
		types = append(types, k)
	}
	sort.Strings(types)
	return types
}

package ingest

import (
	"sort"

	"github.com/openziti/modelctl/kernel/model"
	"github.com/sirupsen/logrus"
)

// References maps every model id (or alias name) referenced by a pipeline step to the pipelines
// referencing it.
type References map[string][]string

func (r References) Contains(id string) bool {
	_, ok := r[id]
	return ok
}

func (r References) Pipelines(id string) []string {
	return r[id]
}

func (r References) add(id, pipelineId string) {
	for _, existing := range r[id] {
		if existing == pipelineId {
			return
		}
	}
	r[id] = append(r[id], pipelineId)
}

// Scanner finds the models referenced by a set of pipeline configs.
type Scanner struct {
	Registry *Registry
	Log      logrus.FieldLogger
}

func NewScanner(registry *Registry, log logrus.FieldLogger) *Scanner {
	if registry == nil {
		registry = DefaultRegistry
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Scanner{Registry: registry, Log: log}
}

// Scan builds every pipeline and collects the ids used by its model referencing steps. A pipeline
// that cannot be built cannot run, so it is logged and skipped rather than failing the scan.
func (s *Scanner) Scan(pipelines map[string]model.PipelineConfig) References {
	refs := make(References)

	ids := make([]string, 0, len(pipelines))
	for id := range pipelines {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		p, err := NewPipeline(id, pipelines[id].Config, s.Registry)
		if err != nil {
			s.Log.WithError(err).WithField("pipelineId", id).Warn("failed to load pipeline")
			continue
		}
		p.Walk(func(step Step) {
			if referencer, ok := step.(ModelReferencer); ok {
				refs.add(referencer.ModelId(), id)
			}
		})
	}

	return refs
}

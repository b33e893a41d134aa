package loader

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/openziti/modelctl/kernel/ingest"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

var modelIdPattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9_\-.]*[a-z0-9])?$`)

type ValidationIssue struct {
	Path    string
	Message string
}

func (i ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", i.Path, i.Message)
}

type ValidationResult struct {
	Errors   []ValidationIssue
	Warnings []ValidationIssue
}

func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

func (r *ValidationResult) addError(path, format string, args ...interface{}) {
	r.Errors = append(r.Errors, ValidationIssue{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (r *ValidationResult) addWarning(path, format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, ValidationIssue{Path: path, Message: fmt.Sprintf(format, args...)})
}

// ValidateClusterBytes checks a cluster description without applying it. Syntax errors are
// returned as an error; everything else is reported in the result.
func ValidateClusterBytes(data []byte, registry *ingest.Registry) (*ValidationResult, error) {
	var config ClusterYaml
	if err := yaml.UnmarshalStrict(data, &config); err != nil {
		return nil, err
	}
	if registry == nil {
		registry = ingest.DefaultRegistry
	}

	result := &ValidationResult{}
	if len(config.Models) == 0 {
		result.addWarning("models", "no models defined")
	}

	known := make(map[string]bool)
	for i, m := range config.Models {
		path := fmt.Sprintf("models[%d].id", i)
		switch {
		case m.Id == "":
			result.addError(path, "model id is required")
		case !modelIdPattern.MatchString(m.Id):
			result.addError(path, "invalid model id [%s]; use lowercase alphanumerics, '-', '_' and '.'", m.Id)
		case known[m.Id]:
			result.addError(path, "duplicate model id [%s]", m.Id)
		}
		known[m.Id] = true
	}

	aliasNames := sortedKeys(config.Aliases)
	for _, alias := range aliasNames {
		path := "aliases." + alias
		if target := config.Aliases[alias]; !known[target] {
			result.addError(path, "points at unknown model [%s]", target)
		}
		if known[alias] {
			result.addError(path, "alias has the same name as a model")
		}
	}

	for modelId, deployment := range config.Deployments {
		path := "deployments." + modelId
		if !known[modelId] {
			result.addError(path, "unknown model")
		}
		if len(deployment.Nodes) == 0 {
			result.addError(path+".nodes", "at least one node is required")
		}
	}

	ids := make([]string, 0, len(config.Pipelines))
	for id := range config.Pipelines {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		path := "pipelines." + id
		normalized, err := normalizeMap(config.Pipelines[id])
		if err != nil {
			result.addError(path, "%v", err)
			continue
		}
		pipeline, err := ingest.NewPipeline(id, normalized, registry)
		if err != nil {
			result.addError(path, "%v", err)
			continue
		}
		pipeline.Walk(func(step ingest.Step) {
			referencer, ok := step.(ingest.ModelReferencer)
			if !ok {
				return
			}
			if target := referencer.ModelId(); !known[target] {
				if _, isAlias := config.Aliases[target]; !isAlias {
					result.addWarning(path, "references unknown model [%s]", target)
				}
			}
		})
	}

	for _, issue := range result.Warnings {
		logrus.Debugf("validation warning: %s", issue)
	}
	return result, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

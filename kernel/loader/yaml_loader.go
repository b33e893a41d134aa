package loader

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/openziti/modelctl/kernel/model"
	"github.com/openziti/modelctl/kernel/store"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

type ClusterYaml struct {
	Models      []ModelYaml                       `yaml:"models"`
	Pipelines   map[string]map[string]interface{} `yaml:"pipelines"`
	Aliases     map[string]string                 `yaml:"aliases"`
	Deployments map[string]DeploymentYaml         `yaml:"deployments"`
}

type ModelYaml struct {
	Id          string   `yaml:"id"`
	Description string   `yaml:"description"`
	Tags        []string `yaml:"tags"`
}

type DeploymentYaml struct {
	Nodes []string `yaml:"nodes"`
}

// Cluster is a parsed cluster description, ready to be applied.
type Cluster struct {
	Models      []model.TrainedModel
	Pipelines   map[string]model.PipelineConfig
	Aliases     model.AliasMetadata
	Deployments map[string][]string
}

// Nodes returns the sorted ids of every node named by a deployment.
func (c *Cluster) Nodes() []string {
	seen := make(map[string]struct{})
	for _, nodes := range c.Deployments {
		for _, node := range nodes {
			seen[node] = struct{}{}
		}
	}
	result := make([]string, 0, len(seen))
	for node := range seen {
		result = append(result, node)
	}
	sort.Strings(result)
	return result
}

func LoadClusterState(path string) (*Cluster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read cluster description [%s]", path)
	}
	return ParseClusterState(data)
}

func ParseClusterState(data []byte) (*Cluster, error) {
	var config ClusterYaml
	if err := yaml.UnmarshalStrict(data, &config); err != nil {
		return nil, errors.Wrap(err, "unable to parse cluster description")
	}

	c := &Cluster{
		Pipelines:   make(map[string]model.PipelineConfig, len(config.Pipelines)),
		Aliases:     make(model.AliasMetadata, len(config.Aliases)),
		Deployments: make(map[string][]string, len(config.Deployments)),
	}

	known := make(map[string]bool, len(config.Models))
	for _, m := range config.Models {
		if m.Id == "" {
			return nil, errors.New("model without id")
		}
		if known[m.Id] {
			return nil, errors.Errorf("duplicate model [%s]", m.Id)
		}
		known[m.Id] = true
		c.Models = append(c.Models, model.TrainedModel{Id: m.Id, Description: m.Description, Tags: m.Tags})
	}

	for id, pipeline := range config.Pipelines {
		normalized, err := normalizeMap(pipeline)
		if err != nil {
			return nil, errors.Wrapf(err, "pipeline [%s]", id)
		}
		c.Pipelines[id] = model.PipelineConfig{Id: id, Config: normalized}
	}

	for alias, target := range config.Aliases {
		if !known[target] {
			return nil, errors.Errorf("alias [%s] points at unknown model [%s]", alias, target)
		}
		if known[alias] {
			return nil, errors.Errorf("alias [%s] has the same name as a model", alias)
		}
		c.Aliases[alias] = model.AliasEntry{ModelId: target}
	}

	for modelId, deployment := range config.Deployments {
		if !known[modelId] {
			return nil, errors.Errorf("deployment of unknown model [%s]", modelId)
		}
		if len(deployment.Nodes) == 0 {
			return nil, errors.Errorf("deployment of [%s] has no nodes", modelId)
		}
		c.Deployments[modelId] = deployment.Nodes
	}

	return c, nil
}

// normalizeMap converts the map[interface{}]interface{} values yaml.v2 produces into the
// map[string]interface{} shape pipeline documents use.
func normalizeMap(in map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		nv, err := normalize(v)
		if err != nil {
			return nil, errors.Wrapf(err, "key [%s]", k)
		}
		out[k] = nv
	}
	return out, nil
}

func normalize(v interface{}) (interface{}, error) {
	switch value := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(value))
		for k, item := range value {
			key, ok := k.(string)
			if !ok {
				return nil, errors.Errorf("non-string key [%v]", k)
			}
			nv, err := normalize(item)
			if err != nil {
				return nil, errors.Wrapf(err, "key [%s]", key)
			}
			out[key] = nv
		}
		return out, nil
	case map[string]interface{}:
		return normalizeMap(value)
	case []interface{}:
		out := make([]interface{}, len(value))
		for i, item := range value {
			nv, err := normalize(item)
			if err != nil {
				return nil, errors.Wrap(err, fmt.Sprintf("index [%d]", i))
			}
			out[i] = nv
		}
		return out, nil
	}
	return v, nil
}

// ModelWriter stores catalog records.
type ModelWriter interface {
	Put(ctx context.Context, m model.TrainedModel) error
}

// Starter deploys a model to a set of nodes.
type Starter interface {
	Start(ctx context.Context, modelId string, nodeIds []string) error
}

// Apply writes the cluster into the catalog and the metadata store. Pipelines and aliases are
// merged into the current metadata in one conditional commit; deployments are started last.
func Apply(ctx context.Context, c *Cluster, s store.MetadataStore, catalog ModelWriter, deployments Starter, log logrus.FieldLogger) error {
	if log == nil {
		log = logrus.StandardLogger()
	}

	for _, m := range c.Models {
		if err := catalog.Put(ctx, m); err != nil {
			return errors.Wrapf(err, "unable to store model [%s]", m.Id)
		}
		log.WithField("modelId", m.Id).Debug("stored model")
	}

	if len(c.Pipelines) > 0 || len(c.Aliases) > 0 {
		err := store.Update(ctx, s, "load-cluster", func(current *model.ClusterState) (*model.ClusterState, error) {
			next := current.Clone()
			for id, pipeline := range c.Pipelines {
				next.Pipelines[id] = pipeline
			}
			for alias, entry := range c.Aliases {
				next.Aliases[alias] = entry
			}
			return next, nil
		}, store.WithLogger(log))
		if err != nil {
			return err
		}
	}

	modelIds := make([]string, 0, len(c.Deployments))
	for id := range c.Deployments {
		modelIds = append(modelIds, id)
	}
	sort.Strings(modelIds)
	for _, id := range modelIds {
		if err := deployments.Start(ctx, id, c.Deployments[id]); err != nil {
			return errors.Wrapf(err, "unable to deploy [%s]", id)
		}
	}

	log.Infof("loaded %d models, %d pipelines, %d aliases, %d deployments",
		len(c.Models), len(c.Pipelines), len(c.Aliases), len(c.Deployments))
	return nil
}

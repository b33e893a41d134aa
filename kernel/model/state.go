package model

// ClusterState is the single versioned metadata document shared by every node. Stores hand out
// clones of it and accept a new one only through a conditional commit against Version.
type ClusterState struct {
	Version     uint64                    `json:"version"`
	Pipelines   map[string]PipelineConfig `json:"pipelines,omitempty"`
	Aliases     AliasMetadata             `json:"aliases,omitempty"`
	Allocations AllocationMetadata        `json:"allocations,omitempty"`
}

func NewClusterState() *ClusterState {
	return &ClusterState{
		Pipelines:   make(map[string]PipelineConfig),
		Aliases:     make(AliasMetadata),
		Allocations: make(AllocationMetadata),
	}
}

// Clone returns a deep copy. Pipeline configs are treated as immutable and are shared.
func (s *ClusterState) Clone() *ClusterState {
	if s == nil {
		return NewClusterState()
	}
	result := &ClusterState{
		Version:     s.Version,
		Pipelines:   make(map[string]PipelineConfig, len(s.Pipelines)),
		Aliases:     s.Aliases.clone(),
		Allocations: s.Allocations.clone(),
	}
	for k, v := range s.Pipelines {
		result.Pipelines[k] = v
	}
	return result
}

// PipelineConfig is an opaque pipeline document as stored in the cluster metadata.
type PipelineConfig struct {
	Id     string                 `json:"id"`
	Config map[string]interface{} `json:"config"`
}

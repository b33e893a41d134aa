package model

type AllocationState string

const (
	AllocationStarting AllocationState = "starting"
	AllocationStarted  AllocationState = "started"
	AllocationStopping AllocationState = "stopping"
)

// Allocation tracks where a model is loaded and serving.
type Allocation struct {
	ModelId string          `json:"model_id"`
	State   AllocationState `json:"state"`
	Nodes   []string        `json:"nodes,omitempty"`
}

type AllocationMetadata map[string]*Allocation

// IsAllocated reports whether modelId may still be serving anywhere. An allocation that is being
// stopped counts as allocated until it has been removed.
func (m AllocationMetadata) IsAllocated(modelId string) bool {
	allocation, ok := m[modelId]
	if !ok || allocation == nil {
		return false
	}
	switch allocation.State {
	case AllocationStopping:
		return true
	case AllocationStarting, AllocationStarted:
		return len(allocation.Nodes) > 0
	}
	return false
}

func (m AllocationMetadata) clone() AllocationMetadata {
	result := make(AllocationMetadata, len(m))
	for k, v := range m {
		if v == nil {
			continue
		}
		copied := *v
		copied.Nodes = append([]string(nil), v.Nodes...)
		result[k] = &copied
	}
	return result
}

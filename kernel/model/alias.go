package model

import "sort"

type AliasEntry struct {
	ModelId string `json:"model_id"`
}

// AliasMetadata maps alias names to the model they currently point at.
type AliasMetadata map[string]AliasEntry

// AliasesFor returns the sorted alias names whose target is modelId.
func (m AliasMetadata) AliasesFor(modelId string) []string {
	aliases := make([]string, 0)
	for name, entry := range m {
		if entry.ModelId == modelId {
			aliases = append(aliases, name)
		}
	}
	sort.Strings(aliases)
	return aliases
}

// Resolve returns the model id behind name, if name is an alias.
func (m AliasMetadata) Resolve(name string) (string, bool) {
	entry, ok := m[name]
	return entry.ModelId, ok
}

// Without returns a copy of the metadata with the given names removed.
func (m AliasMetadata) Without(names ...string) AliasMetadata {
	result := m.clone()
	for _, name := range names {
		delete(result, name)
	}
	return result
}

func (m AliasMetadata) clone() AliasMetadata {
	result := make(AliasMetadata, len(m))
	for k, v := range m {
		result[k] = v
	}
	return result
}

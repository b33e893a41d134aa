package model

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestAliasMetadata_AliasesFor(t *testing.T) {
	aliases := AliasMetadata{
		"prod":    {ModelId: "m1"},
		"staging": {ModelId: "m2"},
		"canary":  {ModelId: "m1"},
	}

	got := aliases.AliasesFor("m1")
	if !reflect.DeepEqual(got, []string{"canary", "prod"}) {
		t.Errorf("expected [canary prod], got %v", got)
	}
	if got := aliases.AliasesFor("m3"); len(got) != 0 {
		t.Errorf("expected no aliases for m3, got %v", got)
	}
}

func TestAliasMetadata_AliasesFor_NilDocument(t *testing.T) {
	var aliases AliasMetadata
	if got := aliases.AliasesFor("m1"); len(got) != 0 {
		t.Errorf("expected no aliases, got %v", got)
	}
}

func TestAliasMetadata_Without(t *testing.T) {
	aliases := AliasMetadata{
		"prod":    {ModelId: "m1"},
		"staging": {ModelId: "m2"},
	}

	result := aliases.Without("prod", "missing")

	if _, ok := result["prod"]; ok {
		t.Error("prod should have been removed")
	}
	if _, ok := result["staging"]; !ok {
		t.Error("staging should have been kept")
	}
	if _, ok := aliases["prod"]; !ok {
		t.Error("original metadata should not be modified")
	}
}

func TestAllocationMetadata_IsAllocated(t *testing.T) {
	allocations := AllocationMetadata{
		"started":  {ModelId: "started", State: AllocationStarted, Nodes: []string{"n1"}},
		"no-nodes": {ModelId: "no-nodes", State: AllocationStarted},
		"stopping": {ModelId: "stopping", State: AllocationStopping},
		"starting": {ModelId: "starting", State: AllocationStarting, Nodes: []string{"n1", "n2"}},
	}

	cases := map[string]bool{
		"started":  true,
		"no-nodes": false,
		"stopping": true,
		"starting": true,
		"missing":  false,
	}
	for id, expected := range cases {
		if got := allocations.IsAllocated(id); got != expected {
			t.Errorf("IsAllocated(%s): expected %v, got %v", id, expected, got)
		}
	}
}

func TestClusterState_Clone(t *testing.T) {
	state := NewClusterState()
	state.Version = 7
	state.Aliases["prod"] = AliasEntry{ModelId: "m1"}
	state.Allocations["m1"] = &Allocation{ModelId: "m1", State: AllocationStarted, Nodes: []string{"n1"}}
	state.Pipelines["p1"] = PipelineConfig{Id: "p1"}

	clone := state.Clone()
	clone.Aliases["dev"] = AliasEntry{ModelId: "m2"}
	clone.Allocations["m1"].Nodes[0] = "n2"
	delete(clone.Pipelines, "p1")

	if clone.Version != 7 {
		t.Errorf("expected version 7, got %d", clone.Version)
	}
	if _, ok := state.Aliases["dev"]; ok {
		t.Error("alias added to the clone leaked into the original")
	}
	if state.Allocations["m1"].Nodes[0] != "n1" {
		t.Error("allocation nodes should be copied")
	}
	if _, ok := state.Pipelines["p1"]; !ok {
		t.Error("pipeline removed from the clone leaked into the original")
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	content := `
store:
  backend: badger
  path: /var/lib/modelctl
influx:
  url: http://localhost:8086
  bucket: audit
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Store.Backend != StoreBackendBadger {
		t.Errorf("expected badger backend, got '%s'", cfg.Store.Backend)
	}
	if cfg.Update.MaxAttempts != 5 {
		t.Errorf("expected default max attempts 5, got %d", cfg.Update.MaxAttempts)
	}
	if !cfg.Influx.Enabled() {
		t.Error("influx should be enabled")
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := map[string]string{
		"unknown backend": "store:\n  backend: etcd\n",
		"missing path":    "store:\n  backend: file\n",
		"unknown key":     "storage:\n  backend: memory\n",
		"zero attempts":   "update:\n  max_attempts: 0\n",
		"missing bucket":  "influx:\n  url: http://localhost:8086\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ConfigFileName)
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}
			if _, err := LoadConfig(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", ConfigFileName)
	cfg := DefaultConfig()
	cfg.Store = StoreConfig{Backend: StoreBackendFile, Path: "/tmp/state.json"}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Store != cfg.Store {
		t.Errorf("expected %+v, got %+v", cfg.Store, loaded.Store)
	}
}

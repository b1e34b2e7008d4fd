package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadRunRequestFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	content := `{
		"run_id": "exp-1",
		"dataset": "data/linear.tsv.gz",
		"topology": "watts-strogatz",
		"population": 100,
		"generations": 50,
		"seed": 42,
		"workers": 4,
		"minimize": true,
		"operators": ["add", "sub", "mul"],
		"max_depth": 5,
		"max_size": 50,
		"crossover_probability": 0.8,
		"mutation_probability": 0.01,
		"max_phenotype_age": 70,
		"snapshot_final_population": true
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	req, err := loadRunRequestFromConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if req.RunID != "exp-1" || req.DatasetPath != "data/linear.tsv.gz" {
		t.Fatalf("identity fields wrong: %+v", req)
	}
	if req.Topology != "watts-strogatz" || req.PopulationSize != 100 || req.Generations != 50 {
		t.Fatalf("run shape wrong: %+v", req)
	}
	if req.Seed != 42 || req.Workers != 4 {
		t.Fatalf("execution fields wrong: %+v", req)
	}
	if req.Minimize == nil || !*req.Minimize {
		t.Fatal("minimize not parsed")
	}
	if !reflect.DeepEqual(req.Operators, []string{"add", "sub", "mul"}) {
		t.Fatalf("operators = %v", req.Operators)
	}
	if req.MaxDepth != 5 || req.MaxSize != 50 {
		t.Fatalf("tree limits wrong: %+v", req)
	}
	if req.CrossoverProb != 0.8 || req.MutationProb != 0.01 {
		t.Fatalf("probabilities wrong: %+v", req)
	}
	if req.MaxPhenotypeAge != 70 || !req.SnapshotFinalPopulation {
		t.Fatalf("remaining fields wrong: %+v", req)
	}
}

func TestLoadRunRequestIgnoresWrongTypes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	content := `{"population": "lots", "seed": 1.5, "dataset": 3}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	req, err := loadRunRequestFromConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if req.PopulationSize != 0 || req.Seed != 0 || req.DatasetPath != "" {
		t.Fatalf("mistyped fields should stay zero: %+v", req)
	}
}

func TestLoadRunRequestErrors(t *testing.T) {
	if _, err := loadRunRequestFromConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := loadRunRequestFromConfig(path); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

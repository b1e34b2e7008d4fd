package main

import (
	"encoding/json"
	"math"
	"os"

	cellapi "cellgp/pkg/cellgp"
)

// loadRunRequestFromConfig reads a JSON run configuration. Fields absent
// from the file keep their zero value so the facade defaults apply.
func loadRunRequestFromConfig(path string) (cellapi.RunRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cellapi.RunRequest{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return cellapi.RunRequest{}, err
	}

	var req cellapi.RunRequest
	if v, ok := asString(raw["run_id"]); ok {
		req.RunID = v
	}
	if v, ok := asString(raw["dataset"]); ok {
		req.DatasetPath = v
	}
	if v, ok := asString(raw["topology"]); ok {
		req.Topology = v
	}
	if v, ok := asInt(raw["population"]); ok {
		req.PopulationSize = v
	}
	if v, ok := asInt(raw["generations"]); ok {
		req.Generations = v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		req.Seed = v
	}
	if v, ok := asInt(raw["workers"]); ok {
		req.Workers = v
	}
	if v, ok := asBool(raw["minimize"]); ok {
		req.Minimize = &v
	}
	if v, ok := asStringSlice(raw["operators"]); ok {
		req.Operators = v
	}
	if v, ok := asInt(raw["max_depth"]); ok {
		req.MaxDepth = v
	}
	if v, ok := asInt(raw["max_size"]); ok {
		req.MaxSize = v
	}
	if v, ok := asFloat64(raw["crossover_probability"]); ok {
		req.CrossoverProb = v
	}
	if v, ok := asFloat64(raw["mutation_probability"]); ok {
		req.MutationProb = v
	}
	if v, ok := asInt(raw["max_phenotype_age"]); ok {
		req.MaxPhenotypeAge = v
	}
	if v, ok := asBool(raw["snapshot_final_population"]); ok {
		req.SnapshotFinalPopulation = v
	}
	return req, nil
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asFloat64(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

func asInt(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func asInt64(v any) (int64, bool) {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

func asStringSlice(v any) ([]string, bool) {
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

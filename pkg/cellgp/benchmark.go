package cellgp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"cellgp/internal/cellular"
	"cellgp/internal/dataset"
	"cellgp/internal/rng"
	"cellgp/internal/stats"
)

// BenchmarkRequest configures the topology comparison experiment: for every
// dataset in DataDir and every built-in topology, Repetitions runs of
// Generations generations each, plus a panmictic baseline.
type BenchmarkRequest struct {
	DataDir        string
	Repetitions    int
	Generations    int
	PopulationSize int
	Seed           int64
	Workers        int
}

// DatasetReport is one dataset's finished comparison.
type DatasetReport struct {
	Dataset    string
	ReportPath string
	Summaries  []stats.TopologySummary
	Baseline   stats.TopologySummary
}

// Benchmark runs the comparison over every dataset in the data directory
// and writes one text report per dataset under the outputs directory.
func (c *Client) Benchmark(ctx context.Context, req BenchmarkRequest) ([]DatasetReport, error) {
	if req.DataDir == "" {
		return nil, fmt.Errorf("data directory is required")
	}
	if req.Repetitions <= 0 {
		req.Repetitions = defaultRepetitionCount
	}
	if req.Generations <= 0 {
		req.Generations = defaultGenerations
	}
	if req.PopulationSize <= 0 {
		req.PopulationSize = defaultPopulationSize
	}

	files, err := dataset.ScanDir(req.DataDir)
	if err != nil {
		return nil, err
	}
	if err := ensureDir(c.outputsDir); err != nil {
		return nil, fmt.Errorf("create outputs dir: %w", err)
	}

	reports := make([]DatasetReport, 0, len(files))
	for _, file := range files {
		report, err := c.benchmarkDataset(ctx, file, req)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", file, err)
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (c *Client) benchmarkDataset(ctx context.Context, file string, req BenchmarkRequest) (DatasetReport, error) {
	ds, err := dataset.Load(file)
	if err != nil {
		return DatasetReport{}, err
	}
	problem, err := NewProblem(ds, DefaultOperatorNames, defaultMaxDepth, defaultMaxSize)
	if err != nil {
		return DatasetReport{}, err
	}

	summaries := make([]stats.TopologySummary, 0, len(TopologyNames()))
	for _, name := range TopologyNames() {
		graph, err := BuildTopology(name, req.PopulationSize, req.Seed)
		if err != nil {
			return DatasetReport{}, err
		}
		results := make([]stats.RepetitionResult, 0, req.Repetitions)
		for rep := 0; rep < req.Repetitions; rep++ {
			engine, err := cellular.New(cellular.Config{
				Problem:  problem,
				Topology: graph,
				Optimize: minimize(),
				Alterers: benchmarkAlterers(problem, req.PopulationSize),
				Workers:  req.Workers,
				Seed:     rng.Derive(req.Seed, int64(rep)),
			})
			if err != nil {
				return DatasetReport{}, err
			}
			result, err := repetition(ctx, engine, req.Generations)
			if err != nil {
				return DatasetReport{}, fmt.Errorf("topology %s repetition %d: %w", name, rep, err)
			}
			results = append(results, result)
		}
		summary, err := stats.Summarize(name, results)
		if err != nil {
			return DatasetReport{}, err
		}
		summaries = append(summaries, summary)
	}

	baseline, err := c.panmicticBaseline(ctx, problem, req)
	if err != nil {
		return DatasetReport{}, err
	}

	text := stats.RenderReport(ds.Name, summaries, &baseline)
	reportPath := filepath.Join(c.outputsDir, ds.Name+".txt")
	if err := os.WriteFile(reportPath, []byte(text), 0o644); err != nil {
		return DatasetReport{}, fmt.Errorf("write report: %w", err)
	}

	return DatasetReport{
		Dataset:    ds.Name,
		ReportPath: reportPath,
		Summaries:  summaries,
		Baseline:   baseline,
	}, nil
}

func (c *Client) panmicticBaseline(ctx context.Context, problem cellular.Problem, req BenchmarkRequest) (stats.TopologySummary, error) {
	results := make([]stats.RepetitionResult, 0, req.Repetitions)
	for rep := 0; rep < req.Repetitions; rep++ {
		engine, err := cellular.NewPanmictic(cellular.Config{
			Problem:  problem,
			Optimize: minimize(),
			Workers:  req.Workers,
			Seed:     rng.Derive(req.Seed, int64(1000+rep)),
		}, req.PopulationSize)
		if err != nil {
			return stats.TopologySummary{}, err
		}
		result, err := repetition(ctx, engine, req.Generations)
		if err != nil {
			return stats.TopologySummary{}, fmt.Errorf("panmictic repetition %d: %w", rep, err)
		}
		results = append(results, result)
	}
	return stats.Summarize("panmictic", results)
}

// repetition runs a stream for the generation budget and reduces it to the
// repetition's best.
func repetition(ctx context.Context, engine *cellular.Engine, generations int) (stats.RepetitionResult, error) {
	outcome, err := drain(ctx, engine, generations)
	if err != nil {
		return stats.RepetitionResult{}, err
	}
	return stats.RepetitionResult{
		BestFitness:    outcome.bestFitness,
		BestExpression: outcome.bestExpression,
		BestHistory:    outcome.history,
	}, nil
}

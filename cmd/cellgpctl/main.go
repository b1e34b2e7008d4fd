package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"cellgp/internal/topology"
	cellapi "cellgp/pkg/cellgp"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runRun(ctx, args[1:])
	case "benchmark":
		return runBenchmark(ctx, args[1:])
	case "topologies":
		return runTopologies(args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "fitness":
		return runFitness(ctx, args[1:])
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func usageError(msg string) error {
	printUsage()
	return fmt.Errorf("%s", msg)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: cellgpctl <command> [flags]

commands:
  run         run one cellular evolution over a dataset
  benchmark   compare topologies against panmictic GP over a data directory
  topologies  print the built-in topology set with structural metrics
  runs        list archived runs
  fitness     print the best-fitness history of a run`)
}

func storeFlags(fs *flag.FlagSet) (*string, *string) {
	kind := fs.String("store", "memory", "store backend: memory or sqlite")
	dbPath := fs.String("db", "cellgp.db", "sqlite database path")
	return kind, dbPath
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "JSON run configuration file")
	datasetPath := fs.String("dataset", "", "gzip TSV dataset path")
	topologyName := fs.String("topology", "grid", "interaction topology")
	population := fs.Int("population", 100, "population size")
	generations := fs.Int("generations", 50, "generation count")
	seed := fs.Int64("seed", 42, "random seed")
	workers := fs.Int("workers", 0, "worker pool size (0 = all CPUs)")
	snapshot := fs.Bool("snapshot", false, "archive the final population")
	kind, dbPath := storeFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	req := cellapi.RunRequest{
		DatasetPath:             *datasetPath,
		Topology:                *topologyName,
		PopulationSize:          *population,
		Generations:             *generations,
		Seed:                    *seed,
		Workers:                 *workers,
		SnapshotFinalPopulation: *snapshot,
	}
	if *configPath != "" {
		loaded, err := loadRunRequestFromConfig(*configPath)
		if err != nil {
			return fmt.Errorf("load config %s: %w", *configPath, err)
		}
		req = loaded
	}

	client, err := cellapi.NewClient(ctx, cellapi.Options{StoreKind: *kind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer client.Close()

	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("run: %s\n", summary.RunID)
	fmt.Printf("dataset: %s\n", summary.Dataset)
	fmt.Printf("topology: %s\n", summary.Topology)
	fmt.Printf("generations: %d\n", summary.Generations)
	fmt.Printf("best fitness: %.6g\n", summary.BestFitness)
	fmt.Printf("best individual: %s\n", summary.BestExpression)
	return nil
}

func runBenchmark(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("benchmark", flag.ContinueOnError)
	dataDir := fs.String("data", "data", "directory of gzip TSV datasets")
	outputsDir := fs.String("outputs", "outputs", "directory for text reports")
	repetitions := fs.Int("repetitions", 10, "repetitions per topology")
	generations := fs.Int("generations", 50, "generation count per run")
	population := fs.Int("population", 100, "population size")
	seed := fs.Int64("seed", 42, "random seed")
	workers := fs.Int("workers", 0, "worker pool size (0 = all CPUs)")
	kind, dbPath := storeFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := cellapi.NewClient(ctx, cellapi.Options{
		StoreKind:  *kind,
		DBPath:     *dbPath,
		OutputsDir: *outputsDir,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	reports, err := client.Benchmark(ctx, cellapi.BenchmarkRequest{
		DataDir:        *dataDir,
		Repetitions:    *repetitions,
		Generations:    *generations,
		PopulationSize: *population,
		Seed:           *seed,
		Workers:        *workers,
	})
	if err != nil {
		return err
	}
	for _, report := range reports {
		fmt.Printf("%s -> %s\n", report.Dataset, report.ReportPath)
	}
	return nil
}

func runTopologies(args []string) error {
	fs := flag.NewFlagSet("topologies", flag.ContinueOnError)
	population := fs.Int("population", 100, "population size")
	seed := fs.Int64("seed", 42, "random seed")
	asJSON := fs.Bool("json", false, "print as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	type entry struct {
		Name    string           `json:"name"`
		Metrics topology.Metrics `json:"metrics"`
	}
	entries := make([]entry, 0, len(cellapi.TopologyNames()))
	for _, name := range cellapi.TopologyNames() {
		graph, err := cellapi.BuildTopology(name, *population, *seed)
		if err != nil {
			return err
		}
		entries = append(entries, entry{Name: graph.Name(), Metrics: topology.Measure(graph)})
	}
	if *asJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(entries)
	}
	for _, e := range entries {
		fmt.Printf("%-22s nodes=%d edges=%d out=[%d..%d] mean=%.2f self=%d dup=%d acyclic=%v\n",
			e.Name, e.Metrics.Nodes, e.Metrics.Edges, e.Metrics.MinOut, e.Metrics.MaxOut,
			e.Metrics.MeanOut, e.Metrics.SelfLoops, e.Metrics.Duplicates, e.Metrics.Acyclic)
	}
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	kind, dbPath := storeFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := cellapi.NewClient(ctx, cellapi.Options{StoreKind: *kind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer client.Close()

	runs, err := client.Store().ListRuns(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no archived runs")
		return nil
	}
	for _, r := range runs {
		fmt.Printf("%-40s %-12s %-22s gen=%d best=%.6g\n", r.ID, r.Dataset, r.Topology, r.Generations, r.BestFitness)
	}
	return nil
}

func runFitness(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fitness", flag.ContinueOnError)
	runID := fs.String("run", "", "run id")
	kind, dbPath := storeFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return fmt.Errorf("run id is required")
	}

	client, err := cellapi.NewClient(ctx, cellapi.Options{StoreKind: *kind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer client.Close()

	history, ok, err := client.Store().GetFitnessHistory(ctx, *runID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no fitness history for run %s", *runID)
	}
	for i, best := range history {
		fmt.Printf("%d\t%.6g\n", i+1, best)
	}
	return nil
}

package cellgp

import (
	"compress/gzip"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeDataset(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	gz := gzip.NewWriter(f)
	if _, err := gz.Write([]byte(content)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return path
}

// y = 2x + 1 over a small grid of points.
func linearDataset(t *testing.T, dir string) string {
	return writeDataset(t, dir, "linear.tsv.gz",
		"x\ty\n-1\t-1\n-0.5\t0\n0\t1\n0.5\t2\n1\t3\n")
}

func TestClientRunArchivesResults(t *testing.T) {
	dir := t.TempDir()
	path := linearDataset(t, dir)
	ctx := context.Background()

	client, err := NewClient(ctx, Options{StoreKind: "memory"})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	defer client.Close()

	summary, err := client.Run(ctx, RunRequest{
		DatasetPath:             path,
		Topology:                "grid",
		PopulationSize:          25,
		Generations:             10,
		Seed:                    42,
		Workers:                 1,
		SnapshotFinalPopulation: true,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Dataset != "linear.tsv" || summary.Topology != "grid" {
		t.Fatalf("summary header wrong: %+v", summary)
	}
	if len(summary.BestByGeneration) != 10 {
		t.Fatalf("history length = %d, want 10", len(summary.BestByGeneration))
	}
	if math.IsNaN(summary.BestFitness) {
		t.Fatalf("best fitness = %v", summary.BestFitness)
	}
	if summary.BestExpression == "" {
		t.Fatal("best expression is empty")
	}

	run, ok, err := client.Store().GetRun(ctx, summary.RunID)
	if err != nil || !ok {
		t.Fatalf("archived run: ok=%v err=%v", ok, err)
	}
	if run.BestFitness != summary.BestFitness {
		t.Fatal("archived best fitness disagrees with summary")
	}
	history, ok, err := client.Store().GetFitnessHistory(ctx, summary.RunID)
	if err != nil || !ok {
		t.Fatalf("archived history: ok=%v err=%v", ok, err)
	}
	if len(history) != 10 {
		t.Fatalf("archived history length = %d, want 10", len(history))
	}
	diagnostics, ok, err := client.Store().GetGenerationDiagnostics(ctx, summary.RunID)
	if err != nil || !ok {
		t.Fatalf("archived diagnostics: ok=%v err=%v", ok, err)
	}
	if len(diagnostics) != 10 {
		t.Fatalf("diagnostics length = %d, want 10", len(diagnostics))
	}
	snapshot, ok, err := client.Store().GetPopulationSnapshot(ctx, summary.RunID, diagnostics[len(diagnostics)-1].Generation)
	if err != nil || !ok {
		t.Fatalf("archived snapshot: ok=%v err=%v", ok, err)
	}
	if len(snapshot.Programs) != 25 {
		t.Fatalf("snapshot programs = %d, want 25", len(snapshot.Programs))
	}
	top, ok, err := client.Store().GetTopPrograms(ctx, summary.RunID)
	if err != nil || !ok {
		t.Fatalf("archived top programs: ok=%v err=%v", ok, err)
	}
	if len(top) == 0 || top[0].Fitness != summary.BestFitness {
		t.Fatalf("top programs = %+v", top)
	}
}

func TestClientRunIsDeterministicForSeed(t *testing.T) {
	dir := t.TempDir()
	path := linearDataset(t, dir)
	ctx := context.Background()

	run := func(workers int) RunSummary {
		client, err := NewClient(ctx, Options{StoreKind: "memory"})
		if err != nil {
			t.Fatalf("client: %v", err)
		}
		defer client.Close()
		summary, err := client.Run(ctx, RunRequest{
			DatasetPath:    path,
			PopulationSize: 16,
			Generations:    8,
			Seed:           7,
			Workers:        workers,
		})
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		return summary
	}

	a := run(1)
	b := run(8)
	if a.BestFitness != b.BestFitness || a.BestExpression != b.BestExpression {
		t.Fatalf("worker count changed the trajectory: %+v vs %+v", a, b)
	}
	for i := range a.BestByGeneration {
		if a.BestByGeneration[i] != b.BestByGeneration[i] {
			t.Fatalf("history diverged at generation %d", i+1)
		}
	}
}

func TestBuildTopology(t *testing.T) {
	for _, name := range TopologyNames() {
		g, err := BuildTopology(name, 100, 42)
		if err != nil {
			t.Fatalf("build %s: %v", name, err)
		}
		if g.Size() != 100 {
			t.Fatalf("%s size = %d, want 100", name, g.Size())
		}
	}
	if _, err := BuildTopology("bogus", 100, 42); err != nil {
		if !strings.Contains(err.Error(), "unknown topology") {
			t.Fatalf("unexpected error: %v", err)
		}
	} else {
		t.Fatal("expected error for unknown topology")
	}
}

func TestBenchmarkWritesReports(t *testing.T) {
	dataDir := t.TempDir()
	linearDataset(t, dataDir)
	outputsDir := filepath.Join(t.TempDir(), "outputs")
	ctx := context.Background()

	client, err := NewClient(ctx, Options{StoreKind: "memory", OutputsDir: outputsDir})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	defer client.Close()

	reports, err := client.Benchmark(ctx, BenchmarkRequest{
		DataDir:        dataDir,
		Repetitions:    2,
		Generations:    3,
		PopulationSize: 16,
		Seed:           42,
		Workers:        1,
	})
	if err != nil {
		t.Fatalf("benchmark: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("reports = %d, want 1", len(reports))
	}
	report := reports[0]
	if len(report.Summaries) != len(TopologyNames()) {
		t.Fatalf("summaries = %d, want %d", len(report.Summaries), len(TopologyNames()))
	}
	if report.Baseline.Topology != "panmictic" {
		t.Fatalf("baseline topology = %s", report.Baseline.Topology)
	}

	data, err := os.ReadFile(report.ReportPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	text := string(data)
	for _, want := range append([]string{"Dataset: linear.tsv", "Standard GP:"}, TopologyNames()...) {
		if !strings.Contains(text, want) {
			t.Fatalf("report missing %q:\n%s", want, text)
		}
	}
}

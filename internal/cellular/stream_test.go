package cellular

import (
	"context"
	"math"
	"testing"

	"cellgp/internal/evo"
)

func TestStreamLimitCountsResults(t *testing.T) {
	engine := gridEngine(t, 16, 1, 42)
	stream := engine.Stream(nil).Limit(5)

	count := 0
	for {
		result, ok, err := stream.Next(context.Background())
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if !ok {
			break
		}
		if result.Generation != count+1 {
			t.Fatalf("generation = %d, want %d", result.Generation, count+1)
		}
		count++
	}
	if count != 5 {
		t.Fatalf("stream emitted %d results, want 5", count)
	}
}

func TestStreamBestSoFarIsMonotone(t *testing.T) {
	engine := gridEngine(t, 16, 1, 42)
	stream := engine.Stream(nil).Limit(20)

	prev := math.Inf(1)
	for {
		result, ok, err := stream.Next(context.Background())
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if !ok {
			break
		}
		best, hasBest := result.BestFitness()
		if !hasBest {
			t.Fatal("result has no best fitness")
		}
		if best > prev {
			t.Fatalf("best fitness worsened across stream: %v -> %v", prev, best)
		}
		prev = best
	}
}

func TestLimitByFitnessStopsOnCrossing(t *testing.T) {
	engine := gridEngine(t, 16, 1, 42)
	// Any finite fitness crosses an infinite threshold immediately, so the
	// stream must stop after the crossing result.
	stream := engine.Stream(nil).Limit(50).LimitByFitness(math.Inf(1))

	count := 0
	for {
		_, ok, err := stream.Next(context.Background())
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if !ok {
			break
		}
		count++
	}
	if count != 1 {
		t.Fatalf("stream emitted %d results, want 1", count)
	}
}

func TestBestResultFoldsOverStream(t *testing.T) {
	engine := gridEngine(t, 16, 1, 42)
	result, err := engine.Stream(nil).Limit(10).BestResult(context.Background())
	if err != nil {
		t.Fatalf("best result: %v", err)
	}
	best, ok := result.BestFitness()
	if !ok {
		t.Fatal("best result has no fitness")
	}

	// Replaying the same stream generation by generation must never beat
	// the folded best.
	replay := engine.Stream(nil).Limit(10)
	for {
		r, ok2, err := replay.Next(context.Background())
		if err != nil {
			t.Fatalf("replay: %v", err)
		}
		if !ok2 {
			break
		}
		if f, has := r.BestFitness(); has && f < best {
			t.Fatalf("replay found better fitness %v than folded best %v", f, best)
		}
	}
}

func TestStreamNormalizesShortStartPopulation(t *testing.T) {
	engine := gridEngine(t, 16, 1, 42)
	full, err := engine.Start(0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	short := EvolutionStart{Population: full.Population[:3], Generation: 0}

	stream := engine.Stream(&short)
	result, ok, err := stream.Next(context.Background())
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if !ok {
		t.Fatal("stream ended immediately")
	}
	if len(result.Population) != 16 {
		t.Fatalf("population = %d, want 16 after padding", len(result.Population))
	}
}

func TestStreamRejectsOversizedStart(t *testing.T) {
	engine := gridEngine(t, 16, 1, 42)
	oversized := EvolutionStart{Population: make([]evo.Phenotype, 17)}
	if _, _, err := engine.Stream(&oversized).Next(context.Background()); err == nil {
		t.Fatal("expected error for oversized start population")
	}
}

func TestPanmicticEngineUsesCompleteTopology(t *testing.T) {
	engine, err := NewPanmictic(Config{
		Problem:  constantTarget(t),
		Optimize: evo.Minimum,
		Workers:  1,
		Seed:     42,
	}, 20)
	if err != nil {
		t.Fatalf("panmictic: %v", err)
	}
	if engine.Topology().Name() != "complete" {
		t.Fatalf("topology = %s, want complete", engine.Topology().Name())
	}
	if engine.Topology().Size() != 20 {
		t.Fatalf("size = %d, want 20", engine.Topology().Size())
	}

	result, err := engine.Stream(nil).Limit(3).BestResult(context.Background())
	if err != nil {
		t.Fatalf("best result: %v", err)
	}
	if len(result.Population) != 20 {
		t.Fatalf("population = %d, want 20", len(result.Population))
	}
}

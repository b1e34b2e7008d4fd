package evo

import (
	"context"
	"fmt"
	"sync"

	"cellgp/internal/tree"
)

// Evaluator fills in fitnesses for phenotypes lacking one. Already evaluated
// phenotypes pass through untouched, so evaluation is idempotent, and the
// output keeps the input's index order.
type Evaluator struct {
	fitness func(*tree.Node) float64
	workers int
}

// NewEvaluator builds an evaluator running at most workers concurrent
// fitness calls. Workers <= 0 means sequential.
func NewEvaluator(fitness func(*tree.Node) float64, workers int) (*Evaluator, error) {
	if fitness == nil {
		return nil, fmt.Errorf("fitness function is required")
	}
	if workers <= 0 {
		workers = 1
	}
	return &Evaluator{fitness: fitness, workers: workers}, nil
}

// Eval returns a population where every phenotype has a fitness. The fitness
// function is pure in the genotype, so evaluations fan out over a worker
// pool; results are gathered by original index.
func (e *Evaluator) Eval(ctx context.Context, population []Phenotype) ([]Phenotype, error) {
	pending := make([]int, 0, len(population))
	out := make([]Phenotype, len(population))
	for i, p := range population {
		out[i] = p
		if !p.IsEvaluated() {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return out, nil
	}

	workerCount := e.workers
	if workerCount > len(pending) {
		workerCount = len(pending)
	}
	if workerCount == 1 {
		for _, idx := range pending {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			out[idx] = out[idx].WithFitness(e.fitness(out[idx].Tree))
		}
		return out, nil
	}

	jobs := make(chan int)
	errs := make(chan error, len(pending))

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if err := ctx.Err(); err != nil {
					errs <- err
					continue
				}
				// Slot-partitioned: this worker is the only writer of out[idx].
				out[idx] = out[idx].WithFitness(e.fitness(out[idx].Tree))
			}
		}()
	}

	for _, idx := range pending {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			return nil, fmt.Errorf("fitness evaluation: %w", err)
		}
	}
	return out, nil
}

package cellular

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"cellgp/internal/evo"
	"cellgp/internal/rng"
	"cellgp/internal/topology"
	"cellgp/internal/tree"
)

// Default engine parameters.
const (
	DefaultGridSize        = 100
	DefaultCrossoverProb   = 0.1
	DefaultMaxPhenotypeAge = 70
	DefaultTournamentSize  = 3
)

// Problem supplies genotype construction, scoring and the primitive sets the
// default alterers are built from.
type Problem interface {
	evo.Codec
	Fitness(t *tree.Node) float64
	TreeParams() tree.Params
}

// Config enumerates the engine build configuration. Zero fields fall back to
// the documented defaults; only Problem is mandatory.
type Config struct {
	Problem  Problem
	Topology *topology.GraphMap
	Selector evo.Selector
	Alterers []evo.Alterer
	Optimize evo.Optimize
	// Constraint defaults to the retry constraint over the problem's
	// validity predicate.
	Constraint evo.Constraint
	// MaxPhenotypeAge is the generation count a phenotype may survive before
	// it is replaced by a fresh random one. Zero means the default of 70.
	MaxPhenotypeAge int
	// Workers bounds per-generation parallelism. Zero means the number of
	// CPUs; 1 forces sequential execution for reproducibility testing.
	Workers int
	Seed    int64
}

// Engine drives one population over a fixed topology. An engine is safe to
// reuse across streams; Evolve is a pure function of its input given the
// seed, so runs are deterministic regardless of worker count.
type Engine struct {
	problem         Problem
	graph           *topology.GraphMap
	selector        evo.Selector
	alterer         evo.Alterer
	optimize        evo.Optimize
	constraint      evo.Constraint
	maxPhenotypeAge int
	workers         int
	seed            int64
	evaluator       *evo.Evaluator
}

// New validates the configuration and resolves defaults: grid(100) topology,
// single-node crossover at 0.1 followed by subtree mutation at 1/N,
// tournament selection with k=3, maximize, retry constraint, age cap 70,
// system worker pool.
func New(cfg Config) (*Engine, error) {
	if cfg.Problem == nil {
		return nil, fmt.Errorf("problem is required")
	}
	if cfg.Topology == nil {
		grid, err := topology.Grid(DefaultGridSize)
		if err != nil {
			return nil, err
		}
		cfg.Topology = grid
	}
	if cfg.Topology.Size() <= 0 {
		return nil, fmt.Errorf("topology must have at least one node")
	}
	if cfg.Selector == nil {
		cfg.Selector = evo.TournamentSelector{Size: DefaultTournamentSize}
	}
	if len(cfg.Alterers) == 0 {
		params := cfg.Problem.TreeParams()
		cfg.Alterers = []evo.Alterer{
			evo.SingleNodeCrossover{Probability: DefaultCrossoverProb},
			evo.SubtreeMutator{
				Probability: 1 / float64(cfg.Topology.Size()),
				Ops:         params.Ops,
				Terminals:   params.Terminals,
				MaxDepth:    params.MaxDepth,
				Valid:       params.Valid,
			},
		}
	}
	if cfg.Constraint == nil {
		cfg.Constraint = evo.RetryConstraint{
			Codec: cfg.Problem,
			Valid: cfg.Problem.TreeParams().Valid,
		}
	}
	if cfg.MaxPhenotypeAge == 0 {
		cfg.MaxPhenotypeAge = DefaultMaxPhenotypeAge
	}
	if cfg.MaxPhenotypeAge < 0 {
		return nil, fmt.Errorf("max phenotype age must be >= 0")
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("workers must be >= 0")
	}

	evaluator, err := evo.NewEvaluator(cfg.Problem.Fitness, cfg.Workers)
	if err != nil {
		return nil, err
	}

	return &Engine{
		problem:         cfg.Problem,
		graph:           cfg.Topology,
		selector:        cfg.Selector,
		alterer:         evo.Chain{Alterers: cfg.Alterers},
		optimize:        cfg.Optimize,
		constraint:      cfg.Constraint,
		maxPhenotypeAge: cfg.MaxPhenotypeAge,
		workers:         cfg.Workers,
		seed:            cfg.Seed,
		evaluator:       evaluator,
	}, nil
}

// Topology returns the graph the engine evolves over.
func (e *Engine) Topology() *topology.GraphMap { return e.graph }

// Optimize returns the optimization direction.
func (e *Engine) Optimize() evo.Optimize { return e.optimize }

// Start constructs a fresh random population of graph size at the given
// generation, with fitness absent.
func (e *Engine) Start(generation int) (EvolutionStart, error) {
	n := e.graph.Size()
	population := make([]evo.Phenotype, n)
	for i := 0; i < n; i++ {
		t, err := e.problem.NewGenotype(rng.ForCell(e.seed, -1, i))
		if err != nil {
			return EvolutionStart{}, fmt.Errorf("initial genotype %d: %w", i, err)
		}
		population[i] = evo.NewPhenotype(t, generation)
	}
	return EvolutionStart{Population: population, Generation: generation}, nil
}

// normalize pads a short population with fresh random phenotypes until it
// matches the graph size, and rejects an oversized one.
func (e *Engine) normalize(start EvolutionStart) (EvolutionStart, error) {
	n := e.graph.Size()
	if len(start.Population) > n {
		return EvolutionStart{}, fmt.Errorf("population size %d exceeds graph size %d", len(start.Population), n)
	}
	if len(start.Population) == n {
		return start, nil
	}
	population := append([]evo.Phenotype(nil), start.Population...)
	for i := len(population); i < n; i++ {
		t, err := e.problem.NewGenotype(rng.ForCell(e.seed, -1, i))
		if err != nil {
			return EvolutionStart{}, fmt.Errorf("pad genotype %d: %w", i, err)
		}
		population = append(population, evo.NewPhenotype(t, start.Generation))
	}
	return EvolutionStart{Population: population, Generation: start.Generation}, nil
}

// Evolve performs one generation transition: filter, evaluate, per-cell
// evolution over the read-only snapshot, offspring evaluation and local
// elitist replacement.
func (e *Engine) Evolve(ctx context.Context, start EvolutionStart) (EvolutionResult, error) {
	began := time.Now()
	n := e.graph.Size()
	if len(start.Population) != n {
		return EvolutionResult{}, fmt.Errorf("population size %d does not match graph size %d", len(start.Population), n)
	}
	gen := start.Generation

	filtered, killCount, invalidCount, err := e.filter(start.Population, gen)
	if err != nil {
		return EvolutionResult{}, err
	}

	snapshot, err := e.evaluator.Eval(ctx, filtered)
	if err != nil {
		return EvolutionResult{}, err
	}

	candidates, err := e.evolveCells(ctx, snapshot, gen)
	if err != nil {
		return EvolutionResult{}, err
	}

	offspring, err := e.evaluator.Eval(ctx, candidates)
	if err != nil {
		return EvolutionResult{}, err
	}

	next := make([]evo.Phenotype, n)
	alterCount := 0
	for i := 0; i < n; i++ {
		// Ties keep the parent so neutral drift cannot churn the population.
		if e.optimize.Prefers(offspring[i].Fitness(), snapshot[i].Fitness()) {
			next[i] = offspring[i]
			alterCount++
		} else {
			next[i] = snapshot[i]
		}
	}

	return EvolutionResult{
		Population:   next,
		Generation:   gen + 1,
		Duration:     time.Since(began),
		KillCount:    killCount,
		InvalidCount: invalidCount,
		AlterCount:   alterCount,
		Optimize:     e.optimize,
	}, nil
}

// filter repairs invalid phenotypes and retires the ones past the age cap.
func (e *Engine) filter(population []evo.Phenotype, generation int) ([]evo.Phenotype, int, int, error) {
	filtered := make([]evo.Phenotype, len(population))
	filterRng := rng.ForCell(e.seed, generation, -1)
	killCount, invalidCount := 0, 0
	for i, p := range population {
		switch {
		case !e.constraint.IsValid(p):
			repaired, err := e.constraint.Repair(filterRng, p, generation)
			if err != nil {
				return nil, 0, 0, fmt.Errorf("repair phenotype %d: %w", i, err)
			}
			filtered[i] = repaired
			invalidCount++
		case p.Age(generation) > e.maxPhenotypeAge:
			t, err := e.problem.NewGenotype(filterRng)
			if err != nil {
				return nil, 0, 0, fmt.Errorf("replace aged phenotype %d: %w", i, err)
			}
			filtered[i] = evo.NewPhenotype(t, generation)
			killCount++
		default:
			filtered[i] = p
		}
	}
	return filtered, killCount, invalidCount, nil
}

// evolveCells produces one candidate per cell from its neighborhood. The
// snapshot is read-only; each cell draws from its own RNG sub-stream and
// writes only its own output slot, so the result is independent of worker
// count and scheduling order.
func (e *Engine) evolveCells(ctx context.Context, snapshot []evo.Phenotype, generation int) ([]evo.Phenotype, error) {
	n := len(snapshot)
	candidates := make([]evo.Phenotype, n)

	workerCount := e.workers
	if workerCount > n {
		workerCount = n
	}
	if workerCount <= 1 {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			candidate, err := e.evolveCell(snapshot, generation, i)
			if err != nil {
				return nil, err
			}
			candidates[i] = candidate
		}
		return candidates, nil
	}

	jobs := make(chan int)
	errs := make(chan error, n)

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					errs <- err
					continue
				}
				candidate, err := e.evolveCell(snapshot, generation, i)
				if err != nil {
					errs <- err
					continue
				}
				candidates[i] = candidate
			}
		}()
	}

	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return candidates, nil
}

func (e *Engine) evolveCell(snapshot []evo.Phenotype, generation, cell int) (evo.Phenotype, error) {
	neighborIDs := e.graph.Neighbors(cell)
	var neighbors []evo.Phenotype
	if len(neighborIDs) == 0 {
		// A cell without neighbors evolves against itself.
		neighbors = []evo.Phenotype{snapshot[cell]}
	} else {
		neighbors = make([]evo.Phenotype, len(neighborIDs))
		for k, j := range neighborIDs {
			neighbors[k] = snapshot[j]
		}
	}

	cellRng := e.cellRand(generation, cell)
	parents, err := e.selector.Select(cellRng, neighbors, 2, e.optimize)
	if err != nil {
		return evo.Phenotype{}, fmt.Errorf("cell %d: select: %w", cell, err)
	}
	children, _, err := e.alterer.Alter(cellRng, parents, generation)
	if err != nil {
		return evo.Phenotype{}, fmt.Errorf("cell %d: alter: %w", cell, err)
	}
	// The cell has exactly one successor slot; the second child is dropped.
	return children[0], nil
}

func (e *Engine) cellRand(generation, cell int) *rand.Rand {
	return rng.ForCell(e.seed, generation, cell)
}

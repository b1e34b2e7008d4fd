// Package cellgp is the public facade: it wires datasets, topologies, the
// cellular engine and the run archive together for callers and the CLI.
package cellgp

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"

	"cellgp/internal/cellular"
	"cellgp/internal/dataset"
	"cellgp/internal/evo"
	"cellgp/internal/model"
	"cellgp/internal/op"
	"cellgp/internal/regression"
	"cellgp/internal/rng"
	"cellgp/internal/storage"
	"cellgp/internal/topology"
)

const (
	defaultOutputsDir = "outputs"
	defaultDBPath     = "cellgp.db"

	defaultMaxDepth        = 5
	defaultMaxSize         = 50
	defaultPopulationSize  = 100
	defaultGenerations     = 50
	defaultCrossoverProb   = 0.8
	defaultEphemeralBound  = 10.0
	defaultTournamentK     = 3
	defaultTopologyName    = "grid"
	defaultRepetitionCount = 10
)

// DefaultOperatorNames is the arithmetic operator set regression problems
// are built with unless configured otherwise.
var DefaultOperatorNames = []string{"add", "sub", "mul", "div", "sqrt", "exp"}

type Options struct {
	StoreKind  string
	DBPath     string
	OutputsDir string
}

type Client struct {
	store      storage.Store
	outputsDir string
}

func NewClient(ctx context.Context, opts Options) (*Client, error) {
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	store, err := storage.NewStore(opts.StoreKind, dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	outputsDir := opts.OutputsDir
	if outputsDir == "" {
		outputsDir = defaultOutputsDir
	}
	return &Client{store: store, outputsDir: outputsDir}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// Store exposes the run archive for inspection commands.
func (c *Client) Store() storage.Store { return c.store }

// RunRequest configures a single evolution run over one dataset.
type RunRequest struct {
	RunID       string
	DatasetPath string
	// Topology is one of grid, barabasi-albert, watts-strogatz, erdos-renyi,
	// layered-dag, multiple-in-and-out, complete. Empty means grid.
	Topology       string
	PopulationSize int
	Generations    int
	Seed           int64
	Workers        int
	Minimize       *bool

	Operators       []string
	MaxDepth        int
	MaxSize         int
	CrossoverProb   float64
	MutationProb    float64
	MaxPhenotypeAge int

	SnapshotFinalPopulation bool
}

// RunSummary is what a finished run reports back.
type RunSummary struct {
	RunID            string
	Dataset          string
	Topology         string
	Generations      int
	BestFitness      float64
	BestExpression   string
	BestByGeneration []float64
}

// Run executes one cellular run and archives its results.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if req.DatasetPath == "" {
		return RunSummary{}, fmt.Errorf("dataset path is required")
	}
	ds, err := dataset.Load(req.DatasetPath)
	if err != nil {
		return RunSummary{}, err
	}
	applyRunDefaults(&req)

	problem, err := NewProblem(ds, req.Operators, req.MaxDepth, req.MaxSize)
	if err != nil {
		return RunSummary{}, err
	}
	graph, err := BuildTopology(req.Topology, req.PopulationSize, req.Seed)
	if err != nil {
		return RunSummary{}, err
	}
	engine, err := newEngine(problem, graph, req)
	if err != nil {
		return RunSummary{}, err
	}

	runID := req.RunID
	if runID == "" {
		runID = fmt.Sprintf("run-%s-%s-s%d", ds.Name, graph.Name(), req.Seed)
	}

	outcome, err := drain(ctx, engine, req.Generations)
	if err != nil {
		return RunSummary{}, err
	}

	if err := c.archive(ctx, runID, ds.Name, graph, req, outcome); err != nil {
		return RunSummary{}, err
	}

	return RunSummary{
		RunID:            runID,
		Dataset:          ds.Name,
		Topology:         graph.Name(),
		Generations:      req.Generations,
		BestFitness:      outcome.bestFitness,
		BestExpression:   outcome.bestExpression,
		BestByGeneration: outcome.history,
	}, nil
}

// runOutcome carries everything a drained stream produced.
type runOutcome struct {
	bestFitness     float64
	bestExpression  string
	history         []float64
	diagnostics     []model.GenerationDiagnostics
	finalPopulation []evo.Phenotype
	finalGeneration int
}

// drain runs the stream to its generation limit, recording history and
// diagnostics on the way.
func drain(ctx context.Context, engine *cellular.Engine, generations int) (runOutcome, error) {
	outcome := runOutcome{bestFitness: math.Inf(1)}
	optimize := engine.Optimize()

	stream := engine.Stream(nil).Limit(generations)
	bestSet := false
	for {
		result, ok, err := stream.Next(ctx)
		if err != nil {
			return runOutcome{}, err
		}
		if !ok {
			break
		}
		best, hasBest := result.BestPhenotype()
		if hasBest {
			outcome.history = append(outcome.history, best.Fitness())
			if !bestSet || optimize.Prefers(best.Fitness(), outcome.bestFitness) {
				outcome.bestFitness = best.Fitness()
				outcome.bestExpression = best.Tree.String()
				bestSet = true
			}
		}
		outcome.diagnostics = append(outcome.diagnostics, diagnose(result))
		outcome.finalPopulation = result.Population
		outcome.finalGeneration = result.Generation
	}
	if !bestSet {
		return runOutcome{}, fmt.Errorf("run produced no evaluated phenotype")
	}
	return outcome, nil
}

func diagnose(r cellular.EvolutionResult) model.GenerationDiagnostics {
	d := model.GenerationDiagnostics{
		Generation:   r.Generation,
		KillCount:    r.KillCount,
		InvalidCount: r.InvalidCount,
		AlterCount:   r.AlterCount,
		DurationMS:   r.Duration.Milliseconds(),
		BestFitness:  math.Inf(1),
		WorstFitness: math.Inf(-1),
	}
	var sum float64
	seen, finite := 0, 0
	for _, p := range r.Population {
		if !p.IsEvaluated() {
			continue
		}
		f := p.Fitness()
		if seen == 0 {
			d.BestFitness = f
			d.WorstFitness = f
		} else {
			if r.Optimize.Prefers(f, d.BestFitness) {
				d.BestFitness = f
			}
			if r.Optimize.Prefers(d.WorstFitness, f) {
				d.WorstFitness = f
			}
		}
		seen++
		if !math.IsInf(f, 0) && !math.IsNaN(f) {
			sum += f
			finite++
		}
	}
	if finite > 0 {
		d.MeanFitness = sum / float64(finite)
	}
	return d
}

func (c *Client) archive(ctx context.Context, runID, datasetName string, graph *topology.GraphMap, req RunRequest, outcome runOutcome) error {
	run := model.RunRecord{
		VersionedRecord: storage.Stamp(),
		ID:              runID,
		Dataset:         datasetName,
		Topology:        graph.Name(),
		PopulationSize:  graph.Size(),
		Generations:     req.Generations,
		Seed:            req.Seed,
		BestFitness:     outcome.bestFitness,
		BestExpression:  outcome.bestExpression,
	}
	if err := c.store.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	if err := c.store.SaveFitnessHistory(ctx, runID, outcome.history); err != nil {
		return fmt.Errorf("save fitness history: %w", err)
	}
	if err := c.store.SaveGenerationDiagnostics(ctx, runID, outcome.diagnostics); err != nil {
		return fmt.Errorf("save diagnostics: %w", err)
	}
	if err := c.store.SaveTopPrograms(ctx, runID, topPrograms(outcome.finalPopulation, 10)); err != nil {
		return fmt.Errorf("save top programs: %w", err)
	}
	if req.SnapshotFinalPopulation {
		snapshot := model.PopulationSnapshot{
			VersionedRecord: storage.Stamp(),
			RunID:           runID,
			Generation:      outcome.finalGeneration,
			Programs:        make([]model.ProgramRecord, 0, len(outcome.finalPopulation)),
		}
		for i, p := range outcome.finalPopulation {
			snapshot.Programs = append(snapshot.Programs, model.ProgramRecord{
				Cell:       i,
				Expression: p.Tree.String(),
				Generation: p.Generation,
				Fitness:    p.Fitness(),
			})
		}
		if err := c.store.SavePopulationSnapshot(ctx, snapshot); err != nil {
			return fmt.Errorf("save population snapshot: %w", err)
		}
	}
	return nil
}

func topPrograms(population []evo.Phenotype, limit int) []model.TopProgramRecord {
	evaluated := make([]evo.Phenotype, 0, len(population))
	for _, p := range population {
		if p.IsEvaluated() {
			evaluated = append(evaluated, p)
		}
	}
	sort.SliceStable(evaluated, func(i, j int) bool {
		return evaluated[i].Fitness() < evaluated[j].Fitness()
	})
	if len(evaluated) > limit {
		evaluated = evaluated[:limit]
	}
	top := make([]model.TopProgramRecord, 0, len(evaluated))
	for i, p := range evaluated {
		top = append(top, model.TopProgramRecord{
			Rank:       i + 1,
			Expression: p.Tree.String(),
			Fitness:    p.Fitness(),
		})
	}
	return top
}

func applyRunDefaults(req *RunRequest) {
	if req.Topology == "" {
		req.Topology = defaultTopologyName
	}
	if req.PopulationSize <= 0 {
		req.PopulationSize = defaultPopulationSize
	}
	if req.Generations <= 0 {
		req.Generations = defaultGenerations
	}
	if len(req.Operators) == 0 {
		req.Operators = DefaultOperatorNames
	}
	if req.MaxDepth <= 0 {
		req.MaxDepth = defaultMaxDepth
	}
	if req.MaxSize <= 0 {
		req.MaxSize = defaultMaxSize
	}
	if req.CrossoverProb <= 0 {
		req.CrossoverProb = defaultCrossoverProb
	}
	if req.MutationProb <= 0 {
		req.MutationProb = 1 / float64(req.PopulationSize)
	}
}

// NewProblem builds the symbolic-regression problem for a dataset: the
// named operators, one variable terminal per input column and an ephemeral
// constant drawn uniformly from [0, 10).
func NewProblem(ds dataset.Dataset, operators []string, maxDepth, maxSize int) (*regression.Problem, error) {
	ops, err := op.MustLookup(operators...)
	if err != nil {
		return nil, err
	}
	terminals := make([]op.Op, 0, len(ds.Variables)+1)
	for i, name := range ds.Variables {
		terminals = append(terminals, op.NewVar(name, i))
	}
	terminals = append(terminals, op.NewEphemeral("const", func(r *rand.Rand) float64 {
		return r.Float64() * defaultEphemeralBound
	}))
	return regression.New(ops, terminals, maxDepth, maxSize, ds.Samples)
}

// BuildTopology resolves a topology name with the parameter choices the
// benchmark suite uses. Random generators draw from a sub-stream of the run
// seed so a run is reproducible end to end.
func BuildTopology(name string, n int, seed int64) (*topology.GraphMap, error) {
	graphRng := rng.ForStream(seed, int64(len(name)))
	switch name {
	case "grid":
		return topology.Grid(n)
	case "barabasi-albert":
		return topology.BarabasiAlbert(graphRng, n, 5)
	case "watts-strogatz":
		return topology.WattsStrogatz(graphRng, n, 4, 0.1)
	case "erdos-renyi":
		return topology.ErdosRenyi(graphRng, n, 0.1)
	case "layered-dag":
		layers := 4
		perLayer := (n + layers - 1) / layers
		return topology.LayeredDAG(graphRng, layers, perLayer, 0.3)
	case "multiple-in-and-out":
		return topology.MultipleInAndOut(graphRng, n, 0.3, 0.3, 5)
	case "complete":
		return topology.Complete(n)
	default:
		return nil, fmt.Errorf("unknown topology: %s", name)
	}
}

// TopologyNames lists the benchmark topology set in comparison order.
func TopologyNames() []string {
	return []string{"grid", "barabasi-albert", "multiple-in-and-out", "erdos-renyi", "watts-strogatz"}
}

func newEngine(problem *regression.Problem, graph *topology.GraphMap, req RunRequest) (*cellular.Engine, error) {
	optimize := evo.Minimum
	if req.Minimize != nil && !*req.Minimize {
		optimize = evo.Maximum
	}
	params := problem.TreeParams()
	return cellular.New(cellular.Config{
		Problem:  problem,
		Topology: graph,
		Optimize: optimize,
		Selector: evo.TournamentSelector{Size: defaultTournamentK},
		Alterers: []evo.Alterer{
			evo.SingleNodeCrossover{Probability: req.CrossoverProb},
			evo.SubtreeMutator{
				Probability: req.MutationProb,
				Ops:         params.Ops,
				Terminals:   params.Terminals,
				MaxDepth:    params.MaxDepth,
				Valid:       params.Valid,
			},
		},
		MaxPhenotypeAge: req.MaxPhenotypeAge,
		Workers:         req.Workers,
		Seed:            req.Seed,
	})
}

func minimize() evo.Optimize { return evo.Minimum }

// benchmarkAlterers is the alterer chain the comparison experiment uses:
// heavy crossover, light subtree mutation.
func benchmarkAlterers(problem *regression.Problem, populationSize int) []evo.Alterer {
	params := problem.TreeParams()
	return []evo.Alterer{
		evo.SingleNodeCrossover{Probability: defaultCrossoverProb},
		evo.SubtreeMutator{
			Probability: 1 / float64(populationSize),
			Ops:         params.Ops,
			Terminals:   params.Terminals,
			MaxDepth:    params.MaxDepth,
			Valid:       params.Valid,
		},
	}
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

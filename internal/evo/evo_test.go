package evo

import (
	"context"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"cellgp/internal/op"
	"cellgp/internal/tree"
)

func constPhenotype(value float64, generation int) Phenotype {
	return NewPhenotype(tree.MustNode(op.NewConst(value)), generation)
}

func scored(value, fitness float64) Phenotype {
	return constPhenotype(value, 0).WithFitness(fitness)
}

func TestOptimizePrefers(t *testing.T) {
	if !Minimum.Prefers(1, 2) {
		t.Fatal("minimum must prefer 1 over 2")
	}
	if Minimum.Prefers(2, 2) {
		t.Fatal("equal fitness is never preferred")
	}
	if !Maximum.Prefers(2, 1) {
		t.Fatal("maximum must prefer 2 over 1")
	}
	if Minimum.Prefers(math.NaN(), 1) {
		t.Fatal("NaN must never be preferred")
	}
	if !Minimum.Prefers(1, math.NaN()) {
		t.Fatal("anything beats NaN")
	}
	if !Minimum.Prefers(1, math.Inf(1)) {
		t.Fatal("finite beats +Inf under minimization")
	}
}

func TestPhenotypeLifecycle(t *testing.T) {
	p := constPhenotype(1, 3)
	if p.IsEvaluated() {
		t.Fatal("fresh phenotype must not be evaluated")
	}
	if got := p.Age(10); got != 7 {
		t.Fatalf("age = %d, want 7", got)
	}
	e := p.WithFitness(0.5)
	if !e.IsEvaluated() || e.Fitness() != 0.5 {
		t.Fatal("fitness not stored")
	}
	if p.IsEvaluated() {
		t.Fatal("WithFitness must not mutate the receiver")
	}
}

func TestTournamentSelectorPicksBestOfSample(t *testing.T) {
	pop := []Phenotype{scored(0, 5), scored(1, 1), scored(2, 3)}
	selector := TournamentSelector{Size: len(pop) * 10}
	rng := rand.New(rand.NewSource(42))

	winners, err := selector.Select(rng, pop, 4, Minimum)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(winners) != 4 {
		t.Fatalf("got %d winners, want 4", len(winners))
	}
	// With a tournament much larger than the population the best individual
	// is sampled with near certainty.
	for i, w := range winners {
		if w.Fitness() != 1 {
			t.Fatalf("winner %d has fitness %v, want 1", i, w.Fitness())
		}
	}
}

func TestTournamentSelectorSingleIndividual(t *testing.T) {
	pop := []Phenotype{scored(0, 2)}
	winners, err := TournamentSelector{}.Select(rand.New(rand.NewSource(1)), pop, 2, Minimum)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(winners) != 2 || winners[0].Fitness() != 2 || winners[1].Fitness() != 2 {
		t.Fatal("sole individual must win every tournament")
	}
}

func TestTournamentSelectorValidation(t *testing.T) {
	if _, err := (TournamentSelector{}).Select(nil, []Phenotype{scored(0, 1)}, 1, Minimum); err == nil {
		t.Fatal("expected error for nil rng")
	}
	if _, err := (TournamentSelector{}).Select(rand.New(rand.NewSource(1)), nil, 1, Minimum); err == nil {
		t.Fatal("expected error for empty population")
	}
}

func TestCrossoverZeroProbabilityIsIdentity(t *testing.T) {
	parents := []Phenotype{scored(1, 0.1), scored(2, 0.2)}
	out, count, err := SingleNodeCrossover{Probability: 0}.Alter(rand.New(rand.NewSource(42)), parents, 5)
	if err != nil {
		t.Fatalf("alter: %v", err)
	}
	if count != 0 {
		t.Fatalf("alterations = %d, want 0", count)
	}
	if !reflect.DeepEqual(out, parents) {
		t.Fatal("population changed with probability 0")
	}
}

func TestCrossoverSwapsSubtrees(t *testing.T) {
	a := NewPhenotype(tree.MustNode(op.Add,
		tree.MustNode(op.NewConst(1)), tree.MustNode(op.NewConst(2))), 0)
	b := NewPhenotype(tree.MustNode(op.NewConst(9)), 0)

	out, count, err := SingleNodeCrossover{Probability: 1}.Alter(rand.New(rand.NewSource(42)), []Phenotype{a, b}, 7)
	if err != nil {
		t.Fatalf("alter: %v", err)
	}
	if count != 2 {
		t.Fatalf("alterations = %d, want 2", count)
	}
	for i, child := range out {
		if child.IsEvaluated() {
			t.Fatalf("child %d has a fitness before evaluation", i)
		}
		if child.Generation != 7 {
			t.Fatalf("child %d born at %d, want 7", i, child.Generation)
		}
	}
	// The node count is conserved across a swap.
	total := out[0].Tree.Size() + out[1].Tree.Size()
	if total != 4 {
		t.Fatalf("total size after swap = %d, want 4", total)
	}
	// Parents stay intact.
	if a.Tree.Size() != 3 || b.Tree.Size() != 1 {
		t.Fatal("crossover modified a parent tree")
	}
}

func TestSubtreeMutatorAltersWithProbabilityOne(t *testing.T) {
	params := testTreeParams()
	mutator := SubtreeMutator{
		Probability: 1,
		Ops:         params.Ops,
		Terminals:   params.Terminals,
		MaxDepth:    3,
		Valid:       func(n *tree.Node) bool { return n.Size() < 50 },
	}
	rng := rand.New(rand.NewSource(42))
	genotype, err := tree.Generate(rng, params)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	input := []Phenotype{NewPhenotype(genotype, 0).WithFitness(1)}

	out, count, err := mutator.Alter(rng, input, 3)
	if err != nil {
		t.Fatalf("alter: %v", err)
	}
	if count != 1 {
		t.Fatalf("alterations = %d, want 1", count)
	}
	if out[0].IsEvaluated() {
		t.Fatal("mutated phenotype kept its fitness")
	}
	if out[0].Tree.Depth() > genotype.Depth()+3 {
		t.Fatalf("mutation grew depth to %d", out[0].Tree.Depth())
	}
}

func TestChainAccumulatesCounts(t *testing.T) {
	params := testTreeParams()
	chain := Chain{Alterers: []Alterer{
		SingleNodeCrossover{Probability: 1},
		SubtreeMutator{
			Probability: 1,
			Ops:         params.Ops,
			Terminals:   params.Terminals,
			MaxDepth:    3,
		},
	}}
	rng := rand.New(rand.NewSource(42))
	pop := []Phenotype{
		scored(1, 0.1),
		scored(2, 0.2),
	}
	out, count, err := chain.Alter(rng, pop, 1)
	if err != nil {
		t.Fatalf("chain: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("chain changed population size to %d", len(out))
	}
	// Crossover counts two, mutation two more.
	if count != 4 {
		t.Fatalf("alterations = %d, want 4", count)
	}
}

func TestRetryConstraint(t *testing.T) {
	params := testTreeParams()
	codec := codecFunc(func(rng *rand.Rand) (*tree.Node, error) {
		return tree.Generate(rng, params)
	})
	constraint := RetryConstraint{
		Codec: codec,
		Valid: func(n *tree.Node) bool { return n.Size() < 4 },
	}

	small := constPhenotype(1, 0)
	if !constraint.IsValid(small) {
		t.Fatal("small tree must be valid")
	}
	big := NewPhenotype(tree.MustNode(op.Add,
		tree.MustNode(op.Add, tree.MustNode(op.NewConst(1)), tree.MustNode(op.NewConst(2))),
		tree.MustNode(op.NewConst(3))), 0)
	if constraint.IsValid(big) {
		t.Fatal("oversized tree must be invalid")
	}

	repaired, err := constraint.Repair(rand.New(rand.NewSource(42)), big, 9)
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	if repaired.Generation != 9 {
		t.Fatalf("repaired generation = %d, want 9", repaired.Generation)
	}
	if repaired.IsEvaluated() {
		t.Fatal("repaired phenotype must be unevaluated")
	}
}

func TestEvaluatorFillsMissingFitness(t *testing.T) {
	eval, err := NewEvaluator(func(n *tree.Node) float64 { return n.Eval(nil) }, 4)
	if err != nil {
		t.Fatalf("new evaluator: %v", err)
	}
	pop := []Phenotype{
		constPhenotype(3, 0),
		scored(5, 99), // pre-evaluated: must pass through untouched
		constPhenotype(7, 0),
	}
	out, err := eval.Eval(context.Background(), pop)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("population size changed to %d", len(out))
	}
	if out[0].Fitness() != 3 || out[2].Fitness() != 7 {
		t.Fatal("fitness not computed by index")
	}
	if out[1].Fitness() != 99 {
		t.Fatal("pre-evaluated phenotype was recomputed")
	}

	// Idempotence: evaluating twice changes nothing.
	again, err := eval.Eval(context.Background(), out)
	if err != nil {
		t.Fatalf("eval twice: %v", err)
	}
	if !reflect.DeepEqual(out, again) {
		t.Fatal("evaluation is not idempotent")
	}
}

func TestEvaluatorParallelMatchesSequential(t *testing.T) {
	fitness := func(n *tree.Node) float64 { return n.Eval(nil) * 2 }
	seq, err := NewEvaluator(fitness, 1)
	if err != nil {
		t.Fatalf("new evaluator: %v", err)
	}
	par, err := NewEvaluator(fitness, 8)
	if err != nil {
		t.Fatalf("new evaluator: %v", err)
	}

	pop := make([]Phenotype, 64)
	for i := range pop {
		pop[i] = constPhenotype(float64(i), 0)
	}
	a, err := seq.Eval(context.Background(), pop)
	if err != nil {
		t.Fatalf("sequential eval: %v", err)
	}
	b, err := par.Eval(context.Background(), pop)
	if err != nil {
		t.Fatalf("parallel eval: %v", err)
	}
	for i := range a {
		if a[i].Fitness() != b[i].Fitness() {
			t.Fatalf("worker count changed fitness at %d: %v != %v", i, a[i].Fitness(), b[i].Fitness())
		}
	}
}

func TestBest(t *testing.T) {
	pop := []Phenotype{scored(0, 3), scored(1, 1), scored(2, 2), constPhenotype(9, 0)}
	best, ok := Best(pop, Minimum)
	if !ok || best.Fitness() != 1 {
		t.Fatalf("best = %v ok=%v, want fitness 1", best.Fitness(), ok)
	}
	if _, ok := Best([]Phenotype{constPhenotype(1, 0)}, Minimum); ok {
		t.Fatal("unevaluated population must report no best")
	}
}

type codecFunc func(rng *rand.Rand) (*tree.Node, error)

func (f codecFunc) NewGenotype(rng *rand.Rand) (*tree.Node, error) { return f(rng) }

func testTreeParams() tree.Params {
	return tree.Params{
		Ops:       []op.Op{op.Add, op.Sub, op.Mul},
		Terminals: []op.Op{op.NewVar("x", 0), op.NewConst(1)},
		MaxDepth:  3,
	}
}

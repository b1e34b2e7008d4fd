package cellular

import (
	"context"
	"fmt"

	"cellgp/internal/evo"
)

// Stream is a lazy sequence of generations. Each Next call runs one Evolve
// step; limits decide when the sequence ends. A stream is single-use.
type Stream struct {
	engine *Engine
	next   EvolutionStart
	primed bool

	remaining int // generations left to emit; <0 means unbounded
	while     func(EvolutionResult) bool

	done bool
}

// Stream starts a lazy generation sequence. A nil start means a fresh random
// population at generation 0; a short population is padded to graph size.
func (e *Engine) Stream(start *EvolutionStart) *Stream {
	s := &Stream{engine: e, remaining: -1}
	if start != nil {
		s.next = *start
		s.primed = true
	}
	return s
}

// Limit bounds the stream to at most n further results.
func (s *Stream) Limit(n int) *Stream {
	if s.remaining < 0 || n < s.remaining {
		s.remaining = n
	}
	return s
}

// LimitByFitness keeps the stream alive only while the best fitness has not
// crossed the threshold in the optimize direction. The crossing result is
// still emitted.
func (s *Stream) LimitByFitness(threshold float64) *Stream {
	prev := s.while
	s.while = func(r EvolutionResult) bool {
		if prev != nil && !prev(r) {
			return false
		}
		best, ok := r.BestFitness()
		if !ok {
			return true
		}
		return !(best == threshold || r.Optimize.Prefers(best, threshold))
	}
	return s
}

// Next produces the next evolution result. The boolean is false once the
// stream is exhausted.
func (s *Stream) Next(ctx context.Context) (EvolutionResult, bool, error) {
	if s.done || s.remaining == 0 {
		return EvolutionResult{}, false, nil
	}
	if !s.primed {
		start, err := s.engine.Start(0)
		if err != nil {
			return EvolutionResult{}, false, err
		}
		s.next = start
		s.primed = true
	}
	normalized, err := s.engine.normalize(s.next)
	if err != nil {
		return EvolutionResult{}, false, err
	}

	result, err := s.engine.Evolve(ctx, normalized)
	if err != nil {
		s.done = true
		return EvolutionResult{}, false, err
	}
	s.next = result.Next()
	if s.remaining > 0 {
		s.remaining--
	}
	if s.while != nil && !s.while(result) {
		s.done = true
	}
	return result, true, nil
}

// BestResult drains the stream and returns the result holding the optimal
// phenotype seen across all emitted generations.
func (s *Stream) BestResult(ctx context.Context) (EvolutionResult, error) {
	var best EvolutionResult
	found := false
	for {
		result, ok, err := s.Next(ctx)
		if err != nil {
			return EvolutionResult{}, err
		}
		if !ok {
			break
		}
		if !found {
			best = result
			found = true
			continue
		}
		candidate, okC := result.BestFitness()
		current, okB := best.BestFitness()
		if okC && (!okB || result.Optimize.Prefers(candidate, current)) {
			best = result
		}
	}
	if !found {
		return EvolutionResult{}, fmt.Errorf("stream produced no results")
	}
	return best, nil
}

// BestPhenotype drains the stream and returns only the optimal phenotype.
func (s *Stream) BestPhenotype(ctx context.Context) (evo.Phenotype, error) {
	result, err := s.BestResult(ctx)
	if err != nil {
		return evo.Phenotype{}, err
	}
	best, ok := result.BestPhenotype()
	if !ok {
		return evo.Phenotype{}, fmt.Errorf("no evaluated phenotype in best result")
	}
	return best, nil
}

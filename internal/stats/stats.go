// Package stats aggregates repeated evolution runs into per-topology
// summaries and renders the per-dataset text reports.
package stats

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// RepetitionResult is the outcome of one repeated run over one topology.
type RepetitionResult struct {
	BestFitness    float64   `json:"best_fitness"`
	BestExpression string    `json:"best_expression"`
	BestHistory    []float64 `json:"best_history,omitempty"`
}

// TopologySummary aggregates the repetitions of one topology.
type TopologySummary struct {
	Topology       string  `json:"topology"`
	Repetitions    int     `json:"repetitions"`
	BestFitness    float64 `json:"best_fitness"`
	MeanFitness    float64 `json:"mean_fitness"`
	StddevFitness  float64 `json:"stddev_fitness"`
	BestExpression string  `json:"best_expression"`
}

// Summarize reduces repeated runs to a summary. Non-finite best fitnesses
// are kept out of the mean so one pathological repetition cannot drown the
// aggregate; the best itself is taken over all repetitions.
func Summarize(topology string, results []RepetitionResult) (TopologySummary, error) {
	if len(results) == 0 {
		return TopologySummary{}, fmt.Errorf("no repetitions for topology %s", topology)
	}

	summary := TopologySummary{
		Topology:    topology,
		Repetitions: len(results),
		BestFitness: math.Inf(1),
	}
	finite := make([]float64, 0, len(results))
	for _, r := range results {
		if r.BestFitness < summary.BestFitness {
			summary.BestFitness = r.BestFitness
			summary.BestExpression = r.BestExpression
		}
		if !math.IsInf(r.BestFitness, 0) && !math.IsNaN(r.BestFitness) {
			finite = append(finite, r.BestFitness)
		}
	}
	if len(finite) > 0 {
		summary.MeanFitness = stat.Mean(finite, nil)
		if len(finite) > 1 {
			summary.StddevFitness = stat.StdDev(finite, nil)
		}
	} else {
		summary.MeanFitness = math.Inf(1)
	}
	return summary, nil
}

// ConvergencePoint is the mean best fitness across repetitions at one
// generation.
type ConvergencePoint struct {
	Generation int     `json:"generation"`
	MeanBest   float64 `json:"mean_best"`
}

// BuildConvergencePlot averages per-generation best-fitness histories
// across repetitions. Histories may have different lengths; each generation
// averages over the repetitions that reached it.
func BuildConvergencePlot(histories [][]float64) []ConvergencePoint {
	maxLen := 0
	for _, h := range histories {
		if len(h) > maxLen {
			maxLen = len(h)
		}
	}
	points := make([]ConvergencePoint, 0, maxLen)
	for g := 0; g < maxLen; g++ {
		values := make([]float64, 0, len(histories))
		for _, h := range histories {
			if g < len(h) && !math.IsInf(h[g], 0) && !math.IsNaN(h[g]) {
				values = append(values, h[g])
			}
		}
		if len(values) == 0 {
			continue
		}
		points = append(points, ConvergencePoint{Generation: g + 1, MeanBest: stat.Mean(values, nil)})
	}
	return points
}

// RenderReport formats the per-dataset comparison the benchmark driver
// writes under outputs/: one block per cellular topology and one for the
// panmictic baseline.
func RenderReport(dataset string, summaries []TopologySummary, baseline *TopologySummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dataset: %s\n", dataset)
	for _, s := range summaries {
		b.WriteString("\n\n")
		renderSummary(&b, fmt.Sprintf("Structure: %s", s.Topology), s)
	}
	if baseline != nil {
		b.WriteString("\n\n")
		renderSummary(&b, "Standard GP:", *baseline)
	}
	return b.String()
}

func renderSummary(b *strings.Builder, title string, s TopologySummary) {
	fmt.Fprintf(b, "%s\n\n", title)
	fmt.Fprintf(b, "Best fitness: %.5f\n", s.BestFitness)
	fmt.Fprintf(b, "Average fitness: %.5f\n", s.MeanFitness)
	if s.Repetitions > 1 {
		fmt.Fprintf(b, "Stddev fitness: %.5f\n", s.StddevFitness)
	}
	fmt.Fprintf(b, "Best individual: %s\n", s.BestExpression)
}

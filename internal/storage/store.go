package storage

import (
	"context"

	"cellgp/internal/model"
)

// Store defines persistence operations for run archives: run summaries,
// fitness histories, per-generation diagnostics, population snapshots and
// top-program leaderboards.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveFitnessHistory(ctx context.Context, runID string, history []float64) error
	GetFitnessHistory(ctx context.Context, runID string) ([]float64, bool, error)
	SaveGenerationDiagnostics(ctx context.Context, runID string, diagnostics []model.GenerationDiagnostics) error
	GetGenerationDiagnostics(ctx context.Context, runID string) ([]model.GenerationDiagnostics, bool, error)
	SavePopulationSnapshot(ctx context.Context, snapshot model.PopulationSnapshot) error
	GetPopulationSnapshot(ctx context.Context, runID string, generation int) (model.PopulationSnapshot, bool, error)
	SaveTopPrograms(ctx context.Context, runID string, top []model.TopProgramRecord) error
	GetTopPrograms(ctx context.Context, runID string) ([]model.TopProgramRecord, bool, error)
}

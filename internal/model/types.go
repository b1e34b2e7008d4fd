package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunRecord is the durable summary of one evolution run.
type RunRecord struct {
	VersionedRecord
	ID             string  `json:"id"`
	Dataset        string  `json:"dataset"`
	Topology       string  `json:"topology"`
	PopulationSize int     `json:"population_size"`
	Generations    int     `json:"generations"`
	Seed           int64   `json:"seed"`
	BestFitness    float64 `json:"best_fitness"`
	BestExpression string  `json:"best_expression"`
}

// GenerationDiagnostics records the per-generation counters and fitness
// spread the stream driver exposes for telemetry.
type GenerationDiagnostics struct {
	Generation   int     `json:"generation"`
	BestFitness  float64 `json:"best_fitness"`
	MeanFitness  float64 `json:"mean_fitness"`
	WorstFitness float64 `json:"worst_fitness"`
	KillCount    int     `json:"kill_count"`
	InvalidCount int     `json:"invalid_count"`
	AlterCount   int     `json:"alter_count"`
	DurationMS   int64   `json:"duration_ms"`
}

// ProgramRecord is one individual in a population snapshot: the cell it
// occupies, its rendered expression and its score.
type ProgramRecord struct {
	Cell       int     `json:"cell"`
	Expression string  `json:"expression"`
	Generation int     `json:"generation"`
	Fitness    float64 `json:"fitness"`
}

// PopulationSnapshot is the serialized state of one generation's population,
// index-aligned with the topology.
type PopulationSnapshot struct {
	VersionedRecord
	RunID      string          `json:"run_id"`
	Generation int             `json:"generation"`
	Programs   []ProgramRecord `json:"programs"`
}

// TopProgramRecord is one entry of a run's best-programs leaderboard.
type TopProgramRecord struct {
	Rank       int     `json:"rank"`
	Expression string  `json:"expression"`
	Fitness    float64 `json:"fitness"`
}

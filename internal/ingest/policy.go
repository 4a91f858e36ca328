package ingest

import (
	"ownership/internal/config"
	"ownership/internal/index"
	"ownership/internal/matching"
)

// PolicyFromConfig maps the [matching] section onto an engine policy.
func PolicyFromConfig(cfg *config.Config) matching.Policy {
	if cfg == nil {
		return matching.DefaultPolicy()
	}
	return matching.Policy{
		MaxDistance:         cfg.Matching.MaxDistance,
		DuplicateConfidence: cfg.Matching.DuplicateConfidence,
		ConfidenceScale:     cfg.Matching.ConfidenceScale,
		BatchWorkers:        cfg.Matching.BatchWorkers,
	}
}

// NewEngine builds an empty index and engine configured from cfg.
func NewEngine(cfg *config.Config) *matching.Engine {
	bands := 0
	if cfg != nil {
		bands = cfg.Matching.IndexBands
	}
	return matching.NewEngine(index.New(index.Options{Bands: bands}), PolicyFromConfig(cfg))
}

// OptionsFromConfig derives pipeline options from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		return Options{}
	}
	return Options{
		MaxContentBytes: cfg.Matching.MaxContentBytes,
		DefaultOwner:    cfg.Ownership.DefaultOwner,
		ProcessedDir:    cfg.ProcessedDir(),
		RejectedDir:     cfg.RejectedDir(),
	}
}

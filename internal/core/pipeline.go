package core

import (
	"fmt"
	"log/slog"
	"regexp"
	"time"
)

// Pipeline runs one match from tables to an assembled Result.
// A Pipeline holds no per-run state and may be reused.
type Pipeline struct {
	cfg    MatchConfig
	ward   *regexp.Regexp
	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for stage counts and warnings.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPipeline creates a Pipeline for cfg.
// Returns an error if the ward pattern does not compile.
func NewPipeline(cfg MatchConfig, opts ...Option) (*Pipeline, error) {
	ward, err := cfg.wardRegexp()
	if err != nil {
		return nil, err
	}
	p := &Pipeline{cfg: cfg, ward: ward, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Config returns the configuration the pipeline was built with.
func (p *Pipeline) Config() MatchConfig {
	return p.cfg
}

// Run validates the configured columns, joins and classifies every culture
// event, merges auxiliary attributes and assembles the result.
//
// A missing column stops the run with a *ColumnError before any output is
// produced. Auxiliary data problems are reported in Result.Warnings.
func (p *Pipeline) Run(in Inputs) (*Result, error) {
	start := time.Now()

	if err := p.cfg.Validate(in); err != nil {
		return nil, fmt.Errorf("match config: %w", err)
	}

	episodes, err := LoadEpisodes(in.Episodes, p.cfg.Episodes)
	if err != nil {
		return nil, err
	}
	events, err := LoadEvents(in.Cultures, p.cfg.Cultures)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("tables loaded",
		"episodes", len(episodes),
		"events", len(events),
		"strategy", p.cfg.Strategy.String(),
	)

	cands := p.cfg.Strategy.Join(events, episodes)
	var ward *regexp.Regexp
	if p.cfg.Cultures.Ward != "" {
		ward = p.ward
	}
	records := SelectBest(cands, len(events), ward)
	p.logger.Debug("events classified", "candidates", len(cands), "records", len(records))

	enriched := NewEnricher(p.cfg, p.logger).Apply(records, in)

	trackOrganism := p.cfg.Cultures.Organism != ""
	res := &Result{
		Records:         Assemble(enriched.Records, trackOrganism),
		Warnings:        enriched.Warnings,
		TrackOrganism:   trackOrganism,
		TrackWard:       p.cfg.Cultures.Ward != "",
		TrackName:       enriched.HasName,
		TrackSex:        enriched.HasSex,
		TrackBirth:      enriched.HasBirth,
		RegistryChecked: enriched.HasRegistry,
	}

	counts := res.Counts()
	p.logger.Info("match completed",
		"records", len(res.Records),
		"matched", counts[Matched],
		"needs_ward_check", counts[NeedsWardCheck],
		"before_window", counts[BeforeWindow],
		"after_window", counts[AfterWindow],
		"unresolved", counts[Unresolved],
		"warnings", len(res.Warnings),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/finops-tools/staffload/internal/loader"
	"github.com/finops-tools/staffload/internal/roster"
	"github.com/finops-tools/staffload/internal/sheet"
	"github.com/finops-tools/staffload/internal/storage"
)

type (
	// RunRecorder keeps the load run audit log. *storage.RunStore satisfies it.
	RunRecorder interface {
		Start(ctx context.Context, sourcePath, checksum string) (*storage.Run, error)
		Finish(ctx context.Context, run *storage.Run) error
	}

	// PublisherFactory creates the event publisher for one run. A publisher
	// that implements io.Closer is closed when the run ends.
	PublisherFactory func(runID string) (loader.Publisher, error)

	// LoadDeps are the collaborators of the load stage. Only Store is required.
	LoadDeps struct {
		Store      loader.Store
		Runs       RunRecorder
		Publishers PublisherFactory
	}

	// LoadResult is the outcome of the load stage.
	LoadResult struct {
		Run    *storage.Run // nil when no RunRecorder is configured
		Report *loader.Report
	}

	// Pipeline runs the dedup and load stages.
	Pipeline struct {
		cfg     *Config
		mapping *roster.Mapping
		logger  *slog.Logger
	}
)

// New creates a pipeline. A nil mapping selects roster.DefaultMapping().
func New(cfg *Config, mapping *roster.Mapping, logger *slog.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if mapping == nil {
		mapping = roster.DefaultMapping()
	}

	if err := mapping.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{cfg: cfg, mapping: mapping, logger: logger}, nil
}

// Dedup reads the input workbook, drops duplicate rows and writes the
// remaining rows to the output workbook.
func (p *Pipeline) Dedup() (*roster.DedupResult, error) {
	src, err := sheet.Read(p.cfg.InputPath)
	if err != nil {
		return nil, err
	}

	result, err := roster.DeduplicateSheet(src, p.mapping)
	if err != nil {
		return nil, fmt.Errorf("failed to deduplicate %s: %w", p.cfg.InputPath, err)
	}

	out := &sheet.Sheet{Name: sheet.DefaultOutputSheet, Rows: result.All()}
	if err := sheet.Write(p.cfg.OutputPath, out); err != nil {
		return nil, err
	}

	p.logger.Info("Distinct data saved",
		slog.String("input_path", p.cfg.InputPath),
		slog.String("output_path", p.cfg.OutputPath),
		slog.Int("kept", len(result.Rows)),
		slog.Int("dropped", result.Dropped),
	)

	return result, nil
}

// Load reads the deduplicated workbook and loads its data rows into the store.
// The returned result carries the partial report when the run stops early.
func (p *Pipeline) Load(ctx context.Context, deps LoadDeps) (*LoadResult, error) {
	src, err := sheet.Read(p.cfg.OutputPath)
	if err != nil {
		return nil, err
	}

	rows := src.Rows[min(p.mapping.HeaderRows, len(src.Rows)):]
	result := &LoadResult{}
	logger := p.logger
	runID := ""

	if deps.Runs != nil {
		checksum, err := storage.FileChecksum(p.cfg.OutputPath)
		if err != nil {
			return nil, err
		}

		result.Run, err = deps.Runs.Start(ctx, p.cfg.OutputPath, checksum)
		if err != nil {
			return nil, err
		}

		runID = result.Run.ID.String()
		logger = logger.With(slog.String("run_id", runID))
	}

	opts := []loader.Option{
		loader.WithLogger(logger),
		loader.WithStrictIdentifiers(p.cfg.StrictIdentifiers),
	}

	if p.cfg.InsertsPerSecond > 0 {
		opts = append(opts, loader.WithLimiter(rate.NewLimiter(rate.Limit(p.cfg.InsertsPerSecond), 1)))
	}

	if deps.Publishers != nil {
		publisher, err := deps.Publishers(runID)
		if err != nil {
			return nil, err
		}

		if closer, ok := publisher.(io.Closer); ok {
			defer func() {
				if err := closer.Close(); err != nil {
					logger.Warn("Failed to close event publisher", slog.String("error", err.Error()))
				}
			}()
		}

		opts = append(opts, loader.WithPublisher(publisher))
	}

	l, err := loader.New(deps.Store, p.mapping, opts...)
	if err != nil {
		return nil, err
	}

	logger.Info("Loading employees",
		slog.String("source_path", p.cfg.OutputPath),
		slog.Int("rows", len(rows)),
		slog.Bool("strict_identifiers", p.cfg.StrictIdentifiers),
	)

	report, loadErr := l.Load(ctx, rows)
	result.Report = report

	if result.Run != nil {
		result.Run.RowsRead = len(report.Outcomes)
		result.Run.Persisted = report.Persisted
		result.Run.Skipped = report.Skipped
		result.Run.Failed = report.Failed

		if err := deps.Runs.Finish(ctx, result.Run); err != nil {
			loadErr = errors.Join(loadErr, err)
		}
	}

	return result, loadErr
}

// Run deduplicates the input workbook and loads the result.
func (p *Pipeline) Run(ctx context.Context, deps LoadDeps) (*roster.DedupResult, *LoadResult, error) {
	dedup, err := p.Dedup()
	if err != nil {
		return nil, nil, err
	}

	load, err := p.Load(ctx, deps)

	return dedup, load, err
}

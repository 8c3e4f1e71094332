package loader

import (
	"context"
	"errors"
	"log/slog"

	"github.com/finops-tools/staffload/internal/roster"
	"github.com/finops-tools/staffload/internal/sheet"
)

type (
	// Loader persists records one at a time, in input order.
	Loader struct {
		store             Store
		mapping           *roster.Mapping
		logger            *slog.Logger
		publisher         Publisher
		limiter           Limiter
		strictIdentifiers bool
	}

	// Option configures optional Loader behavior.
	Option func(*Loader)
)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithPublisher announces every persisted employee. Publishing failures are
// logged and do not change the record outcome.
func WithPublisher(p Publisher) Option {
	return func(l *Loader) {
		l.publisher = p
	}
}

// WithLimiter paces inserts.
func WithLimiter(limiter Limiter) Option {
	return func(l *Loader) {
		l.limiter = limiter
	}
}

// WithStrictIdentifiers also checks the base identifier of a new name pair
// against the identifier column.
func WithStrictIdentifiers(strict bool) Option {
	return func(l *Loader) {
		l.strictIdentifiers = strict
	}
}

// New creates a Loader. A nil mapping selects roster.DefaultMapping().
func New(store Store, mapping *roster.Mapping, opts ...Option) (*Loader, error) {
	if store == nil {
		return nil, ErrNilStore
	}

	if mapping == nil {
		mapping = roster.DefaultMapping()
	}

	l := &Loader{
		store:   store,
		mapping: mapping,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

// Load processes data rows in order. Skipped and failed records are reported
// and the run continues; a store read failure stops the run and is returned
// along with the partial report.
func (l *Loader) Load(ctx context.Context, rows []sheet.Row) (*Report, error) {
	report := &Report{Outcomes: make([]*Outcome, 0, len(rows))}

	for _, row := range rows {
		outcome, err := l.AssignAndPersist(ctx, row)
		report.add(outcome)

		if err != nil {
			return report, err
		}
	}

	l.logger.Info("Employee load complete",
		slog.Int("rows", len(rows)),
		slog.Int("persisted", report.Persisted),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed),
		slog.Int("truncated", report.Truncated),
	)

	return report, nil
}

// AssignAndPersist drives one row through the record lifecycle. The returned
// error is non-nil only for failures that must stop the run.
func (l *Loader) AssignAndPersist(ctx context.Context, row sheet.Row) (*Outcome, error) {
	outcome := &Outcome{Row: row.Index, State: StatePending}

	record, err := roster.ParseRecord(row, l.mapping)
	if err != nil {
		outcome.State = StateSkipped
		outcome.Err = err

		l.logger.Warn("Skipping row with invalid field",
			slog.Int("row", row.Index),
			slog.String("error", err.Error()),
		)

		return outcome, nil
	}

	outcome.State = StateValidated

	if position, truncated := roster.TruncateJobPosition(record.JobPosition); truncated {
		record.JobPosition = position
		outcome.Truncated = true

		l.logger.Warn("Truncating job_position",
			slog.Int("row", row.Index),
			slog.Int("max_length", roster.MaxJobPositionLength),
		)
	}

	uniqueID, err := l.AssignIdentifier(ctx, record.FirstName, record.LastName)
	if err != nil {
		outcome.State = StateFailed
		outcome.Err = err

		return outcome, err
	}

	outcome.State = StateIdentifierAssigned
	outcome.Employee = &Employee{Record: *record, UniqueID: uniqueID}

	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			outcome.State = StateFailed
			outcome.Err = err

			return outcome, err
		}
	}

	if err := l.store.Insert(ctx, outcome.Employee); err != nil {
		outcome.State = StateFailed
		outcome.Err = &WriteError{UniqueID: uniqueID, Err: err}

		l.logger.Error("Insert rejected, continuing with next row",
			slog.Int("row", row.Index),
			slog.String("unique_id", uniqueID),
			slog.String("error", err.Error()),
		)

		return outcome, nil
	}

	outcome.State = StatePersisted

	l.logger.Debug("Employee persisted",
		slog.Int("row", row.Index),
		slog.String("unique_id", uniqueID),
	)

	if l.publisher != nil {
		if err := l.publisher.Publish(ctx, outcome.Employee); err != nil && !errors.Is(err, context.Canceled) {
			l.logger.Warn("Failed to publish employee event",
				slog.String("unique_id", uniqueID),
				slog.String("error", err.Error()),
			)
		}
	}

	return outcome, nil
}

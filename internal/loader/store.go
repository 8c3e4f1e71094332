// Package loader assigns unique identifiers to deduplicated employee records
// and persists them.
//
// This package defines the Store interface which represents what the loader
// needs from persistence. Concrete implementations (PostgreSQL, SQLite) live
// in the internal/storage package.
package loader

import (
	"context"

	"github.com/finops-tools/staffload/internal/roster"
)

type (
	// Employee is a record together with its generated identifier.
	Employee struct {
		roster.Record
		UniqueID string
	}

	// Store is the persistent employee table.
	//
	// Every method is a single query. The loader assumes it is the only writer
	// for the duration of a run: the existence checks and the insert are not
	// atomic with respect to other writers.
	Store interface {
		// NameExists reports whether a row with exactly this first and last name exists.
		NameExists(ctx context.Context, firstName, lastName string) (bool, error)

		// IdentifierExists reports whether a row already uses uniqueID.
		IdentifierExists(ctx context.Context, uniqueID string) (bool, error)

		// Insert writes one row. Constraint violations are returned as errors.
		Insert(ctx context.Context, employee *Employee) error
	}

	// Publisher announces persisted employees to downstream consumers.
	Publisher interface {
		Publish(ctx context.Context, employee *Employee) error
	}

	// Limiter paces inserts. *rate.Limiter satisfies it.
	Limiter interface {
		Wait(ctx context.Context) error
	}
)

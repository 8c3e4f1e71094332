package loader

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// BaseIdentifier is the lower-cased concatenation of first and last name.
func BaseIdentifier(firstName, lastName string) string {
	return strings.ToLower(firstName + lastName)
}

// AssignIdentifier computes the identifier for a name pair.
//
// A name pair that is not yet in the store gets the base identifier as-is.
// In strict mode the base identifier is additionally checked against the
// identifier column and falls through to suffixing when taken. A name pair
// that already exists gets the lowest free suffix starting at 1.
func (l *Loader) AssignIdentifier(ctx context.Context, firstName, lastName string) (string, error) {
	exists, err := l.store.NameExists(ctx, firstName, lastName)
	if err != nil {
		return "", fmt.Errorf("%w: name lookup: %w", ErrStoreUnavailable, err)
	}

	base := BaseIdentifier(firstName, lastName)

	if !exists {
		if !l.strictIdentifiers {
			return base, nil
		}

		taken, err := l.store.IdentifierExists(ctx, base)
		if err != nil {
			return "", fmt.Errorf("%w: identifier lookup: %w", ErrStoreUnavailable, err)
		}

		if !taken {
			return base, nil
		}
	}

	return l.nextFreeIdentifier(ctx, base)
}

// nextFreeIdentifier probes base1, base2, ... until the store reports a free one.
// The loop is bounded only by the number of rows in the store.
func (l *Loader) nextFreeIdentifier(ctx context.Context, base string) (string, error) {
	for n := 1; ; n++ {
		candidate := base + strconv.Itoa(n)

		taken, err := l.store.IdentifierExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("%w: identifier lookup: %w", ErrStoreUnavailable, err)
		}

		if !taken {
			return candidate, nil
		}
	}
}

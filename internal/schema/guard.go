package schema

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/booky/lending/internal/db"
)

// Known collection names. The probe interpolates the collection into SQL,
// so only names from this set are ever probed.
const (
	CollectionLoans     = "loans"
	CollectionBorrowers = "borrowers"
)

var knownCollections = map[string]struct{}{
	CollectionLoans:     {},
	CollectionBorrowers: {},
}

// ProbeFunc performs a minimal read against a collection and reports the
// typed outcome.
type ProbeFunc func(ctx context.Context, name string) db.Kind

// Guard answers whether a collection is currently queryable. It never
// caches: store topology can change mid-session, e.g. when a migration
// completes after an import, so every call re-probes.
type Guard struct {
	probe ProbeFunc
}

func NewGuard(handle *sqlx.DB) *Guard {
	return &Guard{probe: func(ctx context.Context, name string) db.Kind {
		var n int64
		err := handle.GetContext(ctx, &n, fmt.Sprintf(`SELECT COUNT(*) FROM "%s"`, name))
		return db.Classify(err)
	}}
}

// NewGuardWithProbe wires a custom prober, used by tests to exercise
// every failure kind without a real store.
func NewGuardWithProbe(probe ProbeFunc) *Guard {
	return &Guard{probe: probe}
}

// EnsureCollection reports true only when a probe of the named collection
// completes cleanly. Every failure kind maps to false: callers treat the
// feature as unavailable uniformly rather than distinguishing a missing
// table from a closed or full store.
func (g *Guard) EnsureCollection(ctx context.Context, name string) bool {
	if _, ok := knownCollections[name]; !ok {
		return false
	}
	return g.probe(ctx, name) == db.KindOK
}

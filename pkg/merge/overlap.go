package merge

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/jdfmerge/jdfmerge/pkg/jdf"
	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/exp/maps"
)

// ResolveOverlaps enforces disjoint validity intervals between the
// variants of every license number, by truncation, deletion or
// duplication. Run it exactly once, after the last Add.
//
// No license number's routes reference another's, so groups are resolved
// concurrently.
func (engine *Engine) ResolveOverlaps() error {
	engine.resolved = true

	var deletions, truncations, splits uint64

	licenses := maps.Keys(engine.store.routes)
	sort.Strings(licenses)

	workers := pool.New().WithErrors()

	for _, license := range licenses {
		group := &licenseGroup{
			license: license,
			routes:  engine.store.routes[license],
			deps:    engine.store.dependents(license),
			dates:   map[int]jdf.Date{},

			deletions:   &deletions,
			truncations: &truncations,
			splits:      &splits,
		}

		for distinction := range group.routes {
			group.dates[distinction] = engine.routeDates[RouteKey{LicenseNumber: license, Distinction: distinction}]
			if distinction > group.nextDistinction {
				group.nextDistinction = distinction
			}
		}

		workers.Go(group.resolve)
	}

	if err := workers.Wait(); err != nil {
		return err
	}

	log.Info().
		Uint64("deleted", deletions).
		Uint64("truncated", truncations).
		Uint64("split", splits).
		Msg("Resolved route overlaps")

	return nil
}

// licenseGroup is the per-license arena the resolver works on. Routes
// are always re-fetched from the arena by distinction before a
// comparison - earlier steps of the same pass may have truncated,
// deleted or replaced them, so a copy held across iterations is stale.
type licenseGroup struct {
	license string
	routes  map[int]*jdf.Route
	deps    *routeDependents
	dates   map[int]jdf.Date

	nextDistinction int

	deletions   *uint64
	truncations *uint64
	splits      *uint64
}

func (group *licenseGroup) resolve() error {
	handled := map[int]bool{}

	for {
		r2dist, ok := group.nextUnhandled(handled)
		if !ok {
			return nil
		}
		handled[r2dist] = true

		// Compare against every lower variant that still exists. The
		// distinction list is snapshotted but each route is looked up
		// fresh on every step.
		distinctions := maps.Keys(group.routes)
		sort.Ints(distinctions)

		for _, r1dist := range distinctions {
			if r1dist >= r2dist {
				break
			}

			r1 := group.routes[r1dist]
			if r1 == nil {
				continue
			}

			r2 := group.routes[r2dist]
			if r2 == nil {
				break
			}

			if err := group.resolvePair(r1, r2); err != nil {
				return err
			}
		}
	}
}

func (group *licenseGroup) nextUnhandled(handled map[int]bool) (int, bool) {
	distinctions := maps.Keys(group.routes)
	sort.Ints(distinctions)

	for _, distinction := range distinctions {
		if !handled[distinction] {
			return distinction, true
		}
	}

	return 0, false
}

// resolvePair classifies the validity intervals of two variants and
// applies exactly one resolution. Every pairwise configuration is covered:
// shapes where r2 opens first or contains r1 reduce to the mirrored call.
func (group *licenseGroup) resolvePair(r1 *jdf.Route, r2 *jdf.Route) error {
	from1, to1 := r1.ValidFrom, r1.ValidTo
	from2, to2 := r2.ValidFrom, r2.ValidTo

	switch {
	case to1.Before(from2) || to2.Before(from1):
		// disjoint

	case from1.Equal(from2) && to1.Equal(to2):
		if group.hasPriority(r1, r2) {
			group.remove(r2)
		} else {
			group.remove(r1)
		}

	case from1.Equal(from2):
		// one interval is a prefix of the other
		shorter, longer := r1, r2
		if to2.Before(to1) {
			shorter, longer = r2, r1
		}

		if group.hasPriority(longer, shorter) {
			group.remove(shorter)
		} else {
			group.truncateStart(longer, shorter.ValidTo.AddDays(1))
		}

	case to1.Equal(to2):
		// suffix, the mirror of the prefix case
		shorter, longer := r1, r2
		if from1.Before(from2) {
			shorter, longer = r2, r1
		}

		if group.hasPriority(longer, shorter) {
			group.remove(shorter)
		} else {
			group.truncateEnd(longer, shorter.ValidFrom.AddDays(-1))
		}

	case from1.Before(from2) && to1.Before(to2):
		// staggered, r1 opens and closes first
		if group.hasPriority(r1, r2) {
			group.truncateStart(r2, to1.AddDays(1))
		} else {
			group.truncateEnd(r1, from2.AddDays(-1))
		}

	case from1.Before(from2) && to2.Before(to1):
		// full containment
		if group.hasPriority(r1, r2) {
			group.remove(r2)
		} else if err := group.split(r1, r2); err != nil {
			return err
		}

	default:
		return group.resolvePair(r2, r1)
	}

	return nil
}

// hasPriority decides who survives a conflict. A detour variant outranks
// a regular one unless the regular variant's batch is strictly newer;
// with equal detour status the newer batch wins; a full tie falls back to
// insertion order.
func (group *licenseGroup) hasPriority(a *jdf.Route, b *jdf.Route) bool {
	dateA := group.dates[a.Distinction]
	dateB := group.dates[b.Distinction]

	if a.Detour != b.Detour {
		if a.Detour {
			return !dateB.After(dateA)
		}
		return dateA.After(dateB)
	}

	if !dateA.Equal(dateB) {
		return dateA.After(dateB)
	}

	return a.Distinction < b.Distinction
}

func (group *licenseGroup) remove(route *jdf.Route) {
	log.Debug().
		Str("license", group.license).
		Int("distinction", route.Distinction).
		Msg("Deleting route variant")

	delete(group.routes, route.Distinction)
	delete(group.dates, route.Distinction)
	group.deps.remove(route.Distinction)

	atomic.AddUint64(group.deletions, 1)
}

func (group *licenseGroup) truncateStart(route *jdf.Route, from jdf.Date) {
	route.ValidFrom = from
	atomic.AddUint64(group.truncations, 1)
}

func (group *licenseGroup) truncateEnd(route *jdf.Route, to jdf.Date) {
	route.ValidTo = to
	atomic.AddUint64(group.truncations, 1)
}

// split cuts a containing variant around a contained higher-priority one:
// the original keeps the days before, a deep copy under a fresh
// distinction keeps the days after. Total day coverage is preserved.
func (group *licenseGroup) split(outer *jdf.Route, inner *jdf.Route) error {
	group.nextDistinction += 1
	distinction := group.nextDistinction

	duplicate := &jdf.Route{}
	err := copier.CopyWithOption(duplicate, outer, copier.Option{DeepCopy: true})
	if err != nil {
		return fmt.Errorf("splitting route %s/%d: %w", group.license, outer.Distinction, err)
	}

	duplicate.Distinction = distinction
	duplicate.ValidFrom = inner.ValidTo.AddDays(1)
	duplicate.ValidTo = outer.ValidTo

	outer.ValidTo = inner.ValidFrom.AddDays(-1)

	group.routes[distinction] = duplicate
	group.dates[distinction] = group.dates[outer.Distinction]

	if err := group.deps.duplicate(outer.Distinction, distinction); err != nil {
		return err
	}

	log.Debug().
		Str("license", group.license).
		Int("distinction", outer.Distinction).
		Int("duplicate", distinction).
		Msg("Split route variant")

	atomic.AddUint64(group.splits, 1)
	return nil
}

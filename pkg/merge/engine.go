package merge

import (
	"errors"
	"fmt"

	"github.com/jdfmerge/jdfmerge/pkg/jdf"
	"github.com/rs/zerolog/log"
)

// ErrContractViolation marks a batch whose records reference keys missing
// from the batch's own primary tables. That is a bug in whatever produced
// the batch, not a data-quality condition, so Add fails outright instead
// of repairing. Engine state is unreliable after a failed Add - retry a
// fixed batch on a fresh engine.
var ErrContractViolation = errors.New("batch violates producer contract")

const DefaultLocationDistanceWarn = 1000

type Options struct {
	// LocationDistanceWarn is the distance in metres beyond which two
	// stop-precise locations claimed for the same stop are reported
	LocationDistanceWarn float64
}

// RouteKey identifies one route variant across the accumulated dataset
type RouteKey struct {
	LicenseNumber string
	Distinction   int
}

// AgencyKey identifies one agency under its external company number
type AgencyKey struct {
	ICO         string
	Distinction int
}

type attributeKey struct {
	Value    string
	Reserved string
}

type stopPostKey struct {
	StopID int
	PostID int
}

// Engine consolidates independently produced timetable batches into one
// dataset. It deduplicates stops, agencies and attribute codes on their
// natural identities, assigns stable surrogate identifiers, rewrites
// every foreign key of dependent records through the resulting maps and
// accumulates the rewritten records.
//
// The engine is single-writer: Add each batch in turn, then
// ResolveOverlaps once, then Snapshot. It holds no global state so
// independent merge runs never interfere.
type Engine struct {
	options Options

	attributeCodes map[attributeKey]int
	attributeSeq   int

	stopIDs   map[[5]string]int
	stopsByID map[int]*jdf.Stop
	stopSeq   int

	stopPosts map[stopPostKey]bool

	agencyByName map[string]AgencyKey
	agencyCount  map[string]int

	routeCount map[string]int
	routeDates map[RouteKey]jdf.Date

	store *store

	batches  int
	resolved bool
}

func New(options Options) *Engine {
	if options.LocationDistanceWarn == 0 {
		options.LocationDistanceWarn = DefaultLocationDistanceWarn
	}

	return &Engine{
		options: options,

		attributeCodes: map[attributeKey]int{},
		stopIDs:        map[[5]string]int{},
		stopsByID:      map[int]*jdf.Stop{},
		stopPosts:      map[stopPostKey]bool{},
		agencyByName:   map[string]AgencyKey{},
		agencyCount:    map[string]int{},
		routeCount:     map[string]int{},
		routeDates:     map[RouteKey]jdf.Date{},

		store: newStore(),
	}
}

// Add merges one batch into the accumulated dataset. Batches are order
// sensitive: when source dates tie, the overlap resolver falls back to
// insertion order.
func (engine *Engine) Add(batch *jdf.Batch) error {
	if engine.resolved {
		return errors.New("cannot add batches after overlap resolution")
	}
	if batch.Version == nil {
		return fmt.Errorf("%w: batch has no version record", ErrContractViolation)
	}

	attributeMap := engine.addAttributeRefs(batch.AttributeRefs)

	stopMap, err := engine.addStops(batch.Stops, attributeMap)
	if err != nil {
		return err
	}

	if err := engine.addStopPosts(batch.StopPosts, stopMap); err != nil {
		return err
	}

	agencyMap := engine.addAgencies(batch.Agencies)

	routeMap, err := engine.addRoutes(batch.Routes, batch.Version.Date, agencyMap)
	if err != nil {
		return err
	}

	if err := engine.remapDependents(batch, routeMap, stopMap, agencyMap, attributeMap); err != nil {
		return err
	}

	engine.batches += 1

	log.Info().
		Str("batch", batch.Version.BatchID).
		Str("date", batch.Version.Date.String()).
		Int("stops", len(batch.Stops)).
		Int("routes", len(batch.Routes)).
		Msg("Merged batch")

	return nil
}

// addAttributeRefs deduplicates the batch's fixed-code table against the
// global one and returns the old code -> global code map
func (engine *Engine) addAttributeRefs(refs []*jdf.AttributeRef) map[int]int {
	attributeMap := map[int]int{}

	for _, ref := range refs {
		key := attributeKey{Value: ref.Value, Reserved: ref.Reserved}

		code, exists := engine.attributeCodes[key]
		if !exists {
			engine.attributeSeq += 1
			code = engine.attributeSeq

			engine.attributeCodes[key] = code
			engine.store.attributes = append(engine.store.attributes, &jdf.AttributeRef{
				Code:     code,
				Value:    ref.Value,
				Reserved: ref.Reserved,
			})
		}

		attributeMap[ref.Code] = code
	}

	return attributeMap
}

// rewriteAttributes maps a record's attribute codes through the batch
// local map. An unknown code means the record references a fixed-code row
// the batch never declared.
func rewriteAttributes(codes []int, attributeMap map[int]int) ([]int, error) {
	if len(codes) == 0 {
		return nil, nil
	}

	rewritten := make([]int, 0, len(codes))
	for _, code := range codes {
		mapped, exists := attributeMap[code]
		if !exists {
			return nil, fmt.Errorf("%w: attribute code %d missing from batch fixed-code table", ErrContractViolation, code)
		}

		rewritten = append(rewritten, mapped)
	}

	return rewritten, nil
}

func (engine *Engine) addStops(stops []*jdf.Stop, attributeMap map[int]int) (map[int]int, error) {
	stopMap := map[int]int{}

	for _, stop := range stops {
		identity := stop.NameTuple()

		id, exists := engine.stopIDs[identity]
		if exists {
			engine.mergeStopLocation(engine.stopsByID[id], stop.Location)
		} else {
			attributes, err := rewriteAttributes(stop.Attributes, attributeMap)
			if err != nil {
				return nil, fmt.Errorf("stop %d: %w", stop.ID, err)
			}

			engine.stopSeq += 1
			id = engine.stopSeq

			if stop.Country == "" || stop.Region == "" {
				log.Warn().Str("town", stop.Town).Str("district", stop.District).Msg("Stop has no country/region")
			}

			merged := *stop
			merged.ID = id
			merged.Attributes = attributes
			if stop.Location != nil {
				location := *stop.Location
				merged.Location = &location
			}

			engine.stopIDs[identity] = id
			engine.stopsByID[id] = &merged
			engine.store.stops = append(engine.store.stops, &merged)
		}

		stopMap[stop.ID] = id
	}

	return stopMap, nil
}

// mergeStopLocation folds an incoming geolocation into an already known
// stop. Stop-precise always beats town-precise; between two stop-precise
// values the first seen is kept, with a diagnostic when they disagree by
// more than the configured distance.
func (engine *Engine) mergeStopLocation(stop *jdf.Stop, incoming *jdf.Location) {
	if incoming == nil {
		return
	}

	existing := stop.Location

	if existing == nil || (existing.Precision == jdf.LocationPrecisionTown && incoming.Precision == jdf.LocationPrecisionStop) {
		location := *incoming
		stop.Location = &location
		return
	}

	if existing.Precision == jdf.LocationPrecisionStop && incoming.Precision == jdf.LocationPrecisionStop {
		if distance := existing.DistanceFrom(incoming); distance > engine.options.LocationDistanceWarn {
			log.Warn().
				Str("town", stop.Town).
				Str("district", stop.District).
				Float64("distance", distance).
				Msg("Conflicting stop locations")
		}
	}
}

// addStopPosts inserts unknown (stop, post) pairs and silently drops
// duplicates from later batches
func (engine *Engine) addStopPosts(posts []*jdf.StopPost, stopMap map[int]int) error {
	for _, post := range posts {
		stopID, exists := stopMap[post.StopID]
		if !exists {
			return fmt.Errorf("%w: stop post %d references stop %d missing from batch", ErrContractViolation, post.PostID, post.StopID)
		}

		key := stopPostKey{StopID: stopID, PostID: post.PostID}
		if engine.stopPosts[key] {
			continue
		}

		merged := *post
		merged.StopID = stopID

		engine.stopPosts[key] = true
		engine.store.stopPosts = append(engine.store.stopPosts, &merged)
	}

	return nil
}

// addAgencies deduplicates agencies on name. A new agency under an
// already known external company number gets the next distinction, so
// legally distinct operators sharing an ICO stay separate rows.
func (engine *Engine) addAgencies(agencies []*jdf.Agency) map[AgencyKey]AgencyKey {
	agencyMap := map[AgencyKey]AgencyKey{}

	for _, agency := range agencies {
		key, exists := engine.agencyByName[agency.Name]
		if !exists {
			engine.agencyCount[agency.ICO] += 1

			key = AgencyKey{ICO: agency.ICO, Distinction: engine.agencyCount[agency.ICO]}

			merged := *agency
			merged.Distinction = key.Distinction

			engine.agencyByName[agency.Name] = key
			engine.store.agencies = append(engine.store.agencies, &merged)
		}

		agencyMap[AgencyKey{ICO: agency.ICO, Distinction: agency.Distinction}] = key
	}

	return agencyMap
}

// addRoutes appends every incoming route as a fresh variant of its
// license number. No identity decision happens here - whether two
// variants are really the same line over time is decided entirely by the
// overlap resolver.
func (engine *Engine) addRoutes(routes []*jdf.Route, batchDate jdf.Date, agencyMap map[AgencyKey]AgencyKey) (map[RouteKey]int, error) {
	routeMap := map[RouteKey]int{}

	for _, route := range routes {
		agency, exists := agencyMap[AgencyKey{ICO: route.AgencyICO, Distinction: route.AgencyDistinction}]
		if !exists {
			return nil, fmt.Errorf("%w: route %s references agency %s/%d missing from batch", ErrContractViolation,
				route.LicenseNumber, route.AgencyICO, route.AgencyDistinction)
		}

		engine.routeCount[route.LicenseNumber] += 1
		distinction := engine.routeCount[route.LicenseNumber]

		merged := *route
		merged.Distinction = distinction
		merged.AgencyICO = agency.ICO
		merged.AgencyDistinction = agency.Distinction

		engine.store.putRoute(&merged)
		engine.routeDates[RouteKey{LicenseNumber: route.LicenseNumber, Distinction: distinction}] = batchDate

		routeMap[RouteKey{LicenseNumber: route.LicenseNumber, Distinction: route.Distinction}] = distinction
	}

	return routeMap, nil
}

// Snapshot materializes the accumulated tables into one aggregate of the
// same shape as the input batches, deterministically ordered. Call it
// after ResolveOverlaps; the engine itself is done at that point.
func (engine *Engine) Snapshot() *jdf.Batch {
	var latest jdf.Date
	for _, date := range engine.routeDates {
		if date.After(latest) {
			latest = date
		}
	}

	return engine.store.snapshot(latest)
}

package merge

import (
	"fmt"
	"sort"

	"github.com/jdfmerge/jdfmerge/pkg/jdf"
	"github.com/jdfmerge/jdfmerge/pkg/util"
	"github.com/jinzhu/copier"
	"golang.org/x/exp/maps"
)

// store is the accumulated dataset. Route variants live in an arena
// keyed by (license number, distinction) and their dependent records are
// bucketed per license number, so overlap resolution of one license never
// touches another's state.
type store struct {
	attributes []*jdf.AttributeRef
	stops      []*jdf.Stop
	stopPosts  []*jdf.StopPost
	agencies   []*jdf.Agency

	routes map[string]map[int]*jdf.Route
	deps   map[string]*routeDependents
}

func newStore() *store {
	return &store{
		routes: map[string]map[int]*jdf.Route{},
		deps:   map[string]*routeDependents{},
	}
}

func (s *store) putRoute(route *jdf.Route) {
	variants := s.routes[route.LicenseNumber]
	if variants == nil {
		variants = map[int]*jdf.Route{}
		s.routes[route.LicenseNumber] = variants
	}

	variants[route.Distinction] = route
}

func (s *store) dependents(license string) *routeDependents {
	dependents := s.deps[license]
	if dependents == nil {
		dependents = &routeDependents{}
		s.deps[license] = dependents
	}

	return dependents
}

// routeDependents holds every table whose rows are keyed by a route
// variant of one license number
type routeDependents struct {
	RouteStops          []*jdf.RouteStop
	Trips               []*jdf.Trip
	TripGroups          []*jdf.TripGroup
	TripStops           []*jdf.TripStop
	RouteInfos          []*jdf.RouteInfo
	ServiceNotes        []*jdf.ServiceNote
	Transfers           []*jdf.Transfer
	AgencyAlternations  []*jdf.AgencyAlternation
	AlternateRouteNames []*jdf.AlternateRouteName
	Reservations        []*jdf.ReservationOptions
}

// remove cascade-drops every row keyed by the distinction in one step
func (d *routeDependents) remove(distinction int) {
	dropDistinction(&d.RouteStops, distinction)
	dropDistinction(&d.Trips, distinction)
	dropDistinction(&d.TripGroups, distinction)
	dropDistinction(&d.TripStops, distinction)
	dropDistinction(&d.RouteInfos, distinction)
	dropDistinction(&d.ServiceNotes, distinction)
	dropDistinction(&d.Transfers, distinction)
	dropDistinction(&d.AgencyAlternations, distinction)
	dropDistinction(&d.AlternateRouteNames, distinction)
	dropDistinction(&d.Reservations, distinction)
}

// duplicate deep-copies every row keyed by the source distinction under
// the new one, all other fields unchanged
func (d *routeDependents) duplicate(from int, to int) error {
	if err := copyDistinction(&d.RouteStops, from, to); err != nil {
		return err
	}
	if err := copyDistinction(&d.Trips, from, to); err != nil {
		return err
	}
	if err := copyDistinction(&d.TripGroups, from, to); err != nil {
		return err
	}
	if err := copyDistinction(&d.TripStops, from, to); err != nil {
		return err
	}
	if err := copyDistinction(&d.RouteInfos, from, to); err != nil {
		return err
	}
	if err := copyDistinction(&d.ServiceNotes, from, to); err != nil {
		return err
	}
	if err := copyDistinction(&d.Transfers, from, to); err != nil {
		return err
	}
	if err := copyDistinction(&d.AgencyAlternations, from, to); err != nil {
		return err
	}
	if err := copyDistinction(&d.AlternateRouteNames, from, to); err != nil {
		return err
	}
	if err := copyDistinction(&d.Reservations, from, to); err != nil {
		return err
	}

	return nil
}

func dropDistinction[T jdf.RouteDependent](records *[]T, distinction int) {
	util.InPlaceFilter(records, func(record T) bool {
		return record.RouteDistinction() != distinction
	})
}

func copyDistinction[T any, PT interface {
	jdf.RouteDependent
	*T
}](records *[]PT, from int, to int) error {
	// records appended mid-loop would be revisited, so snapshot the range
	existing := *records

	for _, record := range existing {
		if record.RouteDistinction() != from {
			continue
		}

		duplicate := PT(new(T))
		err := copier.CopyWithOption(duplicate, record, copier.Option{DeepCopy: true})
		if err != nil {
			return fmt.Errorf("duplicating dependent record: %w", err)
		}

		duplicate.SetRouteDistinction(to)
		*records = append(*records, duplicate)
	}

	return nil
}

// snapshot flattens the accumulated tables into one aggregate,
// deterministically ordered
func (s *store) snapshot(date jdf.Date) *jdf.Batch {
	batch := &jdf.Batch{
		Version: &jdf.Version{
			Format:  jdf.FormatVersion,
			BatchID: "merged",
			Date:    date,
		},

		Stops:         s.stops,
		StopPosts:     s.stopPosts,
		Agencies:      s.agencies,
		AttributeRefs: s.attributes,
	}

	sort.Slice(batch.Stops, func(i, j int) bool {
		return batch.Stops[i].ID < batch.Stops[j].ID
	})
	sort.Slice(batch.StopPosts, func(i, j int) bool {
		if batch.StopPosts[i].StopID != batch.StopPosts[j].StopID {
			return batch.StopPosts[i].StopID < batch.StopPosts[j].StopID
		}
		return batch.StopPosts[i].PostID < batch.StopPosts[j].PostID
	})
	sort.Slice(batch.Agencies, func(i, j int) bool {
		if batch.Agencies[i].ICO != batch.Agencies[j].ICO {
			return batch.Agencies[i].ICO < batch.Agencies[j].ICO
		}
		return batch.Agencies[i].Distinction < batch.Agencies[j].Distinction
	})
	sort.Slice(batch.AttributeRefs, func(i, j int) bool {
		return batch.AttributeRefs[i].Code < batch.AttributeRefs[j].Code
	})

	licenses := maps.Keys(s.routes)
	sort.Strings(licenses)

	for _, license := range licenses {
		distinctions := maps.Keys(s.routes[license])
		sort.Ints(distinctions)

		for _, distinction := range distinctions {
			batch.Routes = append(batch.Routes, s.routes[license][distinction])
		}

		dependents := s.deps[license]
		if dependents == nil {
			continue
		}

		batch.RouteStops = append(batch.RouteStops, dependents.RouteStops...)
		batch.Trips = append(batch.Trips, dependents.Trips...)
		batch.TripGroups = append(batch.TripGroups, dependents.TripGroups...)
		batch.TripStops = append(batch.TripStops, dependents.TripStops...)
		batch.RouteInfos = append(batch.RouteInfos, dependents.RouteInfos...)
		batch.ServiceNotes = append(batch.ServiceNotes, dependents.ServiceNotes...)
		batch.Transfers = append(batch.Transfers, dependents.Transfers...)
		batch.AgencyAlternations = append(batch.AgencyAlternations, dependents.AgencyAlternations...)
		batch.AlternateRouteNames = append(batch.AlternateRouteNames, dependents.AlternateRouteNames...)
		batch.Reservations = append(batch.Reservations, dependents.Reservations...)
	}

	return batch
}

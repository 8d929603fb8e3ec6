package merge

import (
	"fmt"

	"github.com/jdfmerge/jdfmerge/pkg/jdf"
)

// remapDependents rewrites every foreign key of the batch's dependent
// records through the maps built for its primary tables, then appends
// the rewritten copies to the accumulated store. Input records are never
// mutated.
func (engine *Engine) remapDependents(batch *jdf.Batch, routeMap map[RouteKey]int, stopMap map[int]int, agencyMap map[AgencyKey]AgencyKey, attributeMap map[int]int) error {
	routeRef := func(record jdf.RouteDependent, license string) (int, error) {
		distinction, exists := routeMap[RouteKey{LicenseNumber: license, Distinction: record.RouteDistinction()}]
		if !exists {
			return 0, fmt.Errorf("%w: record references route %s/%d missing from batch", ErrContractViolation, license, record.RouteDistinction())
		}

		return distinction, nil
	}

	stopRef := func(stopID int) (int, error) {
		mapped, exists := stopMap[stopID]
		if !exists {
			return 0, fmt.Errorf("%w: record references stop %d missing from batch", ErrContractViolation, stopID)
		}

		return mapped, nil
	}

	for _, record := range batch.RouteStops {
		distinction, err := routeRef(record, record.LicenseNumber)
		if err != nil {
			return err
		}
		stopID, err := stopRef(record.StopID)
		if err != nil {
			return err
		}
		attributes, err := rewriteAttributes(record.Attributes, attributeMap)
		if err != nil {
			return err
		}

		merged := *record
		merged.Distinction = distinction
		merged.StopID = stopID
		merged.Attributes = attributes

		dependents := engine.store.dependents(record.LicenseNumber)
		dependents.RouteStops = append(dependents.RouteStops, &merged)
	}

	for _, record := range batch.Trips {
		distinction, err := routeRef(record, record.LicenseNumber)
		if err != nil {
			return err
		}
		attributes, err := rewriteAttributes(record.Attributes, attributeMap)
		if err != nil {
			return err
		}

		merged := *record
		merged.Distinction = distinction
		merged.Attributes = attributes

		dependents := engine.store.dependents(record.LicenseNumber)
		dependents.Trips = append(dependents.Trips, &merged)
	}

	for _, record := range batch.TripGroups {
		distinction, err := routeRef(record, record.LicenseNumber)
		if err != nil {
			return err
		}

		merged := *record
		merged.Distinction = distinction

		dependents := engine.store.dependents(record.LicenseNumber)
		dependents.TripGroups = append(dependents.TripGroups, &merged)
	}

	for _, record := range batch.TripStops {
		distinction, err := routeRef(record, record.LicenseNumber)
		if err != nil {
			return err
		}
		stopID, err := stopRef(record.StopID)
		if err != nil {
			return err
		}
		attributes, err := rewriteAttributes(record.Attributes, attributeMap)
		if err != nil {
			return err
		}

		merged := *record
		merged.Distinction = distinction
		merged.StopID = stopID
		merged.Attributes = attributes

		dependents := engine.store.dependents(record.LicenseNumber)
		dependents.TripStops = append(dependents.TripStops, &merged)
	}

	for _, record := range batch.RouteInfos {
		distinction, err := routeRef(record, record.LicenseNumber)
		if err != nil {
			return err
		}

		merged := *record
		merged.Distinction = distinction

		dependents := engine.store.dependents(record.LicenseNumber)
		dependents.RouteInfos = append(dependents.RouteInfos, &merged)
	}

	for _, record := range batch.ServiceNotes {
		distinction, err := routeRef(record, record.LicenseNumber)
		if err != nil {
			return err
		}

		merged := *record
		merged.Distinction = distinction

		dependents := engine.store.dependents(record.LicenseNumber)
		dependents.ServiceNotes = append(dependents.ServiceNotes, &merged)
	}

	for _, record := range batch.Transfers {
		distinction, err := routeRef(record, record.LicenseNumber)
		if err != nil {
			return err
		}
		stopID, err := stopRef(record.StopID)
		if err != nil {
			return err
		}

		merged := *record
		merged.Distinction = distinction
		merged.StopID = stopID

		dependents := engine.store.dependents(record.LicenseNumber)
		dependents.Transfers = append(dependents.Transfers, &merged)
	}

	for _, record := range batch.AgencyAlternations {
		distinction, err := routeRef(record, record.LicenseNumber)
		if err != nil {
			return err
		}
		agency, exists := agencyMap[AgencyKey{ICO: record.AgencyICO, Distinction: record.AgencyDistinction}]
		if !exists {
			return fmt.Errorf("%w: agency alternation references agency %s/%d missing from batch", ErrContractViolation,
				record.AgencyICO, record.AgencyDistinction)
		}
		attributes, err := rewriteAttributes(record.Attributes, attributeMap)
		if err != nil {
			return err
		}

		merged := *record
		merged.Distinction = distinction
		merged.AgencyICO = agency.ICO
		merged.AgencyDistinction = agency.Distinction
		merged.Attributes = attributes

		dependents := engine.store.dependents(record.LicenseNumber)
		dependents.AgencyAlternations = append(dependents.AgencyAlternations, &merged)
	}

	for _, record := range batch.AlternateRouteNames {
		distinction, err := routeRef(record, record.LicenseNumber)
		if err != nil {
			return err
		}

		merged := *record
		merged.Distinction = distinction

		dependents := engine.store.dependents(record.LicenseNumber)
		dependents.AlternateRouteNames = append(dependents.AlternateRouteNames, &merged)
	}

	for _, record := range batch.Reservations {
		distinction, err := routeRef(record, record.LicenseNumber)
		if err != nil {
			return err
		}

		merged := *record
		merged.Distinction = distinction

		dependents := engine.store.dependents(record.LicenseNumber)
		dependents.Reservations = append(dependents.Reservations, &merged)
	}

	return nil
}

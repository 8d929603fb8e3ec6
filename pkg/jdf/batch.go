package jdf

// FormatVersion is the version of the legacy timetable format this
// package reads and writes
const FormatVersion = "1.11"

// Version is the batch metadata record. Date is the creation date of the
// batch at its source and drives the priority rule during overlap
// resolution.
type Version struct {
	Format  string
	BatchID string
	Date    Date
	Comment string
}

// Batch is one self-contained set of parsed timetable records from a
// single source. The merger consumes batches one at a time and its final
// snapshot is a Batch of the same shape holding the union of everything
// it was fed.
type Batch struct {
	Version *Version

	Stops     []*Stop
	StopPosts []*StopPost
	Agencies  []*Agency
	Routes    []*Route

	RouteStops          []*RouteStop
	Trips               []*Trip
	TripGroups          []*TripGroup
	TripStops           []*TripStop
	RouteInfos          []*RouteInfo
	ServiceNotes        []*ServiceNote
	Transfers           []*Transfer
	AgencyAlternations  []*AgencyAlternation
	AlternateRouteNames []*AlternateRouteName
	Reservations        []*ReservationOptions

	AttributeRefs []*AttributeRef
}

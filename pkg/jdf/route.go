package jdf

// Route is one validity-period variant of a line. (LicenseNumber,
// Distinction) is the key every dependent record references. Several
// variants of the same license number can coexist until the overlap
// resolver enforces disjoint validity intervals.
type Route struct {
	LicenseNumber string
	Name          string

	AgencyICO         string
	AgencyDistinction int

	RouteType   string
	VehicleType string

	// Detour marks a temporary deviation variant, it outranks regular
	// variants during overlap resolution
	Detour bool
	OneWay bool

	Reserved string

	ValidFrom Date
	ValidTo   Date

	Distinction int
}

type RouteStop struct {
	LicenseNumber string
	TariffNumber  int

	StopID      int
	AverageTime int

	Attributes []int

	Distinction int
}

type RouteInfo struct {
	LicenseNumber string
	LineNumber    int

	Text string

	Distinction int
}

type AlternateRouteName struct {
	LicenseNumber string

	AlternateName string

	ValidFrom Date
	ValidTo   Date

	Distinction int
}

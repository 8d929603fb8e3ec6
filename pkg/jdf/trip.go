package jdf

type Trip struct {
	LicenseNumber string
	TripNumber    int

	GroupID int

	Attributes []int

	Distinction int
}

type TripGroup struct {
	LicenseNumber string
	GroupID       int

	Name     string
	Reserved string

	Distinction int
}

type TripStop struct {
	LicenseNumber string
	TripNumber    int
	TariffNumber  int

	StopID     int
	StopPostID int

	Kilometres int

	// Times are in the legacy HHMM wire form, "<" and "|" markers included
	Arrival   string
	Departure string

	Attributes []int

	Distinction int
}

// ServiceNote is a time-code restriction on a trip (runs on workdays,
// runs only in a date range, and so on)
type ServiceNote struct {
	LicenseNumber string
	TripNumber    int
	NoteID        int

	Designation string
	Type        string

	DateFrom Date
	DateTo   Date

	Note string

	Distinction int
}

type Transfer struct {
	Type string

	LicenseNumber string
	TripNumber    int
	TariffNumber  int

	StopID int

	MaxWaitMinutes int

	Distinction int
}

// AgencyAlternation assigns trips of a route to a different operator for
// part of the validity period
type AgencyAlternation struct {
	LicenseNumber string
	TripNumber    int

	AgencyICO         string
	AgencyDistinction int

	Attributes []int

	DateFrom Date
	DateTo   Date

	Reserved string

	Distinction int
}

type ReservationOptions struct {
	LicenseNumber string
	TripNumber    int

	Contact string
	Note    string

	Distinction int
}

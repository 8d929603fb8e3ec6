package jdf

// Agency is one timetable operator. ICO is the external company number;
// several legally distinct agencies can share one ICO and are told apart
// by Distinction.
type Agency struct {
	ICO         string
	TaxID       string
	Name        string
	CompanyType string
	PersonName  string
	Address     string
	Phone       string
	Email       string
	Website     string

	Distinction int
}

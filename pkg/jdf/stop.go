package jdf

// Stop is one row of the stop register. Across batches a stop is
// identified by its full name tuple, not by ID - IDs are only unique
// within a single batch until the merger reassigns them.
type Stop struct {
	ID int

	Town        string
	District    string
	NearbyPlace string
	Region      string
	Country     string

	Attributes []int

	// Location is attached by geo enrichment outside the text format,
	// it is never present in a freshly parsed batch
	Location *Location
}

// NameTuple returns the identity of the stop as used for cross-batch deduplication
func (s *Stop) NameTuple() [5]string {
	return [5]string{s.Town, s.District, s.NearbyPlace, s.Region, s.Country}
}

// StopPost is a designated boarding point within a stop
type StopPost struct {
	StopID int
	PostID int

	Name     string
	Reserved string
}

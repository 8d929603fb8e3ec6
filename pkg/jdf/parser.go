package jdf

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// ParseBatch reads one batch directory of legacy timetable text files.
// Files are Windows-1250 encoded, one record per line, fields double
// quoted and comma separated with a terminating semicolon.
//
// The parser only checks record shape. Referential consistency between
// the files of one batch is the producer's contract and is enforced by
// the merge engine when the batch is added.
func ParseBatch(dir string) (*Batch, error) {
	batch := &Batch{}

	versionRecords, err := readRecords(dir, "VerzeJDF.txt", true)
	if err != nil {
		return nil, err
	}
	if len(versionRecords) == 0 {
		return nil, fmt.Errorf("%s: missing version record", filepath.Join(dir, "VerzeJDF.txt"))
	}
	batch.Version, err = parseVersion(versionRecords[0])
	if err != nil {
		return nil, fmt.Errorf("VerzeJDF.txt: %w", err)
	}

	if err := parseFile(dir, "Zastavky.txt", true, &batch.Stops, parseStop); err != nil {
		return nil, err
	}
	if err := parseFile(dir, "Oznacniky.txt", false, &batch.StopPosts, parseStopPost); err != nil {
		return nil, err
	}
	if err := parseFile(dir, "Dopravci.txt", true, &batch.Agencies, parseAgency); err != nil {
		return nil, err
	}
	if err := parseFile(dir, "Linky.txt", true, &batch.Routes, parseRoute); err != nil {
		return nil, err
	}
	if err := parseFile(dir, "Zaslinky.txt", true, &batch.RouteStops, parseRouteStop); err != nil {
		return nil, err
	}
	if err := parseFile(dir, "Spoje.txt", true, &batch.Trips, parseTrip); err != nil {
		return nil, err
	}
	if err := parseFile(dir, "SpojSkup.txt", false, &batch.TripGroups, parseTripGroup); err != nil {
		return nil, err
	}
	if err := parseFile(dir, "Zasspoje.txt", true, &batch.TripStops, parseTripStop); err != nil {
		return nil, err
	}
	if err := parseFile(dir, "Udaje.txt", false, &batch.RouteInfos, parseRouteInfo); err != nil {
		return nil, err
	}
	if err := parseFile(dir, "Caskody.txt", false, &batch.ServiceNotes, parseServiceNote); err != nil {
		return nil, err
	}
	if err := parseFile(dir, "Navaznosti.txt", false, &batch.Transfers, parseTransfer); err != nil {
		return nil, err
	}
	if err := parseFile(dir, "Altdop.txt", false, &batch.AgencyAlternations, parseAgencyAlternation); err != nil {
		return nil, err
	}
	if err := parseFile(dir, "Altlinky.txt", false, &batch.AlternateRouteNames, parseAlternateRouteName); err != nil {
		return nil, err
	}
	if err := parseFile(dir, "Mistenky.txt", false, &batch.Reservations, parseReservation); err != nil {
		return nil, err
	}
	if err := parseFile(dir, "Pevnykod.txt", true, &batch.AttributeRefs, parseAttributeRef); err != nil {
		return nil, err
	}

	return batch, nil
}

func parseFile[T any](dir string, name string, required bool, target *[]*T, parse func(*row) (*T, error)) error {
	records, err := readRecords(dir, name, required)
	if err != nil {
		return err
	}

	for index, record := range records {
		parsed, err := parse(&row{fields: record})
		if err != nil {
			return fmt.Errorf("%s record %d: %w", name, index+1, err)
		}

		*target = append(*target, parsed)
	}

	return nil
}

func readRecords(dir string, name string, required bool) ([][]string, error) {
	file, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	decoded, err := io.ReadAll(transform.NewReader(file, charmap.Windows1250.NewDecoder()))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	// Strip the record-terminating semicolons so the remainder is plain CSV
	lines := strings.Split(string(decoded), "\n")
	for index, line := range lines {
		line = strings.TrimRight(line, "\r")
		lines[index] = strings.TrimSuffix(line, ";")
	}

	reader := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	return records, nil
}

// row reads positional fields out of one record, remembering the first
// conversion error so each parse function only has to check once
type row struct {
	fields []string
	err    error
}

func (r *row) str(index int) string {
	if index >= len(r.fields) {
		return ""
	}

	return r.fields[index]
}

func (r *row) int(index int) int {
	value := r.str(index)
	if value == "" {
		return 0
	}

	number, err := strconv.Atoi(value)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("field %d: %w", index+1, err)
	}

	return number
}

func (r *row) bool(index int) bool {
	return r.str(index) == "1"
}

func (r *row) date(index int) Date {
	value := r.str(index)
	if value == "" {
		if r.err == nil {
			r.err = fmt.Errorf("field %d: missing required date", index+1)
		}
		return Date{}
	}

	date, err := ParseDate(value)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("field %d: %w", index+1, err)
	}

	return date
}

func (r *row) optionalDate(index int) Date {
	if r.str(index) == "" {
		return Date{}
	}

	return r.date(index)
}

func (r *row) attributes(from int, to int) []int {
	var codes []int

	for index := from; index <= to; index++ {
		if r.str(index) == "" {
			continue
		}

		codes = append(codes, r.int(index))
	}

	return codes
}

func parseVersion(record []string) (*Version, error) {
	r := &row{fields: record}

	version := &Version{
		Format:  r.str(0),
		BatchID: r.str(1),
		Date:    r.date(2),
		Comment: r.str(3),
	}

	return version, r.err
}

func parseStop(r *row) (*Stop, error) {
	stop := &Stop{
		ID:          r.int(0),
		Town:        r.str(1),
		District:    r.str(2),
		NearbyPlace: r.str(3),
		Region:      r.str(4),
		Country:     r.str(5),
		Attributes:  r.attributes(6, 11),
	}

	return stop, r.err
}

func parseStopPost(r *row) (*StopPost, error) {
	post := &StopPost{
		StopID:   r.int(0),
		PostID:   r.int(1),
		Name:     r.str(2),
		Reserved: r.str(3),
	}

	return post, r.err
}

func parseAgency(r *row) (*Agency, error) {
	agency := &Agency{
		ICO:         r.str(0),
		TaxID:       r.str(1),
		Name:        r.str(2),
		CompanyType: r.str(3),
		PersonName:  r.str(4),
		Address:     r.str(5),
		Phone:       r.str(6),
		Email:       r.str(7),
		Website:     r.str(8),
		Distinction: r.int(9),
	}

	return agency, r.err
}

func parseRoute(r *row) (*Route, error) {
	route := &Route{
		LicenseNumber:     r.str(0),
		Name:              r.str(1),
		AgencyICO:         r.str(2),
		RouteType:         r.str(3),
		VehicleType:       r.str(4),
		Detour:            r.bool(5),
		OneWay:            r.bool(6),
		Reserved:          r.str(7),
		ValidFrom:         r.date(8),
		ValidTo:           r.date(9),
		AgencyDistinction: r.int(10),
		Distinction:       r.int(11),
	}

	return route, r.err
}

func parseRouteStop(r *row) (*RouteStop, error) {
	routeStop := &RouteStop{
		LicenseNumber: r.str(0),
		TariffNumber:  r.int(1),
		AverageTime:   r.int(2),
		StopID:        r.int(3),
		Attributes:    r.attributes(4, 6),
		Distinction:   r.int(7),
	}

	return routeStop, r.err
}

func parseTrip(r *row) (*Trip, error) {
	trip := &Trip{
		LicenseNumber: r.str(0),
		TripNumber:    r.int(1),
		Attributes:    r.attributes(2, 11),
		GroupID:       r.int(12),
		Distinction:   r.int(13),
	}

	return trip, r.err
}

func parseTripGroup(r *row) (*TripGroup, error) {
	group := &TripGroup{
		LicenseNumber: r.str(0),
		GroupID:       r.int(1),
		Name:          r.str(2),
		Reserved:      r.str(3),
		Distinction:   r.int(4),
	}

	return group, r.err
}

func parseTripStop(r *row) (*TripStop, error) {
	tripStop := &TripStop{
		LicenseNumber: r.str(0),
		TripNumber:    r.int(1),
		TariffNumber:  r.int(2),
		StopID:        r.int(3),
		StopPostID:    r.int(4),
		Kilometres:    r.int(5),
		Arrival:       r.str(6),
		Departure:     r.str(7),
		Attributes:    r.attributes(8, 10),
		Distinction:   r.int(11),
	}

	return tripStop, r.err
}

func parseRouteInfo(r *row) (*RouteInfo, error) {
	info := &RouteInfo{
		LicenseNumber: r.str(0),
		LineNumber:    r.int(1),
		Text:          r.str(2),
		Distinction:   r.int(3),
	}

	return info, r.err
}

func parseServiceNote(r *row) (*ServiceNote, error) {
	note := &ServiceNote{
		LicenseNumber: r.str(0),
		TripNumber:    r.int(1),
		NoteID:        r.int(2),
		Designation:   r.str(3),
		Type:          r.str(4),
		DateFrom:      r.optionalDate(5),
		DateTo:        r.optionalDate(6),
		Note:          r.str(7),
		Distinction:   r.int(8),
	}

	return note, r.err
}

func parseTransfer(r *row) (*Transfer, error) {
	transfer := &Transfer{
		Type:           r.str(0),
		LicenseNumber:  r.str(1),
		TripNumber:     r.int(2),
		TariffNumber:   r.int(3),
		StopID:         r.int(4),
		MaxWaitMinutes: r.int(5),
		Distinction:    r.int(6),
	}

	return transfer, r.err
}

func parseAgencyAlternation(r *row) (*AgencyAlternation, error) {
	alternation := &AgencyAlternation{
		LicenseNumber:     r.str(0),
		TripNumber:        r.int(1),
		AgencyICO:         r.str(2),
		Attributes:        r.attributes(3, 8),
		DateFrom:          r.optionalDate(9),
		DateTo:            r.optionalDate(10),
		Reserved:          r.str(11),
		AgencyDistinction: r.int(12),
		Distinction:       r.int(13),
	}

	return alternation, r.err
}

func parseAlternateRouteName(r *row) (*AlternateRouteName, error) {
	alternate := &AlternateRouteName{
		LicenseNumber: r.str(0),
		AlternateName: r.str(1),
		ValidFrom:     r.optionalDate(2),
		ValidTo:       r.optionalDate(3),
		Distinction:   r.int(4),
	}

	return alternate, r.err
}

func parseReservation(r *row) (*ReservationOptions, error) {
	reservation := &ReservationOptions{
		LicenseNumber: r.str(0),
		TripNumber:    r.int(1),
		Contact:       r.str(2),
		Note:          r.str(3),
		Distinction:   r.int(4),
	}

	return reservation, r.err
}

func parseAttributeRef(r *row) (*AttributeRef, error) {
	ref := &AttributeRef{
		Code:     r.int(0),
		Value:    r.str(1),
		Reserved: r.str(2),
	}

	return ref, r.err
}

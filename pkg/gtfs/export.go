package gtfs

import (
	"archive/zip"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/jdfmerge/jdfmerge/pkg/jdf"
	"github.com/rs/zerolog/log"
)

// Row types for the publication files. gocsv writes the header from the
// csv tags.

type AgencyRow struct {
	AgencyID       string `csv:"agency_id"`
	AgencyName     string `csv:"agency_name"`
	AgencyURL      string `csv:"agency_url"`
	AgencyTimezone string `csv:"agency_timezone"`
}

type StopRow struct {
	StopID   string  `csv:"stop_id"`
	StopName string  `csv:"stop_name"`
	StopLat  float64 `csv:"stop_lat"`
	StopLon  float64 `csv:"stop_lon"`
}

type RouteRow struct {
	RouteID        string `csv:"route_id"`
	AgencyID       string `csv:"agency_id"`
	RouteShortName string `csv:"route_short_name"`
	RouteLongName  string `csv:"route_long_name"`
	RouteType      int    `csv:"route_type"`
}

type TripRow struct {
	RouteID   string `csv:"route_id"`
	ServiceID string `csv:"service_id"`
	TripID    string `csv:"trip_id"`
}

type StopTimeRow struct {
	TripID        string `csv:"trip_id"`
	ArrivalTime   string `csv:"arrival_time"`
	DepartureTime string `csv:"departure_time"`
	StopID        string `csv:"stop_id"`
	StopSequence  int    `csv:"stop_sequence"`
}

type CalendarRow struct {
	ServiceID string `csv:"service_id"`
	Monday    int    `csv:"monday"`
	Tuesday   int    `csv:"tuesday"`
	Wednesday int    `csv:"wednesday"`
	Thursday  int    `csv:"thursday"`
	Friday    int    `csv:"friday"`
	Saturday  int    `csv:"saturday"`
	Sunday    int    `csv:"sunday"`
	StartDate string `csv:"start_date"`
	EndDate   string `csv:"end_date"`
}

const busRouteType = 3

// Export writes a merged dataset as a GTFS zip. Each surviving route
// variant becomes one route with one calendar service spanning its
// validity interval.
func Export(dataset *jdf.Batch, timezone string, w io.Writer) error {
	archive := zip.NewWriter(w)

	agencies := make([]*AgencyRow, 0, len(dataset.Agencies))
	for _, agency := range dataset.Agencies {
		agencies = append(agencies, &AgencyRow{
			AgencyID:       agencyID(agency.ICO, agency.Distinction),
			AgencyName:     agency.Name,
			AgencyURL:      agency.Website,
			AgencyTimezone: timezone,
		})
	}
	if err := writeFile(archive, "agency.txt", agencies); err != nil {
		return err
	}

	stops := make([]*StopRow, 0, len(dataset.Stops))
	for _, stop := range dataset.Stops {
		row := &StopRow{
			StopID:   fmt.Sprintf("%d", stop.ID),
			StopName: stopName(stop),
		}

		if stop.Location != nil {
			row.StopLat = stop.Location.Latitude
			row.StopLon = stop.Location.Longitude
		}

		stops = append(stops, row)
	}
	if err := writeFile(archive, "stops.txt", stops); err != nil {
		return err
	}

	var routes []*RouteRow
	var calendars []*CalendarRow
	for _, route := range dataset.Routes {
		id := routeID(route.LicenseNumber, route.Distinction)

		routes = append(routes, &RouteRow{
			RouteID:        id,
			AgencyID:       agencyID(route.AgencyICO, route.AgencyDistinction),
			RouteShortName: route.LicenseNumber,
			RouteLongName:  route.Name,
			RouteType:      busRouteType,
		})

		calendars = append(calendars, &CalendarRow{
			ServiceID: id,
			Monday:    1,
			Tuesday:   1,
			Wednesday: 1,
			Thursday:  1,
			Friday:    1,
			Saturday:  1,
			Sunday:    1,
			StartDate: route.ValidFrom.Format("20060102"),
			EndDate:   route.ValidTo.Format("20060102"),
		})
	}
	if err := writeFile(archive, "routes.txt", routes); err != nil {
		return err
	}
	if err := writeFile(archive, "calendar.txt", calendars); err != nil {
		return err
	}

	var trips []*TripRow
	for _, trip := range dataset.Trips {
		id := routeID(trip.LicenseNumber, trip.Distinction)

		trips = append(trips, &TripRow{
			RouteID:   id,
			ServiceID: id,
			TripID:    tripID(trip.LicenseNumber, trip.Distinction, trip.TripNumber),
		})
	}
	if err := writeFile(archive, "trips.txt", trips); err != nil {
		return err
	}

	var stopTimes []*StopTimeRow
	for _, tripStop := range dataset.TripStops {
		arrival := convertTime(tripStop.Arrival)
		departure := convertTime(tripStop.Departure)

		// "<" and "|" mark stops the trip passes without serving
		if arrival == "" && departure == "" {
			continue
		}
		if arrival == "" {
			arrival = departure
		}
		if departure == "" {
			departure = arrival
		}

		stopTimes = append(stopTimes, &StopTimeRow{
			TripID:        tripID(tripStop.LicenseNumber, tripStop.Distinction, tripStop.TripNumber),
			ArrivalTime:   arrival,
			DepartureTime: departure,
			StopID:        fmt.Sprintf("%d", tripStop.StopID),
			StopSequence:  tripStop.TariffNumber,
		})
	}
	if err := writeFile(archive, "stop_times.txt", stopTimes); err != nil {
		return err
	}

	log.Info().
		Int("stops", len(stops)).
		Int("routes", len(routes)).
		Int("trips", len(trips)).
		Msg("Exported GTFS feed")

	return archive.Close()
}

func writeFile[T any](archive *zip.Writer, name string, rows []T) error {
	file, err := archive.Create(name)
	if err != nil {
		return err
	}

	if err := gocsv.Marshal(rows, file); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}

	return nil
}

func agencyID(ico string, distinction int) string {
	return fmt.Sprintf("%s-%d", ico, distinction)
}

func routeID(license string, distinction int) string {
	return fmt.Sprintf("%s-%d", license, distinction)
}

func tripID(license string, distinction int, trip int) string {
	return fmt.Sprintf("%s-%d-%d", license, distinction, trip)
}

func stopName(stop *jdf.Stop) string {
	parts := []string{stop.Town}

	if stop.District != "" {
		parts = append(parts, stop.District)
	}
	if stop.NearbyPlace != "" {
		parts = append(parts, stop.NearbyPlace)
	}

	return strings.Join(parts, ",")
}

// convertTime turns the legacy HHMM wire form into a GTFS HH:MM:SS
// timestamp, returning "" for the pass-through markers
func convertTime(value string) string {
	if len(value) != 4 {
		return ""
	}

	for _, character := range value {
		if character < '0' || character > '9' {
			return ""
		}
	}

	return fmt.Sprintf("%s:%s:00", value[:2], value[2:])
}

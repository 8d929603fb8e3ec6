package database

import (
	"context"

	"github.com/jdfmerge/jdfmerge/pkg/jdf"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// UploadDataset replaces the published collections with the contents of
// a merged dataset. Each table is dropped and bulk-inserted whole - the
// merged snapshot is the source of truth, there is nothing to reconcile
// against.
func UploadDataset(dataset *jdf.Batch) error {
	if err := replaceCollection("stops", dataset.Stops); err != nil {
		return err
	}
	if err := replaceCollection("stop_posts", dataset.StopPosts); err != nil {
		return err
	}
	if err := replaceCollection("agencies", dataset.Agencies); err != nil {
		return err
	}
	if err := replaceCollection("routes", dataset.Routes); err != nil {
		return err
	}
	if err := replaceCollection("route_stops", dataset.RouteStops); err != nil {
		return err
	}
	if err := replaceCollection("trips", dataset.Trips); err != nil {
		return err
	}
	if err := replaceCollection("trip_groups", dataset.TripGroups); err != nil {
		return err
	}
	if err := replaceCollection("trip_stops", dataset.TripStops); err != nil {
		return err
	}
	if err := replaceCollection("route_infos", dataset.RouteInfos); err != nil {
		return err
	}
	if err := replaceCollection("service_notes", dataset.ServiceNotes); err != nil {
		return err
	}
	if err := replaceCollection("transfers", dataset.Transfers); err != nil {
		return err
	}
	if err := replaceCollection("agency_alternations", dataset.AgencyAlternations); err != nil {
		return err
	}
	if err := replaceCollection("alternate_route_names", dataset.AlternateRouteNames); err != nil {
		return err
	}
	if err := replaceCollection("reservations", dataset.Reservations); err != nil {
		return err
	}
	if err := replaceCollection("attribute_refs", dataset.AttributeRefs); err != nil {
		return err
	}

	log.Info().Msg("Uploaded merged dataset")

	return nil
}

func replaceCollection[T any](name string, records []T) error {
	collection := GetCollection(name)

	if err := collection.Drop(context.Background()); err != nil {
		return err
	}

	if len(records) == 0 {
		return nil
	}

	operations := make([]mongo.WriteModel, 0, len(records))
	for _, record := range records {
		bsonRep, err := bson.Marshal(record)
		if err != nil {
			return err
		}

		insertModel := mongo.NewInsertOneModel()
		insertModel.SetDocument(bsonRep)
		operations = append(operations, insertModel)
	}

	_, err := collection.BulkWrite(context.Background(), operations)
	if err != nil {
		return err
	}

	log.Info().Int("records", len(records)).Msgf("Written %s", name)

	return nil
}

package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/utilityops/meter-api/internal/core/domain"
	"github.com/utilityops/meter-api/internal/core/policy"
	"github.com/utilityops/meter-api/internal/core/ports"
)

const collectionMeters = "meters"

// MeterRepository implements ports.MeterRepository using MongoDB. Meters are
// keyed by EAN.
type MeterRepository struct {
	col       *mongo.Collection
	locations *LocationRepository
}

func NewMeterRepository(db *mongo.Database, locations *LocationRepository) *MeterRepository {
	return &MeterRepository{col: db.Collection(collectionMeters), locations: locations}
}

type meterDoc struct {
	EAN        string    `bson:"_id"`
	Status     string    `bson:"status"`
	Type       string    `bson:"type"`
	Reading    float64   `bson:"reading"`
	Unit       string    `bson:"unit"`
	LocationID int64     `bson:"location_id"`
	LastUpdate time.Time `bson:"last_update"`
}

func (d meterDoc) toDomain() *domain.Meter {
	return &domain.Meter{
		EAN:        d.EAN,
		Status:     domain.MeterStatus(d.Status),
		Type:       domain.MeterType(d.Type),
		Reading:    d.Reading,
		Unit:       domain.Unit(d.Unit),
		LocationID: d.LocationID,
		LastUpdate: d.LastUpdate.UTC(),
	}
}

func (r *MeterRepository) FindByEAN(ctx context.Context, ean string) (*domain.Meter, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc meterDoc
	if err := r.col.FindOne(ctx, bson.M{"_id": ean}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrMeterNotFound
		}
		return nil, fmt.Errorf("find meter: %w", err)
	}
	return doc.toDomain(), nil
}

// List returns the meters installed at locations visible under scope.
func (r *MeterRepository) List(ctx context.Context, scope policy.Scope) ([]*domain.Meter, error) {
	filter := bson.M{}
	ids, restricted, err := r.locations.ownedIDs(ctx, scope)
	if err != nil {
		return nil, err
	}
	if restricted {
		if len(ids) == 0 {
			return []*domain.Meter{}, nil
		}
		filter["location_id"] = bson.M{"$in": ids}
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list meters: %w", err)
	}
	var docs []meterDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode meters: %w", err)
	}

	meters := make([]*domain.Meter, 0, len(docs))
	for _, d := range docs {
		meters = append(meters, d.toDomain())
	}
	return meters, nil
}

func (r *MeterRepository) Create(ctx context.Context, m *domain.Meter) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := meterDoc{
		EAN:        m.EAN,
		Status:     string(m.Status),
		Type:       string(m.Type),
		Reading:    m.Reading,
		Unit:       string(m.Unit),
		LocationID: m.LocationID,
		LastUpdate: m.LastUpdate.UTC(),
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrMeterExists
		}
		return fmt.Errorf("insert meter: %w", err)
	}
	return nil
}

// Apply performs a single conditional update. When a reading is supplied the
// filter also requires the stored reading to be lower, so two concurrent
// writers can never move a meter backwards.
func (r *MeterRepository) Apply(ctx context.Context, ean string, change ports.MeterChange) (*domain.Meter, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"_id": ean}
	set := bson.M{"last_update": change.LastUpdate.UTC()}
	if change.Reading != nil {
		filter["reading"] = bson.M{"$lt": *change.Reading}
		set["reading"] = *change.Reading
	}
	if change.Status != nil {
		set["status"] = string(*change.Status)
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc meterDoc
	err := r.col.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&doc)
	if err == nil {
		return doc.toDomain(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("update meter: %w", err)
	}
	if change.Reading == nil {
		return nil, domain.ErrMeterNotFound
	}

	n, err := r.col.CountDocuments(ctx, bson.M{"_id": ean})
	if err != nil {
		return nil, fmt.Errorf("update meter: %w", err)
	}
	if n == 0 {
		return nil, domain.ErrMeterNotFound
	}
	return nil, domain.ErrReadingMustIncrease
}

func (r *MeterRepository) Delete(ctx context.Context, ean string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": ean})
	if err != nil {
		return fmt.Errorf("delete meter: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrMeterNotFound
	}
	return nil
}

func (r *MeterRepository) CountByLocation(ctx context.Context, locationID int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, bson.M{"location_id": locationID})
	if err != nil {
		return 0, fmt.Errorf("count meters: %w", err)
	}
	return n, nil
}

func (r *MeterRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "location_id", Value: 1}}})
	return err
}

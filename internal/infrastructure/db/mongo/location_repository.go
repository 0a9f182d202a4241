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
)

const (
	collectionLocations = "locations"
	sequenceLocations   = "locations"
)

// LocationRepository implements ports.LocationRepository using MongoDB.
type LocationRepository struct {
	col *mongo.Collection
	seq *Sequence
}

func NewLocationRepository(db *mongo.Database, seq *Sequence) *LocationRepository {
	return &LocationRepository{col: db.Collection(collectionLocations), seq: seq}
}

type locationDoc struct {
	ID      int64   `bson:"_id"`
	Name    string  `bson:"name"`
	Lat     float64 `bson:"lat"`
	Lon     float64 `bson:"lon"`
	OwnerID *int64  `bson:"owner_id,omitempty"`
}

func (d locationDoc) toDomain() *domain.Location {
	return &domain.Location{ID: d.ID, Name: d.Name, Lat: d.Lat, Lon: d.Lon, OwnerID: d.OwnerID}
}

func (r *LocationRepository) FindByID(ctx context.Context, id int64) (*domain.Location, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc locationDoc
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrLocationNotFound
		}
		return nil, fmt.Errorf("find location: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *LocationRepository) List(ctx context.Context, scope policy.Scope) ([]*domain.Location, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, locationFilter(scope), options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	var docs []locationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode locations: %w", err)
	}

	locs := make([]*domain.Location, 0, len(docs))
	for _, d := range docs {
		locs = append(locs, d.toDomain())
	}
	return locs, nil
}

// ownedIDs returns the ids of the locations visible under scope.
// restricted is false when the scope does not narrow locations at all.
func (r *LocationRepository) ownedIDs(ctx context.Context, scope policy.Scope) (ids []int64, restricted bool, err error) {
	if scope.Kind == policy.ScopeUnrestricted {
		return nil, false, nil
	}
	locs, err := r.List(ctx, scope)
	if err != nil {
		return nil, true, err
	}
	ids = make([]int64, 0, len(locs))
	for _, l := range locs {
		ids = append(ids, l.ID)
	}
	return ids, true, nil
}

func (r *LocationRepository) Create(ctx context.Context, loc *domain.Location) (*domain.Location, error) {
	id, err := r.seq.Next(ctx, sequenceLocations)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := locationDoc{ID: id, Name: loc.Name, Lat: loc.Lat, Lon: loc.Lon, OwnerID: loc.OwnerID}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert location: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *LocationRepository) Update(ctx context.Context, loc *domain.Location) (*domain.Location, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{"name": loc.Name, "lat": loc.Lat, "lon": loc.Lon}
	update := bson.M{"$set": set}
	if loc.OwnerID != nil {
		set["owner_id"] = *loc.OwnerID
	} else {
		update["$unset"] = bson.M{"owner_id": ""}
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc locationDoc
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": loc.ID}, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrLocationNotFound
		}
		return nil, fmt.Errorf("update location: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *LocationRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete location: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrLocationNotFound
	}
	return nil
}

func (r *LocationRepository) CountByOwner(ctx context.Context, ownerID int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, bson.M{"owner_id": ownerID})
	if err != nil {
		return 0, fmt.Errorf("count locations: %w", err)
	}
	return n, nil
}

func (r *LocationRepository) ClearOwner(ctx context.Context, ownerID int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.UpdateMany(ctx, bson.M{"owner_id": ownerID}, bson.M{"$unset": bson.M{"owner_id": ""}})
	if err != nil {
		return fmt.Errorf("clear location owner: %w", err)
	}
	return nil
}

func (r *LocationRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "owner_id", Value: 1}}})
	return err
}

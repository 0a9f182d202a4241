package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/utilityops/meter-api/internal/core/domain"
)

const collectionReadings = "meter_readings"

// ReadingRepository stores the append-only reading audit trail.
type ReadingRepository struct {
	col *mongo.Collection
}

func NewReadingRepository(db *mongo.Database) *ReadingRepository {
	return &ReadingRepository{col: db.Collection(collectionReadings)}
}

type readingDoc struct {
	EAN         string    `bson:"ean"`
	Reading     float64   `bson:"reading"`
	Unit        string    `bson:"unit"`
	RecordedAt  time.Time `bson:"recorded_at"`
	RecordedBy  string    `bson:"recorded_by"`
	Source      string    `bson:"source"`
	ProcessedAt time.Time `bson:"processed_at"`
}

func (r *ReadingRepository) Append(ctx context.Context, rec *domain.ReadingRecord) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := readingDoc{
		EAN:         rec.EAN,
		Reading:     rec.Reading,
		Unit:        string(rec.Unit),
		RecordedAt:  rec.RecordedAt.UTC(),
		RecordedBy:  rec.RecordedBy,
		Source:      string(rec.Source),
		ProcessedAt: time.Now().UTC(),
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

func (r *ReadingRepository) ListByEAN(ctx context.Context, ean string, limit int) ([]*domain.ReadingRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "recorded_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := r.col.Find(ctx, bson.M{"ean": ean}, opts)
	if err != nil {
		return nil, fmt.Errorf("list readings: %w", err)
	}
	var docs []readingDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode readings: %w", err)
	}

	out := make([]*domain.ReadingRecord, 0, len(docs))
	for _, d := range docs {
		out = append(out, &domain.ReadingRecord{
			EAN:        d.EAN,
			Reading:    d.Reading,
			Unit:       domain.Unit(d.Unit),
			RecordedAt: d.RecordedAt.UTC(),
			RecordedBy: d.RecordedBy,
			Source:     domain.ReadingSource(d.Source),
		})
	}
	return out, nil
}

func (r *ReadingRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "ean", Value: 1}, {Key: "recorded_at", Value: -1}},
	})
	return err
}

package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// Store bundles the repositories that share one database.
type Store struct {
	Users     *UserRepository
	Locations *LocationRepository
	Meters    *MeterRepository
	Readings  *ReadingRepository
}

func NewStore(db *mongo.Database) *Store {
	seq := NewSequence(db)
	locations := NewLocationRepository(db, seq)
	return &Store{
		Users:     NewUserRepository(db, seq),
		Locations: locations,
		Meters:    NewMeterRepository(db, locations),
		Readings:  NewReadingRepository(db),
	}
}

// EnsureIndexes creates the indexes of every collection.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{collectionUsers, s.Users.EnsureIndexes},
		{collectionLocations, s.Locations.EnsureIndexes},
		{collectionMeters, s.Meters.EnsureIndexes},
		{collectionReadings, s.Readings.EnsureIndexes},
	}
	for _, st := range steps {
		if err := st.fn(ctx); err != nil {
			return fmt.Errorf("ensure %s indexes: %w", st.name, err)
		}
	}
	return nil
}

// CredentialStore is the lookup surface used by authentication and the
// location service.
type CredentialStore struct {
	*UserRepository
	meters *MeterRepository
}

func (s *Store) Credentials() CredentialStore {
	return CredentialStore{UserRepository: s.Users, meters: s.Meters}
}

func (c CredentialStore) CountMetersForLocation(ctx context.Context, locationID int64) (int64, error) {
	return c.meters.CountByLocation(ctx, locationID)
}

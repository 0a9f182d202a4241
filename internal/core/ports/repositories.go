package ports

import (
	"context"
	"time"

	"github.com/utilityops/meter-api/internal/core/domain"
	"github.com/utilityops/meter-api/internal/core/policy"
)

// UserFinder resolves users by email. Returns domain.ErrUserNotFound on a miss.
type UserFinder interface {
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

// CredentialStore is the read-only lookup surface the access-control core
// relies on.
type CredentialStore interface {
	UserFinder
	FindUserByID(ctx context.Context, id int64) (*domain.User, error)
	CountMetersForLocation(ctx context.Context, locationID int64) (int64, error)
}

// UserRepository persists users.
type UserRepository interface {
	UserFinder
	FindUserByID(ctx context.Context, id int64) (*domain.User, error)
	// List returns the users visible under scope, ordered by id.
	List(ctx context.Context, scope policy.Scope) ([]*domain.User, error)
	// Create assigns the id. Returns domain.ErrUserExists on a duplicate email.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	// Update replaces name, email, password hash and role.
	Update(ctx context.Context, user *domain.User) (*domain.User, error)
	Delete(ctx context.Context, id int64) error
	ExistsWithRole(ctx context.Context, role domain.Role) (bool, error)
}

// LocationRepository persists locations.
type LocationRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.Location, error)
	List(ctx context.Context, scope policy.Scope) ([]*domain.Location, error)
	Create(ctx context.Context, loc *domain.Location) (*domain.Location, error)
	Update(ctx context.Context, loc *domain.Location) (*domain.Location, error)
	Delete(ctx context.Context, id int64) error
	CountByOwner(ctx context.Context, ownerID int64) (int64, error)
	// ClearOwner unsets the owner of every location owned by ownerID.
	ClearOwner(ctx context.Context, ownerID int64) error
}

// MeterChange carries the mutable fields of a meter update. Nil fields are
// left untouched; LastUpdate is always written.
type MeterChange struct {
	Reading    *float64
	Status     *domain.MeterStatus
	LastUpdate time.Time
}

// MeterRepository persists meters.
type MeterRepository interface {
	FindByEAN(ctx context.Context, ean string) (*domain.Meter, error)
	List(ctx context.Context, scope policy.Scope) ([]*domain.Meter, error)
	// Create returns domain.ErrMeterExists on a duplicate EAN.
	Create(ctx context.Context, m *domain.Meter) error
	// Apply writes change atomically. When change.Reading is set the write
	// only succeeds if the stored reading is still lower, otherwise
	// domain.ErrReadingMustIncrease is returned.
	Apply(ctx context.Context, ean string, change MeterChange) (*domain.Meter, error)
	Delete(ctx context.Context, ean string) error
	CountByLocation(ctx context.Context, locationID int64) (int64, error)
}

// ReadingRepository stores the reading audit trail.
type ReadingRepository interface {
	Append(ctx context.Context, rec *domain.ReadingRecord) error
	// ListByEAN returns the newest records first, at most limit.
	ListByEAN(ctx context.Context, ean string, limit int) ([]*domain.ReadingRecord, error)
}

package ports

import (
	"context"
	"time"

	"github.com/utilityops/meter-api/internal/core/domain"
)

// LoginResult is returned by AuthService.Login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// AuthService exchanges credentials for session tokens and tokens for principals.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Authenticate(ctx context.Context, token string) (domain.Principal, error)
}

// CreateUserInput carries the fields of a new user.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
}

// UpdateUserInput carries a partial user update. Nil fields are left untouched.
type UpdateUserInput struct {
	Name     *string
	Email    *string
	Password *string
	Role     *domain.Role
}

// UserService defines use-case operations for users.
type UserService interface {
	List(ctx context.Context, p domain.Principal) ([]*domain.User, error)
	Get(ctx context.Context, p domain.Principal, id int64) (*domain.User, error)
	Me(ctx context.Context, p domain.Principal) (*domain.User, error)
	Create(ctx context.Context, p domain.Principal, in CreateUserInput) (*domain.User, error)
	Update(ctx context.Context, p domain.Principal, id int64, in UpdateUserInput) (*domain.User, error)
	Delete(ctx context.Context, p domain.Principal, id int64) error
}

// CreateLocationInput carries the fields of a new location.
type CreateLocationInput struct {
	Name    string
	Lat     float64
	Lon     float64
	OwnerID *int64
}

// UpdateLocationInput carries a partial location update.
type UpdateLocationInput struct {
	Name    *string
	Lat     *float64
	Lon     *float64
	OwnerID *int64
}

// LocationService defines use-case operations for locations.
type LocationService interface {
	List(ctx context.Context, p domain.Principal) ([]*domain.Location, error)
	Get(ctx context.Context, p domain.Principal, id int64) (*domain.Location, error)
	Create(ctx context.Context, p domain.Principal, in CreateLocationInput) (*domain.Location, error)
	Update(ctx context.Context, p domain.Principal, id int64, in UpdateLocationInput) (*domain.Location, error)
	Delete(ctx context.Context, p domain.Principal, id int64) error
}

// CreateMeterInput carries the fields of a new meter. The unit is derived
// from Type and cannot be supplied.
type CreateMeterInput struct {
	EAN        string
	Type       domain.MeterType
	Status     domain.MeterStatus
	Reading    float64
	LocationID int64
}

// UpdateMeterInput carries a partial meter update.
type UpdateMeterInput struct {
	Reading *float64
	Status  *domain.MeterStatus
}

// MeterService defines use-case operations for meters.
type MeterService interface {
	List(ctx context.Context, p domain.Principal) ([]*domain.Meter, error)
	Get(ctx context.Context, p domain.Principal, ean string) (*domain.Meter, error)
	Create(ctx context.Context, p domain.Principal, in CreateMeterInput) (*domain.Meter, error)
	Update(ctx context.Context, p domain.Principal, ean string, in UpdateMeterInput) (*domain.Meter, error)
	Delete(ctx context.Context, p domain.Principal, ean string) error
	History(ctx context.Context, p domain.Principal, ean string, limit int) ([]*domain.ReadingRecord, error)
}

// ReadingInput is one reading submitted through the batch endpoint.
type ReadingInput struct {
	BatchID    string
	EAN        string
	Reading    float64
	RecordedBy domain.Principal
}

// ReadingService applies batch readings.
type ReadingService interface {
	Process(ctx context.Context, in ReadingInput) error
}

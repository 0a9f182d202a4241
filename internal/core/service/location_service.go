package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/utilityops/meter-api/internal/core/domain"
	"github.com/utilityops/meter-api/internal/core/policy"
	"github.com/utilityops/meter-api/internal/core/ports"
)

// LocationService implements location management.
type LocationService struct {
	locations ports.LocationRepository
	store     ports.CredentialStore
	log       zerolog.Logger
}

func NewLocationService(locations ports.LocationRepository, store ports.CredentialStore, log zerolog.Logger) *LocationService {
	return &LocationService{locations: locations, store: store, log: log}
}

// List returns the locations visible to p.
func (s *LocationService) List(ctx context.Context, p domain.Principal) ([]*domain.Location, error) {
	d, err := policy.Authorize(p, policy.ListLocations)
	if err != nil {
		return nil, err
	}
	return s.locations.List(ctx, d.Scope)
}

// Get returns a location when it lies inside p's scope.
func (s *LocationService) Get(ctx context.Context, p domain.Principal, id int64) (*domain.Location, error) {
	d, err := policy.Authorize(p, policy.ReadLocation)
	if err != nil {
		return nil, err
	}
	loc, err := s.locations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.Scope.MatchLocation(*loc) {
		return nil, domain.ErrForbidden
	}
	return loc, nil
}

// Create adds a location. A supplied owner must be an existing consumer.
func (s *LocationService) Create(ctx context.Context, p domain.Principal, in ports.CreateLocationInput) (*domain.Location, error) {
	if _, err := policy.Authorize(p, policy.CreateLocation); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if in.OwnerID != nil {
		if err := s.checkOwner(ctx, *in.OwnerID); err != nil {
			return nil, err
		}
	}

	created, err := s.locations.Create(ctx, &domain.Location{
		Name:    in.Name,
		Lat:     in.Lat,
		Lon:     in.Lon,
		OwnerID: in.OwnerID,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("location_id", created.ID).Int64("actor_id", p.UserID).Msg("location created")
	return created, nil
}

// Update applies a partial update. A new owner must be a consumer.
func (s *LocationService) Update(ctx context.Context, p domain.Principal, id int64, in ports.UpdateLocationInput) (*domain.Location, error) {
	d, err := policy.Authorize(p, policy.UpdateLocation)
	if err != nil {
		return nil, err
	}
	loc, err := s.locations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.Scope.MatchLocation(*loc) {
		return nil, domain.ErrForbidden
	}

	if in.OwnerID != nil {
		if err := s.checkOwner(ctx, *in.OwnerID); err != nil {
			return nil, err
		}
		owner := *in.OwnerID
		loc.OwnerID = &owner
	}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", domain.ErrInvalidInput)
		}
		loc.Name = *in.Name
	}
	if in.Lat != nil {
		loc.Lat = *in.Lat
	}
	if in.Lon != nil {
		loc.Lon = *in.Lon
	}

	updated, err := s.locations.Update(ctx, loc)
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("location_id", id).Int64("actor_id", p.UserID).Msg("location updated")
	return updated, nil
}

// Delete removes a location that no longer has meters.
func (s *LocationService) Delete(ctx context.Context, p domain.Principal, id int64) error {
	if _, err := policy.Authorize(p, policy.DeleteLocation); err != nil {
		return err
	}
	loc, err := s.locations.FindByID(ctx, id)
	if err != nil {
		return err
	}
	count, err := s.store.CountMetersForLocation(ctx, id)
	if err != nil {
		return err
	}
	if err := domain.ValidateLocationDeletable(*loc, count); err != nil {
		return err
	}
	if err := s.locations.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Int64("location_id", id).Int64("actor_id", p.UserID).Msg("location deleted")
	return nil
}

func (s *LocationService) checkOwner(ctx context.Context, ownerID int64) error {
	owner, err := s.store.FindUserByID(ctx, ownerID)
	if err != nil {
		return err
	}
	return domain.ValidateLocationOwner(*owner)
}

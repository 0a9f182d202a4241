package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/utilityops/meter-api/internal/core/auth"
	"github.com/utilityops/meter-api/internal/core/domain"
	"github.com/utilityops/meter-api/internal/core/policy"
	"github.com/utilityops/meter-api/internal/core/ports"
)

// UserService implements user management.
type UserService struct {
	users     ports.UserRepository
	locations ports.LocationRepository
	hasher    *auth.Hasher
	log       zerolog.Logger
	now       func() time.Time
}

func NewUserService(users ports.UserRepository, locations ports.LocationRepository, hasher *auth.Hasher, log zerolog.Logger) *UserService {
	return &UserService{users: users, locations: locations, hasher: hasher, log: log, now: time.Now}
}

// List returns the users visible to p.
func (s *UserService) List(ctx context.Context, p domain.Principal) ([]*domain.User, error) {
	d, err := policy.Authorize(p, policy.ListUsers)
	if err != nil {
		return nil, err
	}
	return s.users.List(ctx, d.Scope)
}

// Get returns a single user when it lies inside p's scope.
func (s *UserService) Get(ctx context.Context, p domain.Principal, id int64) (*domain.User, error) {
	d, err := policy.Authorize(p, policy.ReadUser)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.Scope.MatchUser(*user) {
		return nil, domain.ErrForbidden
	}
	return user, nil
}

// Me returns the principal's own record.
func (s *UserService) Me(ctx context.Context, p domain.Principal) (*domain.User, error) {
	return s.users.FindUserByID(ctx, p.UserID)
}

// Create adds a new account. Admin only.
func (s *UserService) Create(ctx context.Context, p domain.Principal, in ports.CreateUserInput) (*domain.User, error) {
	if _, err := policy.Authorize(p, policy.CreateUser); err != nil {
		return nil, err
	}
	return s.create(ctx, in)
}

// Bootstrap creates the initial admin account when no admin exists yet.
// It runs outside any request, so it skips authorization.
func (s *UserService) Bootstrap(ctx context.Context, in ports.CreateUserInput) (*domain.User, bool, error) {
	exists, err := s.users.ExistsWithRole(ctx, domain.RoleAdmin)
	if err != nil {
		return nil, false, fmt.Errorf("bootstrap: %w", err)
	}
	if exists {
		return nil, false, nil
	}
	in.Role = domain.RoleAdmin
	user, err := s.create(ctx, in)
	if err != nil {
		return nil, false, fmt.Errorf("bootstrap: %w", err)
	}
	return user, true, nil
}

func (s *UserService) create(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", domain.ErrInvalidInput)
	}
	if !in.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, in.Role)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	now := s.now().UTC()
	created, err := s.users.Create(ctx, &domain.User{
		Name:         in.Name,
		Email:        normalizeEmail(in.Email),
		PasswordHash: hash,
		Role:         in.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("user_id", created.ID).Str("role", string(created.Role)).Msg("user created")
	return created, nil
}

// Update applies a partial update. Changing the role requires
// UpdateUserRole; other fields require UpdateUserProfile over the target.
func (s *UserService) Update(ctx context.Context, p domain.Principal, id int64, in ports.UpdateUserInput) (*domain.User, error) {
	if in.Role != nil {
		if _, err := policy.Authorize(p, policy.UpdateUserRole); err != nil {
			return nil, err
		}
	}
	d, err := policy.Authorize(p, policy.UpdateUserProfile)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.Scope.MatchUser(*user) {
		return nil, domain.ErrForbidden
	}

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", domain.ErrInvalidInput)
		}
		user.Name = *in.Name
	}
	if in.Email != nil {
		if strings.TrimSpace(*in.Email) == "" {
			return nil, fmt.Errorf("%w: email cannot be empty", domain.ErrInvalidInput)
		}
		user.Email = normalizeEmail(*in.Email)
	}
	if in.Password != nil {
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		user.PasswordHash = hash
	}
	if in.Role != nil && *in.Role != user.Role {
		if !in.Role.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, *in.Role)
		}
		owned, err := s.locations.CountByOwner(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		if err := domain.ValidateRoleChange(*user, *in.Role, owned); err != nil {
			return nil, err
		}
		user.Role = *in.Role
	}
	user.UpdatedAt = s.now().UTC()

	updated, err := s.users.Update(ctx, user)
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("user_id", id).Int64("actor_id", p.UserID).Msg("user updated")
	return updated, nil
}

// Delete removes a user other than the acting principal and releases the
// locations they owned.
func (s *UserService) Delete(ctx context.Context, p domain.Principal, id int64) error {
	if _, err := policy.Authorize(p, policy.DeleteUser); err != nil {
		return err
	}
	if _, err := s.users.FindUserByID(ctx, id); err != nil {
		return err
	}
	if err := domain.ValidateSelfDeleteGuard(p.UserID, id); err != nil {
		return err
	}

	// The user goes first: an owner reference left behind by a failed release
	// points at an ID that is never reissued, while released locations of a
	// user that failed to delete would silently lose their owner.
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.locations.ClearOwner(ctx, id); err != nil {
		return fmt.Errorf("release locations of deleted user %d: %w", id, err)
	}

	s.log.Info().Int64("user_id", id).Int64("actor_id", p.UserID).Msg("user deleted")
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

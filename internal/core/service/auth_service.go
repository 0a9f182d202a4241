package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/utilityops/meter-api/internal/core/auth"
	"github.com/utilityops/meter-api/internal/core/domain"
	"github.com/utilityops/meter-api/internal/core/ports"
)

// LoginThrottle abstracts the failed-login counter (Redis).
type LoginThrottle interface {
	Allow(ctx context.Context, email string) (bool, error)
	RecordFailure(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}

// AuthService implements login and token authentication.
type AuthService struct {
	authn    *auth.Authenticator
	throttle LoginThrottle
	log      zerolog.Logger
}

// NewAuthService wires the authenticator with an optional throttle. A nil
// throttle disables lockout.
func NewAuthService(authn *auth.Authenticator, throttle LoginThrottle, log zerolog.Logger) *AuthService {
	return &AuthService{authn: authn, throttle: throttle, log: log}
}

// Login verifies credentials and issues a session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	email = normalizeEmail(email)

	if s.throttle != nil {
		allowed, err := s.throttle.Allow(ctx, email)
		if err != nil {
			s.log.Warn().Err(err).Msg("login throttle check failed, continuing")
		} else if !allowed {
			s.log.Warn().Str("email", email).Msg("login throttled")
			return nil, domain.ErrInvalidCredentials
		}
	}

	user, err := s.authn.AuthenticateByCredentials(ctx, email, password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) && s.throttle != nil {
			if recErr := s.throttle.RecordFailure(ctx, email); recErr != nil {
				s.log.Warn().Err(recErr).Msg("failed to record login failure")
			}
		}
		return nil, err
	}

	token, exp, err := s.authn.IssueToken(user)
	if err != nil {
		return nil, err
	}

	if s.throttle != nil {
		if err := s.throttle.Reset(ctx, email); err != nil {
			s.log.Warn().Err(err).Msg("failed to reset login throttle")
		}
	}

	s.log.Info().Int64("user_id", user.ID).Str("role", string(user.Role)).Msg("login succeeded")
	return &ports.LoginResult{Token: token, ExpiresAt: exp, User: user}, nil
}

// Authenticate resolves a bearer token into a principal.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.Principal, error) {
	return s.authn.AuthenticateByToken(ctx, token)
}

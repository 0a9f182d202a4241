package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/utilityops/meter-api/internal/core/domain"
	"github.com/utilityops/meter-api/internal/core/ports"
)

// Authenticator turns credentials or session tokens into identities.
type Authenticator struct {
	users  ports.UserFinder
	hasher *Hasher
	codec  *TokenCodec
	log    zerolog.Logger

	// dummyHash is verified against when the email is unknown so that both
	// failure paths cost one bcrypt comparison at the configured cost.
	dummyHash string
}

func NewAuthenticator(users ports.UserFinder, hasher *Hasher, codec *TokenCodec, log zerolog.Logger) *Authenticator {
	dummy, err := hasher.Hash("unknown-account-placeholder")
	if err != nil {
		log.Warn().Err(err).Msg("could not prepare dummy hash")
	}
	return &Authenticator{users: users, hasher: hasher, codec: codec, log: log, dummyHash: dummy}
}

// AuthenticateByCredentials returns the user owning email when password
// matches. Unknown emails and wrong passwords both yield
// domain.ErrInvalidCredentials.
func (a *Authenticator) AuthenticateByCredentials(ctx context.Context, email, password string) (*domain.User, error) {
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := a.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			a.hasher.Verify(password, a.dummyHash)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	if !a.hasher.Verify(password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

// AuthenticateByToken validates token and re-resolves its subject so tokens
// of deleted users stop working immediately. The returned principal carries
// the role currently stored for the user.
func (a *Authenticator) AuthenticateByToken(ctx context.Context, token string) (domain.Principal, error) {
	claims, err := a.codec.Validate(token)
	if err != nil {
		a.log.Debug().Err(err).Msg("token rejected")
		return domain.Principal{}, domain.ErrInvalidCredentials
	}

	user, err := a.users.FindUserByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			a.log.Debug().Str("reason", "subject_not_found").Msg("token rejected")
			return domain.Principal{}, domain.ErrInvalidCredentials
		}
		return domain.Principal{}, fmt.Errorf("authenticate token: %w", err)
	}

	if user.Role != claims.Role {
		a.log.Debug().
			Int64("user_id", user.ID).
			Str("token_role", string(claims.Role)).
			Str("stored_role", string(user.Role)).
			Msg("role changed since token issuance")
	}

	return domain.Principal{UserID: user.ID, Email: user.Email, Role: user.Role}, nil
}

// IssueToken signs a session token for user with the codec's default TTL.
func (a *Authenticator) IssueToken(user *domain.User) (string, time.Time, error) {
	return a.codec.Issue(user.Email, user.Role)
}
